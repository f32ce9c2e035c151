// Package config reads the service configuration from the environment into
// an explicit Config value that is passed to every component at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv        string
	Port          string
	DatabaseURL   string
	SentryDSN     string
	PublicBaseURL string

	JWTSecret            string
	JWTIssuer            string
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	VerificationTokenTTL time.Duration
	BcryptCost           int

	MailWorkerTimeout time.Duration

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	RunMigrations bool
}

type Options struct {
	// LoadDotEnv reads a .env file from the working directory first. Values
	// already present in the environment are not overridden.
	LoadDotEnv bool
	// RunMigrations is the default for RUN_MIGRATIONS_ON_STARTUP.
	RunMigrations bool
}

func Load(options Options) (Config, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return Config{}, err
	}
	jwtSecret, err := mustEnv("JWT_SECRET")
	if err != nil {
		return Config{}, err
	}

	port := envOrDefault("PORT", "8080")

	return Config{
		AppEnv:        envOrDefault("APP_ENV", "development"),
		Port:          port,
		DatabaseURL:   databaseURL,
		SentryDSN:     strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		PublicBaseURL: strings.TrimRight(envOrDefault("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),

		JWTSecret:            jwtSecret,
		JWTIssuer:            envOrDefault("JWT_ISSUER", "contacts-api"),
		AccessTokenTTL:       envMinutesOrDefault("ACCESS_TOKEN_TTL_MINUTES", 15),
		RefreshTokenTTL:      envHoursOrDefault("REFRESH_TOKEN_TTL_HOURS", 168),
		VerificationTokenTTL: envHoursOrDefault("VERIFICATION_TOKEN_TTL_HOURS", 24),
		BcryptCost:           envIntOrDefault("BCRYPT_COST", 12),

		MailWorkerTimeout: envSecondsOrDefault("MAIL_WORKER_TIMEOUT_SECONDS", 30),

		DBMaxOpenConns:    envIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:    envIntOrDefault("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: envMinutesOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30),
		DBConnMaxIdleTime: envMinutesOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10),

		RunMigrations: EnvBoolOrDefault("RUN_MIGRATIONS_ON_STARTUP", options.RunMigrations),
	}, nil
}

func mustEnv(name string) (string, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", fmt.Errorf("missing required env: %s", name)
	}
	return value, nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envMinutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Minute
}

func envHoursOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Hour
}

func envSecondsOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Second
}

func EnvBoolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if value == "" {
		return fallback
	}

	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
