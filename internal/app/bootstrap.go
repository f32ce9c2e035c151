package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"contacts-api/internal/auth"
	"contacts-api/internal/config"
	"contacts-api/internal/contact"
	"contacts-api/internal/db"
	"contacts-api/internal/mail"
	"contacts-api/internal/observability"
)

type Runtime struct {
	Config  config.Config
	Handler http.Handler
	// Close waits for queued verification mail, flushes Sentry and releases
	// the database.
	Close func() error
}

// Build loads configuration, connects to PostgreSQL and wires the HTTP
// handler. The pgx driver must be registered by the caller.
func Build(options config.Options) (*Runtime, error) {
	cfg, err := config.Load(options)
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger().With(map[string]any{"env": cfg.AppEnv})

	if err := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	database, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(cfg.DBMaxOpenConns)
	database.SetMaxIdleConns(cfg.DBMaxIdleConns)
	database.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	database.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	if err := database.Ping(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.RunMigrations(context.Background(), database); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("migrations_applied", nil)
	}

	runtime, err := Assemble(cfg, Components{
		Logger:   logger,
		Database: database,
		Users:    auth.NewRepository(database),
		Contacts: contact.NewRepository(database),
		Mailer:   mail.NewLogMailer(logger, cfg.AppEnv != "production"),
	})
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	closeRuntime := runtime.Close
	runtime.Close = func() error {
		err := closeRuntime()
		if closeErr := database.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		return err
	}

	return runtime, nil
}

// Pinger reports database health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Components are the stateful dependencies Assemble wires together.
type Components struct {
	Logger   *observability.Logger
	Database Pinger
	Users    auth.UserStore
	Contacts contact.Store
	Mailer   mail.Mailer
}

// Assemble builds the auth core and the HTTP handler on top of components.
func Assemble(cfg config.Config, c Components) (*Runtime, error) {
	logger := c.Logger
	if logger == nil {
		logger = observability.NewLogger()
	}

	tokens, err := auth.NewTokenCodec(auth.TokenConfig{
		Secret:          []byte(cfg.JWTSecret),
		Issuer:          cfg.JWTIssuer,
		AccessTTL:       cfg.AccessTokenTTL,
		RefreshTTL:      cfg.RefreshTokenTTL,
		VerificationTTL: cfg.VerificationTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("init token codec: %w", err)
	}

	dispatcher := mail.NewDispatcher(c.Mailer, cfg.MailWorkerTimeout, func(msg mail.VerificationMessage, err error) {
		observability.ReportError(logger.With(map[string]any{"recipient": msg.Email}), nil, "verification_email_failed", err)
	})
	verification := auth.NewVerificationFlow(c.Users, tokens, dispatcher, cfg.PublicBaseURL, func(err error) {
		observability.ReportError(logger, nil, "verification_issue_failed", err)
	})
	credentials := auth.NewCredentialService(c.Users, auth.NewPasswordHasher(cfg.BcryptCost), tokens, verification)
	resolver := auth.NewIdentityResolver(c.Users, tokens)

	handler := NewRouter(Routes{
		Logger:   logger,
		Auth:     auth.NewHandler(credentials, verification, logger),
		Contacts: contact.NewHandler(c.Contacts, logger),
		Resolver: resolver,
		Health:   c.Database,
	})

	return &Runtime{
		Config:  cfg,
		Handler: handler,
		Close: func() error {
			dispatcher.Wait()
			observability.FlushSentry()
			return nil
		},
	}, nil
}
