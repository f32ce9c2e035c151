package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind is signed into every token and checked on every decode, so a
// token minted for one purpose is rejected everywhere else.
type TokenKind string

const (
	TokenAccess            TokenKind = "access"
	TokenRefresh           TokenKind = "refresh"
	TokenEmailVerification TokenKind = "email_verification"
)

type Claims struct {
	Kind TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

type TokenConfig struct {
	Secret          []byte
	Issuer          string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	VerificationTTL time.Duration
}

const (
	defaultAccessTTL       = 15 * time.Minute
	defaultRefreshTTL      = 7 * 24 * time.Hour
	defaultVerificationTTL = 24 * time.Hour
)

// TokenCodec signs and verifies HS256 JWTs. Its configuration is read-only
// after construction, so one codec is shared by all requests.
type TokenCodec struct {
	secret []byte
	issuer string
	ttl    map[TokenKind]time.Duration

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewTokenCodec(cfg TokenConfig) (*TokenCodec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token signing secret is empty")
	}

	ttl := map[TokenKind]time.Duration{
		TokenAccess:            defaultAccessTTL,
		TokenRefresh:           defaultRefreshTTL,
		TokenEmailVerification: defaultVerificationTTL,
	}
	if cfg.AccessTTL > 0 {
		ttl[TokenAccess] = cfg.AccessTTL
	}
	if cfg.RefreshTTL > 0 {
		ttl[TokenRefresh] = cfg.RefreshTTL
	}
	if cfg.VerificationTTL > 0 {
		ttl[TokenEmailVerification] = cfg.VerificationTTL
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &TokenCodec{
		secret:  secret,
		issuer:  cfg.Issuer,
		ttl:     ttl,
		NowFunc: time.Now,
	}, nil
}

// TTL returns the lifetime of tokens of the given kind.
func (c *TokenCodec) TTL(kind TokenKind) time.Duration {
	return c.ttl[kind]
}

func (c *TokenCodec) Encode(kind TokenKind, subject string) (string, error) {
	ttl, ok := c.ttl[kind]
	if !ok {
		return "", fmt.Errorf("unknown token kind %q", kind)
	}
	if subject == "" {
		return "", errors.New("token subject is empty")
	}

	now := c.NowFunc().UTC()
	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	encoded, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return encoded, nil
}

// Decode verifies the signature first, then the kind, then the time-based
// claims. A valid signature of the right kind with a passed expiry yields
// ErrExpiredToken; every other failure yields ErrInvalidToken.
func (c *TokenCodec) Decode(kind TokenKind, tokenString string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.NowFunc),
	}
	if c.issuer != "" {
		options = append(options, jwt.WithIssuer(c.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			// The payload is signed, so its kind is trustworthy here.
			if claims.Kind != kind {
				return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, kind, claims.Kind)
			}
			return nil, fmt.Errorf("%w: %w", ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, kind, claims.Kind)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims, nil
}
