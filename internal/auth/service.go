package auth

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 6
	// bcrypt ignores input past 72 bytes.
	maxPasswordLen = 72
)

// CredentialService registers users and exchanges credentials for tokens.
type CredentialService struct {
	store        UserStore
	hasher       *PasswordHasher
	tokens       *TokenCodec
	verification *VerificationFlow
}

func NewCredentialService(store UserStore, hasher *PasswordHasher, tokens *TokenCodec, verification *VerificationFlow) *CredentialService {
	return &CredentialService{
		store:        store,
		hasher:       hasher,
		tokens:       tokens,
		verification: verification,
	}
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Username, validation.Required, validation.Length(minUsernameLen, maxUsernameLen)),
		validation.Field(&in.Password, validation.Required, validation.Length(minPasswordLen, maxPasswordLen)),
	)
}

// Register creates an unconfirmed user and returns a token pair. The
// verification email is queued and its outcome does not affect the result.
func (s *CredentialService) Register(ctx context.Context, in RegisterInput) (Registration, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := in.Validate(); err != nil {
		return Registration{}, validationError(err)
	}

	_, err := s.store.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return Registration{}, conflictError(ErrEmailTaken)
	case !errors.Is(err, ErrUserNotFound):
		return Registration{}, internalError(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Registration{}, internalError(err)
	}

	user, err := s.store.Insert(ctx, User{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		Confirmed:    false,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return Registration{}, conflictError(err)
		}
		return Registration{}, internalError(err)
	}

	tokens, err := s.issueTokens(user.Email)
	if err != nil {
		return Registration{}, err
	}

	s.verification.sendVerification(user)

	return Registration{Tokens: tokens, User: user.Summary()}, nil
}

// Login answers "no such user" and "wrong password" with the same message.
// An unconfirmed account gets its own message once the password matched.
func (s *CredentialService) Login(ctx context.Context, email, password string) (Tokens, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Tokens{}, unauthorized(MsgBadCredentials, nil)
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Tokens{}, unauthorized(MsgBadCredentials, err)
		}
		return Tokens{}, internalError(err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return Tokens{}, unauthorized(MsgBadCredentials, nil)
	}
	if !user.Confirmed {
		return Tokens{}, unauthorized(MsgEmailNotConfirmed, nil)
	}

	return s.issueTokens(user.Email)
}

// Refresh redeems a refresh token for a new pair. Refresh tokens are not
// tracked, so the presented one stays usable until it expires.
func (s *CredentialService) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	claims, err := s.tokens.Decode(TokenRefresh, strings.TrimSpace(refreshToken))
	if err != nil {
		return Tokens{}, unauthorized(MsgInvalidCredentials, err)
	}

	user, err := s.store.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Tokens{}, unauthorized(MsgInvalidCredentials, err)
		}
		return Tokens{}, internalError(err)
	}
	if !user.Confirmed {
		return Tokens{}, unauthorized(MsgInvalidCredentials, errors.New("refresh for unconfirmed user"))
	}

	return s.issueTokens(user.Email)
}

func (s *CredentialService) issueTokens(subject string) (Tokens, error) {
	access, err := s.tokens.Encode(TokenAccess, subject)
	if err != nil {
		return Tokens{}, internalError(err)
	}
	refresh, err := s.tokens.Encode(TokenRefresh, subject)
	if err != nil {
		return Tokens{}, internalError(err)
	}

	return Tokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.tokens.TTL(TokenAccess).Seconds()),
	}, nil
}
