package auth_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"contacts-api/internal/auth"
	"contacts-api/internal/auth/authtest"
	"contacts-api/internal/mail"
)

const testSecret = "test-signing-secret"

type errList struct {
	mu   sync.Mutex
	errs []error
}

func (l *errList) add(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, err)
}

func (l *errList) all() []error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]error(nil), l.errs...)
}

type fixture struct {
	store        *authtest.MemoryStore
	mailer       *mail.MemoryMailer
	dispatcher   *mail.Dispatcher
	codec        *auth.TokenCodec
	hasher       *auth.PasswordHasher
	verification *auth.VerificationFlow
	credentials  *auth.CredentialService
	resolver     *auth.IdentityResolver
	errs         *errList
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	codec, err := auth.NewTokenCodec(auth.TokenConfig{
		Secret:          []byte(testSecret),
		Issuer:          "contacts-api-test",
		AccessTTL:       15 * time.Minute,
		RefreshTTL:      7 * 24 * time.Hour,
		VerificationTTL: 24 * time.Hour,
	})
	require.NoError(t, err)

	f := &fixture{
		store:  authtest.NewMemoryStore(),
		mailer: mail.NewMemoryMailer(),
		codec:  codec,
		hasher: auth.NewPasswordHasher(bcrypt.MinCost),
		errs:   &errList{},
	}
	f.dispatcher = mail.NewDispatcher(f.mailer, time.Second, func(_ mail.VerificationMessage, err error) {
		f.errs.add(err)
	})
	f.verification = auth.NewVerificationFlow(f.store, codec, f.dispatcher, "http://localhost:8080", f.errs.add)
	f.credentials = auth.NewCredentialService(f.store, f.hasher, codec, f.verification)
	f.resolver = auth.NewIdentityResolver(f.store, codec)

	t.Cleanup(f.dispatcher.Wait)
	return f
}

// register creates a user and waits for the verification mail.
func (f *fixture) register(t *testing.T, email, username, password string) auth.Registration {
	t.Helper()

	reg, err := f.credentials.Register(t.Context(), auth.RegisterInput{
		Email:    email,
		Username: username,
		Password: password,
	})
	require.NoError(t, err)
	f.dispatcher.Wait()
	return reg
}

// lastVerificationToken extracts the token from the newest confirmation link.
func (f *fixture) lastVerificationToken(t *testing.T) string {
	t.Helper()

	messages := f.mailer.Messages()
	require.NotEmpty(t, messages, "no verification email was sent")
	link := messages[len(messages)-1].Link
	_, token, found := strings.Cut(link, auth.ConfirmPath)
	require.True(t, found, "unexpected link %q", link)
	return token
}

func requireKind(t *testing.T, err error, kind auth.ErrorKind, message string) {
	t.Helper()

	require.Error(t, err)
	require.Equal(t, kind, auth.KindOf(err), "error: %v", err)
	if message != "" {
		require.Equal(t, message, auth.PublicMessage(err))
	}
}
