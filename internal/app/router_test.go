package app

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"contacts-api/internal/auth"
	"contacts-api/internal/auth/authtest"
	"contacts-api/internal/config"
	"contacts-api/internal/contact"
	"contacts-api/internal/mail"
	"contacts-api/internal/observability"
)

type testApp struct {
	server *httptest.Server
	mailer *mail.MemoryMailer
	mock   sqlmock.Sqlmock
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	database, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mailer := mail.NewMemoryMailer()
	cfg := config.Config{
		AppEnv:               "test",
		PublicBaseURL:        "http://contacts.test",
		JWTSecret:            "router-test-secret",
		JWTIssuer:            "contacts-api",
		AccessTokenTTL:       15 * time.Minute,
		RefreshTokenTTL:      24 * time.Hour,
		VerificationTokenTTL: time.Hour,
		BcryptCost:           bcrypt.MinCost,
		MailWorkerTimeout:    time.Second,
	}

	runtime, err := Assemble(cfg, Components{
		Logger:   observability.NewLoggerTo(io.Discard),
		Database: database,
		Users:    authtest.NewMemoryStore(),
		Contacts: contact.NewRepository(database),
		Mailer:   mailer,
	})
	require.NoError(t, err)

	server := httptest.NewServer(runtime.Handler)
	t.Cleanup(func() {
		server.Close()
		assert.NoError(t, runtime.Close())
		assert.NoError(t, mock.ExpectationsWereMet())
		database.Close()
	})

	return &testApp{server: server, mailer: mailer, mock: mock}
}

func (a *testApp) call(t *testing.T, method, path, body, bearer string) (int, map[string]any) {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), method, a.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := a.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.NotEmpty(t, resp.Header.Get(observability.RequestIDHeader))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func TestRouter_RegisterConfirmLoginAndListContacts(t *testing.T) {
	a := newTestApp(t)

	status, body := a.call(t, http.MethodPost, "/auth/register", `{"email":"a@x.com","username":"alice","password":"secret1"}`, "")
	require.Equal(t, http.StatusCreated, status)
	user := body["user"].(map[string]any)

	require.Eventually(t, func() bool { return len(a.mailer.Messages()) == 1 }, time.Second, 10*time.Millisecond)
	link := a.mailer.Messages()[0].Link
	require.True(t, strings.HasPrefix(link, "http://contacts.test"+auth.ConfirmPath), link)

	status, body = a.call(t, http.MethodGet, strings.TrimPrefix(link, "http://contacts.test"), "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, auth.MsgEmailConfirmed, body["message"])

	status, body = a.call(t, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, status)
	access := body["access_token"].(string)

	status, body = a.call(t, http.MethodGet, "/api/users/me", "", access)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, user["id"], body["id"])

	a.mock.ExpectQuery(`SELECT (.+) FROM contacts WHERE user_id = \$1`).
		WithArgs(int64(user["id"].(float64)), contact.DefaultLimit, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "first_name", "last_name", "email", "phone_number", "birthday", "additional_data", "created_at", "updated_at"}))

	status, _ = a.call(t, http.MethodGet, "/contacts/", "", access)
	assert.Equal(t, http.StatusOK, status)
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	a := newTestApp(t)

	for _, path := range []string{"/api/users/me", "/contacts/", "/contacts/1", "/contacts/search/", "/contacts/birthdays/"} {
		status, body := a.call(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.Equal(t, auth.MsgInvalidCredentials, body["error"], path)
	}
}

func TestRouter_Health(t *testing.T) {
	a := newTestApp(t)

	a.mock.ExpectPing()
	status, body := a.call(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	a.mock.ExpectPing().WillReturnError(errors.New("down"))
	status, body = a.call(t, http.MethodGet, "/api/healthchecker", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "degraded", body["status"])
}

func TestAssemble_RejectsEmptySecret(t *testing.T) {
	_, err := Assemble(config.Config{}, Components{
		Users:  authtest.NewMemoryStore(),
		Mailer: mail.NewMemoryMailer(),
	})
	assert.Error(t, err)
}
