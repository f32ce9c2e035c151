package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"contacts-api/internal/auth"
	"contacts-api/internal/contact"
	"contacts-api/internal/observability"
)

type Routes struct {
	Logger   *observability.Logger
	Auth     *auth.Handler
	Contacts *contact.Handler
	Resolver *auth.IdentityResolver
	Health   Pinger
}

func NewRouter(routes Routes) http.Handler {
	logger := routes.Logger
	protected := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(routes.Resolver, logger, h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", routes.Auth.Register)
	mux.HandleFunc("POST /auth/login", routes.Auth.Login)
	mux.HandleFunc("POST /auth/refresh", routes.Auth.Refresh)
	mux.HandleFunc("POST /auth/request_email", routes.Auth.RequestEmail)
	mux.HandleFunc("GET "+auth.ConfirmPath+"{token}", routes.Auth.ConfirmEmail)
	mux.Handle("GET /api/users/me", protected(routes.Auth.Me))

	mux.Handle("POST /contacts/{$}", protected(routes.Contacts.CreateContact))
	mux.Handle("GET /contacts/{$}", protected(routes.Contacts.ListContacts))
	mux.Handle("GET /contacts/search/{$}", protected(routes.Contacts.SearchContacts))
	mux.Handle("GET /contacts/birthdays/{$}", protected(routes.Contacts.UpcomingBirthdays))
	mux.Handle("GET /contacts/{contact_id}", protected(routes.Contacts.GetContact))
	mux.Handle("PUT /contacts/{contact_id}", protected(routes.Contacts.UpdateContact))
	mux.Handle("DELETE /contacts/{contact_id}", protected(routes.Contacts.DeleteContact))

	health := healthHandler(routes.Health)
	mux.HandleFunc("GET /health", health)
	mux.HandleFunc("GET /api/healthchecker", health)

	return observability.RequestLoggingMiddleware(logger,
		observability.RecoverMiddleware(logger,
			observability.SentryMiddleware(mux)))
}

func healthHandler(database Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if database == nil || database.PingContext(ctx) != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
