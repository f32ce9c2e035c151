package auth

import (
	"context"
	"net/http"
	"strings"

	"contacts-api/internal/observability"
)

type userKey struct{}

// UserFromContext returns the user stored by Middleware.
func UserFromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(userKey{}).(User)
	return user, ok
}

// ContextWithUser is what Middleware does after a successful Resolve.
func ContextWithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// Middleware rejects requests without a valid bearer access token and
// passes the resolved user to next through the request context.
func Middleware(resolver *IdentityResolver, logger *observability.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeUnauthorized(w, MsgInvalidCredentials)
			return
		}

		user, err := resolver.Resolve(r.Context(), token)
		if err != nil {
			if KindOf(err) == KindInternal {
				observability.ReportError(logger, r, "resolve_identity_failed", err)
				writeError(w, http.StatusInternalServerError, MsgInternal)
				return
			}
			logger.Warn("token_rejected", map[string]any{
				"request_id": observability.RequestIDFromContext(r.Context()),
				"path":       r.URL.Path,
				"reason":     err.Error(),
			})
			writeUnauthorized(w, PublicMessage(err))
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, message)
}
