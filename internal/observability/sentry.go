package observability

import (
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
)

func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// SentryMiddleware attaches a per-request hub so captures made while serving
// the request carry its method, URL and headers. Panics are re-raised for
// RecoverMiddleware to turn into a JSON response.
func SentryMiddleware(next http.Handler) http.Handler {
	handler := sentryhttp.New(sentryhttp.Options{
		Repanic: true,
		Timeout: 2 * time.Second,
	})
	return handler.Handle(next)
}

// ReportError logs err and sends it to Sentry using the request's hub when
// one is present.
func ReportError(logger *Logger, r *http.Request, message string, err error) {
	if err == nil {
		return
	}

	fields := map[string]any{"error": err.Error()}
	if r != nil {
		fields["method"] = r.Method
		fields["path"] = r.URL.Path
		if id := RequestIDFromContext(r.Context()); id != "" {
			fields["request_id"] = id
		}
	}
	if logger != nil {
		logger.Error(message, fields)
	}

	if r != nil {
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.CaptureException(err)
			return
		}
	}
	sentry.CaptureException(err)
}
