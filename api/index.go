// Package api is the serverless entry point. The platform calls Handler for
// every request; the runtime is built on the first call and reused.
package api

import (
	"encoding/json"
	"net/http"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"

	"contacts-api/internal/app"
	"contacts-api/internal/config"
	"contacts-api/internal/observability"
)

var (
	runtimeMu  sync.Mutex
	apiRuntime *app.Runtime
	logger     = observability.NewLogger()
)

// currentRuntime builds the runtime once. A failed build is not cached, so a
// later invocation retries after a transient database outage.
func currentRuntime() (*app.Runtime, error) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if apiRuntime != nil {
		return apiRuntime, nil
	}

	runtime, err := app.Build(config.Options{
		LoadDotEnv:    false,
		RunMigrations: false,
	})
	if err != nil {
		return nil, err
	}
	apiRuntime = runtime
	return apiRuntime, nil
}

func Handler(w http.ResponseWriter, r *http.Request) {
	runtime, err := currentRuntime()
	if err != nil {
		logger.Error("bootstrap_failed", map[string]any{"error": err.Error(), "path": r.URL.Path})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "application bootstrap failed"})
		return
	}

	runtime.Handler.ServeHTTP(w, r)
}
