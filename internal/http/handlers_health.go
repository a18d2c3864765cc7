package httpx

import (
	"context"
	"net/http"
	"slices"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler answers readiness/liveness checks. Any failing check turns the answer
// into 503 with the failing dependency names; errors themselves are not exposed.
func HealthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		var failing []string
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failing = append(failing, name)
			}
		}
		status, body := http.StatusOK, map[string]any{"status": "ok"}
		if len(failing) > 0 {
			slices.Sort(failing)
			status, body = http.StatusServiceUnavailable, map[string]any{"status": "degraded", "failing": failing}
		}
		if r.Method == http.MethodHead {
			w.WriteHeader(status)
			return
		}
		WriteJSON(w, status, body)
	}
}
