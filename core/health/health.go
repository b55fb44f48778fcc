package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/canvastack/stencil/core/logger"
)

// Check verifies one dependency. Implementations must honor the context
// deadline; the aggregate handler does not bound them itself.
type Check func(context.Context) error

// Liveness indicates the service process is running. Always returns
// "ALIVE" with 200 OK and performs no dependency checks.
func Liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ALIVE"))
}

// Readiness verifies all service dependencies are functioning. Returns
// "READY" if every check passes, 503 Service Unavailable on the first
// failure.
func Readiness(log *slog.Logger, checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				if log != nil {
					log.ErrorContext(r.Context(), "readiness check failed", logger.Error(err))
				}
				http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	}
}
