package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	applog "github.com/janisto/lostcat/internal/platform/logging"
)

const checkTimeout = 2 * time.Second

// Response is the payload for the health endpoint.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Check pings one dependency, e.g. the session store.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Handler is a plain HTTP handler for the health check endpoint.
func Handler(w http.ResponseWriter, r *http.Request) {
	New()(w, r)
}

// New returns a health handler that runs every check. Any failing check
// turns the response into 503 unhealthy.
func New(checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := Response{Status: "healthy"}
		code := http.StatusOK
		if len(checks) > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()
			resp.Checks = make(map[string]string, len(checks))
			for _, c := range checks {
				if err := c.Ping(ctx); err != nil {
					applog.LogWarn(ctx, "health check failed", zap.String("check", c.Name), zap.Error(err))
					resp.Checks[c.Name] = "unavailable"
					resp.Status = "unhealthy"
					code = http.StatusServiceUnavailable
					continue
				}
				resp.Checks[c.Name] = "ok"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
