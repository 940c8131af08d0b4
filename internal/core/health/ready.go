package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Checker is implemented by dependencies that can report readiness, such
// as a remote cache backend.
type Checker interface {
	Ready(ctx context.Context) error
}

// Readiness reports 503 while any checker fails. Backends that do not
// implement Checker are always ready.
func Readiness(timeout time.Duration, deps map[string]any) http.HandlerFunc {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		type resp struct {
			Status string            `json:"status"`
			Failed map[string]string `json:"failed,omitempty"`
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		out := resp{Status: "ready"}
		for name, d := range deps {
			c, ok := d.(Checker)
			if !ok {
				continue
			}
			if err := c.Ready(ctx); err != nil {
				if out.Failed == nil {
					out.Failed = map[string]string{}
				}
				out.Failed[name] = err.Error()
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if len(out.Failed) > 0 {
			out.Status = "not_ready"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
