// Package health serves the liveness and readiness probes.
package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// Liveness answers 200 while the process can serve requests, along with
// how long it has been up.
func Liveness() http.HandlerFunc {
	started := time.Now()
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":         "ok",
			"uptime_seconds": int64(time.Since(started).Seconds()),
		})
	}
}
