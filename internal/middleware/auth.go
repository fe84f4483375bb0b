package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// APIKeyHeader carries the shared secret on every protected request.
const APIKeyHeader = "x-api-key"

// RequireAPIKey rejects requests whose x-api-key header does not match
// secret. An empty secret rejects everything.
func RequireAPIKey(secret string) func(http.Handler) http.Handler {
	expected := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			if len(expected) == 0 || subtle.ConstantTimeCompare([]byte(key), expected) != 1 {
				slog.Warn("Rejected request with invalid API key",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"key_present", key != "")
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
