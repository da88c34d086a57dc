package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/huertohogar/huerto/pkg/logger"
	"github.com/huertohogar/huerto/pkg/response"
)

// AdminKeyHeader carries the shared key for catalogue administration.
const AdminKeyHeader = "X-Admin-Key"

// AdminKey answers 401 unless the request's X-Admin-Key matches key.
// An empty key leaves the routes open; only deploy that way behind a
// trusted network.
func AdminKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if subtle.ConstantTimeCompare([]byte(r.Header.Get(AdminKeyHeader)), []byte(key)) != 1 {
				logger.WithCtx(r.Context()).Warn("admin key rejected", "path", r.URL.Path)
				response.Error(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
