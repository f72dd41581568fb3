package middleware

import (
	"log"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const JobTokenHeader = "X-Job-Token"

// JobTokenMiddleware guards the job trigger routes with a shared token, compared
// against its bcrypt hash. With no hash configured the routes are disabled.
func JobTokenMiddleware(tokenHash string) func(http.Handler) http.Handler {
	hash := []byte(tokenHash)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(hash) == 0 {
				http.Error(w, "job triggers disabled", http.StatusServiceUnavailable)
				return
			}
			token := r.Header.Get(JobTokenHeader)
			if token == "" {
				http.Error(w, "missing job token", http.StatusUnauthorized)
				return
			}
			if err := bcrypt.CompareHashAndPassword(hash, []byte(token)); err != nil {
				log.Printf("ERROR: rejected job token for %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
				http.Error(w, "invalid job token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
