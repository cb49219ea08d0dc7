// Package api is the C10 HTTP surface: JSON handlers over the store, a
// bearer-auth and CORS middleware chain, and a reverse proxy to the
// external orchestration collaborator. Grounded on
// original_source/backend/internal/api/handlers.go for handler bodies and
// original_source/backend/internal/middleware_test.go for the AuthMiddleware
// contract the original declares but never implements.
package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/devswarm/devswarm/config"
)

// exemptFromAuth lists the routes reachable without a bearer token.
var exemptFromAuth = map[string]bool{
	"/health":     true,
	"/api/health": true,
}

// AuthMiddleware rejects any request outside exemptFromAuth that does not
// carry a matching "Authorization: Bearer <token>" header. Comparison uses
// crypto/subtle to avoid leaking timing information about the configured
// secret. An empty configured token disables auth entirely, matching local
// development without a bearer_token set.
func AuthMiddleware(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token == "" || exemptFromAuth[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, prefix) {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		presented := strings.TrimPrefix(header, prefix)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware implements the browser-facing CORS policy from the
// configured allowed origins: methods {GET, POST, PATCH, DELETE, OPTIONS},
// headers {Accept, Authorization, Content-Type}, credentials allowed,
// preflight cached 300s. No pack repo carries a CORS library (the teacher's
// server package hand-rolls its own), so this follows suit.
func CORSMiddleware(cors config.CORSConfig, next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(cors.AllowedOrigins))
	wildcard := false
	for _, o := range cors.AllowedOrigins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (wildcard || allowed[origin]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
			w.Header().Set("Access-Control-Max-Age", strconv.Itoa(300))
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
