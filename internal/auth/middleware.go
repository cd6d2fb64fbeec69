package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mesh-intelligence/grid/internal/logger"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
	unauthorizedCode    = "unauthorized"
	unauthorizedMessage = "Unauthorized"
	invalidTokenMessage = "Invalid token"
)

// AuthError is the JSON body of a 401 response.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Middleware attaches the bearer token's user to the request context.
type Middleware struct {
	verifier *JWTVerifier
}

func NewMiddleware(verifier *JWTVerifier) *Middleware {
	return &Middleware{verifier: verifier}
}

// RequireAuth rejects requests without a valid bearer token before they
// reach next.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get(authorizationHeader)
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			writeJSONError(w, http.StatusUnauthorized, unauthorizedCode, unauthorizedMessage)
			return
		}

		user, err := m.verifier.VerifyToken(strings.TrimPrefix(authHeader, bearerPrefix))
		if err != nil {
			logger.Log.Debug("rejected bearer token", "error", err)
			writeJSONError(w, http.StatusUnauthorized, unauthorizedCode, invalidTokenMessage)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// OptionalAuth attaches the user when a valid token is present and passes
// every request through.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get(authorizationHeader)
		if strings.HasPrefix(authHeader, bearerPrefix) {
			if user, err := m.verifier.VerifyToken(strings.TrimPrefix(authHeader, bearerPrefix)); err == nil {
				r = r.WithContext(WithUser(r.Context(), user))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSONError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(AuthError{
		Code:    code,
		Message: message,
	}); err != nil {
		logger.Log.Error("writing JSON error", "error", err)
	}
}
