package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/healthwatch/healthwatch/infrastructure/http/response"
	"github.com/healthwatch/healthwatch/infrastructure/service/apikey"
	"github.com/healthwatch/healthwatch/infrastructure/service/jwt"
)

type contextKey string

const callerKey contextKey = "auth_caller"

// AuthMiddleware guards the operator API. A request passes with either a
// bearer token issued for an operator, or the provisioning API key in
// X-Api-Key. When auth is disabled every request passes.
type AuthMiddleware struct {
	jwtService    *jwt.JWTService
	apiKeyService *apikey.Service
	enabled       bool
}

func NewAuthMiddleware(jwtService *jwt.JWTService, apiKeyService *apikey.Service, enabled bool) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:    jwtService,
		apiKeyService: apiKeyService,
		enabled:       enabled,
	}
}

func (m *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled {
			next.ServeHTTP(w, r)
			return
		}

		if key := r.Header.Get("X-Api-Key"); key != "" {
			ok, err := m.apiKeyService.Verify(key)
			if err != nil {
				response.InternalServerError(w, "Failed to verify API key")
				return
			}
			if !ok {
				response.Unauthorized(w, "Invalid API key")
				return
			}
			ctx := context.WithValue(r.Context(), callerKey, "api-key")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(w, "Invalid authorization header format")
			return
		}

		token := parts[1]
		if token == "" {
			response.Unauthorized(w, "Token cannot be empty")
			return
		}

		claims, err := m.jwtService.ValidateToken(token)
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), callerKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// Caller returns the authenticated caller identity, or empty when the
// request was not authenticated.
func Caller(ctx context.Context) string {
	if caller, ok := ctx.Value(callerKey).(string); ok {
		return caller
	}
	return ""
}
