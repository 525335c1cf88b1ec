/**
 * @description
 * This file contains custom middleware for the HTTP router: API key
 * authentication for payment providers and JWT authentication for the admin
 * API.
 *
 * @dependencies
 * - context, net/http, strings: Standard Go libraries.
 * - github.com/golang-jwt/jwt/v5: admin token validation.
 *
 * @notes
 * - Provider authentication reads the X-API-Key header and resolves it
 *   through the service's cache-aside lookup. The authenticated provider is
 *   placed on the request context for the handlers.
 * - Admin tokens are HS256 with a required role=admin claim.
 */

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mobipay/account-service/internal/app"
	"github.com/mobipay/account-service/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const providerContextKey contextKey = "authenticatedProvider"

// APIKeyHeader carries the provider credential.
const APIKeyHeader = "X-API-Key"

// ProviderAuthMiddleware authenticates provider requests by API key.
func ProviderAuthMiddleware(service *app.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if rawKey == "" {
				writeAuthError(w, "API key required")
				return
			}

			provider, err := service.Authenticate(r.Context(), rawKey)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					writeAuthError(w, "invalid API key")
					return
				}
				http.Error(w, "authentication unavailable", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), providerContextKey, *provider)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetProvider retrieves the authenticated provider from the request context.
func GetProvider(ctx context.Context) (domain.Provider, bool) {
	provider, ok := ctx.Value(providerContextKey).(domain.Provider)
	return provider, ok
}

// AdminAuthMiddleware validates HS256 bearer tokens carrying role=admin.
func AdminAuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.TrimSpace(secret) == "" {
				// Admin API is disabled when no secret is configured.
				http.Error(w, "admin API disabled", http.StatusServiceUnavailable)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, "Authorization header required")
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				writeAuthError(w, "invalid Authorization header format")
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				writeAuthError(w, "invalid token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				writeAuthError(w, "invalid token claims")
				return
			}
			if role, _ := claims["role"].(string); role != "admin" {
				http.Error(w, `{"error":"admin role required"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":%q}`, message)
}
