package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloo-solutions/faqdesk/internal/api"
)

type contextKey string

const TenantIDKey contextKey = "tenant_id"

type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (string, error)
}

// APIKeyAuth resolves the operator's tenant from a bearer API key
func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.ErrorWithCode(w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				api.ErrorWithCode(w, http.StatusUnauthorized, "unauthorized", "invalid authorization format")
				return
			}

			tenantID, err := validator.ValidateAPIKey(r.Context(), strings.TrimSpace(token))
			if err != nil {
				api.ErrorWithCode(w, http.StatusUnauthorized, "unauthorized", "invalid api key")
				return
			}

			ctx := context.WithValue(r.Context(), TenantIDKey, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetTenantID(ctx context.Context) string {
	tenantID, _ := ctx.Value(TenantIDKey).(string)
	return tenantID
}
