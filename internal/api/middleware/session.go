package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/faqdesk/internal/api"
	"github.com/cloo-solutions/faqdesk/internal/domain"
)

// SessionHeader carries the widget's session token
const SessionHeader = "X-Session-Token"

const SessionKey contextKey = "session"

type SessionVerifier interface {
	VerifySessionToken(token, chatbotID string) (domain.SessionRef, error)
}

// Session turns the optional session header into a SessionRef scoped to the
// chatbot named by the route parameter. A missing header is an anonymous
// request; a bad token is rejected.
func Session(verifier SessionVerifier, chatbotParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get(SessionHeader))
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ref, err := verifier.VerifySessionToken(token, chi.URLParam(r, chatbotParam))
			if err != nil {
				api.HandleError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), SessionKey, ref)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession returns the verified session, or the absent reference
func GetSession(ctx context.Context) domain.SessionRef {
	ref, _ := ctx.Value(SessionKey).(domain.SessionRef)
	return ref
}
