package auth

import (
	"context"
	"net/http"

	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/models"
)

// TokenHeader is the request header carrying the session token.
const TokenHeader = "X-Auth-Token"

// TokenVerifier resolves a session token to its owning user. Implemented by
// the auth service; any error means the caller is not authenticated.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (models.UserSummary, error)
}

type contextKey string

const userContextKey = contextKey("authUser")

// RequireToken creates a middleware that rejects requests without a valid
// session token and stashes the resolved user in the request context.
func RequireToken(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(TokenHeader)
			user, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"authentication required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated user placed by RequireToken.
func UserFromContext(ctx context.Context) (models.UserSummary, bool) {
	user, ok := ctx.Value(userContextKey).(models.UserSummary)
	return user, ok
}
