package middlewares

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"supplierhub/internal/models"
	"supplierhub/internal/services"
	"supplierhub/internal/utils"
)

type contextKey string

const (
	userKey   contextKey = "user"
	claimsKey contextKey = "claims"
)

// WithUser returns ctx carrying the authenticated user and token claims.
func WithUser(ctx context.Context, user *models.User, claims *services.Claims) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, claimsKey, claims)
}

// GetUser returns the user attached by the auth middleware, if any.
func GetUser(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok && user != nil
}

func GetClaims(ctx context.Context) (*services.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*services.Claims)
	return claims, ok && claims != nil
}

type AuthMiddleware struct {
	sessions     services.SessionService
	exposeDetail bool
}

func NewAuthMiddleware(sessions services.SessionService, exposeDetail bool) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions, exposeDetail: exposeDetail}
}

// Require rejects the request unless it carries a valid, unrevoked token.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, claims, err := m.sessions.Authenticate(r.Context(), utils.BearerToken(r))
		if err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("Authentication failed")
			utils.SendAppError(w, err, m.exposeDetail)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user, claims)))
	})
}

// Optional attaches the user when the token checks out and otherwise lets
// the request through anonymously.
func (m *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, claims := m.sessions.AuthenticateOptional(r.Context(), utils.BearerToken(r)); user != nil {
			r = r.WithContext(WithUser(r.Context(), user, claims))
		}
		next.ServeHTTP(w, r)
	})
}
