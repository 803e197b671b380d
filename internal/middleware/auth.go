package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mesbahtanvir/docuchan/backend/internal/apperr"
	"github.com/mesbahtanvir/docuchan/backend/internal/auth"
	"github.com/mesbahtanvir/docuchan/backend/internal/utils"
)

type contextKey string

const userIDContextKey contextKey = "uid"

// AuthMiddleware verifies the bearer access token on every protected
// request via the Auth Core (spec.md §4.3), guarding the Request
// Surface the same way the channel's `auth` message guards the
// Live-Query Multiplexer.
type AuthMiddleware struct {
	core   *auth.Core
	logger *zap.Logger
}

// NewAuthMiddleware builds an AuthMiddleware over core.
func NewAuthMiddleware(core *auth.Core, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{core: core, logger: logger}
}

// Authenticate requires a valid `Bearer` access token, storing the
// verified user id on the request context for downstream handlers.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			utils.RespondError(w, apperr.New(apperr.Unauthorized, "missing or malformed authorization header"))
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
		if token == "" {
			utils.RespondError(w, apperr.New(apperr.Unauthorized, "missing or malformed authorization header"))
			return
		}

		claims, err := m.core.VerifyAccessToken(r.Context(), token)
		if err != nil {
			m.logger.Debug("rejected request", zap.Error(err))
			utils.RespondError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userIDContextKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the authenticated user id Authenticate
// stored on the request context, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(userIDContextKey).(string)
	return uid, ok
}
