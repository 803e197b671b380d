package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mesbahtanvir/docuchan/backend/internal/apperr"
	"github.com/mesbahtanvir/docuchan/backend/internal/utils"
)

// Recovery catches panics in downstream handlers, logs them, and
// responds with the stable INTERNAL_SERVER_ERROR envelope instead of
// crashing the process, per spec.md §7 ("Uncaught errors in request
// handlers yield INTERNAL_SERVER_ERROR without leaking internals").
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)
					utils.RespondError(w, apperr.New(apperr.Internal, "Internal server error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
