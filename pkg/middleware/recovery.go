package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	apperrors "reservations/pkg/errors"
	httputil "reservations/pkg/http"
	"reservations/pkg/logger"
)

func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("Panic recovered",
						"request_id", GetRequestID(r.Context()),
						"error", err,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)

					appErr := apperrors.Internal("panic", fmt.Errorf("%v", err))
					if writeErr := httputil.WriteError(w, appErr); writeErr != nil {
						log.Error("failed to write error response", "middleware", "Recovery", "error", writeErr)
					}
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
