package middleware

import (
	"net/http"

	apperrors "reservations/pkg/errors"
	httputil "reservations/pkg/http"
	"reservations/pkg/logger"
)

// MaxRequestSize rejects bodies declared larger than maxBytes and caps the rest
// with http.MaxBytesReader.
func MaxRequestSize(maxBytes int64, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				log.Warn("Request body too large",
					"request_id", GetRequestID(r.Context()),
					"content_length", r.ContentLength,
					"limit", maxBytes,
					"path", r.URL.Path,
				)
				if err := httputil.WriteError(w, apperrors.PayloadTooLarge(maxBytes)); err != nil {
					log.Error("failed to write error response", "middleware", "MaxRequestSize", "error", err)
				}
				return
			}

			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
