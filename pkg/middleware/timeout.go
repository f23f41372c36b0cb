package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	apperrors "reservations/pkg/errors"
	httputil "reservations/pkg/http"
)

// timeoutWriter drops writes once the deadline response has been sent.
// The handler gets its own header map; it reaches the real writer only with
// the handler's first write.
type timeoutWriter struct {
	http.ResponseWriter
	h          http.Header
	mu         sync.Mutex
	timedOut   bool
	written    bool
	statusCode int
}

func (tw *timeoutWriter) Header() http.Header {
	return tw.h
}

// flushHeaders must be called with tw.mu held.
func (tw *timeoutWriter) flushHeaders() {
	dst := tw.ResponseWriter.Header()
	for k, v := range tw.h {
		dst[k] = append([]string(nil), v...)
	}
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timedOut || tw.written {
		return
	}

	tw.statusCode = code
	tw.written = true
	tw.flushHeaders()
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}

	if !tw.written {
		tw.statusCode = http.StatusOK
		tw.written = true
		tw.flushHeaders()
	}

	return tw.ResponseWriter.Write(b)
}

func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			r = r.WithContext(ctx)

			tw := &timeoutWriter{ResponseWriter: w, h: make(http.Header)}

			done := make(chan struct{})
			panicCh := make(chan any, 1)
			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicCh <- p
					}
				}()
				next.ServeHTTP(tw, r)
				close(done)
			}()

			select {
			case <-done:
				return
			case p := <-panicCh:
				panic(p)
			case <-ctx.Done():
				tw.mu.Lock()
				defer tw.mu.Unlock()
				tw.timedOut = true
				if !tw.written {
					tw.written = true
					_ = httputil.WriteError(w, apperrors.Timeout("Request timeout"))
				}
			}
		})
	}
}
