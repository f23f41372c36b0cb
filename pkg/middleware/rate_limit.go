package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "reservations/pkg/errors"
	httputil "reservations/pkg/http"
	"reservations/pkg/logger"
)

// ClientExtractor returns the key a request is rate limited under.
type ClientExtractor func(r *http.Request) string

// ClientRateLimiter is a sliding-window limiter keyed by client address.
type ClientRateLimiter struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	extractor ClientExtractor
	log       *logger.Logger
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func NewClientRateLimiter(limit int, window time.Duration, extractor ClientExtractor, log *logger.Logger) *ClientRateLimiter {
	if extractor == nil {
		extractor = DefaultClientExtractor
	}

	limiter := &ClientRateLimiter{
		requests:  make(map[string][]time.Time),
		limit:     limit,
		window:    window,
		extractor: extractor,
		log:       log,
		stopCh:    make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *ClientRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for client, timestamps := range rl.requests {
				if len(timestamps) == 0 || time.Since(timestamps[len(timestamps)-1]) > rl.window {
					delete(rl.requests, client)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *ClientRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *ClientRateLimiter) Allow(client string) bool {
	if client == "" {
		return true
	}

	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	timestamps := rl.requests[client]
	valid := timestamps[:0]
	for _, ts := range timestamps {
		if now.Sub(ts) < rl.window {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[client] = valid
		return false
	}

	rl.requests[client] = append(valid, now)
	return true
}

func RateLimit(limiter *ClientRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := limiter.extractor(r)

			if !limiter.Allow(client) {
				rejectRateLimited(w, limiter.log, r, client)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(w http.ResponseWriter, log *logger.Logger, r *http.Request, client string) {
	log.Warn("Rate limit exceeded",
		"request_id", GetRequestID(r.Context()),
		"client", client,
		"path", r.URL.Path,
	)

	appErr := apperrors.New(apperrors.CodeBadRequest, "Rate limit exceeded", http.StatusTooManyRequests)
	if err := httputil.WriteError(w, appErr); err != nil {
		log.Error("failed to write error response", "middleware", "RateLimit", "error", err)
	}
}

// DefaultClientExtractor uses the first X-Forwarded-For hop, falling back to the peer address.
func DefaultClientExtractor(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
