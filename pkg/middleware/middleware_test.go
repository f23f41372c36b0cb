package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	httputil "reservations/pkg/http"
	"reservations/pkg/logger"
	"reservations/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true}`))
	})
}

func decodeEnvelope(t *testing.T, body io.Reader) httputil.Response {
	t.Helper()
	var resp httputil.Response
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestRequestLogging_AssignsRequestID(t *testing.T) {
	var seen string
	h := RequestLogging(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil))

	if seen == "" {
		t.Fatal("expected request id in context")
	}
	if got := w.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("response header %q does not match context id %q", got, seen)
	}
}

func TestRequestLogging_KeepsCallerRequestID(t *testing.T) {
	var seen string
	h := RequestLogging(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "caller-123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "caller-123" {
		t.Errorf("expected caller id to be kept, got %q", seen)
	}
}

func TestRecovery_WritesEnvelope(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	resp := decodeEnvelope(t, w.Body)
	if resp.Success || resp.Error != "Server error." {
		t.Errorf("unexpected envelope: %+v", resp)
	}
}

func TestContentTypeValidation(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
	}{
		{"post json", http.MethodPost, "application/json", http.StatusOK},
		{"post json with charset", http.MethodPost, "application/json; charset=utf-8", http.StatusOK},
		{"post json upper case", http.MethodPost, "Application/JSON", http.StatusOK},
		{"post form", http.MethodPost, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"patch missing", http.MethodPatch, "", http.StatusUnsupportedMediaType},
		{"get missing", http.MethodGet, "", http.StatusOK},
		{"delete missing", http.MethodDelete, "", http.StatusOK},
	}

	h := ContentTypeValidation(logger.Discard())(okHandler())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/bookings", strings.NewReader("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestRequestTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})

	w := httptest.NewRecorder()
	RequestTimeout(20*time.Millisecond)(slow).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	resp := decodeEnvelope(t, w.Body)
	if resp.Error != "Request timeout" {
		t.Errorf("unexpected error message: %q", resp.Error)
	}
}

func TestRequestTimeout_FastHandler(t *testing.T) {
	w := httptest.NewRecorder()
	RequestTimeout(time.Second)(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequestTimeout_LateHeadersStayOffResponse(t *testing.T) {
	finished := make(chan struct{})
	late := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(finished)
		<-r.Context().Done()
		for i := 0; i < 100; i++ {
			w.Header().Set("X-Late", "yes")
		}
		_, _ = w.Write([]byte("too late"))
	})

	w := httptest.NewRecorder()
	RequestTimeout(10*time.Millisecond)(late).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	<-finished

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if got := w.Header().Get("X-Late"); got != "" {
		t.Errorf("late handler header leaked into response: %q", got)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
}

func TestRequestTimeout_HandlerHeadersForwarded(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Booking", "1")
		w.WriteHeader(http.StatusCreated)
	})

	w := httptest.NewRecorder()
	RequestTimeout(time.Second)(h).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if got := w.Header().Get("X-Booking"); got != "1" {
		t.Errorf("expected handler header to be forwarded, got %q", got)
	}
}

func TestRequestTimeout_PanicReachesRecovery(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("inner")
	})

	w := httptest.NewRecorder()
	h := Recovery(logger.Discard())(RequestTimeout(time.Second)(panicking))
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestClientRateLimiter_Allow(t *testing.T) {
	limiter := NewClientRateLimiter(2, time.Minute, nil, logger.Discard())
	defer limiter.Stop()

	if !limiter.Allow("10.0.0.1") || !limiter.Allow("10.0.0.1") {
		t.Fatal("first two requests should be allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Error("third request should be limited")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Error("other clients have their own window")
	}
	if !limiter.Allow("") {
		t.Error("requests without a client key are never limited")
	}
}

func TestClientRateLimiter_WindowExpires(t *testing.T) {
	limiter := NewClientRateLimiter(1, 30*time.Millisecond, nil, logger.Discard())
	defer limiter.Stop()

	if !limiter.Allow("c") {
		t.Fatal("first request should be allowed")
	}
	if limiter.Allow("c") {
		t.Fatal("second request should be limited")
	}
	time.Sleep(50 * time.Millisecond)
	if !limiter.Allow("c") {
		t.Error("request after the window should be allowed")
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	limiter := NewClientRateLimiter(1, time.Minute, nil, logger.Discard())
	defer limiter.Stop()

	h := RateLimit(limiter)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5555"

	first := httptest.NewRecorder()
	h.ServeHTTP(first, req)
	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)

	if first.Code != http.StatusOK {
		t.Errorf("expected first request 200, got %d", first.Code)
	}
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("expected second request 429, got %d", second.Code)
	}
}

func TestDefaultClientExtractor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	if got := DefaultClientExtractor(req); got != "192.0.2.7" {
		t.Errorf("expected peer host, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := DefaultClientExtractor(req); got != "203.0.113.9" {
		t.Errorf("expected first forwarded hop, got %q", got)
	}
}

func TestIdempotency_ReplaysSuccessfulResponse(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"n":` + string(rune('0'+n)) + `}`))
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader("{}"))
		req.Header.Set(IdempotencyHeader, "key-1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	first := send()
	second := send()

	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Errorf("replay differs: %d %q vs %d %q", second.Code, second.Body.String(), first.Code, first.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("expected replay marker header")
	}
}

func TestIdempotency_DoesNotCacheFailures(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusConflict)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil)
		req.Header.Set(IdempotencyHeader, "key-1")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected failed responses to be retried, handler ran %d times", calls)
	}
}

func TestIdempotency_ScopedByPathAndIgnoresReads(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))

	for _, target := range []struct{ method, path string }{
		{http.MethodPatch, "/api/v1/bookings/a"},
		{http.MethodPatch, "/api/v1/bookings/b"},
		{http.MethodGet, "/api/v1/bookings"},
		{http.MethodGet, "/api/v1/bookings"},
	} {
		req := httptest.NewRequest(target.method, target.path, nil)
		req.Header.Set(IdempotencyHeader, "same-key")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	if atomic.LoadInt32(&calls) != 4 {
		t.Errorf("expected every request to reach the handler, got %d", calls)
	}
}

func TestCORS(t *testing.T) {
	t.Run("allow all", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
		req.Header.Set("Origin", "https://app.example")
		w := httptest.NewRecorder()
		CORS([]string{"*"})(okHandler()).ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("expected wildcard origin, got %q", got)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/bookings", nil)
		req.Header.Set("Origin", "https://app.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		CORS([]string{"https://app.example"})(okHandler()).ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
			t.Errorf("expected echoed origin, got %q", got)
		}
		if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch) {
			t.Errorf("expected PATCH in allowed methods, got %q", w.Header().Get("Access-Control-Allow-Methods"))
		}
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		CORS([]string{"https://app.example"})(okHandler()).ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("expected no CORS header, got %q", got)
		}
	})
}

func TestMaxRequestSize(t *testing.T) {
	readAll := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	h := MaxRequestSize(8, logger.Discard())(readAll)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for small body, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("this body is too large")))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413 for declared large body, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("this body is too large"))
	req.ContentLength = -1
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413 for streamed large body, got %d", w.Code)
	}
}

func TestMetrics_RecordsRouteLabel(t *testing.T) {
	m := metrics.New("test")
	label := func(string) string { return "/api/v1/bookings/:id" }
	h := Metrics(m, label)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/bookings/abc", nil))

	count, err := testutil.GatherAndCount(m.Registry(), "http_requests_total")
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected one series, got %d", count)
	}
	expected := `
# HELP http_requests_total Total number of HTTP requests.
# TYPE http_requests_total counter
http_requests_total{method="GET",path="/api/v1/bookings/:id",service="test",status="404"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "http_requests_total"); err != nil {
		t.Error(err)
	}
}
