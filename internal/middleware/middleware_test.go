package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/shelfworks/catalog-service/internal/metrics"
	"github.com/shelfworks/catalog-service/pkg/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(1, 2, logger.NewDefault("test"))
	handler := rl.Handler(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("requests within burst should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", codes[2])
	}
}

func TestRateLimiterKeysByClient(t *testing.T) {
	rl := NewRateLimiter(1, 1, logger.NewDefault("test"))
	handler := rl.Handler(okHandler())

	for i, addr := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("client %d blocked, want independent budgets", i)
		}
	}
}

func TestLoggingMiddlewareEchoesTraceID(t *testing.T) {
	router := mux.NewRouter()
	router.Use(LoggingMiddleware(logger.NewDefault("test")))
	router.Handle("/books", okHandler()).Methods(http.MethodGet)

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	req.Header.Set("X-Trace-ID", "trace-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Trace-ID"); got != "trace-123" {
		t.Fatalf("trace id = %q, want trace-123", got)
	}

	// Without an incoming id the middleware generates one.
	req = httptest.NewRequest(http.MethodGet, "/books", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Header().Get("X-Trace-ID") == "" {
		t.Fatal("expected a generated trace id")
	}
}

func TestMetricsMiddlewareCountsRequests(t *testing.T) {
	m := metrics.New("test")
	router := mux.NewRouter()
	router.Use(MetricsMiddleware(m))
	router.Handle("/books/{id}", okHandler()).Methods(http.MethodGet)
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	req := httptest.NewRequest(http.MethodGet, "/books/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "test_http_requests_total") {
		t.Fatalf("scrape output missing request counter:\n%s", body)
	}
	// The path label uses the route template, not the raw URL.
	if !strings.Contains(body, "/books/{id}") {
		t.Fatal("expected the route template as the path label")
	}
}
