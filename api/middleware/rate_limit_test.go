package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lavish-fashion/lavish-backend/pkg/config"
)

func TestRateLimitBlocksAfterBurst(t *testing.T) {
	cfg := config.APIRateLimitConfig{RequestsPerSecond: 0.001, Burst: 2, IdleTTL: time.Minute}
	handler := RateLimit(cfg, nil)(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}

	other := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	other.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Fatalf("separate clients should have separate buckets, got %d", rec.Code)
	}
}

func TestLimiterSetEvictsIdleClients(t *testing.T) {
	set := newLimiterSet(config.APIRateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute})
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	set.now = func() time.Time { return now }

	set.allow("a")
	now = now.Add(2 * time.Minute)
	set.allow("b")

	if _, ok := set.clients["a"]; ok {
		t.Fatal("expected idle client to be evicted")
	}
	if _, ok := set.clients["b"]; !ok {
		t.Fatal("expected active client to remain")
	}
}

func TestRateLimitDisabledWithoutConfig(t *testing.T) {
	handler := RateLimit(config.APIRateLimitConfig{}, nil)(okHandler())
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", rec.Code)
		}
	}
}
