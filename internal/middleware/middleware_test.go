package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	key := "client"
	if !limiter.Allow(key) {
		t.Fatalf("expected allow on first")
	}
	if !limiter.Allow(key) {
		t.Fatalf("expected allow on second")
	}
	if limiter.Allow(key) {
		t.Fatalf("expected block on third")
	}
	if !limiter.Allow("other") {
		t.Fatalf("keys must not share a window")
	}
}

func TestRateLimiterWindowResets(t *testing.T) {
	limiter := NewRateLimiter(1, 10*time.Millisecond)
	if !limiter.Allow("k") || limiter.Allow("k") {
		t.Fatalf("expected a single admission per window")
	}
	time.Sleep(20 * time.Millisecond)
	if !limiter.Allow("k") {
		t.Fatalf("expected a fresh window")
	}
}

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRedisRateLimiter(client, "rl:chat", 2, time.Minute, nil)
	assert.True(t, limiter.Allow("1.2.3.4"))
	assert.True(t, limiter.Allow("1.2.3.4"))
	assert.False(t, limiter.Allow("1.2.3.4"))
	assert.True(t, limiter.Allow("5.6.7.8"))
	assert.Greater(t, mr.TTL("rl:chat:1.2.3.4"), time.Duration(0))

	mr.FastForward(time.Minute + time.Second)
	assert.True(t, limiter.Allow("1.2.3.4"))
}

func TestRedisRateLimiterFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	limiter := NewRedisRateLimiter(client, "rl", 1, time.Minute, nil)
	assert.True(t, limiter.Allow("k"))
	assert.True(t, limiter.Allow("k"))
}

func TestHandleCORSPreflight(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/decoder", nil)
	if !HandleCORS(rec, req, "https://pepeperez.mx") {
		t.Fatalf("preflight should be answered")
	}
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://pepeperez.mx", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), SessionHeader)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/decoder", nil)
	assert.False(t, HandleCORS(rec, req, ""))
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", ClientKey(req))
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", ClientKey(req))
}
