package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestStore(t *testing.T, perMinute float64, burst int) (*LimiterStore, *time.Time) {
	s := NewLimiterStore(perMinute, burst, time.Hour)
	t.Cleanup(s.Stop)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestLimiterStore_Allow(t *testing.T) {
	s, now := newTestStore(t, 60, 2)

	assert.True(t, s.Allow("a"))
	assert.True(t, s.Allow("a"))
	assert.False(t, s.Allow("a"), "expected the burst to be exhausted")
	assert.True(t, s.Allow("b"), "expected clients to be limited independently")

	*now = now.Add(time.Second)
	assert.True(t, s.Allow("a"), "expected a token after one second")
	assert.False(t, s.Allow("a"))
}

func TestLimiterStore_cleanup(t *testing.T) {
	s, now := newTestStore(t, 60, 1)

	s.Allow("old")
	*now = now.Add(idleEntryTTL + time.Second)
	s.Allow("new")
	s.cleanup()

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.NotContains(t, s.clients, "old")
	assert.Contains(t, s.clients, "new")
}

func TestLimiterStore_Middleware(t *testing.T) {
	s, _ := newTestStore(t, 1, 1)
	h := s.Middleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rr := httptest.NewRecorder()
	h(rr, req)
	assert.Equal(t, http.StatusCreated, rr.Code)

	// same host, different port
	req.RemoteAddr = "10.0.0.1:5678"
	rr = httptest.NewRecorder()
	h(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.JSONEq(t, `{"error":"too many requests"}`, rr.Body.String())

	req.RemoteAddr = "10.0.0.2:1234"
	rr = httptest.NewRecorder()
	h(rr, req)
	assert.Equal(t, http.StatusCreated, rr.Code)
}
