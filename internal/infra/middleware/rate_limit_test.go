package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func newTestServer(rl *RateLimiter) *echo.Echo {
	e := echo.New()
	e.GET("/ask", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, rl.Middleware())
	return e
}

func doRequest(e *echo.Echo, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ask", nil)
	req.RemoteAddr = ip + ":12345"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	e := newTestServer(NewRateLimiter(rate.Limit(0.5), 2))

	assert.Equal(t, http.StatusOK, doRequest(e, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, doRequest(e, "10.0.0.1").Code)

	rec := doRequest(e, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())
}

func TestRateLimiter_IsolatesClients(t *testing.T) {
	e := newTestServer(NewRateLimiter(rate.Limit(0.1), 1))

	assert.Equal(t, http.StatusOK, doRequest(e, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(e, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, doRequest(e, "10.0.0.2").Code)
}

func TestRateLimiter_EvictsStaleEntries(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 1)
	rl.getLimiter("10.0.0.1")

	rl.evict(time.Now().Add(staleAfter + time.Second))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.limiters)
}
