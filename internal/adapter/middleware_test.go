package adapter

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestIDMiddleware_GeneratesWhenAbsent(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = getRequestID(r)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/snapshot", nil)
	w := httptest.NewRecorder()
	RequestIDMiddleware(next).ServeHTTP(w, req)

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
}

func TestRequestIDMiddleware_ReusesSuppliedID(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = getRequestID(r)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/snapshot", nil)
	req.Header.Set("X-Request-ID", "caller-supplied")
	w := httptest.NewRecorder()
	RequestIDMiddleware(next).ServeHTTP(w, req)

	assert.Equal(t, "caller-supplied", seen)
	assert.Equal(t, "caller-supplied", w.Header().Get("X-Request-ID"))
}

func TestRecoveryMiddleware_CatchesPanic(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("car index out of range")
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/snapshot", nil)
	w := httptest.NewRecorder()

	assert.NotPanics(t, func() {
		RecoveryMiddleware(slog.Default())(panicky).ServeHTTP(w, req)
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCORSMiddleware_SetsHeadersAndHandlesPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/v1/calls", nil)
	w := httptest.NewRecorder()
	CORSMiddleware(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddleware_PassesThroughNonPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/calls", nil)
	w := httptest.NewRecorder()
	CORSMiddleware(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/calls", nil)
	w := httptest.NewRecorder()
	SecurityHeadersMiddleware(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestSanitizeEndpoint(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/v1/calls", "/v1/calls"},
		{"/v1/calls/", "/v1/calls"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeEndpoint(tt.in))
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/calls", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	assert.Equal(t, "10.0.0.5", getClientIP(req))

	req2 := httptest.NewRequest(http.MethodGet, "/v1/calls", nil)
	req2.RemoteAddr = "10.0.0.5:54321"
	req2.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", getClientIP(req2))
}

func TestRateLimiter_AllowsWithinLimitThenBlocks(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)

	assert.True(t, rl.allow("client-a"))
	assert.True(t, rl.allow("client-a"))
	assert.False(t, rl.allow("client-a"))

	assert.True(t, rl.allow("client-b"))
}

func TestRateLimitMiddleware_RejectsOverLimit(t *testing.T) {
	mw := RateLimitMiddleware(slog.Default(), 1, time.Minute)
	handler := mw(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/calls", nil)
	req.RemoteAddr = "10.0.0.9:1111"

	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, req)
	require.Equal(t, http.StatusOK, w1.Code)

	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req)
	assert.Equal(t, http.StatusTooManyRequests, w2.Code)
}

func TestChainMiddleware_RunsOutermostFirst(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := ChainMiddleware(okHandler(), mark("first"), mark("second"))
	req := httptest.NewRequest(http.MethodGet, "/v1/calls", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, []string{"first", "second"}, order)
}
