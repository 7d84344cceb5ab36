package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"fixhub/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newLimitedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func doPing(r *gin.Engine, ip string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Real-IP", ip)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitMiddleware_UsesConfiguredLimit(t *testing.T) {
	prev := config.AppConfig.MaxRequestsPerMin
	config.AppConfig.MaxRequestsPerMin = 2
	t.Cleanup(func() { config.AppConfig.MaxRequestsPerMin = prev })

	r := newLimitedRouter()

	require.Equal(t, http.StatusOK, doPing(r, "10.0.0.1"))
	require.Equal(t, http.StatusOK, doPing(r, "10.0.0.1"))
	require.Equal(t, http.StatusTooManyRequests, doPing(r, "10.0.0.1"),
		"the configured per-minute allowance must cap the burst")

	// Limits are per client IP.
	require.Equal(t, http.StatusOK, doPing(r, "10.0.0.2"))
}

func TestClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		build  func(req *http.Request)
		remote string
		want   string
	}{
		{
			name:  "first hop of X-Forwarded-For wins",
			build: func(req *http.Request) { req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1") },
			want:  "203.0.113.7",
		},
		{
			name:  "X-Real-IP is the fallback header",
			build: func(req *http.Request) { req.Header.Set("X-Real-IP", "203.0.113.8") },
			want:  "203.0.113.8",
		},
		{
			name:   "remote address loses its port",
			build:  func(*http.Request) {},
			remote: "198.51.100.4:52011",
			want:   "198.51.100.4",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.remote != "" {
				req.RemoteAddr = tc.remote
			}
			tc.build(req)

			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = req
			require.Equal(t, tc.want, clientIP(c))
		})
	}
}
