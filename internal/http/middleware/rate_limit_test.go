package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateLimitedEngine(perSecond float64, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(perSecond, burst))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func hit(r *gin.Engine, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitPerClient(t *testing.T) {
	r := rateLimitedEngine(0.001, 2)

	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1:1001").Code)
	rec := hit(r, "10.0.0.1:1002")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"code":"rate_limited"`)

	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.2:1000").Code)
}

func TestRateLimitDisabled(t *testing.T) {
	r := rateLimitedEngine(0, 0)
	for i := 0; i < 20; i++ {
		require.Equal(t, http.StatusOK, hit(r, "10.0.0.1:1000").Code)
	}
}
