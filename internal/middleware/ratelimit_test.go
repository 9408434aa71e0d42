package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newLimitedRouter(rate int, keyFn KeyFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(rate, time.Minute)
	r := gin.New()
	r.GET("/exams/:exam_id/feed", rl.Middleware(keyFn), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doRequest(r *gin.Engine, path string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", path, nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	r := newLimitedRouter(3, KeyByClientIP)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doRequest(r, "/exams/x/feed"))
	}
}

func TestRateLimiterRejectsBeyondBudget(t *testing.T) {
	r := newLimitedRouter(2, KeyByClientIP)

	doRequest(r, "/exams/x/feed")
	doRequest(r, "/exams/x/feed")

	assert.Equal(t, http.StatusTooManyRequests, doRequest(r, "/exams/x/feed"))
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	// KeyBySession without claims falls back to client IP plus the exam
	// param is not part of the key, so use a key function that separates
	// exams directly to prove bucket independence.
	perExam := func(c *gin.Context) string { return c.Param("exam_id") }
	r := newLimitedRouter(1, perExam)

	assert.Equal(t, http.StatusOK, doRequest(r, "/exams/a/feed"))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(r, "/exams/a/feed"))

	// A different exam has its own bucket.
	assert.Equal(t, http.StatusOK, doRequest(r, "/exams/b/feed"))
}

func TestRateLimiterZeroRateDisablesLimiting(t *testing.T) {
	r := newLimitedRouter(0, KeyByClientIP)

	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, doRequest(r, "/exams/x/feed"))
	}
}
