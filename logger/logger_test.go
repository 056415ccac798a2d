package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func withObservedLog(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	prev := Log
	Log = zap.New(core)
	t.Cleanup(func() { Log = prev })
	return logs
}

func TestError_AttachesRequestIDAndError(t *testing.T) {
	logs := withObservedLog(t)
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(RequestIDKey, "req-123")

	Error(c, "something failed", assert.AnError)

	entries := logs.All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-123", fields["request_id"])
	assert.Equal(t, assert.AnError.Error(), fields["error"])
}

func TestWarn_PlainContextFallsBackToUnknown(t *testing.T) {
	logs := withObservedLog(t)

	Warn(context.Background(), "no request attached")

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "unknown", entries[0].ContextMap()["request_id"])
}

func TestRequestLogger_PropagatesIncomingRequestID(t *testing.T) {
	logs := withObservedLog(t)
	gin.SetMode(gin.TestMode)

	var seen string
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/ping", func(c *gin.Context) {
		if id, ok := c.Get(RequestIDKey); ok {
			seen = id.(string)
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "upstream-7")
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "upstream-7", seen)
	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "upstream-7", entries[0].ContextMap()["request_id"])
}

func TestRequestLogger_GeneratesRequestIDWhenMissing(t *testing.T) {
	withObservedLog(t)
	gin.SetMode(gin.TestMode)

	var seen string
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/ping", func(c *gin.Context) {
		if id, ok := c.Get(RequestIDKey); ok {
			seen = id.(string)
		}
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.NotEmpty(t, seen)
}
