package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ecocycle/ewaste-api/pkg/config"
	"github.com/ecocycle/ewaste-api/pkg/middleware/requestid"
)

func newObservedRouter(opts ...MiddlewareOption) (*gin.Engine, *observer.ObservedLogs) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(requestid.Middleware())
	r.Use(GinMiddleware(zap.New(core), opts...))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/collection-requests/:id", func(c *gin.Context) {
		c.Set("actor", "user-1")
		c.Status(http.StatusNotFound)
	})
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	return r, logs
}

func serve(r *gin.Engine, path string) {
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
}

func TestGinMiddlewareLevelsAndFields(t *testing.T) {
	r, logs := newObservedRouter(WithActor(func(c *gin.Context) (string, string) {
		if id := c.GetString("actor"); id != "" {
			return id, "PUBLIC"
		}
		return "", ""
	}))

	serve(r, "/collection-requests/req-9")
	serve(r, "/boom")

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/collection-requests/:id", fields["route"])
	assert.Equal(t, "user-1", fields["actor_id"])
	assert.Equal(t, "PUBLIC", fields["actor_role"])
	assert.NotEmpty(t, fields["request_id"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	_, hasActor := entries[1].ContextMap()["actor_id"]
	assert.False(t, hasActor)
}

func TestGinMiddlewareQuietPaths(t *testing.T) {
	r, logs := newObservedRouter(WithQuietPaths("/health"))

	serve(r, "/health")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)
}

func TestNewHonoursLevel(t *testing.T) {
	l, err := New(&config.Config{Env: config.EnvProduction, Log: config.LogConfig{Level: "warn", Format: "console"}})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}
