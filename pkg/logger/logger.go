package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ecocycle/ewaste-api/pkg/config"
	"github.com/ecocycle/ewaste-api/pkg/middleware/requestid"
)

func New(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Env == config.EnvProduction {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Log.Format {
	case "console":
		zapCfg.Encoding = "console"
	default:
		zapCfg.Encoding = "json"
	}

	if cfg.Log.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}
	}

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapCfg.Build(zap.Fields(zap.String("service", "ewaste-api")))
}

// ActorFunc extracts the authenticated profile id and role from a request.
type ActorFunc func(c *gin.Context) (id, role string)

// MiddlewareOption configures GinMiddleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	actor ActorFunc
	quiet map[string]struct{}
}

// WithActor attaches the caller's id and role to each request line.
func WithActor(fn ActorFunc) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.actor = fn
	}
}

// WithQuietPaths logs successful requests to the given paths at debug level.
func WithQuietPaths(paths ...string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		for _, p := range paths {
			cfg.quiet[p] = struct{}{}
		}
	}
}

// GinMiddleware logs one line per request. Server errors are logged at error level.
func GinMiddleware(l *zap.Logger, opts ...MiddlewareOption) gin.HandlerFunc {
	cfg := &middlewareConfig{quiet: map[string]struct{}{}}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if reqID := requestid.Value(c); reqID != "" {
			fields = append(fields, zap.String("request_id", reqID))
		}
		if cfg.actor != nil {
			if id, role := cfg.actor(c); id != "" {
				fields = append(fields, zap.String("actor_id", id), zap.String("actor_role", role))
			}
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			l.Error("http_request", fields...)
		case status >= 400:
			l.Warn("http_request", fields...)
		default:
			if _, ok := cfg.quiet[route]; ok {
				l.Debug("http_request", fields...)
				return
			}
			l.Info("http_request", fields...)
		}
	}
}
