package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/noah-isme/ctos-api/pkg/config"
	"github.com/noah-isme/ctos-api/pkg/middleware/requestid"
)

// ContextFieldsKey holds extra zap fields handlers attach to the access log line.
const ContextFieldsKey = "log_fields"

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
	zapCfg.InitialFields = map[string]interface{}{"service": "ctos-api", "env": cfg.Env}

	return zapCfg.Build()
}

// AddFields appends fields to the access log entry of the current request.
func AddFields(c *gin.Context, fields ...zap.Field) {
	if len(fields) == 0 {
		return
	}
	existing, _ := c.Get(ContextFieldsKey)
	current, _ := existing.([]zap.Field)
	c.Set(ContextFieldsKey, append(current, fields...))
}

// FromContext returns a child logger tagged with the request id.
func FromContext(c *gin.Context, l *zap.Logger) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	if reqID := requestid.Value(c); reqID != "" {
		return l.With(zap.String("request_id", reqID))
	}
	return l
}

func GinMiddleware(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		reqID := requestid.Value(c)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		}
		if reqID != "" {
			fields = append(fields, zap.String("request_id", reqID))
		}
		if extra, ok := c.Get(ContextFieldsKey); ok {
			if extraFields, ok := extra.([]zap.Field); ok {
				fields = append(fields, extraFields...)
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
			l.Info("http_request", fields...)
		}
	}
}
