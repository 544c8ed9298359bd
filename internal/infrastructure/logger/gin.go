package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ginLoggerKey is where the request-scoped logger lives in the gin context
const ginLoggerKey = "logger"

func contextRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}

// GinMiddleware logs one line per request. The line's level follows the
// response status: 5xx is an error, 4xx a warning. A request-scoped logger
// carrying the request ID is stored in the gin context for handlers.
func GinMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqLogger := logger.With(
			zap.String("request_id", contextRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		if traceFields := TraceFields(c.Request.Context()); traceFields != nil {
			reqLogger = reqLogger.With(traceFields...)
		}
		c.Set(ginLoggerKey, reqLogger)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if query := c.Request.URL.RawQuery; query != "" {
			fields = append(fields, zap.String("query", query))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		write := reqLogger.Info
		switch {
		case status >= http.StatusInternalServerError:
			write = reqLogger.Error
		case status >= http.StatusBadRequest:
			write = reqLogger.Warn
		}
		write("HTTP Request", fields...)
	}
}

// Recovery turns a handler panic into a logged 500 instead of a dropped
// connection
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered",
					zap.String("request_id", contextRequestID(c)),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("error", err),
					zap.Stack("stacktrace"),
				)
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// GetGinLogger retrieves the request-scoped logger placed by GinMiddleware.
// Outside a request pipeline it returns a no-op logger.
func GetGinLogger(c *gin.Context) *zap.Logger {
	if value, exists := c.Get(ginLoggerKey); exists {
		if reqLogger, ok := value.(*zap.Logger); ok {
			return reqLogger
		}
	}
	return zap.NewNop()
}
