// Package middleware provides HTTP middleware for the pharmacy backend.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxRequestIDLength caps the request id taken from a caller-supplied
// header before it lands on a span.
const maxRequestIDLength = 128

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// TracingWithConfig wraps otelgin and stamps the request id and the
// authenticated user onto the span it opened. Span names follow otelgin's
// "METHOD route" convention.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	base := otelgin.Middleware(cfg.ServiceName)
	return func(c *gin.Context) {
		base(c)

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		if requestID := spanRequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		if userID, ok := c.Get(JWTUserIDKey); ok {
			if id, valid := userID.(string); valid && id != "" {
				span.SetAttributes(attribute.String("user_id", id))
			}
		}
	}
}

// spanRequestID prefers the id the RequestID middleware minted; a raw header
// is only a fallback and gets truncated to keep header abuse off the spans.
func spanRequestID(c *gin.Context) string {
	if requestID, ok := c.Get("request_id"); ok {
		if id, valid := requestID.(string); valid && id != "" {
			return id
		}
	}
	headerID := c.GetHeader("X-Request-ID")
	if len(headerID) > maxRequestIDLength {
		headerID = headerID[:maxRequestIDLength]
	}
	return headerID
}

// SpanErrorMarker flips the span status to error on 4xx and 5xx responses.
// It runs after the handler, so it must sit behind TracingWithConfig in the
// chain.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}

		message := "Client Error"
		switch {
		case status >= http.StatusInternalServerError:
			message = "Internal Server Error"
		case status == http.StatusUnauthorized, status == http.StatusForbidden:
			message = http.StatusText(status)
		case status == http.StatusNotFound:
			message = "Not Found"
		}
		span.SetStatus(codes.Error, message)
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
}
