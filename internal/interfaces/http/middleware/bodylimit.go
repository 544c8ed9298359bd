package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pharmacy/backend/internal/interfaces/http/dto"
)

// BodyLimit rejects request bodies over maxBytes. Invoice payloads are a
// handful of lines, so anything large is a client bug, not real traffic.
// Declared-length requests are refused outright; streaming bodies are cut
// off by a MaxBytesReader once they cross the limit.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse("REQUEST_TOO_LARGE", "Request body exceeds maximum allowed size"))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
