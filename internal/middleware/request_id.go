package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/taskflow/taskflow-api/internal/constants"
)

// RequestID tags each request with a UUID, honoring one supplied by an
// upstream proxy, and echoes it on the response for log correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(constants.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(constants.ContextKeyRequestID, id)
		c.Header(constants.RequestIDHeader, id)
		c.Next()
	}
}
