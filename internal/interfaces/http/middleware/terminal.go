package middleware

import (
	"github.com/chrisfalcon1208/apprest/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
)

// TerminalIDHeader names the floor terminal that sent the request
const TerminalIDHeader = "X-Terminal-ID"

// TerminalID tags the request logger with the calling terminal
func TerminalID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader(TerminalIDHeader); id != "" {
			c.Request = c.Request.WithContext(logger.WithTerminalID(c.Request.Context(), id))
		}
		c.Next()
	}
}
