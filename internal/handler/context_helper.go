package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schedbot-api/internal/middleware"
)

func sessionFromContext(c *gin.Context) string {
	value, exists := c.Get(middleware.ContextSessionKey)
	if !exists {
		return ""
	}
	id, ok := value.(string)
	if !ok {
		return ""
	}
	return id
}
