package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schedbot-api/internal/dto"
)

type chatService interface {
	Handle(ctx context.Context, sessionID, message string) *dto.ChatResponse
}

// ChatHandler exposes the conversational endpoint.
type ChatHandler struct {
	service chatService
}

// NewChatHandler builds a new handler.
func NewChatHandler(service chatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// Chat handles one conversational turn. The body is never rejected: a
// missing or empty message produces the fixed clarification prompt with
// HTTP 200, so the UI has exactly one response shape to deal with.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Message = ""
	}
	resp := h.service.Handle(c.Request.Context(), sessionFromContext(c), req.Message)
	c.JSON(http.StatusOK, resp)
}
