package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schedbot-api/web"
)

type credentialChecker interface {
	Authorized(ctx context.Context) bool
}

// IndexHandler serves the chat page, gated on a stored calendar credential.
type IndexHandler struct {
	auth credentialChecker
}

// NewIndexHandler builds a new handler.
func NewIndexHandler(auth credentialChecker) *IndexHandler {
	return &IndexHandler{auth: auth}
}

// Index serves the chat UI, or starts the consent flow when no calendar
// credential is stored yet.
func (h *IndexHandler) Index(c *gin.Context) {
	if !h.auth.Authorized(c.Request.Context()) {
		c.Redirect(http.StatusFound, "/authorize")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.Index)
}
