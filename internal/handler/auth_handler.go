package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/schedbot-api/pkg/errors"
	"github.com/noah-isme/schedbot-api/pkg/response"
)

type authService interface {
	Authorized(ctx context.Context) bool
	AuthURL(state string) string
	HandleCallback(ctx context.Context, state, expectedState, code string) error
	Logout(ctx context.Context) error
}

// AuthHandler drives the Google OAuth consent flow.
type AuthHandler struct {
	service authService
	logger  *zap.Logger
}

// NewAuthHandler builds a new handler.
func NewAuthHandler(service authService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{service: service, logger: logger}
}

// Authorize sends the browser to the Google consent screen. The session
// identifier doubles as the OAuth state parameter.
func (h *AuthHandler) Authorize(c *gin.Context) {
	state := sessionFromContext(c)
	if state == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "no session for oauth state"))
		return
	}
	c.Redirect(http.StatusFound, h.service.AuthURL(state))
}

// Callback exchanges the authorization code and stores the credential.
func (h *AuthHandler) Callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		h.logger.Warn("consent denied", zap.String("error", errParam))
		c.Redirect(http.StatusFound, "/")
		return
	}
	err := h.service.HandleCallback(c.Request.Context(), c.Query("state"), sessionFromContext(c), c.Query("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// Logout discards the stored credential.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/authorize")
}
