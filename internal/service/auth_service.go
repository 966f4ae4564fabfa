package service

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"github.com/noah-isme/schedbot-api/pkg/config"
	appErrors "github.com/noah-isme/schedbot-api/pkg/errors"
)

type tokenStore interface {
	Has(ctx context.Context) bool
	Save(ctx context.Context, token *oauth2.Token) error
	Clear(ctx context.Context) error
}

// AuthService runs the Google OAuth consent flow and owns the lifecycle of
// the stored credential.
type AuthService struct {
	tokens tokenStore
	oauth  *oauth2.Config
	logger *zap.Logger
}

// NewAuthService loads the OAuth client configuration from the Google client
// secret file and wires the redirect URI.
func NewAuthService(tokens tokenStore, cfg config.GoogleConfig, logger *zap.Logger) (*AuthService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := os.ReadFile(cfg.ClientSecretFile)
	if err != nil {
		return nil, fmt.Errorf("read client secret file: %w", err)
	}

	oauthCfg, err := google.ConfigFromJSON(data, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("parse client secret file: %w", err)
	}
	oauthCfg.RedirectURL = cfg.RedirectURL

	return &AuthService{tokens: tokens, oauth: oauthCfg, logger: logger}, nil
}

// OAuthConfig exposes the oauth2 configuration for the calendar gateway's
// token source.
func (s *AuthService) OAuthConfig() *oauth2.Config {
	return s.oauth
}

// Authorized reports whether a usable credential is stored.
func (s *AuthService) Authorized(ctx context.Context) bool {
	return s.tokens.Has(ctx)
}

// AuthURL builds the consent screen URL for the given anti-forgery state.
func (s *AuthService) AuthURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// HandleCallback completes the authorization handshake: the code is
// exchanged for a token, which becomes the stored credential.
func (s *AuthService) HandleCallback(ctx context.Context, state, expectedState, code string) error {
	if expectedState == "" || state != expectedState {
		return appErrors.Clone(appErrors.ErrValidation, "oauth state mismatch")
	}
	if code == "" {
		return appErrors.Clone(appErrors.ErrValidation, "missing authorization code")
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrUnauthenticated.Code, appErrors.ErrUnauthenticated.Status, "authorization exchange failed")
	}

	if err := s.tokens.Save(ctx, token); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "persist credential")
	}

	s.logger.Info("calendar authorization completed")
	return nil
}

// Logout destroys the stored credential.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.tokens.Clear(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "clear credential")
	}
	s.logger.Info("credential cleared")
	return nil
}
