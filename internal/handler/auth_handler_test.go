package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/schedbot-api/internal/middleware"
	appErrors "github.com/noah-isme/schedbot-api/pkg/errors"
)

type authServiceMock struct {
	authorized    bool
	callbackErr   error
	logoutErr     error
	lastState     string
	lastExpected  string
	lastCode      string
	logoutCalled  bool
}

func (m *authServiceMock) Authorized(ctx context.Context) bool { return m.authorized }

func (m *authServiceMock) AuthURL(state string) string {
	m.lastState = state
	return "https://accounts.example.com/consent?state=" + state
}

func (m *authServiceMock) HandleCallback(ctx context.Context, state, expectedState, code string) error {
	m.lastState = state
	m.lastExpected = expectedState
	m.lastCode = code
	return m.callbackErr
}

func (m *authServiceMock) Logout(ctx context.Context) error {
	m.logoutCalled = true
	return m.logoutErr
}

func TestAuthHandlerAuthorizeRedirectsWithSessionState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &authServiceMock{}
	handler := NewAuthHandler(mock, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/authorize", nil)
	c.Set(middleware.ContextSessionKey, "session-1")

	handler.Authorize(c)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "session-1", mock.lastState)
	assert.Contains(t, w.Header().Get("Location"), "state=session-1")
}

func TestAuthHandlerCallbackExchangesCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &authServiceMock{}
	handler := NewAuthHandler(mock, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/oauth2callback?state=session-1&code=auth-code", nil)
	c.Set(middleware.ContextSessionKey, "session-1")

	handler.Callback(c)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, "session-1", mock.lastState)
	assert.Equal(t, "session-1", mock.lastExpected)
	assert.Equal(t, "auth-code", mock.lastCode)
}

func TestAuthHandlerCallbackStateMismatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &authServiceMock{callbackErr: appErrors.Clone(appErrors.ErrValidation, "state mismatch")}
	handler := NewAuthHandler(mock, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/oauth2callback?state=evil&code=auth-code", nil)
	c.Set(middleware.ContextSessionKey, "session-1")

	handler.Callback(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerCallbackConsentDenied(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &authServiceMock{}
	handler := NewAuthHandler(mock, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/oauth2callback?error=access_denied", nil)
	c.Set(middleware.ContextSessionKey, "session-1")

	handler.Callback(c)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Empty(t, mock.lastCode)
}

func TestAuthHandlerLogout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &authServiceMock{}
	handler := NewAuthHandler(mock, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/logout", nil)

	handler.Logout(c)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/authorize", w.Header().Get("Location"))
	assert.True(t, mock.logoutCalled)
}

func TestIndexHandlerRedirectsWhenUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewIndexHandler(&authServiceMock{authorized: false})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)

	handler.Index(c)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/authorize", w.Header().Get("Location"))
}

func TestIndexHandlerServesPageWhenAuthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewIndexHandler(&authServiceMock{authorized: true})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)

	handler.Index(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Scheduling Assistant")
}
