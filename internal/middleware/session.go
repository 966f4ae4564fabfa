package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/schedbot-api/pkg/config"
)

// ContextSessionKey is the gin context key storing the session identifier.
const ContextSessionKey = "sessionID"

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "schedbot_session"

// Session assigns every browser a stable session identifier, carried in a
// signed cookie. A missing, expired, or tampered cookie gets a fresh one;
// the request always proceeds with a valid identifier in the context.
func Session(cfg config.SessionConfig) gin.HandlerFunc {
	secret := []byte(cfg.Secret)

	return func(c *gin.Context) {
		if raw, err := c.Cookie(SessionCookieName); err == nil {
			if id, ok := parseSessionToken(raw, secret); ok {
				c.Set(ContextSessionKey, id)
				c.Next()
				return
			}
		}

		id := uuid.NewString()
		token, err := issueSessionToken(id, secret, cfg.TTL)
		if err == nil {
			c.SetCookie(SessionCookieName, token, int(cfg.TTL.Seconds()), "/", "", false, true)
		}
		c.Set(ContextSessionKey, id)
		c.Next()
	}
}

// SessionID returns the identifier set by Session, or empty when the
// middleware did not run.
func SessionID(c *gin.Context) string {
	if v, ok := c.Get(ContextSessionKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func issueSessionToken(id string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseSessionToken(raw string, secret []byte) (string, bool) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", false
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}
