package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"cryptosniper/internal/domain"
	apperrors "cryptosniper/internal/errors"
)

const (
	// SessionCookieName is the cookie carrying the signed session token
	SessionCookieName = "session"

	contextKeyUserID = "user_id"
)

// SessionClaims represents the signed session token claims.
// ID (jti) is the server-side session id.
type SessionClaims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// SessionAuth issues, validates and revokes session cookies
type SessionAuth struct {
	secret   []byte
	sessions domain.SessionStore
	secure   bool
	signer   func(*domain.Session) (string, error)
}

// NewSessionAuth creates the session authenticator. secure controls the
// cookie Secure flag and is off only in development.
func NewSessionAuth(secret string, sessions domain.SessionStore, secure bool) *SessionAuth {
	a := &SessionAuth{
		secret:   []byte(secret),
		sessions: sessions,
		secure:   secure,
	}
	a.signer = a.sign
	return a
}

// Issue opens a session for userID and sets the cookie on the response
func (a *SessionAuth) Issue(c echo.Context, userID int64) (*domain.Session, error) {
	sess, err := a.sessions.Create(c.Request().Context(), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := a.signer(sess)
	if err != nil {
		if delErr := a.sessions.Delete(c.Request().Context(), sess.ID); delErr != nil {
			return nil, errors.Join(err, fmt.Errorf("failed to roll back session %s: %w", sess.ID, delErr))
		}
		return nil, err
	}

	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(domain.SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, nil
}

// Revoke destroys the request's session, if any, and clears the cookie
func (a *SessionAuth) Revoke(c echo.Context) error {
	if token := tokenFromRequest(c); token != "" {
		if claims, err := a.parse(token); err == nil {
			if err := a.sessions.Delete(c.Request().Context(), claims.ID); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
		}
	}

	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Middleware rejects requests without a live session and sets the user id
// on the echo context
func (a *SessionAuth) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := tokenFromRequest(c)
		if token == "" {
			return apperrors.NewSessionRequiredError()
		}

		claims, err := a.parse(token)
		if err != nil {
			return apperrors.NewAuthenticationError("Invalid or expired session", err)
		}

		sess, err := a.sessions.Get(c.Request().Context(), claims.ID)
		if errors.Is(err, domain.ErrNotFound) {
			return apperrors.NewAuthenticationError("Session has ended", nil)
		}
		if err != nil {
			return apperrors.NewInternalError("Failed to load session", err)
		}
		if sess.UserID != claims.UserID {
			return apperrors.NewAuthenticationError("Invalid session", nil)
		}

		c.Set(contextKeyUserID, sess.UserID)

		return next(c)
	}
}

func (a *SessionAuth) sign(sess *domain.Session) (string, error) {
	claims := &SessionClaims{
		UserID: sess.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

func (a *SessionAuth) parse(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, fmt.Errorf("invalid session claims")
	}
	return claims, nil
}

// tokenFromRequest reads a Bearer header first, then the session cookie
func tokenFromRequest(c echo.Context) string {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}

	cookie, err := c.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// GetUserID extracts user ID from echo context
func GetUserID(c echo.Context) (int64, error) {
	userID, ok := c.Get(contextKeyUserID).(int64)
	if !ok {
		return 0, fmt.Errorf("user_id not found in context")
	}
	return userID, nil
}
