package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/simp-lee/logger"
)

const (
	sessionContextKey = "session_id"
	// SessionHeader lets non-browser clients carry the session without cookies.
	SessionHeader = "X-Session-ID"
)

// Session assigns every client a stable session id kept in cookieName. The id
// scopes the per-session search workflow. A valid X-Session-ID header takes
// precedence over the cookie.
func Session(cookieName string) gin.HandlerFunc {
	secure := gin.Mode() == gin.ReleaseMode
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if !isValidSessionID(id) {
			id, _ = c.Cookie(cookieName)
		}
		if !isValidSessionID(id) {
			id = uuid.NewString()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     cookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		c.Set(sessionContextKey, id)
		c.Header(SessionHeader, id)
		ctx := logger.WithContextAttrs(c.Request.Context(), slog.String("session_id", id))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetSessionID returns the id assigned by Session, or "".
func GetSessionID(c *gin.Context) string {
	if v, ok := c.Get(sessionContextKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func isValidSessionID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
