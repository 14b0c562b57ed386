package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"

	"github.com/simp-lee/gamelib/internal/domain"
)

const currentUserContextKey = "current_user"

// TokenVerifier validates a signed access token and returns the user id it carries.
type TokenVerifier interface {
	Verify(token string) (uint, error)
}

// UserLoader loads the account a verified token refers to.
type UserLoader interface {
	GetByID(ctx context.Context, id uint) (*domain.User, error)
}

// IdentityConfig configures the Identity middleware.
type IdentityConfig struct {
	Verifier   TokenVerifier
	Users      UserLoader
	CookieName string
	// BearerOnlyPrefix marks paths, such as "/api/", where the cookie is
	// ignored and only the Authorization header counts. Those routes carry no
	// CSRF check.
	BearerOnlyPrefix string
	Logger           *slog.Logger
}

// Identity resolves the signed-in user from an "Authorization: Bearer" header
// or, for browser pages, from the token cookie. Requests without a valid token
// continue anonymously; use RequireUser to reject them.
func Identity(cfg IdentityConfig) gin.HandlerFunc {
	if cfg.Verifier == nil || cfg.Users == nil {
		panic("middleware.Identity: verifier and user loader must not be nil")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))
		if token == "" && cfg.CookieName != "" && !bearerOnly(c.Request.URL.Path, cfg.BearerOnlyPrefix) {
			token, _ = c.Cookie(cfg.CookieName)
		}
		if token == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		id, err := cfg.Verifier.Verify(token)
		if err != nil {
			log.DebugContext(ctx, "ignoring invalid access token", slog.Any("error", err))
			c.Next()
			return
		}
		u, err := cfg.Users.GetByID(ctx, id)
		if err != nil {
			log.WarnContext(ctx, "token refers to unknown user", slog.Uint64("user_id", uint64(id)), slog.Any("error", err))
			c.Next()
			return
		}

		SetCurrentUser(c, u)
		c.Request = c.Request.WithContext(logger.WithContextAttrs(ctx, slog.String("user_id", u.UID())))
		c.Next()
	}
}

// RequireUser aborts with 401 unless Identity resolved a user.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    http.StatusUnauthorized,
				"message": "sign in required",
				"data":    nil,
			})
			return
		}
		c.Next()
	}
}

// SetCurrentUser stores u as the signed-in user of the request.
func SetCurrentUser(c *gin.Context, u *domain.User) {
	c.Set(currentUserContextKey, u)
}

// CurrentUser returns the signed-in user, or nil for anonymous requests.
func CurrentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(currentUserContextKey); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// BearerToken returns the token of an "Authorization: Bearer" header, or "".
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func bearerOnly(path, prefix string) bool {
	return prefix != "" && strings.HasPrefix(path, prefix)
}
