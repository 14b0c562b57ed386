package user

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gamelib/internal/middleware"
)

// UserModule implements the app.Module interface for account endpoints.
type UserModule struct {
	handler *UserHandler
}

// NewModule creates a new UserModule with the given handler.
// Panics if h is nil.
func NewModule(h *UserHandler) *UserModule {
	if h == nil {
		panic("user.NewModule: handler must not be nil")
	}
	return &UserModule{handler: h}
}

// RegisterRoutes registers user API routes.
func (m *UserModule) RegisterRoutes(api *gin.RouterGroup, _ *gin.RouterGroup) {
	api.GET("/users/me", middleware.RequireUser(), m.handler.Me)
}
