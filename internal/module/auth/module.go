package auth

import "github.com/gin-gonic/gin"

// AuthModule implements the app.Module interface for the auth domain.
type AuthModule struct {
	handler *AuthHandler
	pages   *AuthPageHandler
}

// NewModule creates a new AuthModule with the given handlers.
// Panics if either handler is nil.
func NewModule(h *AuthHandler, ph *AuthPageHandler) *AuthModule {
	if h == nil || ph == nil {
		panic("auth.NewModule: handlers must not be nil")
	}
	return &AuthModule{handler: h, pages: ph}
}

// RegisterRoutes registers auth API routes and the sign-in pages.
func (m *AuthModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	auth := api.Group("/auth")
	auth.POST("/login", m.handler.Login)
	auth.POST("/register", m.handler.Register)
	auth.POST("/logout", m.handler.Logout)

	if pages == nil {
		return
	}
	pages.GET("/login", m.pages.LoginPage)
	pages.POST("/login", m.pages.Login)
	pages.GET("/register", m.pages.RegisterPage)
	pages.POST("/register", m.pages.Register)
	pages.POST("/logout", m.pages.Logout)
}
