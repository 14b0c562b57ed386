package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gamelib/internal/middleware"
	"github.com/simp-lee/gamelib/internal/pkg"
)

// AuthHandler serves the JSON sign-in API used by non-browser clients.
type AuthHandler struct {
	svc Service
}

// NewHandler creates a new AuthHandler with the given service.
func NewHandler(svc Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Login handles POST /api/v1/auth/login and returns a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	tok, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, tok)
}

// Register handles POST /api/v1/auth/register. The new account is signed in
// straight away, so the response carries a token like Login does.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	tok, err := h.svc.SignUp(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Created(c, "account created", tok)
}

// Logout handles POST /api/v1/auth/logout and revokes the bearer token.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := middleware.BearerToken(c.GetHeader("Authorization"))
	if err := h.svc.Logout(c.Request.Context(), token); err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, nil)
}
