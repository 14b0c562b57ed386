package user

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gamelib/internal/domain"
	"github.com/simp-lee/gamelib/internal/middleware"
	"github.com/simp-lee/gamelib/internal/pkg"
)

// ProfileResponse is the public view of the signed-in account.
type ProfileResponse struct {
	ID    uint   `json:"id"`
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserHandler handles REST API requests for the signed-in user.
type UserHandler struct{}

// NewUserHandler creates a new UserHandler.
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Me handles GET /api/v1/users/me.
func (h *UserHandler) Me(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if u == nil {
		pkg.Error(c, domain.NewAppError(domain.CodeUnauthorized, "sign in required", nil))
		return
	}
	pkg.Success(c, ProfileResponse{ID: u.ID, UID: u.UID(), Name: u.Name, Email: u.Email})
}
