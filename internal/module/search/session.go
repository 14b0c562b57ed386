package search

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gamelib/internal/domain"
	"github.com/simp-lee/gamelib/internal/middleware"
	"github.com/simp-lee/gamelib/internal/workflow"
)

var errNoSession = domain.NewAppError(domain.CodeValidation, "session is required", nil)

// workflowFor returns the calling session's workflow after syncing its auth
// session with the request's signed-in user.
func workflowFor(c *gin.Context, reg *Registry) (*workflow.Workflow, error) {
	id := middleware.GetSessionID(c)
	if id == "" {
		return nil, errNoSession
	}
	wf, sess := reg.Get(id)
	sess.Set(middleware.CurrentUser(c))
	return wf, nil
}
