package search

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gamelib/internal/domain"
	"github.com/simp-lee/gamelib/internal/pkg"
	"github.com/simp-lee/gamelib/internal/workflow"
)

// WorkflowHandler exposes the session's workflow as a JSON API. Every endpoint
// responds with the resulting view; on failure the envelope carries the
// mapped status and message alongside the view.
type WorkflowHandler struct {
	reg *Registry
}

// NewWorkflowHandler creates a WorkflowHandler over reg.
func NewWorkflowHandler(reg *Registry) *WorkflowHandler {
	return &WorkflowHandler{reg: reg}
}

// View handles GET /api/v1/workflow.
func (h *WorkflowHandler) View(c *gin.Context) {
	h.run(c, func(*workflow.Workflow) error { return nil })
}

// SetTerm handles PUT /api/v1/workflow/term.
func (h *WorkflowHandler) SetTerm(c *gin.Context) {
	var req TermRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	h.run(c, func(wf *workflow.Workflow) error {
		wf.SetTerm(req.Term)
		return nil
	})
}

// Search handles POST /api/v1/workflow/search.
func (h *WorkflowHandler) Search(c *gin.Context) {
	var req SearchRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	h.run(c, func(wf *workflow.Workflow) error {
		return wf.Search(c.Request.Context(), req.Term, req.Page)
	})
}

// ChangePage handles POST /api/v1/workflow/page.
func (h *WorkflowHandler) ChangePage(c *gin.Context) {
	var req PageRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	h.run(c, func(wf *workflow.Workflow) error {
		return wf.ChangePage(c.Request.Context(), req.Page)
	})
}

// Select handles POST /api/v1/workflow/select.
func (h *WorkflowHandler) Select(c *gin.Context) {
	var req SelectRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	h.run(c, func(wf *workflow.Workflow) error {
		return wf.OpenSelectionByID(c.Request.Context(), req.ID)
	})
}

// Close handles POST /api/v1/workflow/close.
func (h *WorkflowHandler) Close(c *gin.Context) {
	h.run(c, func(wf *workflow.Workflow) error {
		wf.CloseSelection()
		return nil
	})
}

// Choice handles PUT /api/v1/workflow/choice.
func (h *WorkflowHandler) Choice(c *gin.Context) {
	var req ChoiceRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	h.run(c, func(wf *workflow.Workflow) error {
		if req.Platform != nil {
			wf.SetPlatform(strings.TrimSpace(*req.Platform))
		}
		if req.Status != nil {
			wf.SetStatus(strings.TrimSpace(*req.Status))
		}
		return nil
	})
}

// Confirm handles POST /api/v1/workflow/confirm.
func (h *WorkflowHandler) Confirm(c *gin.Context) {
	h.run(c, func(wf *workflow.Workflow) error {
		return wf.Confirm(c.Request.Context())
	})
}

// DismissAlert handles POST /api/v1/workflow/alert/dismiss.
func (h *WorkflowHandler) DismissAlert(c *gin.Context) {
	h.run(c, func(wf *workflow.Workflow) error {
		wf.DismissAlert()
		return nil
	})
}

func (h *WorkflowHandler) run(c *gin.Context, fn func(*workflow.Workflow) error) {
	wf, err := workflowFor(c, h.reg)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	if err := fn(wf); err != nil {
		pkg.ErrorWithData(c, err, wf.View())
		return
	}
	pkg.Success(c, wf.View())
}

// GamesHandler serves stateless catalog lookups.
type GamesHandler struct {
	client domain.SearchClient
}

// NewGamesHandler creates a GamesHandler over client.
func NewGamesHandler(client domain.SearchClient) *GamesHandler {
	return &GamesHandler{client: client}
}

// Search handles GET /api/v1/games?q=&page=.
func (h *GamesHandler) Search(c *gin.Context) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			pkg.Error(c, domain.NewAppError(domain.CodeValidation, "page must be a positive integer", nil))
			return
		}
		page = p
	}

	result, err := h.client.Search(c.Request.Context(), c.Query("q"), page)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, gin.H{
		"results":     result.Results,
		"total_count": result.TotalCount,
		"page":        page,
		"page_size":   domain.SearchPageSize,
		"page_count":  domain.PageCount(int64(result.TotalCount), domain.SearchPageSize),
	})
}
