package search

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gamelib/internal/middleware"
	"github.com/simp-lee/gamelib/internal/workflow"
)

const (
	searchPath = "/search"
	pageWindow = 5
)

// SearchPageHandler renders the search page. Every form posts an event to the
// session's workflow and redirects back to GET /search.
type SearchPageHandler struct {
	reg *Registry
}

// NewSearchPageHandler creates a SearchPageHandler over reg.
func NewSearchPageHandler(reg *Registry) *SearchPageHandler {
	return &SearchPageHandler{reg: reg}
}

// Page renders the current state of the session's workflow.
// GET /search
func (h *SearchPageHandler) Page(c *gin.Context) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}
	view := wf.View()
	c.HTML(http.StatusOK, "search/index.html", gin.H{
		"Title":       "Search games",
		"View":        view,
		"Pages":       pageNumbers(view.Pagination.CurrentPage, view.Pagination.PageCount, pageWindow),
		"CSRFToken":   middleware.GetCSRFToken(c),
		"CurrentUser": middleware.CurrentUser(c),
	})
}

// Search submits the term.
// POST /search
func (h *SearchPageHandler) Search(c *gin.Context) {
	h.apply(c, func(wf *workflow.Workflow) {
		_ = wf.Search(c.Request.Context(), c.PostForm("term"), 1)
	})
}

// ChangePage loads another page of the last search.
// POST /search/page
func (h *SearchPageHandler) ChangePage(c *gin.Context) {
	h.apply(c, func(wf *workflow.Workflow) {
		page, _ := strconv.Atoi(c.PostForm("page"))
		_ = wf.ChangePage(c.Request.Context(), page)
	})
}

// Select opens the add dialog for a result.
// POST /search/select/:id
func (h *SearchPageHandler) Select(c *gin.Context) {
	h.apply(c, func(wf *workflow.Workflow) {
		id, _ := strconv.Atoi(c.Param("id"))
		_ = wf.OpenSelectionByID(c.Request.Context(), id)
	})
}

// Close hides the add dialog.
// POST /search/close
func (h *SearchPageHandler) Close(c *gin.Context) {
	h.apply(c, func(wf *workflow.Workflow) { wf.CloseSelection() })
}

// Choice records the platform and status fields that were submitted.
// POST /search/choice
func (h *SearchPageHandler) Choice(c *gin.Context) {
	h.apply(c, func(wf *workflow.Workflow) { applyChoiceForm(c, wf) })
}

// Confirm records any submitted choice and adds the selected game.
// POST /search/confirm
func (h *SearchPageHandler) Confirm(c *gin.Context) {
	h.apply(c, func(wf *workflow.Workflow) {
		applyChoiceForm(c, wf)
		_ = wf.Confirm(c.Request.Context())
	})
}

// DismissAlert hides the alert.
// POST /search/alert/dismiss
func (h *SearchPageHandler) DismissAlert(c *gin.Context) {
	h.apply(c, func(wf *workflow.Workflow) { wf.DismissAlert() })
}

// apply runs fn against the session's workflow and redirects to the page.
// Failures are already recorded in the workflow's alert.
func (h *SearchPageHandler) apply(c *gin.Context, fn func(*workflow.Workflow)) {
	wf, ok := h.workflow(c)
	if !ok {
		return
	}
	fn(wf)
	c.Redirect(http.StatusSeeOther, searchPath)
}

func (h *SearchPageHandler) workflow(c *gin.Context) (*workflow.Workflow, bool) {
	wf, err := workflowFor(c, h.reg)
	if err != nil {
		c.HTML(http.StatusBadRequest, "errors/400.html", gin.H{
			"Title":     "Bad request",
			"RequestID": middleware.GetRequestID(c),
		})
		return nil, false
	}
	return wf, true
}

func applyChoiceForm(c *gin.Context, wf *workflow.Workflow) {
	if platform, ok := c.GetPostForm("platform"); ok {
		wf.SetPlatform(strings.TrimSpace(platform))
	}
	if status, ok := c.GetPostForm("status"); ok {
		wf.SetStatus(strings.TrimSpace(status))
	}
}

// pageNumbers returns up to window page numbers centred on current.
func pageNumbers(current, count, window int) []int {
	if count <= 0 {
		return nil
	}
	start := max(current-window/2, 1)
	end := min(start+window-1, count)
	start = max(end-window+1, 1)

	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return pages
}
