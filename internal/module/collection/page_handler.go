package collection

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gamelib/internal/domain"
	"github.com/simp-lee/gamelib/internal/middleware"
	"github.com/simp-lee/gamelib/internal/pkg"
)

// CollectionPageHandler renders the collection page and handles its forms.
type CollectionPageHandler struct {
	svc domain.CollectionService
	log *slog.Logger
}

// NewCollectionPageHandler creates a CollectionPageHandler. A nil logger falls
// back to slog.Default().
func NewCollectionPageHandler(svc domain.CollectionService, log *slog.Logger) *CollectionPageHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CollectionPageHandler{svc: svc, log: log}
}

// ListPage renders the signed-in user's collection.
// GET /collection
func (h *CollectionPageHandler) ListPage(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if u == nil {
		c.Redirect(http.StatusSeeOther, "/login?next=/collection")
		return
	}

	req := pkg.ParsePageRequest(c)
	result, err := h.svc.List(c.Request.Context(), u.UID(), req)
	if err != nil {
		h.log.ErrorContext(c.Request.Context(), "list collection failed", slog.Any("error", err))
		c.HTML(http.StatusInternalServerError, "errors/500.html", gin.H{
			"Title":     "Something went wrong",
			"RequestID": middleware.GetRequestID(c),
		})
		return
	}

	c.HTML(http.StatusOK, "collection/list.html", gin.H{
		"Title":       "My collection",
		"Entries":     result.Items,
		"Pagination":  result,
		"BaseURL":     "/collection",
		"Statuses":    domain.StatusOptions(),
		"CSRFToken":   middleware.GetCSRFToken(c),
		"CurrentUser": u,
	})
}

// UpdateForm changes an entry's status and notes.
// POST /collection/:id
func (h *CollectionPageHandler) UpdateForm(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if u == nil {
		c.Redirect(http.StatusSeeOther, "/login?next=/collection")
		return
	}
	id, err := parseID(c)
	if err != nil {
		h.renderError(c, http.StatusBadRequest, "errors/400.html", "Bad request")
		return
	}

	_, err = h.svc.UpdateEntry(c.Request.Context(), u.UID(), id, c.PostForm("status"), c.PostForm("notes"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/collection")
}

// DeleteForm removes an entry.
// POST /collection/:id/delete
func (h *CollectionPageHandler) DeleteForm(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if u == nil {
		c.Redirect(http.StatusSeeOther, "/login?next=/collection")
		return
	}
	id, err := parseID(c)
	if err != nil {
		h.renderError(c, http.StatusBadRequest, "errors/400.html", "Bad request")
		return
	}

	if err := h.svc.Remove(c.Request.Context(), u.UID(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/collection")
}

func (h *CollectionPageHandler) fail(c *gin.Context, err error) {
	switch status := domain.HTTPStatusCode(err); status {
	case http.StatusNotFound:
		h.renderError(c, status, "errors/404.html", "Not found")
	case http.StatusBadRequest:
		h.renderError(c, status, "errors/400.html", domain.UserMessage(err))
	default:
		h.log.ErrorContext(c.Request.Context(), "collection form failed", slog.Any("error", err))
		h.renderError(c, http.StatusInternalServerError, "errors/500.html", "Something went wrong")
	}
}

func (h *CollectionPageHandler) renderError(c *gin.Context, status int, name, title string) {
	c.HTML(status, name, gin.H{
		"Title":     title,
		"RequestID": middleware.GetRequestID(c),
	})
}
