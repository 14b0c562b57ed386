package collection

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gamelib/internal/middleware"
)

// CollectionModule implements the app.Module interface for the collection domain.
type CollectionModule struct {
	handler *CollectionHandler
	pages   *CollectionPageHandler
}

// NewModule creates a new CollectionModule with the given handlers.
// Panics if h is nil; ph may be nil when pages are not served.
func NewModule(h *CollectionHandler, ph *CollectionPageHandler) *CollectionModule {
	if h == nil {
		panic("collection.NewModule: handler must not be nil")
	}
	return &CollectionModule{handler: h, pages: ph}
}

// RegisterRoutes registers collection API routes and, when both a page group
// and a page handler are present, the collection pages.
func (m *CollectionModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	entries := api.Group("/collection", middleware.RequireUser())
	entries.GET("", m.handler.List)
	entries.PATCH("/:id", m.handler.Update)
	entries.DELETE("/:id", m.handler.Delete)

	if pages == nil || m.pages == nil {
		return
	}
	pages.GET("/collection", m.pages.ListPage)
	pages.POST("/collection/:id", m.pages.UpdateForm)
	pages.POST("/collection/:id/delete", m.pages.DeleteForm)
}
