package search

import "github.com/gin-gonic/gin"

// SearchModule implements the app.Module interface for the game search page,
// its JSON workflow API and stateless catalog lookups.
type SearchModule struct {
	workflow *WorkflowHandler
	games    *GamesHandler
	pages    *SearchPageHandler
}

// NewModule creates a new SearchModule. Panics if wh or gh is nil; ph may be
// nil when pages are not served.
func NewModule(wh *WorkflowHandler, gh *GamesHandler, ph *SearchPageHandler) *SearchModule {
	if wh == nil || gh == nil {
		panic("search.NewModule: handlers must not be nil")
	}
	return &SearchModule{workflow: wh, games: gh, pages: ph}
}

// RegisterRoutes registers the workflow API, the games API and the search pages.
func (m *SearchModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	api.GET("/games", m.games.Search)

	wf := api.Group("/workflow")
	wf.GET("", m.workflow.View)
	wf.PUT("/term", m.workflow.SetTerm)
	wf.POST("/search", m.workflow.Search)
	wf.POST("/page", m.workflow.ChangePage)
	wf.POST("/select", m.workflow.Select)
	wf.POST("/close", m.workflow.Close)
	wf.PUT("/choice", m.workflow.Choice)
	wf.POST("/confirm", m.workflow.Confirm)
	wf.POST("/alert/dismiss", m.workflow.DismissAlert)

	if pages == nil || m.pages == nil {
		return
	}
	pages.GET("/search", m.pages.Page)
	pages.POST("/search", m.pages.Search)
	pages.POST("/search/page", m.pages.ChangePage)
	pages.POST("/search/select/:id", m.pages.Select)
	pages.POST("/search/close", m.pages.Close)
	pages.POST("/search/choice", m.pages.Choice)
	pages.POST("/search/confirm", m.pages.Confirm)
	pages.POST("/search/alert/dismiss", m.pages.DismissAlert)
}
