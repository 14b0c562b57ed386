package app

import "github.com/gin-gonic/gin"

// Module is one feature area of the app: auth, users, search or collection.
// It mounts its JSON endpoints on api and its HTML pages on pages. pages may
// be nil when only the API is served.
type Module interface {
	RegisterRoutes(api, pages *gin.RouterGroup)
}
