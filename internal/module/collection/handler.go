package collection

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gamelib/internal/domain"
	"github.com/simp-lee/gamelib/internal/middleware"
	"github.com/simp-lee/gamelib/internal/pkg"
)

// CollectionHandler handles REST API requests for the signed-in user's collection.
type CollectionHandler struct {
	svc domain.CollectionService
}

// NewCollectionHandler creates a new CollectionHandler with the given service.
func NewCollectionHandler(svc domain.CollectionService) *CollectionHandler {
	return &CollectionHandler{svc: svc}
}

// List handles GET /api/v1/collection.
func (h *CollectionHandler) List(c *gin.Context) {
	req := pkg.ParsePageRequest(c)

	result, err := h.svc.List(c.Request.Context(), middleware.CurrentUser(c).UID(), req)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.List(c, result)
}

// Update handles PATCH /api/v1/collection/:id.
func (h *CollectionHandler) Update(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	var req UpdateEntryRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	entry, err := h.svc.UpdateEntry(c.Request.Context(), middleware.CurrentUser(c).UID(), id, req.Status, req.Notes)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, entry)
}

// Delete handles DELETE /api/v1/collection/:id.
func (h *CollectionHandler) Delete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	if err := h.svc.Remove(c.Request.Context(), middleware.CurrentUser(c).UID(), id); err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, nil)
}

// parseID extracts and validates the "id" URL parameter.
func parseID(c *gin.Context) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 || id > uint64(^uint(0)) {
		return 0, fmt.Errorf("invalid id: %s", idStr)
	}
	return uint(id), nil
}
