package collection

// UpdateEntryRequest is the payload for PATCH /api/v1/collection/:id.
type UpdateEntryRequest struct {
	Status string `json:"status" form:"status" binding:"omitempty,oneof=playing toplay completed onhold dropped owned"`
	Notes  string `json:"notes" form:"notes" binding:"max=2000"`
}
