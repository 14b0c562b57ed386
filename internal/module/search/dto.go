package search

// SearchRequest submits a search. A missing page means the first page.
type SearchRequest struct {
	Term string `json:"term" form:"term"`
	Page int    `json:"page" form:"page" binding:"omitempty,gte=1"`
}

// TermRequest reports a change of the search input.
type TermRequest struct {
	Term string `json:"term" form:"term"`
}

// PageRequest moves to another page of the last search.
type PageRequest struct {
	Page int `json:"page" form:"page" binding:"required,gte=1"`
}

// SelectRequest opens the add dialog for a shown result.
type SelectRequest struct {
	ID int `json:"id" form:"id" binding:"required,gte=1"`
}

// ChoiceRequest updates the platform and status choice. Omitted fields keep
// their current value.
type ChoiceRequest struct {
	Platform *string `json:"platform" form:"platform" binding:"omitempty,max=100"`
	Status   *string `json:"status" form:"status"`
}
