package fiber

// SummaryResponse is the progress block a page shows above its list,
// e.g. "4 of 6 bought".
type SummaryResponse struct {
	Collection string         `json:"collection" example:"wishlist"`
	GroupBy    string         `json:"group_by,omitempty" example:"type"`
	Flag       string         `json:"flag" example:"completed"`
	Total      int64          `json:"total" example:"6"`
	Flagged    int64          `json:"flagged" example:"1"`
	Groups     []SummaryGroup `json:"groups,omitempty"`
}

type SummaryGroup struct {
	Key     string `json:"key" example:"shopping"`
	Total   int64  `json:"total" example:"3"`
	Flagged int64  `json:"flagged" example:"0"`
}

type ErrorResponse struct {
	Error   string `json:"error" example:"invalid_field"`
	Message string `json:"message" example:"invalid field name"`
}
