package domain

type Summary struct {
	Collection string
	GroupBy    string // "" for no breakdown
	Flag       string // boolean field counted in Flagged, e.g. "completed"

	Total   int64
	Flagged int64
	Groups  []SummaryGroup
}

type SummaryGroup struct {
	Key     string // group field value, "" when missing
	Total   int64
	Flagged int64
}
