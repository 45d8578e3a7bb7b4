package domain

type ChangeOp string

const (
	OpInsert ChangeOp = "INSERT"
	OpUpdate ChangeOp = "UPDATE"
	OpDelete ChangeOp = "DELETE"
)

// Change is a single write observed on the store.
// An empty Collection means the feed lost track of writes and every
// watched collection has to be reloaded.
type Change struct {
	Collection string   `json:"collection"`
	DocumentID string   `json:"id"`
	Op         ChangeOp `json:"op"`
}

func (c Change) IsResync() bool {
	return c.Collection == ""
}

// Snapshot is the full, ordered state of one collection at a point in time.
type Snapshot struct {
	Collection string     `json:"collection"`
	Documents  []Document `json:"documents"`
	Err        string     `json:"error,omitempty"`
}
