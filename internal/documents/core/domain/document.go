package domain

import (
	"encoding/json"
	"time"
)

// Reserved keys that belong to the document envelope, never to its fields.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
	FieldOrder     = "order"
)

type Document struct {
	ID         string
	Collection string
	Fields     map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MarshalJSON flattens the document the way clients consume it:
// {"id": ..., <fields>..., "createdAt": ..., "updatedAt": ...}
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Fields)+3)
	for k, v := range d.Fields {
		out[k] = v
	}
	out[FieldID] = d.ID
	out[FieldCreatedAt] = d.CreatedAt.UTC().Format(time.RFC3339Nano)
	out[FieldUpdatedAt] = d.UpdatedAt.UTC().Format(time.RFC3339Nano)
	return json.Marshal(out)
}

// Bool reads a boolean field; anything that is not a JSON true is false.
func (d Document) Bool(field string) bool {
	v, ok := d.Fields[field].(bool)
	return ok && v
}

// IsReservedField reports whether name is an envelope key.
func IsReservedField(name string) bool {
	switch name {
	case FieldID, FieldCreatedAt, FieldUpdatedAt:
		return true
	}
	return false
}

// StripReserved returns a copy of fields without envelope keys.
func StripReserved(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if IsReservedField(k) {
			continue
		}
		out[k] = v
	}
	return out
}
