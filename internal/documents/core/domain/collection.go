package domain

import (
	"regexp"
	"sort"
)

type Collection struct {
	Name string

	OrderBy   string // "" keeps insertion order
	OrderDesc bool

	// Defaults fill a missing field when filtering, e.g. wishlist items
	// without a type are wishlist entries.
	Defaults map[string]any
}

var registry = map[string]Collection{
	"diaryEntries": {Name: "diaryEntries", OrderBy: "date", OrderDesc: true},
	"itinerary":    {Name: "itinerary", OrderBy: "date", OrderDesc: true},
	"contacts":     {Name: "contacts"},
	"welcomeVideo": {Name: "welcomeVideo"},
	"wishlist": {
		Name:     "wishlist",
		OrderBy:  FieldOrder,
		Defaults: map[string]any{"type": "wishlist"},
	},
	"addressInfo": {Name: "addressInfo"},
	"lodging":     {Name: "lodging"},
	"carInfo":     {Name: "carInfo"},
	"packing": {
		Name:     "packing",
		OrderBy:  FieldOrder,
		Defaults: map[string]any{"status": "not-sorted"},
	},
}

func LookupCollection(name string) (Collection, bool) {
	c, ok := registry[name]
	return c, ok
}

func CollectionNames() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var fieldNameRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidFieldName reports whether name can be used as a top-level field
// reference in filters, toggles and summaries.
func ValidFieldName(name string) bool {
	return fieldNameRE.MatchString(name)
}
