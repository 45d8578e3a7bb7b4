package domain

import (
	"strings"
	"time"
)

// DefaultField is the array field uploads are attached to when the caller
// does not name one.
const DefaultField = "photos"

// Kind is an accepted upload type.
type Kind struct {
	MIME    string
	Ext     string
	MaxSize int64

	// Thumbnail is set for image formats the thumbnailer can decode.
	Thumbnail bool
}

const (
	maxImageSize = 10 << 20
	maxVideoSize = 200 << 20
)

// MaxUploadSize is the largest body any kind accepts.
const MaxUploadSize = maxVideoSize

var kinds = []Kind{
	{MIME: "image/jpeg", Ext: ".jpg", MaxSize: maxImageSize, Thumbnail: true},
	{MIME: "image/png", Ext: ".png", MaxSize: maxImageSize, Thumbnail: true},
	{MIME: "image/gif", Ext: ".gif", MaxSize: maxImageSize, Thumbnail: true},
	{MIME: "image/webp", Ext: ".webp", MaxSize: maxImageSize},
	{MIME: "video/mp4", Ext: ".mp4", MaxSize: maxVideoSize},
	{MIME: "video/quicktime", Ext: ".mov", MaxSize: maxVideoSize},
	{MIME: "video/webm", Ext: ".webm", MaxSize: maxVideoSize},
}

// KindFor returns the accepted kind for a detected content type. Parameters
// such as charset are ignored.
func KindFor(contentType string) (Kind, bool) {
	base, _, _ := strings.Cut(contentType, ";")
	base = strings.TrimSpace(strings.ToLower(base))
	for _, k := range kinds {
		if k.MIME == base {
			return k, true
		}
	}
	return Kind{}, false
}

// Descriptor is the record stored inside a document's media array.
type Descriptor struct {
	Key         string    `json:"key"`
	ThumbKey    string    `json:"thumbKey,omitempty"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Filename    string    `json:"filename"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// Fields renders the descriptor the way it is kept in a document, so stores
// can match elements by key without a typed decode.
func (d Descriptor) Fields() map[string]any {
	m := map[string]any{
		"key":         d.Key,
		"contentType": d.ContentType,
		"size":        d.Size,
		"filename":    d.Filename,
		"uploadedAt":  d.UploadedAt.UTC().Format(time.RFC3339Nano),
	}
	if d.ThumbKey != "" {
		m["thumbKey"] = d.ThumbKey
	}
	return m
}

// ThumbKeyFor derives the thumbnail key stored next to an original.
func ThumbKeyFor(key string) string {
	if i := strings.LastIndexByte(key, '.'); i > strings.LastIndexByte(key, '/') {
		key = key[:i]
	}
	return key + "_thumb.jpg"
}
