package fiber

import "time"

type MediaResponse struct {
	Key         string    `json:"key"`
	ThumbKey    string    `json:"thumbKey,omitempty"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Filename    string    `json:"filename"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
