//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"io"
)

// Upload is a file submitted for a module.
type Upload struct {
	Filename      string
	Title         string
	UploadToDrive bool
	Content       io.Reader
}

// Validate checks that a file is attached.
func (u Upload) Validate() error {
	if u.Content == nil {
		return errors.New("upload: file is required")
	}
	if u.Filename == "" {
		return errors.New("upload: filename is required")
	}
	return nil
}

// Video is an uploaded lecture video and its processing state.
type Video struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"durationSeconds"`
	Status          string `json:"status"`
	Published       bool   `json:"published"`
	PublishedAt     string `json:"publishedAt,omitempty"`
	ThumbnailURL    string `json:"thumbnailUrl,omitempty"`
	HasTranscript   bool   `json:"hasTranscript"`
	HasSummary      bool   `json:"hasSummary"`
	HasQuiz         bool   `json:"hasQuiz"`
}

// Resource is a supplementary document attached to a module.
type Resource struct {
	Video
	Type string `json:"type"`
}

// Pagination describes a page of results.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// VideoUpload is the backend's acknowledgement of a video upload.
type VideoUpload struct {
	VideoID                 string `json:"videoId"`
	Title                   string `json:"title"`
	Status                  string `json:"status"`
	StatusURL               string `json:"statusUrl"`
	EstimatedProcessingTime string `json:"estimatedProcessingTime"`
}

// ResourceUpload is the backend's acknowledgement of a resource upload.
type ResourceUpload struct {
	ResourceID              string `json:"resourceId"`
	Title                   string `json:"title"`
	Type                    string `json:"type"`
	Status                  string `json:"status"`
	StatusURL               string `json:"statusUrl"`
	EstimatedProcessingTime string `json:"estimatedProcessingTime"`
}

// ResourceUpdate carries editable resource fields.
type ResourceUpdate struct {
	Title     string `json:"title"`
	Published *bool  `json:"published,omitempty"`
}
