package model

import (
	"time"

	"github.com/google/uuid"
)

type ShareStatus string

const (
	SharePending   ShareStatus = "pending"
	SharePreviewed ShareStatus = "previewed"
	ShareFailed    ShareStatus = "failed"
)

// PendingShare is a URL handed to the app from elsewhere, waiting for the
// user to confirm or discard it.
type PendingShare struct {
	ID           uuid.UUID   `json:"id"`
	URL          string      `json:"url"`
	Text         string      `json:"text,omitempty"`
	Title        string      `json:"title,omitempty"`
	Excerpt      string      `json:"excerpt,omitempty"`
	Status       ShareStatus `json:"status"`
	ReceivedAt   time.Time   `json:"received_at"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// NewPendingShare creates a prompt for url with default values.
func NewPendingShare(rawURL, text string) PendingShare {
	return PendingShare{
		ID:         uuid.New(),
		URL:        rawURL,
		Text:       text,
		Status:     SharePending,
		ReceivedAt: time.Now(),
	}
}
