package sources

import (
	"errors"
	"time"
)

// StatusProcessed marks a source whose insights were published for review.
const StatusProcessed = "processed"

var ErrNotFound = errors.New("source not found")

// Source is one published upload in the history.
type Source struct {
	ID           string
	UserID       string
	UploadedBy   string
	FileName     string
	ContentType  string
	SizeBytes    int64
	StoragePath  string
	InsightCount int
	Status       string
	CreatedAt    time.Time
}
