package records

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidInput is returned for records missing required fields.
var ErrInvalidInput = errors.New("invalid input")

const (
	DefaultListLimit = 20
	MaxListLimit     = 50
)

// Record is one completed upload.
type Record struct {
	ID           string    `json:"id"`
	ObjectKey    string    `json:"key"`
	Bucket       string    `json:"bucket,omitempty"`
	SizeBytes    int64     `json:"sizeBytes"`
	MIMEType     string    `json:"mimeType"`
	OriginalName string    `json:"originalName,omitempty"`
	UploadedBy   string    `json:"uploadedBy"`
	RequestID    string    `json:"requestId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Repo persists upload records.
type Repo interface {
	Create(ctx context.Context, rec Record) error
	ListRecent(ctx context.Context, limit, offset int) ([]Record, error)
}

// clampPage normalizes paging input.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func validate(rec Record) error {
	if rec.ID == "" || rec.ObjectKey == "" {
		return ErrInvalidInput
	}
	return nil
}
