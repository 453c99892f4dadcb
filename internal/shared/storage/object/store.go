package object

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrUploadAborted marks an upload that was cancelled before it was committed.
// No object exists under the destination key when this is returned.
var ErrUploadAborted = errors.New("object upload aborted")

// UploadInput describes one streamed object write.
type UploadInput struct {
	Key         string
	ContentType string
	Metadata    map[string]string
	Body        io.Reader
}

// UploadResult reports what the store committed.
type UploadResult struct {
	SizeBytes int64
	Parts     int
	ETag      string
}

// Writer streams a body into the store. Either the whole body is committed
// under the key or nothing is.
type Writer interface {
	Upload(ctx context.Context, in UploadInput) (UploadResult, error)
}

// Locator builds a non-expiring reference to a stored object.
type Locator interface {
	ObjectURL(key string) string
}

// ObjectStore is the store contract used by the upload pipeline.
type ObjectStore interface {
	Writer
	Locator
}

// Presigner issues time-limited URLs for direct client access.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
}

// Location identifies where objects are stored. Surfaced by the presign endpoint.
type Location struct {
	Bucket string
	Region string
}
