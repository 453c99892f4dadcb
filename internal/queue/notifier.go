package queue

import (
	"context"
	"time"

	"github.com/pradeep0711/FIle-Uploader/internal/uploads"
)

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// UploadNotifier publishes completed uploads to a queue.
type UploadNotifier struct {
	client Client
	bucket string
}

// NewUploadNotifier constructs an UploadNotifier.
func NewUploadNotifier(client Client, bucket string) *UploadNotifier {
	return &UploadNotifier{client: client, bucket: bucket}
}

// NotifyUpload sends one message for out.
func (n *UploadNotifier) NotifyUpload(ctx context.Context, out uploads.Outcome) error {
	uploadedAt := out.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now().UTC()
	}
	return n.client.Send(ctx, Message{
		ObjectKey:  out.Key,
		Bucket:     n.bucket,
		SizeBytes:  out.SizeBytes,
		MIMEType:   out.MIMEType,
		RequestID:  out.RequestID,
		UploadedAt: uploadedAt.Format(time.RFC3339),
		Version:    MessageVersion,
	})
}

var _ uploads.Notifier = (*UploadNotifier)(nil)
