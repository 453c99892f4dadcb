package records

import (
	"context"

	"github.com/google/uuid"

	"github.com/pradeep0711/FIle-Uploader/internal/uploads"
)

// Recorder writes completed uploads to a Repo.
type Recorder struct {
	repo   Repo
	bucket string
}

// NewRecorder returns a Recorder tagging records with bucket.
func NewRecorder(repo Repo, bucket string) *Recorder {
	return &Recorder{repo: repo, bucket: bucket}
}

// RecordUpload implements uploads.Recorder.
func (r *Recorder) RecordUpload(ctx context.Context, out uploads.Outcome) error {
	return r.repo.Create(ctx, Record{
		ID:           uuid.NewString(),
		ObjectKey:    out.Key,
		Bucket:       r.bucket,
		SizeBytes:    out.SizeBytes,
		MIMEType:     out.MIMEType,
		OriginalName: out.Metadata[uploads.MetaOriginalName],
		UploadedBy:   out.Metadata[uploads.MetaUploadedBy],
		RequestID:    out.RequestID,
		CreatedAt:    out.UploadedAt,
	})
}

var _ uploads.Recorder = (*Recorder)(nil)
