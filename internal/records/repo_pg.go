package records

import (
	"context"
	"database/sql"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a record.
func (r *PGRepo) Create(ctx context.Context, rec Record) error {
	if err := validate(rec); err != nil {
		return err
	}
	const query = `
INSERT INTO uploads (
    id,
    object_key,
    bucket,
    size_bytes,
    mime_type,
    original_name,
    uploaded_by,
    request_id,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		rec.ID,
		rec.ObjectKey,
		nullString(rec.Bucket),
		rec.SizeBytes,
		rec.MIMEType,
		nullString(rec.OriginalName),
		rec.UploadedBy,
		nullString(rec.RequestID),
		rec.CreatedAt,
	)
	return err
}

// ListRecent returns records newest first.
func (r *PGRepo) ListRecent(ctx context.Context, limit, offset int) ([]Record, error) {
	limit, offset = clampPage(limit, offset)
	const query = `
SELECT id, object_key, bucket, size_bytes, mime_type, original_name, uploaded_by, request_id, created_at
FROM uploads
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`

	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Record, 0, limit)
	for rows.Next() {
		var rec Record
		var bucket, originalName, requestID sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&rec.ObjectKey,
			&bucket,
			&rec.SizeBytes,
			&rec.MIMEType,
			&originalName,
			&rec.UploadedBy,
			&requestID,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Bucket = bucket.String
		rec.OriginalName = originalName.String
		rec.RequestID = requestID.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
