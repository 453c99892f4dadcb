package uploads

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"
)

const defaultPartMIME = "text/plain"

// FileEvent is one file part of a multipart body. Body streams the part and
// is only valid until the next call on the reader that produced it.
type FileEvent struct {
	FieldName string
	FileName  string
	MIMEType  string
	Body      io.Reader
}

// MultipartReader turns a multipart/form-data stream into file events
// without buffering part bodies.
type MultipartReader struct {
	mr      *multipart.Reader
	fields  int
	files   int
	ignored int
}

// NewMultipartReader validates contentType and prepares to read body.
func NewMultipartReader(body io.Reader, contentType string) (*MultipartReader, error) {
	if strings.TrimSpace(contentType) == "" {
		return nil, fmt.Errorf("%w: missing content type", ErrMalformedRequest)
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if mediaType != "multipart/form-data" {
		return nil, fmt.Errorf("%w: content type %q", ErrMalformedRequest, mediaType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("%w: missing boundary", ErrMalformedRequest)
	}
	return &MultipartReader{mr: multipart.NewReader(body, boundary)}, nil
}

// Next returns the next file part, draining any plain fields before it.
// It returns io.EOF once the closing boundary has been read.
func (r *MultipartReader) Next() (FileEvent, error) {
	for {
		part, isFile, err := r.nextPart()
		if err != nil {
			return FileEvent{}, err
		}
		if !isFile {
			r.fields++
			if _, err := io.Copy(io.Discard, part); err != nil {
				return FileEvent{}, fmt.Errorf("%w: read field: %w", ErrNetwork, err)
			}
			continue
		}
		r.files++
		return FileEvent{
			FieldName: part.FormName(),
			FileName:  part.FileName(),
			MIMEType:  partMIME(part.Header.Get("Content-Type")),
			Body:      part,
		}, nil
	}
}

// Drain consumes the rest of the body without forwarding anything. File
// parts found here are counted as ignored. It stops early once ctx is done.
func (r *MultipartReader) Drain(ctx context.Context) error {
	for {
		part, isFile, err := r.nextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if isFile {
			r.ignored++
		} else {
			r.fields++
		}
		if _, err := io.Copy(io.Discard, ctxReader{ctx: ctx, r: part}); err != nil {
			return fmt.Errorf("%w: drain: %w", ErrNetwork, err)
		}
	}
}

// Ignored is the number of extra file parts discarded by Drain.
func (r *MultipartReader) Ignored() int { return r.ignored }

// Fields is the number of plain form fields skipped.
func (r *MultipartReader) Fields() int { return r.fields }

func (r *MultipartReader) nextPart() (*multipart.Part, bool, error) {
	part, err := r.mr.NextPart()
	if err == io.EOF {
		return nil, false, io.EOF
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	_, params, _ := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	_, isFile := params["filename"]
	return part, isFile, nil
}

// partMIME returns the lowercased media type without parameters. Parts
// without a Content-Type default to text/plain.
func partMIME(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return defaultPartMIME
	}
	if mediaType, _, err := mime.ParseMediaType(header); err == nil {
		return mediaType
	}
	if i := strings.IndexByte(header, ';'); i >= 0 {
		header = header[:i]
	}
	return strings.ToLower(strings.TrimSpace(header))
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, context.Cause(c.ctx)
	}
	return c.r.Read(p)
}
