package local

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pradeep0711/FIle-Uploader/internal/shared/storage/object"
)

// Store implements object.ObjectStore on the local filesystem. Objects are
// written to a temporary file and renamed into place only once the body has
// been fully copied, so a failed upload never leaves a partial object.
type Store struct {
	baseDir string
	urlBase string
}

// New creates a local object store rooted at baseDir. urlBase is the public
// prefix the files are served under, for example "http://localhost:3000/files".
func New(baseDir, urlBase string) *Store {
	return &Store{
		baseDir: baseDir,
		urlBase: strings.TrimSuffix(urlBase, "/"),
	}
}

// Dir returns the root directory objects are written under.
func (s *Store) Dir() string { return s.baseDir }

// Upload copies in.Body to disk under in.Key.
func (s *Store) Upload(ctx context.Context, in object.UploadInput) (object.UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return object.UploadResult{}, fmt.Errorf("%w: %w", object.ErrUploadAborted, err)
	}

	fullPath, err := s.resolve(in.Key)
	if err != nil {
		return object.UploadResult{}, err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return object.UploadResult{}, fmt.Errorf("mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return object.UploadResult{}, fmt.Errorf("create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	written, err := io.Copy(tmp, ctxReader{ctx: ctx, r: in.Body})
	if err != nil {
		return object.UploadResult{}, fmt.Errorf("%w: write body: %w", object.ErrUploadAborted, err)
	}
	if err := tmp.Close(); err != nil {
		return object.UploadResult{}, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		_ = os.Remove(tmp.Name())
		return object.UploadResult{}, fmt.Errorf("rename: %w", err)
	}
	committed = true

	return object.UploadResult{SizeBytes: written, Parts: 1}, nil
}

// ObjectURL returns the URL the object is served under.
func (s *Store) ObjectURL(key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.urlBase + "/" + strings.Join(segments, "/")
}

func (s *Store) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key")
	}
	return filepath.Join(s.baseDir, clean), nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

var _ object.ObjectStore = (*Store)(nil)
