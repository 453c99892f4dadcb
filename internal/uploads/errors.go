package uploads

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMalformedRequest  = errors.New("malformed request")
	ErrNoFileProvided    = errors.New("no file provided")
	ErrUnsupportedType   = errors.New("unsupported file type")
	ErrFileTooLarge      = errors.New("file too large")
	ErrNetwork           = errors.New("upload interrupted")
	ErrStoreUploadFailed = errors.New("store upload failed")
	ErrSigningFailed     = errors.New("signing failed")
	ErrNotConfigured     = errors.New("upload store not configured")
)

const (
	msgMalformedRequest = "Invalid content-type; expected multipart/form-data"
	msgNoFileProvided   = "No file uploaded. Field name: file"
	msgFileTooLarge     = "File too large"
	msgNetwork          = "Upload interrupted"
	msgUploadFailed     = "Upload failed"
	msgNotConfigured    = "Server not configured: missing S3_BUCKET or AWS_REGION"
)

// UnsupportedTypeError reports a declared MIME type outside the allow-list.
type UnsupportedTypeError struct {
	MIME string
}

func (e *UnsupportedTypeError) Error() string { return "Unsupported file type: " + e.MIME }

func (e *UnsupportedTypeError) Is(target error) bool { return target == ErrUnsupportedType }

// StoreError wraps a failed store write. It matches ErrStoreUploadFailed and
// the underlying cause.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store upload failed: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error { return []error{ErrStoreUploadFailed, e.Err} }

// errorResponse maps a pipeline error to the status, log code and client
// message. Internal causes never reach the message.
func errorResponse(err error) (status int, code, message string) {
	var unsupported *UnsupportedTypeError
	switch {
	case errors.Is(err, ErrNotConfigured):
		return http.StatusInternalServerError, "not_configured", msgNotConfigured
	case errors.Is(err, ErrMalformedRequest):
		return http.StatusBadRequest, "malformed_request", msgMalformedRequest
	case errors.Is(err, ErrNoFileProvided):
		return http.StatusBadRequest, "no_file", msgNoFileProvided
	case errors.As(err, &unsupported):
		return http.StatusUnsupportedMediaType, "unsupported_type", unsupported.Error()
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "file_too_large", msgFileTooLarge
	case errors.Is(err, ErrNetwork):
		return http.StatusBadRequest, "network_error", msgNetwork
	default:
		return http.StatusInternalServerError, "upload_failed", msgUploadFailed
	}
}
