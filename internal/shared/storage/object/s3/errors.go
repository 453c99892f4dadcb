package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Error describes a failed store operation on one object.
type Error struct {
	Op     string
	Bucket string
	Key    string
	Code   string // store error code when the service returned one
	Err    error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("s3 %s bucket=%s key=%s code=%s: %v", e.Op, e.Bucket, e.Key, e.Code, e.Err)
	}
	return fmt.Sprintf("s3 %s bucket=%s key=%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (s *Store) opError(op, key string, err error) *Error {
	return &Error{Op: op, Bucket: s.bucket, Key: key, Code: errorCode(err), Err: err}
}

// errorCode extracts a short, loggable classification of err.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	case errors.Is(err, context.Canceled):
		return "Canceled"
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// IsAccessDenied reports whether err is an authorization failure from the store.
func IsAccessDenied(err error) bool {
	switch errorCode(err) {
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
		return true
	}
	return false
}
