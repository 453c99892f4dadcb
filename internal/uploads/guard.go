package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
)

const relayChunkSize = 32 << 10

// Guard enforces the policy on one file. Check runs before any byte is
// forwarded; Relay enforces the size cap while the body streams.
type Guard struct {
	policy Policy
	seen   atomic.Int64
}

// NewGuard returns a guard for a single file.
func NewGuard(p Policy) *Guard {
	return &Guard{policy: p}
}

// Check rejects a file whose declared type is not allowed.
func (g *Guard) Check(ev FileEvent) error {
	if !g.policy.Allows(ev.MIMEType) {
		return &UnsupportedTypeError{MIME: ev.MIMEType}
	}
	return nil
}

// Seen returns the number of bytes read from the source so far.
func (g *Guard) Seen() int64 { return g.seen.Load() }

// Relay copies src into dst chunk by chunk. The chunk that pushes the count
// past the cap is never forwarded: dst is closed with ErrFileTooLarge and
// Relay returns without reading src further. Source failures close dst with
// ErrNetwork and context cancellation closes it with the context cause, so the
// reading side always observes an error instead of a clean EOF for a body
// that did not finish. A write failure means the reader went away; its error
// is returned as is. On a clean end of src, dst is closed normally.
func (g *Guard) Relay(ctx context.Context, src io.Reader, dst *io.PipeWriter) (int64, error) {
	maxBytes := g.policy.MaxBytes()
	buf := make([]byte, relayChunkSize)
	for {
		if ctx.Err() != nil {
			cause := context.Cause(ctx)
			_ = dst.CloseWithError(cause)
			return g.Seen(), cause
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			total := g.seen.Add(int64(n))
			if total > maxBytes {
				_ = dst.CloseWithError(ErrFileTooLarge)
				return total, ErrFileTooLarge
			}
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return total, werr
			}
		}

		switch {
		case rerr == nil:
		case errors.Is(rerr, io.EOF):
			_ = dst.Close()
			return g.Seen(), nil
		default:
			err := fmt.Errorf("%w: %w", ErrNetwork, rerr)
			if ctx.Err() != nil {
				err = fmt.Errorf("%w: %w", context.Cause(ctx), rerr)
			}
			_ = dst.CloseWithError(err)
			return g.Seen(), err
		}
	}
}
