package uploads

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardCheck(t *testing.T) {
	g := NewGuard(NewPolicy(10, []string{"image/*"}))

	assert.NoError(t, g.Check(FileEvent{MIMEType: "image/png"}))

	err := g.Check(FileEvent{MIMEType: "text/plain"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.EqualError(t, err, "Unsupported file type: text/plain")
}

func relayInto(t *testing.T, g *Guard, src io.Reader) ([]byte, error, int64, error) {
	t.Helper()
	pr, pw := io.Pipe()
	got := make(chan struct {
		data []byte
		err  error
	}, 1)
	go func() {
		data, err := io.ReadAll(pr)
		got <- struct {
			data []byte
			err  error
		}{data, err}
	}()
	n, relayErr := g.Relay(context.Background(), src, pw)
	r := <-got
	return r.data, r.err, n, relayErr
}

func TestGuardRelayForwardsEverything(t *testing.T) {
	g := NewGuard(NewPolicy(100, nil))
	payload := bytes.Repeat([]byte("a"), 100)

	data, readErr, n, err := relayInto(t, g, iotest.OneByteReader(bytes.NewReader(payload)))
	require.NoError(t, err)
	require.NoError(t, readErr)
	assert.Equal(t, payload, data)
	assert.Equal(t, int64(100), n)
	assert.Equal(t, int64(100), g.Seen())
}

func TestGuardRelayStopsAtCap(t *testing.T) {
	g := NewGuard(NewPolicy(10, nil))
	src := &countingReader{r: iotest.HalfReader(bytes.NewReader(bytes.Repeat([]byte("b"), 64)))}

	data, readErr, n, err := relayInto(t, g, src)
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.ErrorIs(t, readErr, ErrFileTooLarge)
	assert.Greater(t, n, int64(10))
	assert.LessOrEqual(t, len(data), 10)
	// Nothing is read after the chunk that crossed the cap.
	assert.Equal(t, n, src.n)
}

func TestGuardRelaySourceError(t *testing.T) {
	g := NewGuard(NewPolicy(100, nil))
	boom := errors.New("connection reset")
	src := io.MultiReader(bytes.NewReader([]byte("abc")), iotest.ErrReader(boom))

	data, readErr, _, err := relayInto(t, g, src)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, readErr, ErrNetwork)
	assert.Equal(t, []byte("abc"), data)
}

func TestGuardRelayStopsWhenReaderCloses(t *testing.T) {
	g := NewGuard(NewPolicy(1<<20, nil))
	pr, pw := io.Pipe()
	downstream := errors.New("store failed")
	_ = pr.CloseWithError(downstream)

	_, err := g.Relay(context.Background(), bytes.NewReader([]byte("abc")), pw)
	assert.ErrorIs(t, err, downstream)
}

func TestGuardRelayCancelled(t *testing.T) {
	g := NewGuard(NewPolicy(100, nil))
	ctx, cancel := context.WithCancelCause(context.Background())
	cause := errors.New("request cancelled")
	cancel(cause)

	pr, pw := io.Pipe()
	_, err := g.Relay(ctx, bytes.NewReader([]byte("abc")), pw)
	assert.ErrorIs(t, err, cause)

	_, readErr := io.ReadAll(pr)
	assert.ErrorIs(t, readErr, cause)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
