package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pradeep0711/FIle-Uploader/internal/shared/metrics"
	"github.com/pradeep0711/FIle-Uploader/internal/shared/storage/object"
	"github.com/pradeep0711/FIle-Uploader/internal/shared/telemetry"
)

const (
	DefaultUploadTimeout = 5 * time.Minute
	DefaultSignedURLTTL  = time.Hour

	sideEffectTimeout = 5 * time.Second
)

var errUploadTimeout = fmt.Errorf("%w: upload deadline exceeded", ErrNetwork)

// Request is one inbound upload. Body is consumed once.
type Request struct {
	Body          io.Reader
	ContentType   string
	ContentLength int64
	Method        string
	ClientHint    string
	RequestID     string
}

// Outcome describes how a pipeline resolved. State and Transition are set on
// every return; the remaining fields are filled as far as the upload got.
type Outcome struct {
	Key        string
	URL        string
	URLSigned  bool
	SizeBytes  int64
	Parts      int
	MIMEType   string
	FileName   string
	Metadata   map[string]string
	State      State
	Transition string
	Duration   time.Duration
	UploadedAt time.Time
	RequestID  string
}

// URLSigner issues time-limited retrieval URLs.
type URLSigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Recorder persists completed uploads.
type Recorder interface {
	RecordUpload(ctx context.Context, out Outcome) error
}

// Notifier announces completed uploads.
type Notifier interface {
	NotifyUpload(ctx context.Context, out Outcome) error
}

// PipelineDeps are the collaborators of a Pipeline. Signer, Recorder and
// Notifier are optional.
type PipelineDeps struct {
	Store     object.ObjectStore
	Signer    URLSigner
	Policy    Policy
	Keys      *KeyGenerator
	Timeout   time.Duration
	SignedTTL time.Duration
	Recorder  Recorder
	Notifier  Notifier
	Now       func() time.Time
}

// Pipeline wires the multipart reader, guard and store writer for each
// request. It holds only shared read-only collaborators.
type Pipeline struct {
	store     object.ObjectStore
	signer    URLSigner
	policy    Policy
	keys      *KeyGenerator
	timeout   time.Duration
	signedTTL time.Duration
	recorder  Recorder
	notifier  Notifier
	now       func() time.Time
}

// NewPipeline builds a pipeline. Store is required.
func NewPipeline(deps PipelineDeps) (*Pipeline, error) {
	if deps.Store == nil {
		return nil, ErrNotConfigured
	}
	p := &Pipeline{
		store:     deps.Store,
		signer:    deps.Signer,
		policy:    deps.Policy,
		keys:      deps.Keys,
		timeout:   deps.Timeout,
		signedTTL: deps.SignedTTL,
		recorder:  deps.Recorder,
		notifier:  deps.Notifier,
		now:       deps.Now,
	}
	if p.keys == nil {
		p.keys = NewKeyGenerator(DefaultKeyPrefix)
	}
	if p.timeout == 0 {
		p.timeout = DefaultUploadTimeout
	}
	if p.signedTTL <= 0 {
		p.signedTTL = DefaultSignedURLTTL
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// Policy returns the policy the pipeline enforces.
func (p *Pipeline) Policy() Policy { return p.policy }

// Run takes one request through the pipeline. The returned error is one of
// the package sentinels (or wraps one); Outcome is always populated with the
// terminal state.
func (p *Pipeline) Run(ctx context.Context, req Request) (Outcome, error) {
	start := p.now()
	finish := metrics.UploadStarted()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, p.timeout, errUploadTimeout)
		defer cancel()
	}

	telemetry.Info("upload.request_start", map[string]any{
		"method":         req.Method,
		"content_type":   req.ContentType,
		"content_length": req.ContentLength,
		"request_id":     req.RequestID,
	})

	m := NewMachine()
	out, err := p.run(ctx, m, req)
	out.State = m.State()
	out.Transition = m.Label()
	out.Duration = p.now().Sub(start)

	finish(out.State.String(), out.SizeBytes, out.Duration)
	p.logResult(req, out, err)
	return out, err
}

func (p *Pipeline) run(ctx context.Context, m *Machine, req Request) (Outcome, error) {
	reader, err := NewMultipartReader(req.Body, req.ContentType)
	if err != nil {
		p.move(m, StateReceiving, req)
		p.move(m, StateRejected, req)
		return Outcome{}, err
	}

	p.move(m, StateReceiving, req)
	ev, err := reader.Next()
	switch {
	case err == io.EOF:
		p.move(m, StateRejected, req)
		return Outcome{}, ErrNoFileProvided
	case err != nil:
		p.move(m, StateFailed, req)
		return Outcome{}, clientError(ctx, err)
	}

	telemetry.Info("upload.file_event", map[string]any{
		"field":      ev.FieldName,
		"file_name":  ev.FileName,
		"mime_type":  ev.MIMEType,
		"request_id": req.RequestID,
	})

	p.move(m, StateValidating, req)
	out := Outcome{MIMEType: ev.MIMEType, FileName: ev.FileName, RequestID: req.RequestID}

	guard := NewGuard(p.policy)
	if err := guard.Check(ev); err != nil {
		p.move(m, StateRejected, req)
		if derr := reader.Drain(ctx); derr != nil {
			telemetry.Warn("upload.drain_failed", map[string]any{"err": derr.Error(), "request_id": req.RequestID})
		}
		return out, err
	}

	out.Key = p.keys.Generate(ev.FileName)
	out.Metadata = Metadata(req.ClientHint, ev.FileName)
	p.move(m, StateStreaming, req)

	res, err := p.stream(ctx, guard, ev, out, req)
	out.SizeBytes = guard.Seen()
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			p.move(m, StateAborted, req)
		} else {
			p.move(m, StateFailed, req)
		}
		return out, err
	}

	if err := reader.Drain(ctx); err != nil {
		// The file part already ended at its boundary and is stored.
		telemetry.Warn("upload.drain_failed", map[string]any{"err": err.Error(), "key": out.Key, "request_id": req.RequestID})
	}
	if n := reader.Ignored(); n > 0 {
		telemetry.Warn("upload.extra_files_ignored", map[string]any{"count": n, "key": out.Key, "request_id": req.RequestID})
	}
	if res.SizeBytes != out.SizeBytes {
		telemetry.Error("upload.size_mismatch", map[string]any{
			"key":        out.Key,
			"received":   out.SizeBytes,
			"stored":     res.SizeBytes,
			"request_id": req.RequestID,
		})
	}

	p.move(m, StateCompleted, req)
	out.Parts = res.Parts
	out.UploadedAt = p.now().UTC()
	out.URL, out.URLSigned = p.retrievalURL(ctx, out.Key, req.RequestID)
	out.State, out.Transition = m.State(), m.Label()
	p.afterComplete(ctx, out, req.RequestID)
	return out, nil
}

// stream relays the file body into the store. The guard runs on this
// goroutine and the store upload on its own; a failure on either side closes
// the shared pipe so the other side stops.
func (p *Pipeline) stream(ctx context.Context, guard *Guard, ev FileEvent, out Outcome, req Request) (object.UploadResult, error) {
	pr, pw := io.Pipe()
	storeCtx, cancelStore := context.WithCancelCause(ctx)
	defer cancelStore(nil)

	type result struct {
		res object.UploadResult
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := p.store.Upload(storeCtx, object.UploadInput{
			Key:         out.Key,
			ContentType: ev.MIMEType,
			Metadata:    out.Metadata,
			Body:        pr,
		})
		if err != nil {
			_ = pr.CloseWithError(err)
		}
		done <- result{res: res, err: err}
	}()

	_, relayErr := guard.Relay(ctx, ev.Body, pw)
	if relayErr != nil {
		cancelStore(relayErr)
	}
	r := <-done

	switch {
	case relayErr != nil && (errors.Is(relayErr, ErrFileTooLarge) || errors.Is(relayErr, ErrNetwork)):
		return r.res, relayErr
	case relayErr != nil && ctx.Err() != nil:
		return r.res, clientError(ctx, relayErr)
	case r.err != nil:
		telemetry.Error("upload.store_error", map[string]any{
			"key":        out.Key,
			"err":        r.err.Error(),
			"request_id": req.RequestID,
		})
		return r.res, &StoreError{Op: "upload", Err: r.err}
	case relayErr != nil:
		return r.res, &StoreError{Op: "relay", Err: relayErr}
	}
	return r.res, nil
}

// retrievalURL presigns a GET URL and falls back to the store's fixed URL.
func (p *Pipeline) retrievalURL(ctx context.Context, key, requestID string) (string, bool) {
	if p.signer != nil {
		url, err := p.signer.PresignGet(ctx, key, p.signedTTL)
		if err == nil && url != "" {
			return url, true
		}
		if err == nil {
			err = errors.New("empty url")
		}
		telemetry.Warn("upload.sign_failed", map[string]any{
			"key":        key,
			"err":        fmt.Errorf("%w: %w", ErrSigningFailed, err).Error(),
			"request_id": requestID,
		})
	}
	return p.store.ObjectURL(key), false
}

// afterComplete runs the ledger and notification side effects. Their
// failures are logged and never change the outcome.
func (p *Pipeline) afterComplete(ctx context.Context, out Outcome, requestID string) {
	if p.recorder == nil && p.notifier == nil {
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if p.recorder != nil {
		if err := p.recorder.RecordUpload(sctx, out); err != nil {
			metrics.IncSideEffectFailure("record")
			telemetry.Warn("upload.record_failed", map[string]any{"key": out.Key, "err": err.Error(), "request_id": requestID})
		}
	}
	if p.notifier != nil {
		if err := p.notifier.NotifyUpload(sctx, out); err != nil {
			metrics.IncSideEffectFailure("notify")
			telemetry.Warn("upload.notify_failed", map[string]any{"key": out.Key, "err": err.Error(), "request_id": requestID})
		}
	}
}

func (p *Pipeline) move(m *Machine, next State, req Request) {
	if err := m.Transition(next); err != nil {
		telemetry.Error("upload.state_error", map[string]any{"err": err.Error(), "request_id": req.RequestID})
	}
}

func (p *Pipeline) logResult(req Request, out Outcome, err error) {
	fields := map[string]any{
		"request_id":  req.RequestID,
		"state":       out.State.String(),
		"transition":  out.Transition,
		"key":         out.Key,
		"mime_type":   out.MIMEType,
		"size_bytes":  out.SizeBytes,
		"duration_ms": float64(out.Duration.Microseconds()) / 1000.0,
	}
	if err != nil {
		fields["err"] = err.Error()
	}

	switch out.State {
	case StateCompleted:
		fields["parts"] = out.Parts
		fields["url_signed"] = out.URLSigned
		fields["meta"] = out.Metadata
		telemetry.Info("upload.success", fields)
	case StateRejected:
		telemetry.Warn("upload.rejected", fields)
	case StateAborted:
		telemetry.Warn("upload.aborted", fields)
	default:
		telemetry.Error("upload.failed", fields)
	}
}

// clientError attributes a failure to the client connection or deadline.
func clientError(ctx context.Context, err error) error {
	if errors.Is(err, ErrNetwork) {
		return err
	}
	if cause := context.Cause(ctx); cause != nil {
		if errors.Is(cause, ErrNetwork) {
			return fmt.Errorf("%w: %w", cause, err)
		}
		return fmt.Errorf("%w: %w", ErrNetwork, cause)
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}
