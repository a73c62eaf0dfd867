package stratum

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// MultipartID is the opaque session token of one multipart upload,
// returned by initiation and required by every later call of the session.
type MultipartID = string

// PartID identifies one successfully uploaded part: the backend's opaque
// completion token plus the part's byte length. Immutable once created.
type PartID struct {
	ContentID string
	Size      int64
}

// MultipartClient is the multipart-upload capability of a storage backend.
type MultipartClient interface {
	// CreateMultipart starts an upload session for path.
	CreateMultipart(ctx context.Context, path Path) (MultipartID, error)

	// PutPart uploads one part. partIdx is the zero-based submission index
	// within the session.
	PutPart(ctx context.Context, path Path, uploadID MultipartID, partIdx int, body []byte) (PartID, error)

	// CompleteMultipart finalizes the session from an already ordered part
	// list.
	CompleteMultipart(ctx context.Context, path Path, uploadID MultipartID, parts []PartID) error

	// AbortMultipart discards the session and any uploaded parts.
	AbortMultipart(ctx context.Context, path Path, uploadID MultipartID) error
}

const (
	// DefaultPartSize is the buffer size at which Writer flushes a part.
	DefaultPartSize = 10 * 1024 * 1024

	// DefaultMaxConcurrency bounds the number of in-flight part uploads
	// per Writer.
	DefaultMaxConcurrency = 8

	// abortTimeout bounds the best-effort abort issued during cleanup.
	abortTimeout = 30 * time.Second
)

// WriterOptions configures a multipart Writer.
type WriterOptions struct {
	// PartSize is the part length in bytes. Defaults to DefaultPartSize.
	// Backends commonly reject parts below 5 MiB except the final one.
	PartSize int

	// MaxConcurrency bounds concurrent part uploads. Defaults to
	// DefaultMaxConcurrency.
	MaxConcurrency int
}

// Writer streams an object to a backend as a multipart upload.
//
// Data is buffered until a full part is available, then uploaded by a
// background task while writing continues; up to MaxConcurrency uploads run
// at once. All parts except the final one are exactly PartSize long, which
// is the invariant the part ledger's size-based ordering relies on. Close
// flushes the remaining bytes as the (shorter) final part, waits for every
// upload, reconciles the ledger, and completes the session. Any failure
// aborts the session best-effort.
//
// Writer is not safe for concurrent Write calls.
type Writer struct {
	client  MultipartClient
	path    Path
	id      MultipartID
	ctx     context.Context
	opts    WriterOptions
	parts   Parts
	buf     []byte
	nextIdx int
	sem     chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	err     error
	done    bool
}

// NewWriter starts a multipart upload session for path and returns a
// Writer streaming into it. ctx governs the whole session, including part
// uploads issued by background tasks.
func NewWriter(ctx context.Context, client MultipartClient, path Path, opts WriterOptions) (*Writer, error) {
	if opts.PartSize <= 0 {
		opts.PartSize = DefaultPartSize
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}

	id, err := client.CreateMultipart(ctx, path)
	if err != nil {
		return nil, err
	}

	return &Writer{
		client: client,
		path:   path,
		id:     id,
		ctx:    ctx,
		opts:   opts,
		buf:    make([]byte, 0, opts.PartSize),
		sem:    make(chan struct{}, opts.MaxConcurrency),
	}, nil
}

// Write buffers p, flushing a part upload every time a full part is
// available. It never blocks on network I/O beyond waiting for an upload
// slot.
func (w *Writer) Write(p []byte) (int, error) {
	if w.done {
		return 0, errors.New("write after Close")
	}
	if err := w.firstErr(); err != nil {
		return 0, err
	}

	w.buf = append(w.buf, p...)
	for len(w.buf) >= w.opts.PartSize {
		part := make([]byte, w.opts.PartSize)
		copy(part, w.buf)
		w.buf = w.buf[:copy(w.buf, w.buf[w.opts.PartSize:])]
		if err := w.spawn(part); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// spawn uploads one part in the background, blocking only until an upload
// slot is free.
func (w *Writer) spawn(part []byte) error {
	select {
	case w.sem <- struct{}{}:
	case <-w.ctx.Done():
		return w.ctx.Err()
	}

	idx := w.nextIdx
	w.nextIdx++

	w.wg.Add(1)
	go func() {
		defer func() {
			<-w.sem
			w.wg.Done()
		}()
		id, err := w.client.PutPart(w.ctx, w.path, w.id, idx, part)
		if err != nil {
			w.setErr(fmt.Errorf("part %d: %w", idx, err))
			return
		}
		w.parts.Put(idx, id)
	}()
	return nil
}

// Close flushes the final part, joins every upload task, and completes the
// session. On any failure the session is aborted best-effort and the first
// error returned. Close is not idempotent; call it exactly once.
func (w *Writer) Close() error {
	if w.done {
		return errors.New("already closed")
	}
	w.done = true

	if len(w.buf) > 0 {
		if err := w.spawn(w.buf); err != nil {
			w.abort()
			return err
		}
		w.buf = nil
	}

	w.wg.Wait()

	if err := w.firstErr(); err != nil {
		w.abort()
		return err
	}

	parts, err := w.parts.Finish(w.nextIdx)
	if err != nil {
		w.abort()
		return err
	}

	if err := w.client.CompleteMultipart(w.ctx, w.path, w.id, parts); err != nil {
		w.abort()
		return err
	}
	return nil
}

// Abort discards the session without completing it. Pending part uploads
// are joined first so the backend sees no further writes for the session.
func (w *Writer) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	w.wg.Wait()
	return w.client.AbortMultipart(w.ctx, w.path, w.id)
}

// abort is the best-effort cleanup path. It uses a fresh context so
// cleanup still runs when the session context is already canceled.
func (w *Writer) abort() {
	ctx, cancel := context.WithTimeout(context.Background(), abortTimeout)
	defer cancel()
	_ = w.client.AbortMultipart(ctx, w.path, w.id)
}

func (w *Writer) setErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) firstErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
