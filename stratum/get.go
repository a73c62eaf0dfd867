package stratum

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Range selects a byte range of an object, following the semantics of the
// HTTP Range header: Offset is the first byte, Length the number of bytes.
type Range struct {
	Offset int64
	Length int64
}

func (r Range) header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Offset, r.Offset+r.Length-1)
}

// GetOptions carries the conditional and range options of a get request.
type GetOptions struct {
	// IfMatch fails the request unless the object's entity tag matches.
	IfMatch string

	// IfNoneMatch fails the request when the object's entity tag matches.
	IfNoneMatch string

	// IfModifiedSince fails the request unless the object was modified
	// after the given time.
	IfModifiedSince time.Time

	// IfUnmodifiedSince fails the request when the object was modified
	// after the given time.
	IfUnmodifiedSince time.Time

	// Range requests only the selected bytes of the object.
	Range *Range
}

// Apply attaches the configured conditional and range headers to req.
func (o GetOptions) Apply(req *http.Request) {
	if o.IfMatch != "" {
		req.Header.Set("If-Match", o.IfMatch)
	}
	if o.IfNoneMatch != "" {
		req.Header.Set("If-None-Match", o.IfNoneMatch)
	}
	if !o.IfModifiedSince.IsZero() {
		req.Header.Set("If-Modified-Since", o.IfModifiedSince.UTC().Format(http.TimeFormat))
	}
	if !o.IfUnmodifiedSince.IsZero() {
		req.Header.Set("If-Unmodified-Since", o.IfUnmodifiedSince.UTC().Format(http.TimeFormat))
	}
	if o.Range != nil {
		req.Header.Set("Range", o.Range.header())
	}
}

// GetClient is the fetch-one capability of a storage backend.
type GetClient interface {
	// GetRequest issues a GET, or a HEAD when head is true, for the object
	// at path. The caller owns the returned response body.
	GetRequest(ctx context.Context, path Path, opts GetOptions, head bool) (*http.Response, error)
}
