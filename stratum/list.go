package stratum

import (
	"context"
	"time"
)

// ObjectMeta describes one stored object as reported by a list call.
type ObjectMeta struct {
	// Location is the object's full key.
	Location Path

	// LastModified records the last time the object was written.
	LastModified time.Time

	// Size is the object length in bytes.
	Size int64

	// ETag is the object's entity tag, when the backend reports one.
	ETag string

	// Version is the object's version identifier, when versioning applies.
	Version string
}

// ListResult is one page of a listing.
type ListResult struct {
	// CommonPrefixes are the distinct key prefixes below the requested
	// prefix, populated when listing with a delimiter.
	CommonPrefixes []Path

	// Objects are the objects of this page.
	Objects []ObjectMeta
}

// ListClient is the list-page capability of a storage backend.
//
// Pagination is caller-driven: each call returns at most one page together
// with the continuation token for the next one, or an empty token on the
// final page.
type ListClient interface {
	// ListRequest fetches one page of keys under prefix. When delimiter is
	// true, keys are rolled up at the path delimiter into common prefixes.
	// token continues a previous listing; offset starts the listing after
	// the given key. Empty strings disable either.
	ListRequest(ctx context.Context, prefix string, delimiter bool, token, offset string) (ListResult, string, error)
}
