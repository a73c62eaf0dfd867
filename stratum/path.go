// Package stratum provides the protocol core of an S3-compatible object
// storage client: typed object paths, the XML wire schema shared by
// list and multipart APIs, a concurrency-safe part ledger for multipart
// uploads, and the retry/transport seam the backend clients send through.
//
// Stratum does not implement request signing, backoff policy, or credential
// acquisition. Those are consumed as collaborators (the aws-sdk-go-v2
// signer, retryer, and credential providers) through narrow interfaces.
package stratum

import (
	"fmt"
	"strings"
)

// Delimiter separates path segments in object keys.
const Delimiter = "/"

// ErrInvalidPath reports an object key that cannot be represented as a Path.
var ErrInvalidPath = fmt.Errorf("invalid path")

// Path is a normalized object key.
//
// A Path never has leading or trailing delimiters, empty segments, or the
// relative segments "." and "..". The zero value is the empty path.
// Paths are comparable; two Paths are equal iff their raw keys are equal.
type Path struct {
	raw string
}

// ParsePath normalizes and validates s as an object key.
//
// Leading and trailing delimiters are stripped and empty segments dropped.
// Returns ErrInvalidPath if any segment is "." or "..".
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{}, nil
	}

	segments := make([]string, 0, strings.Count(s, Delimiter)+1)
	for _, seg := range strings.Split(s, Delimiter) {
		switch seg {
		case "":
			continue
		case ".", "..":
			return Path{}, fmt.Errorf("%w: %q contains relative segment %q", ErrInvalidPath, s, seg)
		}
		segments = append(segments, seg)
	}

	return Path{raw: strings.Join(segments, Delimiter)}, nil
}

// MustPath is ParsePath for statically known keys; it panics on error.
func MustPath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the raw, unencoded key.
func (p Path) String() string {
	return p.raw
}

// IsEmpty reports whether the path has no segments.
func (p Path) IsEmpty() bool {
	return p.raw == ""
}

// Child returns the path extended by one validated segment.
func (p Path) Child(segment string) (Path, error) {
	if p.raw == "" {
		return ParsePath(segment)
	}
	return ParsePath(p.raw + Delimiter + segment)
}
