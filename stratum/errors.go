package stratum

import (
	"errors"
	"fmt"
)

// Sentinel errors for taxonomy matching with errors.Is.
var (
	// ErrNotSupported reports an operation the backend or configuration
	// cannot perform. It is returned before any network I/O.
	ErrNotSupported = errors.New("operation not supported")

	// ErrAlreadyExists reports a violated copy/put precondition.
	ErrAlreadyExists = errors.New("object already exists")

	// ErrMissingPart reports a multipart completion attempted against an
	// incomplete part ledger.
	ErrMissingPart = errors.New("missing part")
)

// OpError is the terminal failure of a single client operation: the retry
// collaborator gave up on the request, or its response body could not be
// read. Op names the operation ("get", "put", "delete", "delete objects",
// "copy", "list", "create multipart", "complete multipart"); Path is empty
// for bucket-level operations.
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s request: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s request %s: %v", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// InvalidResponseError reports a response body that was read but failed to
// parse against the expected wire schema.
type InvalidResponseError struct {
	Op  string
	Err error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid %s response: %v", e.Op, e.Err)
}

func (e *InvalidResponseError) Unwrap() error { return e.Err }

// DeleteFailedError is the per-object failure of a batch delete. It is
// recorded in the outcome vector for the offending key and never aborts
// sibling deletions.
type DeleteFailedError struct {
	Path    string
	Code    string
	Message string
}

func (e *DeleteFailedError) Error() string {
	return fmt.Sprintf("delete failed for key %s: %s (code: %s)", e.Path, e.Message, e.Code)
}

// AlreadyExistsError reports a conditional copy or put that found the
// destination already present. Path is the destination key.
type AlreadyExistsError struct {
	Path string
	Err  error
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("object %s already exists: %v", e.Path, e.Err)
}

func (e *AlreadyExistsError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrAlreadyExists) match without losing the path.
func (e *AlreadyExistsError) Is(target error) bool { return target == ErrAlreadyExists }
