package refresh

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a refresh failure for retry and propagation decisions.
type Kind int

const (
	// KindUnknown is an unclassified error; treated as fatal.
	KindUnknown Kind = iota
	// KindFetch marks an upstream fetch failure. Never retried here; the
	// scheduler decides whether to re-trigger the invocation.
	KindFetch
	// KindSchema marks a non-additive schema mismatch. Not retryable.
	KindSchema
	// KindStorageTransient marks lock/timeout/network failures. The
	// coordinator retries the whole delete-insert unit.
	KindStorageTransient
	// KindStorageFatal marks permissions, missing tables, corrupt catalog
	// state. Not retryable.
	KindStorageFatal
)

var kindNames = map[Kind]string{
	KindUnknown:          "unknown",
	KindFetch:            "fetch",
	KindSchema:           "schema",
	KindStorageTransient: "storage_transient",
	KindStorageFatal:     "storage_fatal",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error wraps an underlying failure with its classification. Adapters wrap
// engine errors at the boundary so the coordinator never inspects driver
// error types itself.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FetchErr wraps an upstream fetch failure.
func FetchErr(err error) error {
	return &Error{Kind: KindFetch, Err: err}
}

// SchemaErr wraps a non-additive schema mismatch.
func SchemaErr(err error) error {
	return &Error{Kind: KindSchema, Err: err}
}

// Transient wraps a retryable storage failure.
func Transient(err error) error {
	return &Error{Kind: KindStorageTransient, Err: err}
}

// Fatal wraps a non-retryable storage failure.
func Fatal(err error) error {
	return &Error{Kind: KindStorageFatal, Err: err}
}

// Classify returns the Kind of an error chain. Context cancellation and
// deadline expiry count as transient: the next invocation redoes the unit.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindStorageTransient
	}
	return KindUnknown
}

// ErrUpstreamEmpty signals that a layer's upstream partition is missing or
// empty when its transform requires committed upstream data. This is a
// precondition failure, not a storage error: the invocation fails without
// touching the target so the scheduler can re-run the upstream layer first.
var ErrUpstreamEmpty = errors.New("upstream partition missing or empty")
