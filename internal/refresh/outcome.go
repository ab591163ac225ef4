package refresh

import (
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/rows"
)

// Status is the terminal state of one refresh invocation.
type Status int

const (
	// StatusSucceeded means the partition was replaced and committed.
	StatusSucceeded Status = iota
	// StatusFailed means the refresh aborted; Err carries the cause.
	StatusFailed
	// StatusNoOp means there was nothing to publish and storage was left
	// untouched. Not an error.
	StatusNoOp
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusNoOp:
		return "no_op"
	default:
		return "invalid"
	}
}

// Outcome reports the result of refreshing one (target, date) partition.
// Failed outcomes carry the target, date and error kind so the external
// scheduler can decide whether to re-trigger.
type Outcome struct {
	Status   Status
	Target   TableHandle
	Date     rows.LogicalDate
	RowCount int
	Attempts int
	Err      error
}

// OK reports whether the outcome is SUCCEEDED or NO_OP.
func (o Outcome) OK() bool {
	return o.Status != StatusFailed
}

// ErrKind returns the classification of the failure, or KindUnknown.
func (o Outcome) ErrKind() Kind {
	return Classify(o.Err)
}
