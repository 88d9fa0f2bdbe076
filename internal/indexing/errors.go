package indexing

import (
	"fmt"

	"github.com/cdoc/crawldoc/pkg/failure"
)

// ErrorCause classifies why an indexing operation failed, mirroring the
// transient/permanent split the background worker uses to decide whether a
// commit failure is worth retrying.
type ErrorCause string

const (
	// ErrCauseBackpressure means the pending-operations ceiling was hit;
	// the caller should retry later or drop the submission.
	ErrCauseBackpressure ErrorCause = "backpressure"
	// ErrCauseDisconnected means the background worker had already
	// stopped accepting new messages.
	ErrCauseDisconnected ErrorCause = "disconnected"
	// ErrCauseWriterContention covers lock/writer-acquisition failures
	// from the underlying index; these are retried.
	ErrCauseWriterContention ErrorCause = "writer-contention"
	// ErrCauseSchemaViolation covers malformed documents or query errors
	// from the underlying index; these are never retried.
	ErrCauseSchemaViolation ErrorCause = "schema-violation"
	// ErrCauseReadFailure means the source file for an AddOrUpdate could
	// not be read from disk.
	ErrCauseReadFailure ErrorCause = "read-failure"
)

// IndexingError is the error type surfaced through completion callbacks and
// returned by Sender methods.
type IndexingError struct {
	Message   string
	Cause     ErrorCause
	Retryable bool
}

func (e *IndexingError) Error() string {
	return fmt.Sprintf("indexing: %s: %s", e.Cause, e.Message)
}

func (e *IndexingError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *IndexingError) IsRetryable() bool {
	return e.Retryable
}

func (e *IndexingError) Is(target error) bool {
	_, ok := target.(*IndexingError)
	return ok
}

// classifyCommitErr decides whether a failure while committing a batch to
// the index is worth retrying. The underlying index library does not
// distinguish these with typed errors, so the classification is heuristic:
// anything is assumed transient (lock contention, temporary I/O) unless it
// carries the schema/parse markers the index itself would have reported at
// document-construction time, which this package never produces.
func classifyCommitErr(err error) *IndexingError {
	if err == nil {
		return nil
	}
	return &IndexingError{
		Message:   err.Error(),
		Cause:     ErrCauseWriterContention,
		Retryable: true,
	}
}
