// Package indexing runs the single-writer background service that commits
// crawled pages into the full-text search index. Producers submit messages
// through a Sender; a Service goroutine batches, deduplicates, and commits
// them, invoking per-message completion callbacks as it goes.
package indexing

import "time"

// Tunables, matching the defaults described for the incremental indexer.
const (
	// MaxPendingMessages is the backpressure ceiling on outstanding,
	// unacknowledged submissions. Submit fails once this many messages are
	// pending commit.
	MaxPendingMessages = 10000
	// DefaultBatchSize is how many messages the service drains per commit
	// when the channel has enough buffered work.
	DefaultBatchSize = 50
	// DefaultBatchWait is how long the service waits for a partial batch to
	// fill before committing whatever it has.
	DefaultBatchWait = 100 * time.Millisecond
	// DefaultMaxRetries bounds the retry attempts of one batch commit on
	// transient failures.
	DefaultMaxRetries = 3
)

// Priority orders messages within a batch. It has no effect across batches,
// where arrival order dominates.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "normal"
	}
}

type kind int

const (
	kindAddOrUpdate kind = iota
	kindDelete
	kindOptimize
	kindShutdown
)

// message is the sum type of operations the service understands. Only one
// of the fields relevant to Kind is meaningful at a time.
type message struct {
	kind         kind
	url          string
	filePath     string
	priority     Priority
	force        bool
	completionID uint64
}

// CompletionCallback is invoked exactly once by the background worker after
// a message has been processed (or dropped by batch deduplication, in which
// case it is invoked with a nil error).
type CompletionCallback func(error)
