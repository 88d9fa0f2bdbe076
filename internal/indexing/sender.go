package indexing

import (
	"sync"
	"sync/atomic"
)

// Sender is the handle producers use to submit indexing operations to the
// background Service. It is safe for concurrent use and cheap to clone by
// value across goroutines (its fields are all reference types).
type Sender struct {
	msgs chan<- message

	callbackMu *sync.Mutex
	callbacks  map[uint64]CompletionCallback
	nextID     *atomic.Uint64
	pending    *atomic.Int64
	stats      *stats
}

func newSender(msgs chan<- message, shared *sharedState) Sender {
	return Sender{
		msgs:       msgs,
		callbackMu: &shared.callbackMu,
		callbacks:  shared.callbacks,
		nextID:     &shared.nextID,
		pending:    &shared.pending,
		stats:      &shared.stats,
	}
}

// sharedState is owned jointly by a Sender and the Service goroutine it
// feeds; both hold pointers into it.
type sharedState struct {
	callbackMu sync.Mutex
	callbacks  map[uint64]CompletionCallback
	nextID     atomic.Uint64
	pending    atomic.Int64
	stats      stats
}

func newSharedState() *sharedState {
	return &sharedState{callbacks: make(map[uint64]CompletionCallback)}
}

// AddOrUpdate submits a document for (re)indexing. onComplete, if non-nil,
// is invoked by the background worker once the containing batch has been
// committed (or dropped by deduplication in favor of a later message for
// the same URL, in which case the error is nil).
func (s Sender) AddOrUpdate(url, filePath string, priority Priority, onComplete CompletionCallback) error {
	return s.submit(message{
		kind:     kindAddOrUpdate,
		url:      url,
		filePath: filePath,
		priority: priority,
	}, onComplete, false)
}

// Delete submits a deletion and blocks until the background worker has
// committed it.
func (s Sender) Delete(url string) error {
	resultCh := make(chan error, 1)
	err := s.submit(message{kind: kindDelete, url: url}, func(err error) {
		resultCh <- err
	}, true)
	if err != nil {
		return err
	}
	return <-resultCh
}

// Optimize requests index maintenance and blocks until it completes.
func (s Sender) Optimize(force bool) error {
	resultCh := make(chan error, 1)
	err := s.submit(message{kind: kindOptimize, force: force}, func(err error) {
		resultCh <- err
	}, true)
	if err != nil {
		return err
	}
	return <-resultCh
}

// Shutdown asks the background worker to commit any pending batch, close
// the index, and exit. It does not wait for that to happen; callers that
// need to block should use (*Service).Wait.
func (s Sender) Shutdown() {
	s.msgs <- message{kind: kindShutdown}
}

// Stats returns a point-in-time snapshot of indexing counters.
func (s Sender) Stats() Stats {
	return s.stats.snapshot()
}

// IsHealthy reports whether the service is accepting new submissions
// without immediate backpressure.
func (s Sender) IsHealthy() bool {
	return s.pending.Load() < MaxPendingMessages
}

func (s Sender) submit(msg message, onComplete CompletionCallback, alwaysAdmit bool) error {
	if !alwaysAdmit {
		if pending := s.pending.Load(); pending >= MaxPendingMessages {
			return &IndexingError{
				Message:   "too many pending indexing operations",
				Cause:     ErrCauseBackpressure,
				Retryable: true,
			}
		}
	}

	completionID := s.nextID.Add(1)
	msg.completionID = completionID

	if onComplete != nil {
		s.callbackMu.Lock()
		s.callbacks[completionID] = onComplete
		s.callbackMu.Unlock()
	}

	select {
	case s.msgs <- msg:
		s.pending.Add(1)
		s.stats.pendingCount.Add(1)
		return nil
	default:
		s.callbackMu.Lock()
		delete(s.callbacks, completionID)
		s.callbackMu.Unlock()
		return &IndexingError{
			Message:   "indexing service channel is full",
			Cause:     ErrCauseDisconnected,
			Retryable: true,
		}
	}
}
