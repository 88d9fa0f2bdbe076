package indexing

import (
	"sync"
	"sync/atomic"
	"time"
)

// stats is the lock-free (aside from the optimization timestamp) counter
// block shared between a Sender and its Service.
type stats struct {
	totalProcessed atomic.Int64
	totalFailed    atomic.Int64
	pendingCount   atomic.Int64
	batchCount     atomic.Int64

	optMu            sync.Mutex
	lastOptimization *time.Time
}

// Stats is an immutable snapshot of the indexing service's counters, safe
// to read and pass around freely.
type Stats struct {
	TotalProcessed   int64
	TotalFailed      int64
	PendingCount     int64
	BatchCount       int64
	LastOptimization *time.Time
}

func (s *stats) snapshot() Stats {
	s.optMu.Lock()
	last := s.lastOptimization
	s.optMu.Unlock()
	return Stats{
		TotalProcessed:   s.totalProcessed.Load(),
		TotalFailed:      s.totalFailed.Load(),
		PendingCount:     s.pendingCount.Load(),
		BatchCount:       s.batchCount.Load(),
		LastOptimization: last,
	}
}

func (s *stats) recordOptimization(at time.Time) {
	s.optMu.Lock()
	s.lastOptimization = &at
	s.optMu.Unlock()
}
