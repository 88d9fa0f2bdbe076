package indexing

import (
	"sort"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/rs/zerolog/log"

	"github.com/cdoc/crawldoc/pkg/failure"
	"github.com/cdoc/crawldoc/pkg/retry"
	"github.com/cdoc/crawldoc/pkg/timeutil"
)

// Service is the single background writer for the search index. Exactly
// one goroutine (started by Start) ever calls into the underlying index;
// every other component only talks to a Sender.
type Service struct {
	index      bleve.Index
	msgs       chan message
	shared     *sharedState
	batchSize  int
	batchWait  time.Duration
	maxRetries int
	retryParam retry.RetryParam
	done       chan struct{}
}

// Options configures a Service's batching and retry behaviour. Zero values
// fall back to the package defaults.
type Options struct {
	BatchSize  int
	BatchWait  time.Duration
	MaxRetries int
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.BatchWait <= 0 {
		o.BatchWait = DefaultBatchWait
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	return o
}

// New constructs a Service around an already-open bleve index. The caller
// owns opening (or creating) the index; Service only ever issues batches
// and close against it.
func New(index bleve.Index, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		index:      index,
		msgs:       make(chan message, MaxPendingMessages),
		shared:     newSharedState(),
		batchSize:  opts.BatchSize,
		batchWait:  opts.BatchWait,
		maxRetries: opts.MaxRetries,
		retryParam: retry.NewRetryParam(
			50*time.Millisecond,
			25*time.Millisecond,
			1,
			opts.MaxRetries,
			timeutil.NewBackoffParam(50*time.Millisecond, 2.0, 2*time.Second),
		),
		done: make(chan struct{}),
	}
}

// Start launches the background worker and returns the Sender producers
// should submit operations through.
func (svc *Service) Start() Sender {
	sender := newSender(svc.msgs, svc.shared)
	go svc.run()
	return sender
}

// Wait blocks until the background worker has exited after processing a
// Shutdown message.
func (svc *Service) Wait() {
	<-svc.done
}

func (svc *Service) run() {
	defer close(svc.done)

	var batch []message
	timer := time.NewTimer(svc.batchWait)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		svc.commitBatch(batch)
		batch = nil
	}
	resetTimer := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(svc.batchWait)
	}

	for {
		select {
		case msg, ok := <-svc.msgs:
			if !ok {
				flush()
				return
			}
			if msg.kind == kindShutdown {
				flush()
				if err := svc.index.Close(); err != nil {
					log.Warn().Err(err).Msg("indexing: error closing index on shutdown")
				}
				return
			}
			batch = append(batch, msg)
			if len(batch) >= svc.batchSize {
				flush()
				resetTimer()
			}
		case <-timer.C:
			flush()
			resetTimer()
		}
	}
}

// commitBatch deduplicates AddOrUpdate/Delete messages by URL (keeping
// only the last per URL, in arrival order), commits the result as one
// writer transaction, and invokes every message's completion callback.
func (svc *Service) commitBatch(batch []message) {
	kept := dedupeByURL(batch, svc.finishDropped)
	if len(kept) == 0 {
		return
	}
	// Higher priority first; arrival order is kept among equal priorities.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].priority > kept[j].priority
	})

	bleveBatch := svc.index.NewBatch()
	loadErrs := make(map[uint64]error)
	var optimizeMsgs []message

	for _, msg := range kept {
		switch msg.kind {
		case kindAddOrUpdate:
			doc, err := loadDocument(msg.url, msg.filePath)
			if err != nil {
				loadErrs[msg.completionID] = err
				continue
			}
			if err := bleveBatch.Index(msg.url, doc); err != nil {
				loadErrs[msg.completionID] = err
				continue
			}
		case kindDelete:
			bleveBatch.Delete(msg.url)
		case kindOptimize:
			optimizeMsgs = append(optimizeMsgs, msg)
		}
	}

	result := retry.Retry(svc.retryParam, func() (struct{}, failure.ClassifiedError) {
		if bleveBatch.Size() == 0 {
			return struct{}{}, nil
		}
		if err := svc.index.Batch(bleveBatch); err != nil {
			return struct{}{}, classifyCommitErr(err)
		}
		return struct{}{}, nil
	})

	var commitErr error
	if result.Err() != nil {
		commitErr = result.Err()
		svc.shared.stats.totalFailed.Add(int64(len(kept)))
		log.Error().Err(commitErr).Int("batch_size", len(kept)).Msg("indexing: batch commit failed")
	} else {
		svc.shared.stats.totalProcessed.Add(int64(len(kept)))
	}
	svc.shared.stats.batchCount.Add(1)
	svc.shared.pending.Add(-int64(len(kept)))
	svc.shared.stats.pendingCount.Add(-int64(len(kept)))

	for _, msg := range kept {
		if msg.kind == kindOptimize {
			continue
		}
		err := commitErr
		if loadErr, ok := loadErrs[msg.completionID]; ok {
			err = &IndexingError{Message: loadErr.Error(), Cause: ErrCauseReadFailure, Retryable: false}
		}
		svc.invoke(msg.completionID, err)
	}

	for _, msg := range optimizeMsgs {
		err := svc.optimize(msg.force)
		svc.invoke(msg.completionID, err)
	}
}

// optimize performs index maintenance. bleve's scorch backend merges
// segments internally on its own schedule; there is no public "compact
// now" call to force, so Optimize is implemented as a maintenance
// checkpoint: it records the timestamp consulted by Stats and, when force
// is set, commits an empty batch to flush any buffered writer state.
func (svc *Service) optimize(force bool) error {
	if force {
		if err := svc.index.Batch(svc.index.NewBatch()); err != nil {
			return classifyCommitErr(err)
		}
	}
	svc.shared.stats.recordOptimization(time.Now())
	return nil
}

func (svc *Service) finishDropped(msg message) {
	svc.shared.pending.Add(-1)
	svc.shared.stats.pendingCount.Add(-1)
	svc.invoke(msg.completionID, nil)
}

func (svc *Service) invoke(completionID uint64, err error) {
	svc.shared.callbackMu.Lock()
	cb, ok := svc.shared.callbacks[completionID]
	if ok {
		delete(svc.shared.callbacks, completionID)
	}
	svc.shared.callbackMu.Unlock()
	if ok && cb != nil {
		cb(err)
	}
}

// dedupeByURL keeps only the last AddOrUpdate/Delete message per URL,
// preserving relative order of survivors. Optimize and Shutdown messages
// are passed through untouched. Dropped messages are reported via onDrop
// so their (no-op) completion callbacks still fire.
func dedupeByURL(batch []message, onDrop func(message)) []message {
	lastIndex := make(map[string]int, len(batch))
	for i, msg := range batch {
		if msg.kind == kindAddOrUpdate || msg.kind == kindDelete {
			lastIndex[msg.url] = i
		}
	}

	kept := make([]message, 0, len(batch))
	for i, msg := range batch {
		if msg.kind == kindAddOrUpdate || msg.kind == kindDelete {
			if lastIndex[msg.url] != i {
				onDrop(msg)
				continue
			}
		}
		kept = append(kept, msg)
	}
	return kept
}
