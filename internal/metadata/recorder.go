package metadata

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

/*
Metadata Collected
- Fetch timestamps
- HTTP status codes
- Content hashes
- Crawl depth

Logging Goals
- Debuggable crawl behavior
- Post-run auditability
- Failure diagnostics

Structured logging is preferred.

Allowed:
- Primitive values
- Timestamps
- URLs (as values, not objects with behavior)
- Hashes
- Status codes
- Durations
- Identifiers (page ID, crawl ID)
*/

// MetadataSink is the observational write path every pipeline stage logs
// through. Implementations MUST NOT feed decisions back into the crawl;
// recording an event can never fail the caller.
type MetadataSink interface {
	RecordFetch(fetchUrl string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int)
	RecordAssetFetch(fetchUrl string, httpStatus int, duration time.Duration, retryCount int)
	RecordError(observedAt time.Time, packageName string, action string, cause ErrorCause, details string, attrs []Attribute)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

// CrawlFinalizer records the terminal summary of a completed crawl, exactly
// once, after the scheduler has already decided the crawl is over.
type CrawlFinalizer interface {
	RecordFinalCrawlStats(totalPages int, totalErrors int, totalAssets int, duration time.Duration)
}

// Recorder is the default MetadataSink/CrawlFinalizer: it emits structured
// log events and keeps a bounded in-memory history for diagnostics.
type Recorder struct {
	workerID string

	mu        sync.Mutex
	fetches   []FetchEvent
	errors    []ErrorRecord
	artifacts []ArtifactRecord
}

// NewRecorder constructs a Recorder tagged with workerID, included on every
// log line it emits so multi-worker runs can be disambiguated later.
func NewRecorder(workerID string) Recorder {
	return Recorder{workerID: workerID}
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
	crawlDepth int,
) {
	r.mu.Lock()
	r.fetches = append(r.fetches, FetchEvent{
		fetchUrl:    fetchUrl,
		httpStatus:  httpStatus,
		duration:    duration,
		contentType: contentType,
		retryCount:  retryCount,
		crawlDepth:  crawlDepth,
	})
	r.mu.Unlock()

	log.Info().
		Str("worker", r.workerID).
		Str("url", fetchUrl).
		Int("status", httpStatus).
		Dur("duration", duration).
		Str("content_type", contentType).
		Int("retry_count", retryCount).
		Int("depth", crawlDepth).
		Msg("fetch")
}

func (r *Recorder) RecordAssetFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	retryCount int,
) {
	log.Info().
		Str("worker", r.workerID).
		Str("asset_url", fetchUrl).
		Int("status", httpStatus).
		Dur("duration", duration).
		Int("retry_count", retryCount).
		Msg("asset fetch")
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
	r.mu.Lock()
	r.errors = append(r.errors, ErrorRecord{
		packageName: packageName,
		action:      action,
		cause:       cause,
		errorString: details,
		observedAt:  observedAt,
		attrs:       attrs,
	})
	r.mu.Unlock()

	event := log.Error().
		Str("worker", r.workerID).
		Str("package", packageName).
		Str("action", action).
		Int("cause", int(cause)).
		Time("observed_at", observedAt)
	for _, attr := range attrs {
		event = event.Str(string(attr.Key), attr.Value)
	}
	event.Msg(details)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	r.mu.Lock()
	r.artifacts = append(r.artifacts, ArtifactRecord{paths: path})
	r.mu.Unlock()

	event := log.Info().
		Str("worker", r.workerID).
		Str("kind", string(kind)).
		Str("path", path)
	for _, attr := range attrs {
		event = event.Str(string(attr.Key), attr.Value)
	}
	event.Msg("artifact")
}

// RecordFinalCrawlStats satisfies CrawlFinalizer. It is recorded exactly
// once, by the scheduler's deferred cleanup, and never read back into the
// crawl loop.
func (r *Recorder) RecordFinalCrawlStats(totalPages int, totalErrors int, totalAssets int, duration time.Duration) {
	stats := crawlStats{
		totalPages:  totalPages,
		totalErrors: totalErrors,
		totalAssets: totalAssets,
		durationMs:  duration.Milliseconds(),
	}
	log.Info().
		Str("worker", r.workerID).
		Int("total_pages", stats.totalPages).
		Int("total_errors", stats.totalErrors).
		Int("total_assets", stats.totalAssets).
		Int64("duration_ms", stats.durationMs).
		Msg("crawl finished")
}

// NoopSink discards every event. Useful for tests and dry runs that want
// the real pipeline types without the logging side effects.
type NoopSink struct{}

func (NoopSink) RecordFetch(string, int, time.Duration, string, int, int) {}
func (NoopSink) RecordAssetFetch(string, int, time.Duration, int)         {}
func (NoopSink) RecordError(time.Time, string, string, ErrorCause, string, []Attribute) {
}
func (NoopSink) RecordArtifact(ArtifactKind, string, []Attribute) {}
