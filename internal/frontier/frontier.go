package frontier

import (
	"net/url"
	"sync"

	"github.com/cdoc/crawldoc/internal/config"
	"github.com/cdoc/crawldoc/pkg/urlutil"
)

/*
Frontier Responsibilities
- Maintain BFS ordering
- Deduplicate URLs
- Track crawl depth
- Prevent infinite traversal
- Knows nothing about:
	- fetching
	- extraction
	- markdown
	- storage

It is a data structure + policy module, not a pipeline executor.
*/

// Frontier is the deduplicated, depth-ordered work queue described by the
// crawl engine: Submit admits a discovered URL (already past robots/scope
// checks upstream), Dequeue hands out work in strict BFS order.
type Frontier struct {
	mu       sync.Mutex
	cfg      config.Config
	visited  Set[string]
	byDepth  map[int]*FIFOQueue[CrawlToken]
	minDepth int // smallest depth known to have ever held an item; advanced lazily
}

// NewCrawlFrontier constructs an empty, unconfigured Frontier. Call Init
// before use.
func NewCrawlFrontier() *Frontier {
	return &Frontier{
		visited:  NewSet[string](),
		byDepth:  make(map[int]*FIFOQueue[CrawlToken]),
		minDepth: -1,
	}
}

// Init binds crawl limits (MaxDepth, MaxPages) from cfg. A zero value for
// either limit means unlimited.
func (f *Frontier) Init(cfg config.Config) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = cfg
}

func canonicalKey(u url.URL) string {
	c := urlutil.Canonicalize(u)
	return c.String()
}

// Submit admits a crawl-admission candidate into the frontier. It returns
// false (a no-op) when the URL was already visited, when MaxDepth is
// exceeded, or when MaxPages has already been reached.
func (f *Frontier) Submit(candidate CrawlAdmissionCandidate) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	depth := candidate.DiscoveryMetadata().Depth()
	if maxDepth := f.cfg.MaxDepth(); maxDepth != 0 && depth > maxDepth {
		return false
	}
	if maxPages := f.cfg.MaxPages(); maxPages != 0 && f.visited.Size() >= maxPages {
		return false
	}

	key := canonicalKey(candidate.TargetURL())
	if f.visited.Contains(key) {
		return false
	}
	f.visited.Add(key)

	q, exists := f.byDepth[depth]
	if !exists {
		q = NewFIFOQueue[CrawlToken]()
		f.byDepth[depth] = q
	}
	q.Enqueue(NewCrawlToken(candidate.TargetURL(), depth))

	if f.minDepth == -1 || depth < f.minDepth {
		f.minDepth = depth
	}
	return true
}

// Dequeue returns one token, preferring the shallowest depth level with
// pending work so the crawl proceeds breadth-first; within a depth level,
// FIFO (discovery) order is preserved.
func (f *Frontier) Dequeue() (CrawlToken, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for f.minDepth != -1 {
		q, exists := f.byDepth[f.minDepth]
		if !exists || q.Size() == 0 {
			delete(f.byDepth, f.minDepth)
			f.advanceMinDepthLocked()
			continue
		}
		token, ok := q.Dequeue()
		if !ok {
			delete(f.byDepth, f.minDepth)
			f.advanceMinDepthLocked()
			continue
		}
		if q.Size() == 0 {
			delete(f.byDepth, f.minDepth)
			f.advanceMinDepthLocked()
		}
		return token, true
	}
	return CrawlToken{}, false
}

// advanceMinDepthLocked scans remaining depths for the new minimum with
// pending work. Caller must hold f.mu.
func (f *Frontier) advanceMinDepthLocked() {
	best := -1
	for d, q := range f.byDepth {
		if q.Size() == 0 {
			continue
		}
		if best == -1 || d < best {
			best = d
		}
	}
	f.minDepth = best
}

// Len reports the number of items currently pending dispatch.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, q := range f.byDepth {
		total += q.Size()
	}
	return total
}

// IsDepthExhausted reports whether depth has no pending items. Negative
// depths are always considered exhausted.
func (f *Frontier) IsDepthExhausted(depth int) bool {
	if depth < 0 {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	q, exists := f.byDepth[depth]
	return !exists || q.Size() == 0
}

// CurrentMinDepth returns the smallest depth with pending work, or -1 if
// the frontier is empty.
func (f *Frontier) CurrentMinDepth() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.minDepth
}

// VisitedCount reports the number of distinct URLs ever admitted,
// including ones already dispatched. The visited set is append-only.
func (f *Frontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited.Size()
}
