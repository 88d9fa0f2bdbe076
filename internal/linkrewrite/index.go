// Package linkrewrite retargets links between saved pages. After a page is
// saved, it rewrites that page's own outgoing links to local paths for any
// target already on disk, and streams an update through any previously
// saved pages that link to it.
package linkrewrite

import (
	"sync"

	"github.com/cdoc/crawldoc/pkg/urlutil"
)

// Index tracks, for every URL saved so far, the on-disk path it was
// written to, plus a reverse map from a URL to every saved page's path
// that links to it. It is safe for concurrent reads and writes.
type Index struct {
	mu        sync.RWMutex
	saved     map[string]savedEntry
	referrers map[string]map[string]struct{} // target dedup key -> referrer paths
}

type savedEntry struct {
	url  string
	path string
}

// NewIndex constructs an empty Index.
func NewIndex() *Index {
	return &Index{
		saved:     make(map[string]savedEntry),
		referrers: make(map[string]map[string]struct{}),
	}
}

// Record associates rawURL with the path it was saved to, making it a
// rewrite target for subsequent outgoing-link resolution.
func (idx *Index) Record(rawURL, path string) {
	key, ok := urlutil.DedupKey(rawURL)
	if !ok {
		return
	}
	idx.mu.Lock()
	idx.saved[key] = savedEntry{url: rawURL, path: path}
	idx.mu.Unlock()
}

// RecordOutgoing registers that the page saved at path links to each URL
// in outgoingURLs, so a later save of one of those URLs can find path as a
// page needing its stored links retargeted.
func (idx *Index) RecordOutgoing(path string, outgoingURLs []string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, raw := range outgoingURLs {
		key, ok := urlutil.DedupKey(raw)
		if !ok {
			continue
		}
		set, ok := idx.referrers[key]
		if !ok {
			set = make(map[string]struct{})
			idx.referrers[key] = set
		}
		set[path] = struct{}{}
	}
}

// ReferrersOf returns the saved-file paths of every page known to link to
// rawURL.
func (idx *Index) ReferrersOf(rawURL string) []string {
	key, ok := urlutil.DedupKey(rawURL)
	if !ok {
		return nil
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	set := idx.referrers[key]
	out := make([]string, 0, len(set))
	for path := range set {
		out = append(out, path)
	}
	return out
}

// Lookup returns the saved path for rawURL, if any.
func (idx *Index) Lookup(rawURL string) (string, bool) {
	key, ok := urlutil.DedupKey(rawURL)
	if !ok {
		return "", false
	}
	idx.mu.RLock()
	entry, found := idx.saved[key]
	idx.mu.RUnlock()
	return entry.path, found
}

// Backlinks returns every (url, path) pair in the index, for callers that
// need to scan all previously saved pages when retargeting links to a
// newly saved page. Order is unspecified.
func (idx *Index) Backlinks() map[string]string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make(map[string]string, len(idx.saved))
	for _, entry := range idx.saved {
		out[entry.url] = entry.path
	}
	return out
}
