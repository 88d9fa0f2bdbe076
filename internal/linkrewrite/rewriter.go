package linkrewrite

import (
	"os"
	"path/filepath"

	"github.com/cdoc/crawldoc/pkg/fileutil"
	"github.com/cdoc/crawldoc/pkg/urlutil"
	"github.com/rs/zerolog/log"
)

// Rewriter retargets hyperlinks between saved pages as new pages land.
type Rewriter struct {
	idx   *Index
	locks *fileLocks
}

// NewRewriter constructs a Rewriter backed by a fresh Index.
func NewRewriter() *Rewriter {
	return &Rewriter{idx: NewIndex(), locks: newFileLocks()}
}

// AfterSave is called once a page has been written to disk at pagePath.
// It rewrites the page's own outgoing links to point at any target already
// saved, records pagePath as the saved location for pageURL, and streams an
// update through every previously saved page known to link to pageURL so
// those files retarget to the new local path instead of the remote URL.
//
// outgoingURLs is the set of link targets discovered in content, in
// document order; it drives the referrer bookkeeping for future saves. The
// rewrite of content itself checks every href/src in content against the
// saved pages. It returns the (possibly) rewritten content to persist at
// pagePath.
func (rw *Rewriter) AfterSave(pageURL, pagePath string, content []byte, outgoingURLs []string) ([]byte, error) {
	rewritten, err := RewriteBytes(content, func(value string) (string, bool) {
		target, ok := rw.idx.Lookup(value)
		if !ok {
			return "", false
		}
		rel, ok := relativeLink(pagePath, target)
		if !ok {
			return "", false
		}
		return rel, true
	})
	if err != nil {
		return nil, err
	}

	rw.idx.Record(pageURL, pagePath)
	rw.idx.RecordOutgoing(pagePath, outgoingURLs)

	for _, referrerPath := range rw.idx.ReferrersOf(pageURL) {
		if referrerPath == pagePath {
			continue
		}
		if err := rw.retarget(referrerPath, pageURL, pagePath); err != nil {
			log.Warn().Err(err).Str("file", referrerPath).Str("target", pageURL).
				Msg("linkrewrite: failed to retarget referrer, leaving remote link in place")
		}
	}

	return rewritten, nil
}

// retarget rewrites every link in referrerPath that points at targetURL to
// the now-local targetPath, then atomically replaces referrerPath. It holds
// the per-file lock for referrerPath so two concurrent saves cannot
// interleave writes to the same stored file.
func (rw *Rewriter) retarget(referrerPath, targetURL, targetPath string) error {
	return rw.locks.withLock(referrerPath, func() error {
		original, err := os.ReadFile(referrerPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		rel, relOK := relativeLink(referrerPath, targetPath)
		wantKey, wantOK := urlutil.DedupKey(targetURL)

		rewritten, err := RewriteBytes(original, func(value string) (string, bool) {
			if !relOK || !wantOK {
				return "", false
			}
			key, ok := urlutil.DedupKey(value)
			if !ok || key != wantKey {
				return "", false
			}
			return rel, true
		})
		if err != nil {
			return err
		}

		info, err := os.Stat(referrerPath)
		perm := os.FileMode(0644)
		if err == nil {
			perm = info.Mode().Perm()
		}
		return fileutil.WriteFileAtomic(referrerPath, rewritten, perm)
	})
}

// relativeLink computes the href fromPath should use to reach toPath,
// relative to fromPath's own directory.
func relativeLink(fromPath, toPath string) (string, bool) {
	rel, err := filepath.Rel(filepath.Dir(fromPath), toPath)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
