package storage

import (
	"errors"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cdoc/crawldoc/internal/metadata"
	"github.com/cdoc/crawldoc/internal/normalize"
	"github.com/cdoc/crawldoc/pkg/failure"
	"github.com/cdoc/crawldoc/pkg/fileutil"
	"github.com/cdoc/crawldoc/pkg/hashutil"
)

/*
Responsibilities
- Persist Markdown files
- Write assets
- Ensure deterministic filenames

Output Characteristics
- Stable directory layout
- Idempotent writes
- Overwrite-safe reruns
*/

type Sink interface {
	Write(
		outputDir string,
		normalizedDoc normalize.NormalizedMarkdownDoc,
		hashAlgo hashutil.HashAlgo,
		artifacts PageArtifacts,
	) (WriteResult, failure.ClassifiedError)
}

type LocalSink struct {
	metadataSink metadata.MetadataSink
}

func NewLocalSink(
	metadataSink metadata.MetadataSink,
) LocalSink {
	return LocalSink{
		metadataSink: metadataSink,
	}
}

func (s *LocalSink) Write(
	outputDir string,
	normalizedDoc normalize.NormalizedMarkdownDoc,
	hashAlgo hashutil.HashAlgo,
	artifacts PageArtifacts,
) (WriteResult, failure.ClassifiedError) {
	writeResult, err := write(outputDir, normalizedDoc, hashAlgo)
	if err != nil {
		var storageError *StorageError
		errors.As(err, &storageError)
		s.metadataSink.RecordError(
			time.Now(),
			"storage",
			"LocalSink.Write",
			mapStorageErrorToMetadataCause(storageError),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, normalizedDoc.Frontmatter().SourceURL()),
				metadata.NewAttr(metadata.AttrWritePath, storageError.Path),
			},
		)
		return WriteResult{}, storageError
	}
	s.metadataSink.RecordArtifact(
		metadata.ArtifactMarkdown,
		writeResult.Path(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrWritePath, writeResult.Path()),
			metadata.NewAttr(metadata.AttrURL, normalizedDoc.Frontmatter().SourceURL()),
			metadata.NewAttr(metadata.AttrField, writeResult.URLHash()),
			metadata.NewAttr(metadata.AttrField, writeResult.ContentHash()),
		},
	)

	htmlPath, jsonPath, screenshotPath := s.writeExtraArtifacts(outputDir, writeResult, normalizedDoc, artifacts)
	writeResult = writeResult.withArtifactPaths(htmlPath, jsonPath, screenshotPath)
	return writeResult, nil
}

// writeExtraArtifacts persists the raw-HTML, JSON metadata, and screenshot
// artifacts requested in artifacts, alongside the Markdown file write above
// already committed. Each artifact is independent: a failure writing one
// doesn't roll back the others or the Markdown write, since the Markdown
// body is the artifact the crawl depends on for indexing and link
// rewriting. Failures here are recorded but not surfaced as a fatal error.
func (s *LocalSink) writeExtraArtifacts(
	outputDir string,
	writeResult WriteResult,
	normalizedDoc normalize.NormalizedMarkdownDoc,
	artifacts PageArtifacts,
) (htmlPath, jsonPath, screenshotPath string) {
	base := filepath.Join(outputDir, writeResult.URLHash())
	sourceURL := normalizedDoc.Frontmatter().SourceURL()

	if artifacts.WriteRawHTML && len(artifacts.RawHTML) > 0 {
		path := base + ".html"
		content := artifacts.RawHTML
		if len(content) > gzipThresholdBytes {
			compressed, gzErr := gzipBytes(content)
			if gzErr == nil {
				path += ".gz"
				content = compressed
			}
		}
		if werr := fileutil.WriteFileAtomic(path, content, 0644); werr != nil {
			s.recordArtifactError(sourceURL, path, werr)
		} else {
			htmlPath = path
			s.metadataSink.RecordArtifact(metadata.ArtifactHTML, path, []metadata.Attribute{
				metadata.NewAttr(metadata.AttrWritePath, path),
				metadata.NewAttr(metadata.AttrURL, sourceURL),
			})
		}
	}

	if artifacts.WriteJSON {
		finalURL := artifacts.FinalURL
		if finalURL == "" {
			finalURL = sourceURL
		}
		doc := pageDocument{
			URL:       sourceURL,
			FinalURL:  finalURL,
			Status:    artifacts.Status,
			FetchedAt: normalizedDoc.Frontmatter().FetchedAt(),
			Title:     normalizedDoc.Frontmatter().Title(),
			Headings:  artifacts.Headings,
			Links:     artifacts.Links,
			Metadata: map[string]interface{}{
				"section":         normalizedDoc.Frontmatter().Section(),
				"doc_id":          normalizedDoc.Frontmatter().DocID(),
				"content_hash":    normalizedDoc.Frontmatter().ContentHash(),
				"crawl_depth":     normalizedDoc.Frontmatter().CrawlDepth(),
				"crawler_version": normalizedDoc.Frontmatter().CrawlerVersion(),
			},
		}
		body, merr := marshalPageDocument(doc)
		if merr != nil {
			s.recordArtifactError(sourceURL, base+".json", merr)
		} else {
			path := base + ".json"
			if werr := fileutil.WriteFileAtomic(path, body, 0644); werr != nil {
				s.recordArtifactError(sourceURL, path, werr)
			} else {
				jsonPath = path
				s.metadataSink.RecordArtifact(metadata.ArtifactJSON, path, []metadata.Attribute{
					metadata.NewAttr(metadata.AttrWritePath, path),
					metadata.NewAttr(metadata.AttrURL, sourceURL),
				})
			}
		}
	}

	if artifacts.WriteScreen && len(artifacts.Screenshot) > 0 {
		path := base + ".png"
		if werr := fileutil.WriteFileAtomic(path, artifacts.Screenshot, 0644); werr != nil {
			s.recordArtifactError(sourceURL, path, werr)
		} else {
			screenshotPath = path
			s.metadataSink.RecordArtifact(metadata.ArtifactScreenshot, path, []metadata.Attribute{
				metadata.NewAttr(metadata.AttrWritePath, path),
				metadata.NewAttr(metadata.AttrURL, sourceURL),
			})
		}
	}

	return htmlPath, jsonPath, screenshotPath
}

func (s *LocalSink) recordArtifactError(sourceURL, path string, err error) {
	s.metadataSink.RecordError(
		time.Now(),
		"storage",
		"LocalSink.writeExtraArtifacts",
		metadata.CauseStorageFailure,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, sourceURL),
			metadata.NewAttr(metadata.AttrWritePath, path),
		},
	)
}

func write(
	outputDir string,
	normalizedDoc normalize.NormalizedMarkdownDoc,
	hashAlgo hashutil.HashAlgo,
) (WriteResult, failure.ClassifiedError) {
	// Get canonical URL for filename hashing (per filename-invariants.md)
	canonicalURL := normalizedDoc.Frontmatter().CanonicalURL()

	// Hash the canonical URL using specified algorithm
	urlHashFull, err := hashutil.HashBytes([]byte(canonicalURL), hashAlgo)
	if err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseHashComputationFailed,
			Path:      "",
		}
	}

	// Use first 12 hex characters for filename (per user's requirement)
	urlHash := urlHashFull[:12]

	// Prepare output directory
	if err := fileutil.EnsureDir(outputDir); err != nil {
		var fileErr *fileutil.FileError
		if errors.As(err, &fileErr) {
			cause := ErrCauseWriteFailure
			retryable := false
			if fileErr.Cause == fileutil.ErrCausePathError {
				// Could be disk full or permission issue
				cause = ErrCausePathError
				retryable = true // disk full is retryable
			}
			return WriteResult{}, &StorageError{
				Message:   err.Error(),
				Retryable: retryable,
				Cause:     cause,
				Path:      outputDir,
			}
		}
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseWriteFailure,
			Path:      outputDir,
		}
	}

	// Construct full file path: outputDir/<url_hash>.md
	filename := urlHash + ".md"
	fullPath := filepath.Join(outputDir, filename)

	// Write atomically: write to a temp file, fsync it, rename into place,
	// then fsync the containing directory so the rename itself is durable.
	content := normalizedDoc.Content()
	if err := fileutil.WriteFileAtomic(fullPath, content, 0644); err != nil {
		cause := ErrCauseWriteFailure
		retryable := false
		// Check if it's a disk full error (ENOSPC)
		if errors.Is(err, syscall.ENOSPC) {
			cause = ErrCauseDiskFull
			retryable = true // disk full is retryable
		}
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: retryable,
			Cause:     cause,
			Path:      fullPath,
		}
	}

	// Get content hash from frontmatter
	contentHash := normalizedDoc.Frontmatter().ContentHash()

	// Construct WriteResult
	writeResult := NewWriteResult(urlHash, fullPath, contentHash)
	return writeResult, nil
}
