package storage

// Persistence

type WriteResult struct {
	urlHash       string // identity (filename without extension)
	path          string
	contentHash   string
	htmlPath      string
	jsonPath      string
	screenshotPath string
}

func NewWriteResult(
	urlHash string,
	path string,
	contentHash string,
) WriteResult {
	return WriteResult{
		urlHash:     urlHash,
		path:        path,
		contentHash: contentHash,
	}
}
func (w *WriteResult) URLHash() string {
	return w.urlHash
}

func (w *WriteResult) Path() string {
	return w.path
}

func (w *WriteResult) ContentHash() string {
	return w.contentHash
}

// HTMLPath returns the path the raw-HTML artifact was written to, empty
// when none was requested.
func (w *WriteResult) HTMLPath() string {
	return w.htmlPath
}

// JSONPath returns the path the JSON metadata artifact was written to,
// empty when none was requested.
func (w *WriteResult) JSONPath() string {
	return w.jsonPath
}

// ScreenshotPath returns the path the screenshot artifact was written to,
// empty when none was requested.
func (w *WriteResult) ScreenshotPath() string {
	return w.screenshotPath
}

// withArtifactPaths returns a copy of w recording the paths of whichever
// extra artifacts were actually written alongside the Markdown file.
func (w WriteResult) withArtifactPaths(htmlPath, jsonPath, screenshotPath string) WriteResult {
	w.htmlPath = htmlPath
	w.jsonPath = jsonPath
	w.screenshotPath = screenshotPath
	return w
}
