package indexing

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Document is what gets committed to the search index for one URL. It
// mirrors the search document described for the query engine: URL is the
// primary key, Body is the full-text field queries run against.
type Document struct {
	URL         string    `json:"url"`
	FilePath    string    `json:"filePath"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	LastIndexed time.Time `json:"lastIndexed"`
}

// loadDocument reads the Markdown file at filePath and derives a Document
// for url from it. Title is taken from the first ATX H1 line if present,
// falling back to the file's base name; Body is the full file content.
func loadDocument(url, filePath string) (Document, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return Document{}, err
	}
	body := string(content)
	return Document{
		URL:         url,
		FilePath:    filePath,
		Title:       deriveTitle(body, filePath),
		Body:        body,
		LastIndexed: time.Now(),
	}, nil
}

func deriveTitle(body, filePath string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
