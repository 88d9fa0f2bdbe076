package indexing

import (
	"errors"

	"github.com/blevesearch/bleve/v2"
)

// OpenIndex opens the bleve index rooted at path, creating it with the
// package's default mapping the first time a crawl targets that directory.
func OpenIndex(path string) (bleve.Index, error) {
	idx, err := bleve.Open(path)
	if err == nil {
		return idx, nil
	}
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return bleve.New(path, bleve.NewIndexMapping())
	}
	return nil, err
}
