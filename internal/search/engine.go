package search

import (
	"github.com/blevesearch/bleve/v2"
	bleveSearch "github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Hit is one ranked result.
type Hit struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Excerpt string  `json:"excerpt"`
	Score   float64 `json:"score"`
}

// Results is the shaped, paginated outcome of Execute.
type Results struct {
	Hits       []Hit `json:"hits"`
	TotalCount uint64 `json:"totalCount"`
	Offset     int   `json:"offset"`
	Limit      int   `json:"limit"`
	// NextOffset is set only when more results remain beyond this page.
	NextOffset *int `json:"nextOffset,omitempty"`
}

// Engine runs queries against a bleve index. It never writes to the index;
// the indexing service is the sole writer.
type Engine struct {
	index Index
}

// Index is the subset of bleve.Index the query engine depends on, so tests
// can substitute a fake.
type Index interface {
	Search(req *bleve.SearchRequest) (*bleve.SearchResult, error)
}

// New constructs an Engine over an already-open index.
func New(index Index) *Engine {
	return &Engine{index: index}
}

// ExcerptBudget is the default number of runes an excerpt is truncated to.
const ExcerptBudget = 200

// Execute parses query, runs it against the index, and shapes the response
// with pagination and excerpts. offset and limit are clamped to
// non-negative values; limit of 0 defaults to 10.
func (e *Engine) Execute(rawQuery string, limit, offset int, highlight bool) (Results, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	parsed := Parse(rawQuery)
	q := buildQuery(parsed)

	req := bleve.NewSearchRequestOptions(q, limit, offset, false)
	req.Fields = []string{"url", "title", "body"}
	if highlight {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("body")
	}

	result, err := e.index.Search(req)
	if err != nil {
		return Results{}, err
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, docMatch := range result.Hits {
		hits = append(hits, hitFromMatch(docMatch, highlight))
	}

	out := Results{
		Hits:       hits,
		TotalCount: result.Total,
		Offset:     offset,
		Limit:      limit,
	}
	if nextOffset := offset + len(hits); uint64(nextOffset) < result.Total {
		out.NextOffset = &nextOffset
	}
	return out, nil
}

func hitFromMatch(docMatch *bleveSearch.DocumentMatch, highlight bool) Hit {
	url, _ := docMatch.Fields["url"].(string)
	title, _ := docMatch.Fields["title"].(string)

	var excerptSource string
	if highlight {
		if frags, ok := docMatch.Fragments["body"]; ok && len(frags) > 0 {
			excerptSource = frags[0]
		}
	}
	if excerptSource == "" {
		if body, ok := docMatch.Fields["body"].(string); ok {
			excerptSource = body
		}
	}

	return Hit{
		URL:     url,
		Title:   title,
		Excerpt: Truncate(excerptSource, ExcerptBudget),
		Score:   docMatch.Score,
	}
}

func buildQuery(p ParsedQuery) query.Query {
	switch p.Kind {
	case KindPhrase:
		return bleve.NewMatchPhraseQuery(p.Phrase)
	case KindField:
		if term, distance, ok := splitFuzzy(p.FieldValue); ok {
			fq := bleve.NewFuzzyQuery(term)
			fq.SetField(p.FieldName)
			fq.Fuzziness = distance
			return fq
		}
		mq := bleve.NewMatchQuery(p.FieldValue)
		mq.SetField(p.FieldName)
		return mq
	case KindBoolean:
		subQueries := make([]query.Query, 0, len(p.BooleanOperands))
		for _, operand := range p.BooleanOperands {
			subQueries = append(subQueries, buildQuery(operand))
		}
		if p.BooleanOp == "AND" {
			return bleve.NewConjunctionQuery(subQueries...)
		}
		return bleve.NewDisjunctionQuery(subQueries...)
	case KindFuzzy:
		fq := bleve.NewFuzzyQuery(p.FuzzyTerm)
		fq.Fuzziness = p.FuzzyDistance
		return fq
	default:
		return bleve.NewMatchQuery(p.Phrase)
	}
}
