package mdconvert

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

/*
Heading extraction walks the sanitized content node for h1-h6 elements in
document order and assigns each one a hierarchical ordinal: the n-th heading
at level L gets the vector [a1...aL], where aL is the count of level-L
headings seen so far under the current level-(L-1) parent. Dropping one
level down resets every deeper counter; rising back up reuses whatever
counter was already accumulated at that level.
*/

type Heading struct {
	Level    int
	Text     string
	AnchorID string
	Ordinal  []int
}

func NewHeading(level int, text, anchorID string, ordinal []int) Heading {
	return Heading{Level: level, Text: text, AnchorID: anchorID, Ordinal: ordinal}
}

// ExtractHeadings walks doc in document order and returns every h1-h6 it
// finds along with its hierarchical ordinal. Anchor ids are taken from the
// element's own id attribute when present, otherwise derived by slugifying
// the heading text; collisions are disambiguated with a numeric suffix.
func ExtractHeadings(doc *html.Node) []Heading {
	if doc == nil {
		return nil
	}

	docQuery := goquery.NewDocumentFromNode(doc)

	var headings []Heading
	counters := [6]int{}
	seenAnchors := make(map[string]int)

	docQuery.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		if node == nil {
			return
		}
		level := headingLevel(node.Data)
		if level < 1 || level > 6 {
			return
		}

		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}

		counters[level-1]++
		for i := level; i < 6; i++ {
			counters[i] = 0
		}
		ordinal := make([]int, level)
		copy(ordinal, counters[:level])

		anchor, hasID := s.Attr("id")
		if !hasID || strings.TrimSpace(anchor) == "" {
			anchor = slugify(text)
		}
		anchor = disambiguateAnchor(anchor, seenAnchors)

		headings = append(headings, NewHeading(level, text, anchor, ordinal))
	})

	return headings
}

// FirstH1 returns the text of the first h1 encountered, if any.
func FirstH1(headings []Heading) (string, bool) {
	for _, h := range headings {
		if h.Level == 1 {
			return h.Text, true
		}
	}
	return "", false
}

func headingLevel(tag string) int {
	if len(tag) != 2 || tag[0] != 'h' {
		return 0
	}
	return int(tag[1] - '0')
}

var slugNonWordRE = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(text string) string {
	lowered := strings.ToLower(text)
	slug := slugNonWordRE.ReplaceAllString(lowered, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "section"
	}
	return slug
}

func disambiguateAnchor(anchor string, seen map[string]int) string {
	count, exists := seen[anchor]
	seen[anchor] = count + 1
	if !exists {
		return anchor
	}
	return anchor + "-" + strconv.Itoa(count)
}
