package mdconvert

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

/*
Code-block protection keeps <pre> content byte-for-byte intact through the
Markdown conversion. html-to-markdown/v2, like every HTML parser, collapses
runs of whitespace inside ordinary text nodes - that's fine for prose but
destroys leading indentation in shell commands and blank lines in source
listings. Each <pre> subtree is pulled out of the DOM before conversion,
rendered into its final fenced form up front, and dropped back into a plain
text node carrying an all-alphanumeric marker that no Markdown escaping
pass will touch. After conversion the marker is string-replaced with the
pre-rendered fence, verbatim.
*/

type protectedBlock struct {
	marker   string
	rendered string
}

const codeMarkerPrefix = "CSCRPREBLOCK"
const codeMarkerSuffix = "ENDBLOCK"

// protectCodeBlocks clones doc, replaces every <pre> subtree with a unique
// text marker, and returns the clone plus the rendered fenced blocks keyed
// by marker so the caller can restore them after conversion.
func protectCodeBlocks(doc *html.Node) (*html.Node, []protectedBlock) {
	if doc == nil {
		return doc, nil
	}

	docQuery := goquery.NewDocumentFromNode(doc)
	cloned := goquery.CloneDocument(docQuery)
	root := cloned.Get(0)

	var blocks []protectedBlock
	var pres []*html.Node
	cloned.Find("pre").Each(func(_ int, s *goquery.Selection) {
		if node := s.Get(0); node != nil {
			pres = append(pres, node)
		}
	})

	for i, pre := range pres {
		content := textContent(pre)
		content = strings.TrimRight(content, "\n")
		lang := detectLanguage(pre)
		rendered := renderFencedBlock(content, lang)

		marker := codeMarkerPrefix + strconv.Itoa(i) + codeMarkerSuffix
		replacement := &html.Node{
			Type: html.TextNode,
			Data: marker,
		}
		if pre.Parent != nil {
			pre.Parent.InsertBefore(replacement, pre)
			pre.Parent.RemoveChild(pre)
		}

		blocks = append(blocks, protectedBlock{marker: marker, rendered: rendered})
	}

	return root, blocks
}

// restoreCodeBlocks substitutes each marker left by protectCodeBlocks with
// its pre-rendered fenced block.
func restoreCodeBlocks(markdown string, blocks []protectedBlock) string {
	for _, b := range blocks {
		markdown = strings.ReplaceAll(markdown, b.marker, "\n\n"+b.rendered+"\n\n")
	}
	return markdown
}

// textContent concatenates every text node under n in document order,
// preserving whitespace exactly as authored.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			return
		}
		if node.Type == html.ElementNode && node.Data == "br" {
			sb.WriteString("\n")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

var langClassRE = regexp.MustCompile(`(?:language|lang|hljs)-([\w+-]+)|brush:\s*([\w+-]+)`)

// detectLanguage inspects the pre element and its first code child for a
// class hint (language-X, lang-X, hljs-X, brush:X), per the spec's
// recognised attribute conventions.
func detectLanguage(pre *html.Node) string {
	if lang := languageFromAttrs(pre); lang != "" {
		return lang
	}
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "code" {
			if lang := languageFromAttrs(c); lang != "" {
				return lang
			}
		}
	}
	return ""
}

func languageFromAttrs(n *html.Node) string {
	for _, attr := range n.Attr {
		if attr.Key != "class" && attr.Key != "data-language" {
			continue
		}
		if attr.Key == "data-language" && strings.TrimSpace(attr.Val) != "" {
			return attr.Val
		}
		m := langClassRE.FindStringSubmatch(attr.Val)
		if m != nil {
			if m[1] != "" {
				return m[1]
			}
			if m[2] != "" {
				return m[2]
			}
		}
	}
	return ""
}

// renderFencedBlock builds a fenced code block whose fence is strictly
// longer than the longest run of backticks already present in content, so
// the enclosed block is never terminated early by its own content.
func renderFencedBlock(content, lang string) string {
	fenceLen := longestBacktickRun(content) + 1
	if fenceLen < 3 {
		fenceLen = 3
	}
	fence := strings.Repeat("`", fenceLen)
	return fence + lang + "\n" + content + "\n" + fence
}

func longestBacktickRun(content string) int {
	longest, current := 0, 0
	for _, r := range content {
		if r == '`' {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return longest
}
