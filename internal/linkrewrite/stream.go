package linkrewrite

import (
	"bytes"
	"io"

	"golang.org/x/net/html"
)

// linkAttrs are the attributes rewritten when a tag's value resolves to a
// known local path.
var linkAttrs = map[string]bool{"href": true, "src": true}

// streamRewrite copies r to w token by token, never buffering the whole
// document: untouched tokens are copied via their verbatim raw bytes, and
// only start/self-closing tags carrying a rewritable href/src are
// re-serialised. resolve maps a link's current value to its replacement,
// returning ok=false to leave the attribute untouched.
func streamRewrite(r io.Reader, w io.Writer, resolve func(value string) (string, bool)) error {
	z := html.NewTokenizer(r)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err == io.EOF {
				return nil
			}
			return z.Err()
		}

		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			if _, err := w.Write(z.Raw()); err != nil {
				return err
			}
			continue
		}

		tok := z.Token()
		rewritten := false
		for i, attr := range tok.Attr {
			if !linkAttrs[attr.Key] {
				continue
			}
			if newVal, ok := resolve(attr.Val); ok {
				tok.Attr[i].Val = newVal
				rewritten = true
			}
		}

		if !rewritten {
			if _, err := w.Write(z.Raw()); err != nil {
				return err
			}
			continue
		}
		if _, err := w.Write([]byte(tok.String())); err != nil {
			return err
		}
	}
}

// RewriteBytes runs streamRewrite over an in-memory buffer; used for a
// page's own outgoing links at save time, where the content is already
// held in memory by the content saver.
func RewriteBytes(content []byte, resolve func(value string) (string, bool)) ([]byte, error) {
	var buf bytes.Buffer
	if err := streamRewrite(bytes.NewReader(content), &buf, resolve); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
