package rewrite

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true,
	"meta": true, "param": true, "source": true, "track": true, "wbr": true,
}

var rawTextElements = map[string]bool{
	"iframe": true, "noembed": true, "noframes": true, "noscript": true,
	"plaintext": true, "script": true, "style": true, "xmp": true,
}

// source records what a parsed node looked like in the input, so untouched
// nodes can be written back byte for byte.
type source struct {
	full        string
	startTag    string
	endTag      string
	selfClosing bool
	data        string
	attr        []html.Attribute
	children    []*html.Node
}

// Fragment is a mutable HTML tree built from a markup fragment without the
// implied document structure an HTML5 parser would add.
type Fragment struct {
	root    *html.Node
	src     string
	sources map[*html.Node]*source
}

type openElement struct {
	node  *html.Node
	start int
}

func Parse(body string) (*Fragment, error) {
	f := &Fragment{
		root:    &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body},
		src:     body,
		sources: make(map[*html.Node]*source),
	}

	stack := []openElement{{node: f.root}}
	top := func() *html.Node { return stack[len(stack)-1].node }

	z := html.NewTokenizer(strings.NewReader(body))
	offset := 0
	for {
		tt := z.Next()
		raw := string(z.Raw())
		start := offset
		offset += len(raw)

		if tt == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("failed to tokenize body: %w", err)
			}
			if start < len(body) {
				f.appendLeaf(top(), &html.Node{Type: html.RawNode, Data: body[start:]}, body[start:])
			}
			break
		}

		tok := z.Token()
		switch tt {
		case html.TextToken:
			f.appendLeaf(top(), &html.Node{Type: html.TextNode, Data: tok.Data}, raw)
		case html.CommentToken:
			f.appendLeaf(top(), &html.Node{Type: html.CommentNode, Data: tok.Data}, raw)
		case html.DoctypeToken:
			f.appendLeaf(top(), &html.Node{Type: html.DoctypeNode, Data: tok.Data}, raw)
		case html.StartTagToken, html.SelfClosingTagToken:
			n := &html.Node{Type: html.ElementNode, Data: tok.Data, DataAtom: tok.DataAtom, Attr: tok.Attr}
			top().AppendChild(n)
			selfClosing := tt == html.SelfClosingTagToken
			f.sources[n] = &source{startTag: raw, selfClosing: selfClosing}
			if selfClosing || voidElements[tok.Data] {
				f.sources[n].full = raw
				continue
			}
			stack = append(stack, openElement{node: n, start: start})
		case html.EndTagToken:
			i := len(stack) - 1
			for ; i > 0; i-- {
				if stack[i].node.Data == tok.Data {
					break
				}
			}
			if i == 0 {
				// Stray end tag, kept verbatim.
				f.appendLeaf(top(), &html.Node{Type: html.RawNode, Data: raw}, raw)
				continue
			}
			for j := len(stack) - 1; j > i; j-- {
				f.sources[stack[j].node].full = body[stack[j].start:start]
			}
			el := stack[i]
			f.sources[el.node].endTag = raw
			f.sources[el.node].full = body[el.start:offset]
			stack = stack[:i]
		}
	}

	for j := len(stack) - 1; j > 0; j-- {
		f.sources[stack[j].node].full = body[stack[j].start:]
	}

	f.snapshot(f.root)
	return f, nil
}

func (f *Fragment) appendLeaf(parent, n *html.Node, raw string) {
	parent.AppendChild(n)
	f.sources[n] = &source{full: raw}
}

func (f *Fragment) snapshot(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		f.snapshot(c)
	}
	src, ok := f.sources[n]
	if !ok {
		return
	}
	src.data = n.Data
	src.attr = append([]html.Attribute(nil), n.Attr...)
	src.children = childList(n)
}

func childList(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// Root is the synthetic container holding the fragment's top-level nodes.
func (f *Fragment) Root() *html.Node {
	return f.root
}

// Document wraps the fragment for goquery traversal.
func (f *Fragment) Document() *goquery.Document {
	return goquery.NewDocumentFromNode(f.root)
}

// Select returns every element matching the CSS selector, in document
// order, each as its own live selection.
func (f *Fragment) Select(selector string) ([]*goquery.Selection, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to compile selector %q: %w", selector, err)
	}

	var out []*goquery.Selection
	f.Document().FindMatcher(sel).Each(func(_ int, s *goquery.Selection) {
		out = append(out, s)
	})
	return out, nil
}

// Render serializes the tree. Nodes left untouched since parsing are written
// exactly as they appeared in the input.
func (f *Fragment) Render() (string, error) {
	var buf bytes.Buffer
	clean := make(map[*html.Node]bool)
	for c := f.root.FirstChild; c != nil; c = c.NextSibling {
		if err := f.render(&buf, c, clean); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func (f *Fragment) isClean(n *html.Node, memo map[*html.Node]bool) bool {
	if v, ok := memo[n]; ok {
		return v
	}

	clean := !f.changed(n)
	if clean {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !f.isClean(c, memo) {
				clean = false
				break
			}
		}
	}
	memo[n] = clean
	return clean
}

func (f *Fragment) changed(n *html.Node) bool {
	src, ok := f.sources[n]
	if !ok {
		return true
	}
	if src.data != n.Data || !sameAttrs(src.attr, n.Attr) {
		return true
	}

	c := n.FirstChild
	for _, orig := range src.children {
		if c != orig {
			return true
		}
		c = c.NextSibling
	}
	return c != nil
}

func sameAttrs(a, b []html.Attribute) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (f *Fragment) render(w *bytes.Buffer, n *html.Node, memo map[*html.Node]bool) error {
	src, known := f.sources[n]
	if known && f.isClean(n, memo) {
		w.WriteString(src.full)
		return nil
	}

	switch n.Type {
	case html.TextNode:
		if n.Parent != nil && rawTextElements[n.Parent.Data] {
			w.WriteString(n.Data)
		} else {
			w.WriteString(html.EscapeString(n.Data))
		}
		return nil
	case html.ElementNode:
		return f.renderElement(w, n, src, memo)
	case html.CommentNode:
		w.WriteString("<!--")
		w.WriteString(n.Data)
		w.WriteString("-->")
		return nil
	default:
		return html.Render(w, n)
	}
}

func (f *Fragment) renderElement(w *bytes.Buffer, n *html.Node, src *source, memo map[*html.Node]bool) error {
	sameTag := src != nil && src.data == n.Data
	if sameTag && sameAttrs(src.attr, n.Attr) {
		w.WriteString(src.startTag)
	} else {
		writeStartTag(w, n, src != nil && src.selfClosing)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := f.render(w, c, memo); err != nil {
			return err
		}
	}

	switch {
	case sameTag:
		w.WriteString(src.endTag)
	case src != nil && src.selfClosing:
	case voidElements[n.Data] && n.FirstChild == nil:
	default:
		w.WriteString("</")
		w.WriteString(n.Data)
		w.WriteString(">")
	}
	return nil
}

func writeStartTag(w *bytes.Buffer, n *html.Node, selfClosing bool) {
	w.WriteByte('<')
	w.WriteString(n.Data)
	for _, a := range n.Attr {
		w.WriteByte(' ')
		if a.Namespace != "" {
			w.WriteString(a.Namespace)
			w.WriteByte(':')
		}
		w.WriteString(a.Key)
		w.WriteString(`="`)
		w.WriteString(html.EscapeString(a.Val))
		w.WriteByte('"')
	}
	if selfClosing {
		w.WriteString(" /")
	}
	w.WriteByte('>')
}
