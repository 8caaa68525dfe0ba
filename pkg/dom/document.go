// Package dom holds parsed page documents and answers the queries the
// resolution engine needs: path lookup, tag selection, attribute values.
package dom

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// LiveQuery evaluates an attribute against the rendered page.
// It backs attribute lookups the static markup cannot answer.
type LiveQuery func(xpath, name string) (string, bool)

// Document is the parsed markup of one URL.
type Document struct {
	URL  string
	root *html.Node
	sel  *goquery.Document
}

// Element wraps one element node of a Document.
type Element struct {
	node *html.Node
}

// Parse builds a Document from markup.
func Parse(url, markup string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup of %s: %w", url, err)
	}
	return &Document{
		URL:  url,
		root: root,
		sel:  goquery.NewDocumentFromNode(root),
	}, nil
}

// Root returns the top-level element, normally HTML.
func (d *Document) Root() *Element {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return &Element{node: c}
		}
	}
	return nil
}

// Title returns the trimmed text of the document's TITLE element.
func (d *Document) Title() string {
	return strings.TrimSpace(d.sel.Find("title").First().Text())
}

// SelectAllByTag returns elements whose tag is in tags, in document order.
// "*" selects every element.
func (d *Document) SelectAllByTag(tags ...string) []*Element {
	want := make(map[string]bool, len(tags))
	all := false
	for _, t := range tags {
		if t == "*" {
			all = true
		}
		want[strings.ToUpper(t)] = true
	}

	var out []*Element
	d.sel.Find("*").Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		if all || want[strings.ToUpper(n.Data)] {
			out = append(out, &Element{node: n})
		}
	})
	return out
}

// SelectByXPath resolves an absolute element path such as /HTML/BODY/DIV[2]/A.
// A leading "//" is treated as "/", names compare case-insensitively and
// [n] selects the n-th same-name sibling (1-based). Returns nil if no element
// is found.
func (d *Document) SelectByXPath(path string) *Element {
	steps := splitPath(path)
	if len(steps) == 0 {
		return nil
	}

	cur := d.root
	for _, step := range steps {
		name, pos, ok := parseStep(step)
		if !ok {
			return nil
		}
		cur = nthChild(cur, name, pos)
		if cur == nil {
			return nil
		}
	}
	return &Element{node: cur}
}

// AttributeValue looks an attribute up in three tiers: exact name, a
// case-insensitive scan, then live, which may be nil. The live tier is only
// consulted when the markup yields nothing or an empty value.
func (d *Document) AttributeValue(el *Element, name string, live LiveQuery) (string, bool) {
	if el == nil {
		return "", false
	}
	if v, ok := el.Attr(name); ok && v != "" {
		return v, true
	}
	for _, a := range el.node.Attr {
		if strings.EqualFold(a.Key, name) && a.Val != "" {
			return a.Val, true
		}
	}
	if live != nil {
		if v, ok := live(el.UniquePath(), name); ok {
			return v, true
		}
	}
	if v, ok := el.Attr(name); ok {
		return v, true
	}
	return "", false
}

// Tag returns the upper-case element name.
func (e *Element) Tag() string {
	return strings.ToUpper(e.node.Data)
}

// Attr returns the attribute with exactly the given name.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// AttrFold returns the first attribute whose name matches case-insensitively.
func (e *Element) AttrFold(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// Attributes returns the element's attributes in markup order.
func (e *Element) Attributes() []html.Attribute {
	return append([]html.Attribute(nil), e.node.Attr...)
}

// Text returns the trimmed text content of the element and its descendants.
func (e *Element) Text() string {
	return strings.TrimSpace(goquery.NewDocumentFromNode(e.node).Text())
}

// Node exposes the underlying parse tree node.
func (e *Element) Node() *html.Node {
	return e.node
}

// UniquePath returns the element's absolute path. Steps carry a [n] suffix
// only when the parent has more than one child of the same name.
func (e *Element) UniquePath() string {
	var steps []string
	for n := e.node; n != nil && n.Type == html.ElementNode; n = n.Parent {
		step := strings.ToUpper(n.Data)
		if n.Parent != nil {
			pos, count := siblingPosition(n)
			if count > 1 {
				step += "[" + strconv.Itoa(pos) + "]"
			}
		}
		steps = append(steps, step)
	}

	var b strings.Builder
	for i := len(steps) - 1; i >= 0; i-- {
		b.WriteString("/")
		b.WriteString(steps[i])
	}
	return b.String()
}

// siblingPosition returns n's 1-based position among same-name element
// siblings and the number of such siblings.
func siblingPosition(n *html.Node) (pos, count int) {
	for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
		if s.Type != html.ElementNode || !strings.EqualFold(s.Data, n.Data) {
			continue
		}
		count++
		if s == n {
			pos = count
		}
	}
	return pos, count
}

func nthChild(parent *html.Node, name string, pos int) *html.Node {
	seen := 0
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if name != "*" && !strings.EqualFold(c.Data, name) {
			continue
		}
		seen++
		if seen == pos {
			return c
		}
	}
	return nil
}

func splitPath(path string) []string {
	path = strings.TrimSpace(path)
	path = strings.TrimLeft(path, "/")
	path = strings.TrimRight(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// parseStep parses "DIV" or "DIV[2]".
func parseStep(step string) (name string, pos int, ok bool) {
	open := strings.IndexByte(step, '[')
	if open < 0 {
		return step, 1, step != ""
	}
	if !strings.HasSuffix(step, "]") {
		return "", 0, false
	}
	n, err := strconv.Atoi(step[open+1 : len(step)-1])
	if err != nil || n < 1 {
		return "", 0, false
	}
	return step[:open], n, open > 0
}
