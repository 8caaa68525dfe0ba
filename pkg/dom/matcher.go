package dom

import (
	"strings"

	"github.com/devicelab-dev/recognizer/pkg/recognition"
)

// Strategy selects the lenient retry applied when a first match pass fails.
type Strategy int

const (
	// StrategyCompat retries against every tag when the first criterion is
	// id or name, otherwise retries the same tags with partial matching.
	StrategyCompat Strategy = iota
	// StrategyExact never retries.
	StrategyExact
	// StrategyPartial always retries the same tags with partial matching.
	StrategyPartial
)

// String returns the strategy name used in config files.
func (s Strategy) String() string {
	switch s {
	case StrategyCompat:
		return "compat"
	case StrategyExact:
		return "exact"
	case StrategyPartial:
		return "partial"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a config name to a Strategy. "" selects StrategyCompat.
func ParseStrategy(name string) (Strategy, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "compat":
		return StrategyCompat, true
	case "exact":
		return StrategyExact, true
	case "partial":
		return StrategyPartial, true
	default:
		return StrategyCompat, false
	}
}

// undefinedValue in a criterion value lets a missing attribute match.
const undefinedValue = "undefined"

// Matcher finds elements satisfying recognition criteria.
type Matcher struct {
	Strategy Strategy
}

// Match returns the unique path of the index-th (0-based) element among tags
// that satisfies every criterion, or "" when none does. A failed first pass
// (secondary false) with criteria present is retried once per m.Strategy.
func (m Matcher) Match(doc *Document, tags []string, criteria []recognition.Criterion, index int, secondary, partial bool) string {
	matched := 0
	for _, el := range doc.SelectAllByTag(tags...) {
		if !CheckAttributes(el, criteria, partial) {
			continue
		}
		if matched == index {
			return el.UniquePath()
		}
		matched++
	}

	if secondary || len(criteria) == 0 {
		return ""
	}

	switch m.Strategy {
	case StrategyExact:
		return ""
	case StrategyPartial:
		return m.Match(doc, tags, criteria, index, true, true)
	default:
		first := criteria[0].Name
		if first == "id" || first == "name" {
			return m.Match(doc, []string{"*"}, criteria, index, true, false)
		}
		return m.Match(doc, tags, criteria, index, true, true)
	}
}

// Match runs a StrategyCompat matcher.
func Match(doc *Document, tags []string, criteria []recognition.Criterion, index int, secondary, partial bool) string {
	return Matcher{}.Match(doc, tags, criteria, index, secondary, partial)
}

// CheckAttributes reports whether el satisfies every criterion. An empty
// criteria list matches everything.
//
// Values may list alternatives separated by '|'. A value containing
// "undefined" also accepts a missing attribute. The criterion "text" falls
// back to the element's trimmed text, then its value, then its alt attribute.
// "type" with a text value matches TEXTAREA, which has no type attribute, and
// a BUTTON without one has type submit.
func CheckAttributes(el *Element, criteria []recognition.Criterion, partial bool) bool {
	for _, c := range criteria {
		if !checkCriterion(el, c, partial) {
			return false
		}
	}
	return true
}

func checkCriterion(el *Element, c recognition.Criterion, partial bool) bool {
	undef := strings.EqualFold(c.Value, undefinedValue) ||
		(strings.Contains(c.Value, "|") && strings.Contains(c.Value, undefinedValue))

	attr, present := el.AttrFold(c.Name)
	if !present && strings.EqualFold(c.Name, "type") && el.Tag() == "BUTTON" {
		attr, present = "submit", true
	}
	if present && valueMatches(c.Value, attr, partial) {
		return true
	}
	if !present && undef {
		return true
	}

	if strings.EqualFold(c.Name, "text") && textMatches(el, c.Value, partial) {
		return true
	}

	if strings.EqualFold(c.Name, "type") && strings.Contains(c.Value, "text") && el.Tag() == "TEXTAREA" {
		return true
	}
	return false
}

func valueMatches(value, attr string, partial bool) bool {
	if strings.EqualFold(value, attr) {
		return true
	}
	for _, alt := range strings.Split(value, "|") {
		if strings.EqualFold(alt, attr) {
			return true
		}
		if partial && attr != "" && strings.Contains(strings.ToLower(alt), strings.ToLower(attr)) {
			return true
		}
	}
	return false
}

func textMatches(el *Element, value string, partial bool) bool {
	text := el.Text()
	if text == "" {
		text, _ = el.Attr("value")
	}
	if text == "" {
		text, _ = el.Attr("alt")
	}
	text = collapseSpace(text)
	value = collapseSpace(value)

	if value == text {
		return true
	}
	return partial && text != "" && (strings.Contains(value, text) || strings.Contains(text, value))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Index returns el's 1-based position among same-tag elements in document
// order. INPUT elements only count others with the same type, or with no type
// when el has none.
func Index(doc *Document, el *Element) int {
	tag := el.Tag()
	typ, hasType := el.AttrFold("type")

	n := 0
	for _, other := range doc.SelectAllByTag(tag) {
		if tag == "INPUT" {
			otherType, otherHas := other.AttrFold("type")
			if otherHas != hasType || !strings.EqualFold(otherType, typ) {
				continue
			}
		}
		n++
		if other.node == el.node {
			return n
		}
	}
	return -1
}

// FrameIndex returns el's 1-based position among FRAME and IFRAME elements,
// or -1 if el is not one of them.
func FrameIndex(doc *Document, el *Element) int {
	for i, f := range doc.SelectAllByTag("FRAME", "IFRAME") {
		if f.node == el.node {
			return i + 1
		}
	}
	return -1
}

// AllPaths returns the unique paths of every element among tags.
func AllPaths(doc *Document, tags ...string) []string {
	els := doc.SelectAllByTag(tags...)
	out := make([]string, len(els))
	for i, el := range els {
		out[i] = el.UniquePath()
	}
	return out
}
