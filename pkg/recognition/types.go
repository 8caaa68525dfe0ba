package recognition

import (
	"fmt"
	"strconv"
	"strings"
)

// Component types with special handling.
const (
	TypeWindow   = "Window"
	TypeFrame    = "HTMLFrame"
	TypeDocument = "HTMLDocument"
)

// Spec describes how a component type is expressed in markup.
type Spec struct {
	Tags    []string    // markup tags the type may render as
	Implied []Criterion // criteria prepended to the user's criteria
	Root    bool        // the type always resolves to the document root
}

var specs = map[string]Spec{
	"htmlframe":           {Tags: []string{"FRAME", "IFRAME"}},
	"htmllink":            {Tags: []string{"A"}},
	"htmldocument":        {Tags: []string{"HTML"}, Root: true},
	"window":              {Tags: []string{"HTML"}, Root: true},
	"htmltable":           {Tags: []string{"TABLE"}},
	"htmltablecell":       {Tags: []string{"TD", "TH"}},
	"htmltableheadercell": {Tags: []string{"TH"}},
	"htmlimage":           {Tags: []string{"IMG"}},
	"htmlmap":             {Tags: []string{"MAP"}},
	"htmlmaparea":         {Tags: []string{"AREA"}},
	"editbox":             {Tags: []string{"INPUT", "TEXTAREA"}, Implied: []Criterion{{"type", "text|password|undefined"}}},
	"checkbox":            {Tags: []string{"INPUT"}, Implied: []Criterion{{"type", "checkbox"}}},
	"radiobutton":         {Tags: []string{"INPUT"}, Implied: []Criterion{{"type", "radio"}}},
	"combobox":            {Tags: []string{"SELECT"}},
	"listbox":             {Tags: []string{"SELECT"}},
	"pushbutton":          {Tags: []string{"INPUT", "BUTTON"}, Implied: []Criterion{{"type", "submit|button"}}},
	"htmlhidden":          {Tags: []string{"INPUT"}, Implied: []Criterion{{"type", "hidden"}}},
	"html":                {Tags: []string{"DIV"}},
}

// ComponentSpec returns the markup description of a component type.
// Lookup is case-insensitive; ok is false for unknown types.
func ComponentSpec(componentType string) (Spec, bool) {
	s, ok := specs[strings.ToLower(strings.TrimSpace(componentType))]
	return s, ok
}

// KnownTypes lists the supported component types.
func KnownTypes() []string {
	return []string{
		"HTMLFrame", "HTMLLink", "HTMLDocument", "Window", "HTMLTable", "HTMLTableCell",
		"HTMLTableHeaderCell", "HTMLImage", "HTMLMap", "HTMLMapArea", "EditBox", "CheckBox",
		"RadioButton", "ComboBox", "ListBox", "PushButton", "HTMLHidden", "HTML",
	}
}

// IsFrame reports whether a component type denotes a frame.
func IsFrame(componentType string) bool {
	return strings.EqualFold(componentType, TypeFrame)
}

// attribute names as they appear in recognition strings, mapped to markup names
var attributeNames = map[string]string{
	"htmlid":    "id",
	"id":        "id",
	"name":      "name",
	"htmltitle": "title",
	"title":     "title",
	"htmltext":  "text",
	"text":      "text",
	"type":      "type",
}

// IndexCriterion is the criterion selecting the n-th (1-based) match.
const IndexCriterion = "Index"

// AttributeName maps a recognition attribute name to its markup name.
func AttributeName(name string) string {
	if mapped, ok := attributeNames[strings.ToLower(name)]; ok {
		return mapped
	}
	return name
}

// Query is a segment translated into matcher input.
type Query struct {
	Tags     []string
	Criteria []Criterion
	Index    int // 0-based
	Root     bool
}

// NormalizeCriteria maps attribute names to markup names and extracts Index=N.
// Only the criteria preceding the Index term take part in matching.
// The returned index is 0-based; it defaults to 0.
func NormalizeCriteria(criteria []Criterion) ([]Criterion, int, error) {
	out := make([]Criterion, 0, len(criteria))
	for _, c := range criteria {
		if strings.EqualFold(c.Name, IndexCriterion) {
			n, err := strconv.Atoi(strings.TrimSpace(c.Value))
			if err != nil || n < 1 {
				return nil, 0, malformed(c.String(), fmt.Sprintf("index %q is not a positive integer", c.Value))
			}
			return out, n - 1, nil
		}
		out = append(out, Criterion{Name: AttributeName(c.Name), Value: c.Value})
	}
	return out, 0, nil
}

// Query translates the segment into tags, criteria and index.
// ok is false when the segment's type is unknown.
func (s Segment) Query() (q Query, ok bool, err error) {
	spec, ok := ComponentSpec(s.Type)
	if !ok {
		return Query{}, false, nil
	}
	criteria, index, err := NormalizeCriteria(s.Criteria)
	if err != nil {
		return Query{}, true, err
	}
	q = Query{
		Tags:     append([]string(nil), spec.Tags...),
		Criteria: append(append([]Criterion(nil), spec.Implied...), criteria...),
		Index:    index,
		Root:     spec.Root,
	}
	return q, true, nil
}
