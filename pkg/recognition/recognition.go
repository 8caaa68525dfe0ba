// Package recognition parses recognition strings stored in application maps.
//
// A recognition string identifies one GUI component by type and attribute
// criteria, optionally crossing nested frames:
//
//	Type=HTMLFrame;name=frame1;\;Type=PushButton;text=OK
//
// Segments are separated by the literal ";\;" and ordered outermost frame
// first, target component last.
package recognition

import (
	"fmt"
	"strings"

	"github.com/devicelab-dev/recognizer/pkg/core"
)

// Recognition string syntax.
const (
	LevelSeparator  = `;\;`
	PartSeparator   = ";"
	AssignSeparator = "="
	TypePrefix      = "Type="
	DefaultType     = "HTML"

	// TaggedPrefix separates app map service tags from the recognition proper:
	// ISDYNAMIC;RECOGNITION=Type=...
	TaggedPrefix  = ";RECOGNITION="
	DynamicTag    = "ISDYNAMIC"
	CurrentWindow = "CurrentWindow"
)

// Criterion is one Name=Value attribute test.
type Criterion struct {
	Name  string
	Value string
}

func (c Criterion) String() string {
	return c.Name + AssignSeparator + c.Value
}

// Segment is one frame level of a recognition string.
type Segment struct {
	Type     string
	Criteria []Criterion
}

// String renders the segment in canonical form.
func (s Segment) String() string {
	var b strings.Builder
	b.WriteString(TypePrefix)
	b.WriteString(s.Type)
	for _, c := range s.Criteria {
		b.WriteString(PartSeparator)
		b.WriteString(c.String())
	}
	return b.String()
}

// Recognition is a parsed recognition string.
type Recognition struct {
	Raw       string
	Segments  []Segment
	IsDynamic bool
}

// String renders the canonical form, without the dynamic tag.
func (r *Recognition) String() string {
	parts := make([]string, len(r.Segments))
	for i, s := range r.Segments {
		parts[i] = s.String()
	}
	return strings.Join(parts, LevelSeparator)
}

// Target returns the innermost segment.
func (r *Recognition) Target() Segment {
	return r.Segments[len(r.Segments)-1]
}

// IsDynamic reports whether a raw app map value is tagged dynamic.
// "CurrentWindow" is always dynamic.
func IsDynamic(raw string) bool {
	if i := strings.Index(raw, TaggedPrefix); i > 0 {
		return strings.Contains(strings.ToUpper(raw[:i]), DynamicTag)
	}
	return strings.EqualFold(strings.TrimSpace(raw), CurrentWindow)
}

// StripTags returns the recognition portion of a possibly tagged value.
func StripTags(raw string) string {
	if i := strings.Index(raw, TaggedPrefix); i > 0 {
		return raw[i+len(TaggedPrefix):]
	}
	return raw
}

// Parse splits a recognition string into ordered segments.
// A part that is not a Name=Value pair fails with core.ErrMalformedRecognition.
func Parse(raw string) (*Recognition, error) {
	rec := &Recognition{
		Raw:       raw,
		IsDynamic: IsDynamic(raw),
	}

	rs := strings.TrimSpace(stripQuotes(StripTags(raw)))
	if rs == "" {
		return nil, malformed(raw, "empty recognition string")
	}
	if !hasTypePrefix(rs) {
		rs = TypePrefix + DefaultType + PartSeparator + rs
	}

	for _, level := range strings.Split(rs, LevelSeparator) {
		level = strings.TrimSpace(level)
		if level == "" {
			continue
		}
		seg, err := parseSegment(raw, level)
		if err != nil {
			return nil, err
		}
		rec.Segments = append(rec.Segments, seg)
	}

	if len(rec.Segments) == 0 {
		return nil, malformed(raw, "no segments")
	}
	return rec, nil
}

func parseSegment(raw, level string) (Segment, error) {
	seg := Segment{Type: DefaultType}
	parts := strings.Split(level, PartSeparator)

	start := 0
	if hasTypePrefix(parts[0]) {
		seg.Type = strings.TrimSpace(parts[0][len(TypePrefix):])
		if seg.Type == "" {
			return Segment{}, malformed(raw, "empty Type")
		}
		start = 1
	}

	for _, part := range parts[start:] {
		if strings.TrimSpace(part) == "" {
			continue
		}
		name, value, ok := strings.Cut(part, AssignSeparator)
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return Segment{}, malformed(raw, fmt.Sprintf("%q is not a name=value pair", part))
		}
		seg.Criteria = append(seg.Criteria, Criterion{Name: name, Value: value})
	}
	return seg, nil
}

func hasTypePrefix(s string) bool {
	return len(s) >= len(TypePrefix) && strings.EqualFold(s[:len(TypePrefix)], TypePrefix)
}

// stripQuotes removes every double quote; quotes are never part of a name or
// value.
func stripQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, "")
}

func malformed(raw, why string) error {
	return core.ErrMalformedRecognition.
		WithMessage(fmt.Sprintf("malformed recognition string %q: %s", raw, why)).
		WithDetails(map[string]interface{}{"recognition": raw})
}
