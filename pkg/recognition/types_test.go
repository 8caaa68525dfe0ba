package recognition

import (
	"reflect"
	"testing"
)

func TestComponentSpec(t *testing.T) {
	tests := []struct {
		typ     string
		tags    []string
		implied int
		root    bool
	}{
		{"HTMLFrame", []string{"FRAME", "IFRAME"}, 0, false},
		{"editbox", []string{"INPUT", "TEXTAREA"}, 1, false},
		{"PushButton", []string{"INPUT", "BUTTON"}, 1, false},
		{"CheckBox", []string{"INPUT"}, 1, false},
		{"ComboBox", []string{"SELECT"}, 0, false},
		{"Window", []string{"HTML"}, 0, true},
		{"HTML", []string{"DIV"}, 0, false},
	}
	for _, tt := range tests {
		spec, ok := ComponentSpec(tt.typ)
		if !ok {
			t.Errorf("%s: expected known type", tt.typ)
			continue
		}
		if !reflect.DeepEqual(spec.Tags, tt.tags) {
			t.Errorf("%s: expected tags %v, got %v", tt.typ, tt.tags, spec.Tags)
		}
		if len(spec.Implied) != tt.implied {
			t.Errorf("%s: expected %d implied criteria, got %d", tt.typ, tt.implied, len(spec.Implied))
		}
		if spec.Root != tt.root {
			t.Errorf("%s: expected root=%v", tt.typ, tt.root)
		}
	}

	if _, ok := ComponentSpec("JavaTree"); ok {
		t.Error("expected unknown type")
	}
	for _, typ := range KnownTypes() {
		if _, ok := ComponentSpec(typ); !ok {
			t.Errorf("KnownTypes lists %s but it has no spec", typ)
		}
	}
}

func TestNormalizeCriteria(t *testing.T) {
	criteria, index, err := NormalizeCriteria([]Criterion{
		{"HTMLId", "user"},
		{"Text", "Go"},
		{"class", "btn"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Criterion{{"id", "user"}, {"text", "Go"}, {"class", "btn"}}
	if !reflect.DeepEqual(criteria, want) {
		t.Errorf("expected %v, got %v", want, criteria)
	}
	if index != 0 {
		t.Errorf("expected index 0, got %d", index)
	}
}

func TestNormalizeCriteria_Index(t *testing.T) {
	criteria, index, err := NormalizeCriteria([]Criterion{
		{"HTMLTitle", "help"},
		{"Index", "3"},
		{"name", "ignored"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if index != 2 {
		t.Errorf("expected 0-based index 2, got %d", index)
	}
	if len(criteria) != 1 || criteria[0] != (Criterion{"title", "help"}) {
		t.Errorf("expected only criteria before Index, got %v", criteria)
	}

	for _, bad := range []string{"0", "-1", "two"} {
		if _, _, err := NormalizeCriteria([]Criterion{{"Index", bad}}); err == nil {
			t.Errorf("Index=%s: expected error", bad)
		}
	}
}

func TestSegmentQuery(t *testing.T) {
	seg := Segment{Type: "EditBox", Criteria: []Criterion{{"name", "q"}, {"Index", "2"}}}
	q, ok, err := seg.Query()
	if err != nil || !ok {
		t.Fatalf("unexpected result ok=%v err=%v", ok, err)
	}
	want := []Criterion{{"type", "text|password|undefined"}, {"name", "q"}}
	if !reflect.DeepEqual(q.Criteria, want) {
		t.Errorf("expected %v, got %v", want, q.Criteria)
	}
	if q.Index != 1 {
		t.Errorf("expected index 1, got %d", q.Index)
	}

	if _, ok, _ := (Segment{Type: "Unknown"}).Query(); ok {
		t.Error("expected unknown type to report ok=false")
	}
}
