package core

import "fmt"

// ElementLocator is a resolved, queryable reference to one page element.
// Owned by the app map entry that caches it.
type ElementLocator struct {
	Path          string `json:"path"`          // absolute element path, possibly crossing frames
	ComponentType string `json:"componentType"` // e.g. PushButton, EditBox, Window
	WindowID      string `json:"windowId"`
	IsDynamic     bool   `json:"isDynamic,omitempty"` // never trusted from cache
}

// String returns a short human-readable form.
func (l *ElementLocator) String() string {
	if l == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s[%s]@%s", l.ComponentType, l.Path, l.WindowID)
}

// FrameLocator describes one resolved frame boundary.
// Values are immutable once cached; lookups return copies.
type FrameLocator struct {
	PageURL           string   `json:"pageUrl,omitempty"` // top document the chain starts from
	SourceURL         string   `json:"sourceUrl"`         // absolute src of the innermost frame, "" when unreachable
	SwitchLocator     string   `json:"switchLocator"`     // name=X or index=N
	FullPathPrefix    string   `json:"fullPathPrefix"`    // path from the top document to the frame element
	RecognitionPrefix string   `json:"recognitionPrefix"` // Type=HTMLFrame;...;\; for every frame crossed
	ChildPathSuffix   string   `json:"childPathSuffix"`   // path left inside the innermost frame
	Chain             []string `json:"chain,omitempty"`   // switch locators from the top document down
	Depth             int      `json:"depth"`
}

// HasFrames reports whether the locator crosses at least one frame.
func (f FrameLocator) HasFrames() bool {
	return f.FullPathPrefix != ""
}

// WithChild returns a copy carrying a different child path.
func (f FrameLocator) WithChild(child string) FrameLocator {
	out := f
	out.Chain = append([]string(nil), f.Chain...)
	out.ChildPathSuffix = child
	return out
}
