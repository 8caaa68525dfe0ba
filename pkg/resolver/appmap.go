package resolver

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/recognizer/pkg/core"
)

// WindowEntry is one window of an application map file.
type WindowEntry struct {
	Recognition string            `yaml:"recognition"`
	Components  map[string]string `yaml:"components"`
}

// appMapFile is the on-disk form:
//
//	windows:
//	  LoginPage:
//	    recognition: "Type=Window;Caption={Login*}"
//	    components:
//	      Submit: "Type=PushButton;text=Sign in"
type appMapFile struct {
	Windows map[string]WindowEntry `yaml:"windows"`
}

// AppMap holds recognition strings by window and component name, plus the
// locators resolved for them. Names compare case-insensitively.
type AppMap struct {
	mu         sync.Mutex
	names      map[string]string // lower-case name -> declared name
	windows    map[string]WindowEntry
	windowLocs map[string]*core.ElementLocator
	compLocs   map[string]*core.ElementLocator
}

// NewAppMap creates an empty application map.
func NewAppMap() *AppMap {
	return &AppMap{
		names:      make(map[string]string),
		windows:    make(map[string]WindowEntry),
		windowLocs: make(map[string]*core.ElementLocator),
		compLocs:   make(map[string]*core.ElementLocator),
	}
}

// LoadAppMap reads an application map from a YAML file.
func LoadAppMap(path string) (*AppMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.ErrInvalidConfig.WithMessage("read app map " + path).WithCause(err)
	}
	return ParseAppMap(data, path)
}

// ParseAppMap parses application map YAML. path is only used in errors.
func ParseAppMap(data []byte, path string) (*AppMap, error) {
	var f appMapFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, core.ErrInvalidConfig.WithMessage("parse app map " + path).WithCause(err)
	}

	m := NewAppMap()
	for name, w := range f.Windows {
		if strings.TrimSpace(w.Recognition) == "" {
			return nil, core.ErrInvalidConfig.
				WithMessage(fmt.Sprintf("app map %s: window %q has no recognition", path, name))
		}
		m.AddWindow(name, w.Recognition)
		for comp, rs := range w.Components {
			m.AddComponent(name, comp, rs)
		}
	}
	return m, nil
}

// AddWindow declares a window.
func (m *AppMap) AddWindow(name, recognition string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(name)
	m.names[key] = name
	w := m.windows[key]
	w.Recognition = recognition
	m.windows[key] = w
}

// AddComponent declares a component of window, declaring the window with an
// empty recognition if needed.
func (m *AppMap) AddComponent(window, component, recognition string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(window)
	if _, ok := m.names[key]; !ok {
		m.names[key] = window
	}
	w := m.windows[key]
	if w.Components == nil {
		w.Components = make(map[string]string)
	}
	w.Components[strings.ToLower(component)] = recognition
	m.windows[key] = w
}

// WindowRecognition returns the recognition string of a window.
func (m *AppMap) WindowRecognition(window string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[strings.ToLower(window)]
	if !ok || w.Recognition == "" {
		return "", false
	}
	return w.Recognition, true
}

// ComponentRecognition returns the recognition string of a component.
func (m *AppMap) ComponentRecognition(window, component string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs, ok := m.windows[strings.ToLower(window)].Components[strings.ToLower(component)]
	return rs, ok
}

// Windows returns the declared window names, sorted.
func (m *AppMap) Windows() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.names))
	for _, n := range m.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// CachedWindow returns a copy of the window's resolved locator, or nil.
func (m *AppMap) CachedWindow(window string) *core.ElementLocator {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyLocator(m.windowLocs[strings.ToLower(window)])
}

// SetWindow caches a window locator; nil clears it.
func (m *AppMap) SetWindow(window string, loc *core.ElementLocator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(window)
	if loc == nil {
		delete(m.windowLocs, key)
		return
	}
	m.windowLocs[key] = copyLocator(loc)
}

// CachedComponent returns a copy of the component's resolved locator, or nil.
func (m *AppMap) CachedComponent(window, component string) *core.ElementLocator {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyLocator(m.compLocs[componentKey(window, component)])
}

// SetComponent caches a component locator; nil clears it.
func (m *AppMap) SetComponent(window, component string, loc *core.ElementLocator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := componentKey(window, component)
	if loc == nil {
		delete(m.compLocs, key)
		return
	}
	m.compLocs[key] = copyLocator(loc)
}

// Clear forgets every resolved locator. Recognition strings are kept.
func (m *AppMap) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windowLocs = make(map[string]*core.ElementLocator)
	m.compLocs = make(map[string]*core.ElementLocator)
}

func componentKey(window, component string) string {
	return strings.ToLower(window) + "\x00" + strings.ToLower(component)
}

func copyLocator(loc *core.ElementLocator) *core.ElementLocator {
	if loc == nil {
		return nil
	}
	cp := *loc
	return &cp
}
