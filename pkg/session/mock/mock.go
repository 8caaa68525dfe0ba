// Package mock provides an in-memory browser session for testing without a
// real browser.
package mock

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/devicelab-dev/recognizer/pkg/core"
	"github.com/devicelab-dev/recognizer/pkg/dom"
)

// Config configures mock session behavior.
type Config struct {
	// SwitchDelay makes SwitchToWindow block this long, or until its context
	// is done.
	SwitchDelay time.Duration
	// CallDelay adds artificial delay to every call.
	CallDelay time.Duration
}

type window struct {
	id    string
	title string
	url   string
}

// Session is a mock implementation of core.BrowserSession.
// Pages are held as markup keyed by URL; frames are followed through their
// src attributes.
type Session struct {
	Config Config

	mu       sync.Mutex
	pages    map[string]string
	windows  []*window
	current  string
	frameURL string // "" while the top document is selected
	live     map[string]string
	calls    map[string]int
}

var _ core.BrowserSession = (*Session)(nil)

// New creates an empty mock session.
func New(cfg Config) *Session {
	return &Session{
		Config: cfg,
		pages:  make(map[string]string),
		live:   make(map[string]string),
		calls:  make(map[string]int),
	}
}

// SetPage stores or replaces the markup served for url.
func (s *Session) SetPage(url, markup string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[url] = markup
}

// OpenWindow adds a window showing url. The first window becomes current.
func (s *Session) OpenWindow(id, title, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = append(s.windows, &window{id: id, title: title, url: url})
	if s.current == "" {
		s.current = id
	}
}

// CloseWindow removes a window.
func (s *Session) CloseWindow(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.windows {
		if w.id == id {
			s.windows = append(s.windows[:i], s.windows[i+1:]...)
			break
		}
	}
	if s.current == id {
		s.current = ""
	}
}

// Navigate points a window at a new url.
func (s *Session) Navigate(id, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w := s.window(id); w != nil {
		w.url = url
	}
}

// SetLiveAttribute makes AttributeValue report value for xpath and name,
// standing in for script-modified state the markup does not show.
func (s *Session) SetLiveAttribute(xpath, name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[xpath+"@"+strings.ToLower(name)] = value
}

// Calls returns how many times the named method was called.
func (s *Session) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// CurrentWindow returns the id of the current window.
func (s *Session) CurrentWindow(ctx context.Context) (string, error) {
	s.enter("CurrentWindow")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.window(s.current) == nil {
		return "", fmt.Errorf("no current window")
	}
	return s.current, nil
}

// FrameURL returns the document url of the selected frame, "" at the top.
func (s *Session) FrameURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameURL
}

func (s *Session) enter(method string) {
	if s.Config.CallDelay > 0 {
		time.Sleep(s.Config.CallDelay)
	}
	s.mu.Lock()
	s.calls[method]++
	s.mu.Unlock()
}

// CurrentURL returns the url of the current window.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	s.enter("CurrentURL")
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.window(s.current)
	if w == nil {
		return "", fmt.Errorf("no current window")
	}
	return w.url, nil
}

// PageMarkup returns the markup stored for url.
func (s *Session) PageMarkup(ctx context.Context, url string) (string, error) {
	s.enter("PageMarkup")
	s.mu.Lock()
	defer s.mu.Unlock()
	markup, ok := s.pages[url]
	if !ok {
		return "", fmt.Errorf("no page loaded from %s", url)
	}
	return markup, nil
}

// AttributeValue evaluates name on the element at xpath in the selected frame.
// Live attributes set with SetLiveAttribute take precedence.
func (s *Session) AttributeValue(ctx context.Context, xpath, name string) (string, bool, error) {
	s.enter("AttributeValue")
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.live[xpath+"@"+strings.ToLower(name)]; ok {
		return v, true, nil
	}
	doc, err := s.selectedDocument()
	if err != nil {
		return "", false, err
	}
	el := doc.SelectByXPath(xpath)
	if el == nil {
		return "", false, nil
	}
	v, ok := el.AttrFold(name)
	return v, ok, nil
}

// SwitchToWindow makes id current. It honors Config.SwitchDelay.
func (s *Session) SwitchToWindow(ctx context.Context, id string) (bool, error) {
	s.enter("SwitchToWindow")
	if s.Config.SwitchDelay > 0 {
		select {
		case <-time.After(s.Config.SwitchDelay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.window(id) == nil {
		return false, nil
	}
	s.current = id
	s.frameURL = ""
	return true, nil
}

// SwitchToFrame selects a frame of the selected document.
func (s *Session) SwitchToFrame(ctx context.Context, locator string) error {
	s.enter("SwitchToFrame")
	s.mu.Lock()
	defer s.mu.Unlock()

	if locator == "" || locator == core.TopFrame {
		s.frameURL = ""
		return nil
	}

	doc, err := s.selectedDocument()
	if err != nil {
		return err
	}
	frames := doc.SelectAllByTag("FRAME", "IFRAME")

	var target *dom.Element
	key, value, _ := strings.Cut(locator, "=")
	switch key {
	case "name":
		for _, f := range frames {
			if n, _ := f.AttrFold("name"); n == value {
				target = f
				break
			}
		}
	case "index":
		n, err := strconv.Atoi(value)
		if err == nil && n >= 1 && n <= len(frames) {
			target = frames[n-1]
		}
	}
	if target == nil {
		return fmt.Errorf("no frame %s in %s", locator, doc.URL)
	}

	src, _ := target.AttrFold("src")
	ref, err := url.Parse(src)
	if err != nil {
		return err
	}
	base, err := url.Parse(doc.URL)
	if err != nil {
		return err
	}
	s.frameURL = base.ResolveReference(ref).String()
	return nil
}

// AllWindows lists open windows in opening order.
func (s *Session) AllWindows(ctx context.Context) ([]core.WindowInfo, error) {
	s.enter("AllWindows")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.WindowInfo, len(s.windows))
	for i, w := range s.windows {
		out[i] = core.WindowInfo{ID: w.id, Title: w.title, URL: w.url}
	}
	return out, nil
}

// WindowAlive reports whether the window is still open.
func (s *Session) WindowAlive(ctx context.Context, id string) bool {
	s.enter("WindowAlive")
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window(id) != nil
}

// ElementVisible reports whether xpath exists in the selected frame and is
// not hidden by a hidden attribute or an inline display:none style.
func (s *Session) ElementVisible(ctx context.Context, xpath string) (bool, error) {
	s.enter("ElementVisible")
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.selectedDocument()
	if err != nil {
		return false, err
	}
	el := doc.SelectByXPath(xpath)
	if el == nil {
		return false, nil
	}
	if _, hidden := el.AttrFold("hidden"); hidden {
		return false, nil
	}
	style, _ := el.AttrFold("style")
	style = strings.ReplaceAll(strings.ToLower(style), " ", "")
	return !strings.Contains(style, "display:none"), nil
}

func (s *Session) window(id string) *window {
	for _, w := range s.windows {
		if w.id == id {
			return w
		}
	}
	return nil
}

// selectedDocument parses the document of the selected frame. Caller holds mu.
func (s *Session) selectedDocument() (*dom.Document, error) {
	u := s.frameURL
	if u == "" {
		w := s.window(s.current)
		if w == nil {
			return nil, fmt.Errorf("no current window")
		}
		u = w.url
	}
	markup, ok := s.pages[u]
	if !ok {
		return nil, fmt.Errorf("no page loaded from %s", u)
	}
	return dom.Parse(u, markup)
}
