// Package rodpage implements core.BrowserSession with go-rod.
//
// Frames are entered natively through rod's frame pages, so cross-origin
// frames stay readable without the script-replay used by the cdp session.
package rodpage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/devicelab-dev/recognizer/pkg/core"
	"github.com/devicelab-dev/recognizer/pkg/logger"
)

// maxFrameDepth bounds the frame walk of PageMarkup.
const maxFrameDepth = 8

// frameSelector matches frame-hosting elements in document order.
const frameSelector = "iframe,frame"

// Options configures the browser connection.
type Options struct {
	// DebuggerURL attaches to a running browser. Empty launches one.
	DebuggerURL string
	Headless    bool
	StartURL    string
}

// Session drives one browser through rod.
type Session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher

	mu    sync.Mutex
	page  *rod.Page // current window
	frame *rod.Page // selected frame, page itself at the top
}

var _ core.BrowserSession = (*Session)(nil)

// New connects to (or launches) a browser and selects its first page.
func New(ctx context.Context, opts Options) (*Session, error) {
	s := &Session{}

	wsURL := opts.DebuggerURL
	if wsURL == "" {
		l := launcher.New().Headless(opts.Headless).Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, core.ErrSessionUnavailable.WithMessage("launch browser").WithCause(err)
		}
		s.launcher = l
		wsURL = u
		logger.Info("launched browser at %s", wsURL)
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		s.cleanup()
		return nil, core.ErrSessionUnavailable.WithMessage("connect to " + wsURL).WithCause(err)
	}
	s.browser = b

	pages, err := b.Pages()
	if err != nil {
		s.Close()
		return nil, core.ErrSessionUnavailable.WithMessage("list pages").WithCause(err)
	}
	var p *rod.Page
	if len(pages) > 0 {
		p = pages.First()
		if opts.StartURL != "" {
			err = p.Navigate(opts.StartURL)
		}
	} else {
		p, err = b.Page(proto.TargetCreateTarget{URL: opts.StartURL})
	}
	if err != nil {
		s.Close()
		return nil, core.ErrSessionUnavailable.WithMessage("open page").WithCause(err)
	}
	s.page, s.frame = p, p
	return s, nil
}

// Close disconnects and stops a launched browser.
func (s *Session) Close() {
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			logger.Debug("close browser: %v", err)
		}
	}
	s.cleanup()
}

func (s *Session) cleanup() {
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.launcher = nil
	}
}

func (s *Session) current() (*rod.Page, *rod.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page, s.frame
}

func (s *Session) pages(ctx context.Context) ([]*proto.TargetTargetInfo, rod.Pages, error) {
	pages, err := s.browser.Context(ctx).Pages()
	if err != nil {
		return nil, nil, err
	}
	infos := make([]*proto.TargetTargetInfo, 0, len(pages))
	kept := make(rod.Pages, 0, len(pages))
	for _, p := range pages {
		info, err := p.Context(ctx).Info()
		if err != nil || info.Type != proto.TargetTargetInfoTypePage {
			continue
		}
		infos = append(infos, info)
		kept = append(kept, p)
	}
	return infos, kept, nil
}

// CurrentURL returns the top-level URL of the current window.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	p, _ := s.current()
	info, err := p.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// CurrentWindow returns the current page's target id.
func (s *Session) CurrentWindow(ctx context.Context) (string, error) {
	p, _ := s.current()
	return string(p.TargetID), nil
}

// PageMarkup walks the current window's frames for the document at url.
func (s *Session) PageMarkup(ctx context.Context, url string) (string, error) {
	p, _ := s.current()
	markup, ok, err := findMarkup(p.Context(ctx), url, 0)
	if err != nil {
		return "", fmt.Errorf("read markup of %s: %w", url, err)
	}
	if !ok {
		return "", fmt.Errorf("no document at %s", url)
	}
	return markup, nil
}

func findMarkup(p *rod.Page, url string, depth int) (string, bool, error) {
	res, err := p.Eval(`() => location.href`)
	if err != nil {
		return "", false, err
	}
	if res.Value.Str() == url {
		html, err := p.HTML()
		return html, err == nil, err
	}
	if depth >= maxFrameDepth {
		return "", false, nil
	}

	els, err := p.Elements(frameSelector)
	if err != nil {
		return "", false, err
	}
	for _, el := range els {
		child, err := el.Frame()
		if err != nil {
			logger.Debug("enter frame: %v", err)
			continue
		}
		if markup, ok, err := findMarkup(child, url, depth+1); err == nil && ok {
			return markup, true, nil
		}
	}
	return "", false, nil
}

// AttributeValue reads an attribute of the element at xpath in the selected
// frame, falling back to the element's DOM property of that name.
func (s *Session) AttributeValue(ctx context.Context, xpath, name string) (string, bool, error) {
	_, f := s.current()
	els, err := f.Context(ctx).ElementsX(xpath)
	if err != nil {
		return "", false, err
	}
	if len(els) == 0 {
		return "", false, nil
	}

	v, err := els[0].Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v != nil {
		return *v, true, nil
	}

	res, err := els[0].Eval(`function(n) {
		var v = this[n];
		if (v === undefined || v === null || typeof v === "object" || typeof v === "function") return null;
		return String(v);
	}`, name)
	if err != nil {
		return "", false, err
	}
	if res.Value.Nil() {
		return "", false, nil
	}
	return res.Value.Str(), true, nil
}

// SwitchToWindow activates page id and selects its top document.
func (s *Session) SwitchToWindow(ctx context.Context, id string) (bool, error) {
	infos, pages, err := s.pages(ctx)
	if err != nil {
		return false, err
	}
	for i, info := range infos {
		if string(info.TargetID) != id {
			continue
		}
		p := pages[i]
		if _, err := p.Context(ctx).Activate(); err != nil {
			return false, err
		}
		s.mu.Lock()
		s.page, s.frame = p, p
		s.mu.Unlock()
		return true, nil
	}
	return false, nil
}

// SwitchToFrame enters a child frame by "name=X" or "index=N", or returns
// to the top document for "" and core.TopFrame.
func (s *Session) SwitchToFrame(ctx context.Context, locator string) error {
	p, f := s.current()
	locator = strings.TrimSpace(locator)
	if locator == "" || locator == core.TopFrame {
		s.mu.Lock()
		s.frame = p
		s.mu.Unlock()
		return nil
	}

	els, err := f.Context(ctx).Elements(frameSelector)
	if err != nil {
		return err
	}
	var host *rod.Element
	switch {
	case strings.HasPrefix(locator, "name="):
		want := strings.TrimPrefix(locator, "name=")
		for _, el := range els {
			if n, err := el.Attribute("name"); err == nil && n != nil && *n == want {
				host = el
				break
			}
		}
	case strings.HasPrefix(locator, "index="):
		n, err := strconv.Atoi(strings.TrimPrefix(locator, "index="))
		if err != nil || n < 1 {
			return fmt.Errorf("bad frame index in %q", locator)
		}
		if n <= len(els) {
			host = els[n-1]
		}
	default:
		return fmt.Errorf("unsupported frame locator %q", locator)
	}
	if host == nil {
		return fmt.Errorf("no frame %s", locator)
	}

	child, err := host.Frame()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.frame = child
	s.mu.Unlock()
	return nil
}

// AllWindows lists the open pages.
func (s *Session) AllWindows(ctx context.Context) ([]core.WindowInfo, error) {
	infos, _, err := s.pages(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.WindowInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, core.WindowInfo{ID: string(info.TargetID), Title: info.Title, URL: info.URL})
	}
	return out, nil
}

// WindowAlive reports whether page id is still open.
func (s *Session) WindowAlive(ctx context.Context, id string) bool {
	infos, _, err := s.pages(ctx)
	if err != nil {
		logger.Debug("list pages: %v", err)
		return false
	}
	for _, info := range infos {
		if string(info.TargetID) == id {
			return true
		}
	}
	return false
}

// ElementVisible reports whether xpath resolves to a visible element in the
// selected frame.
func (s *Session) ElementVisible(ctx context.Context, xpath string) (bool, error) {
	_, f := s.current()
	els, err := f.Context(ctx).ElementsX(xpath)
	if err != nil {
		return false, err
	}
	if len(els) == 0 {
		return false, nil
	}
	return els[0].Visible()
}
