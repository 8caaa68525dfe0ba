// Package cdp implements core.BrowserSession over the Chrome DevTools
// Protocol using chromedp.
package cdp

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/devicelab-dev/recognizer/pkg/core"
	"github.com/devicelab-dev/recognizer/pkg/logger"
	"github.com/devicelab-dev/recognizer/pkg/session"
)

// Options configures the browser connection.
type Options struct {
	// DebuggerURL attaches to a running browser (ws://... endpoint).
	// Empty launches a local Chrome.
	DebuggerURL string
	Headless    bool
	// StartURL is opened in the first tab of a launched browser.
	StartURL string
}

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Session drives one Chrome instance. Each window is a page target; the
// selected frame is remembered as a chain of switch locators from the top.
type Session struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu      sync.Mutex
	tabs    map[target.ID]tab
	current target.ID
	chain   []string
}

var _ core.BrowserSession = (*Session)(nil)

// New connects to (or launches) a browser and attaches to its first tab.
func New(ctx context.Context, opts Options) (*Session, error) {
	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.DebuggerURL != "" {
		logger.Info("attaching to browser at %s", opts.DebuggerURL)
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, opts.DebuggerURL)
	} else {
		execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
		)
		logger.Info("launching chrome (headless=%v)", opts.Headless)
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, execOpts...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, v ...interface{}) {
			logger.Debug("[chrome] "+format, v...)
		}),
	)

	var actions []chromedp.Action
	if opts.StartURL != "" {
		actions = append(actions, chromedp.Navigate(opts.StartURL))
	}
	if err := chromedp.Run(browserCtx, actions...); err != nil {
		browserCancel()
		allocCancel()
		return nil, core.ErrSessionUnavailable.WithMessage("start browser").WithCause(err)
	}

	first := chromedp.FromContext(browserCtx).Target.TargetID
	s := &Session{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		tabs:          map[target.ID]tab{first: {ctx: browserCtx, cancel: func() {}}},
		current:       first,
	}
	return s, nil
}

// Close detaches from every tab and shuts the browser connection down.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tabs {
		t.cancel()
	}
	s.tabs = nil
	s.browserCancel()
	s.allocCancel()
}

// run executes actions in the tab while honoring the caller's ctx.
func run(ctx, tabCtx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// browserExec runs a browser-domain command.
func browserExec(fn func(ctx context.Context) error) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		c := chromedp.FromContext(ctx)
		return fn(cdp.WithExecutor(ctx, c.Browser))
	})
}

// tab returns the chromedp context of window id, attaching on first use.
func (s *Session) tab(id target.ID) (context.Context, error) {
	if t, ok := s.tabs[id]; ok {
		return t.ctx, nil
	}
	ctx, cancel := chromedp.NewContext(s.browserCtx, chromedp.WithTargetID(id))
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("attach to %s: %w", id, err)
	}
	s.tabs[id] = tab{ctx: ctx, cancel: cancel}
	return ctx, nil
}

func (s *Session) currentTab() (context.Context, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tabs == nil {
		return nil, nil, fmt.Errorf("session closed")
	}
	ctx, err := s.tab(s.current)
	return ctx, s.chain, err
}

func (s *Session) pages(ctx context.Context) ([]*target.Info, error) {
	var infos []*target.Info
	err := run(ctx, s.browserCtx, chromedp.ActionFunc(func(c context.Context) error {
		var err error
		infos, err = chromedp.Targets(c)
		return err
	}))
	if err != nil {
		return nil, err
	}
	out := infos[:0]
	for _, info := range infos {
		if info.Type == "page" {
			out = append(out, info)
		}
	}
	return out, nil
}

// CurrentURL returns the top-level location of the current window.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	tabCtx, _, err := s.currentTab()
	if err != nil {
		return "", err
	}
	var loc string
	if err := run(ctx, tabCtx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// CurrentWindow returns the current target id.
func (s *Session) CurrentWindow(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.current), nil
}

// PageMarkup returns the markup of the same-origin document at url in the
// current window. Cross-origin frames report an error so callers can fall
// back to fetching the URL themselves.
func (s *Session) PageMarkup(ctx context.Context, url string) (string, error) {
	tabCtx, _, err := s.currentTab()
	if err != nil {
		return "", err
	}
	var res session.MarkupResult
	if err := run(ctx, tabCtx, chromedp.Evaluate(session.MarkupScript(url), &res)); err != nil {
		return "", fmt.Errorf("read markup of %s: %w", url, err)
	}
	if !res.Found {
		return "", fmt.Errorf("no readable document at %s", url)
	}
	return res.Markup, nil
}

// AttributeValue reads an attribute of the element at xpath in the current
// frame.
func (s *Session) AttributeValue(ctx context.Context, xpath, name string) (string, bool, error) {
	tabCtx, chain, err := s.currentTab()
	if err != nil {
		return "", false, err
	}
	var res session.AttributeResult
	if err := run(ctx, tabCtx, chromedp.Evaluate(session.AttributeScript(chain, xpath, name), &res)); err != nil {
		return "", false, err
	}
	return res.Value, res.Found, nil
}

// SwitchToWindow activates window id and selects its top document. It
// reports false when no such window is open.
func (s *Session) SwitchToWindow(ctx context.Context, id string) (bool, error) {
	infos, err := s.pages(ctx)
	if err != nil {
		return false, err
	}
	found := false
	for _, info := range infos {
		if string(info.TargetID) == id {
			found = true
			break
		}
	}
	if !found {
		return false, nil
	}

	s.mu.Lock()
	if s.tabs == nil {
		s.mu.Unlock()
		return false, fmt.Errorf("session closed")
	}
	tabCtx, err := s.tab(target.ID(id))
	s.mu.Unlock()
	if err != nil {
		return false, err
	}

	err = run(ctx, tabCtx, browserExec(func(c context.Context) error {
		return target.ActivateTarget(target.ID(id)).Do(c)
	}))
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.current = target.ID(id)
	s.chain = nil
	s.mu.Unlock()
	return true, nil
}

// SwitchToFrame selects a child frame of the current frame, or the top
// document for "" and core.TopFrame.
func (s *Session) SwitchToFrame(ctx context.Context, locator string) error {
	tabCtx, chain, err := s.currentTab()
	if err != nil {
		return err
	}
	next, err := session.PushFrame(chain, locator)
	if err != nil {
		return err
	}
	if len(next) > 0 {
		var ok bool
		if err := run(ctx, tabCtx, chromedp.Evaluate(session.FrameExistsScript(next), &ok)); err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no frame %s", locator)
		}
	}

	s.mu.Lock()
	s.chain = next
	s.mu.Unlock()
	return nil
}

// AllWindows lists the open page targets.
func (s *Session) AllWindows(ctx context.Context) ([]core.WindowInfo, error) {
	infos, err := s.pages(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.WindowInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, core.WindowInfo{ID: string(info.TargetID), Title: info.Title, URL: info.URL})
	}
	return out, nil
}

// WindowAlive reports whether target id is still an open page.
func (s *Session) WindowAlive(ctx context.Context, id string) bool {
	infos, err := s.pages(ctx)
	if err != nil {
		logger.Debug("list targets: %v", err)
		return false
	}
	for _, info := range infos {
		if string(info.TargetID) == id {
			return true
		}
	}
	return false
}

// ElementVisible reports whether xpath resolves to a rendered element in
// the current frame.
func (s *Session) ElementVisible(ctx context.Context, xpath string) (bool, error) {
	tabCtx, chain, err := s.currentTab()
	if err != nil {
		return false, err
	}
	var visible bool
	if err := run(ctx, tabCtx, chromedp.Evaluate(session.VisibleScript(chain, xpath), &visible)); err != nil {
		return false, err
	}
	return visible, nil
}
