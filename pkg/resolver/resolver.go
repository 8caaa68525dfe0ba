// Package resolver turns application map names into live element locators.
//
// Resolve walks a small state machine:
//
//	SeekWindow -> WindowFound -> SeekComponent -> Resolved
//	     \________________________|_______________> Timeout
//
// polling once per interval until the component is found and visible or the
// timeout budget is spent. Resolved locators are cached on the AppMap and
// revalidated before reuse.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devicelab-dev/recognizer/pkg/core"
	"github.com/devicelab-dev/recognizer/pkg/dom"
	"github.com/devicelab-dev/recognizer/pkg/frames"
	"github.com/devicelab-dev/recognizer/pkg/logger"
	"github.com/devicelab-dev/recognizer/pkg/recognition"
)

// State is a resolution state.
type State int

const (
	StateSeekWindow State = iota
	StateWindowFound
	StateSeekComponent
	StateResolved
	StateTimeout
)

func (s State) String() string {
	switch s {
	case StateSeekWindow:
		return "seek_window"
	case StateWindowFound:
		return "window_found"
	case StateSeekComponent:
		return "seek_component"
	case StateResolved:
		return "resolved"
	case StateTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Options tunes a Resolver.
type Options struct {
	PollInterval        time.Duration
	WindowSwitchTimeout time.Duration
	Strategy            dom.Strategy
	// Windows brings a newly found window to the front. Focus errors are
	// logged, not returned.
	Windows core.WindowController
}

// DefaultOptions polls once a second and bounds window switches to 30s.
func DefaultOptions() Options {
	return Options{
		PollInterval:        time.Second,
		WindowSwitchTimeout: 30 * time.Second,
		Strategy:            dom.StrategyCompat,
		Windows:             core.NoopWindowController{},
	}
}

// Result describes one Resolve call.
type Result struct {
	ID             string
	Window         *core.ElementLocator
	Locator        *core.ElementLocator
	State          State
	WindowAttempts int  // window lookups
	Attempts       int  // component lookups
	Sleeps         int  // poll intervals waited
	FromCache      bool // the component locator was a revalidated cache entry
	Elapsed        time.Duration
}

// Resolver resolves components against one browser session. Calls on one
// Resolver are serialized because the session tracks a single current window
// and frame; resolvers on different sessions share a Context freely.
type Resolver struct {
	Session core.BrowserSession
	Context *Context
	AppMap  *AppMap
	Options Options

	nav     *frames.Navigator
	matcher dom.Matcher
	mu      sync.Mutex
}

// New creates a resolver with its own caches, loading documents through the
// session.
func New(session core.BrowserSession, appMap *AppMap, opts Options) *Resolver {
	return NewWithContext(session, NewContext(session), appMap, opts)
}

// NewWithContext creates a resolver sharing rctx with other resolvers.
func NewWithContext(session core.BrowserSession, rctx *Context, appMap *AppMap, opts Options) *Resolver {
	def := DefaultOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.WindowSwitchTimeout <= 0 {
		opts.WindowSwitchTimeout = def.WindowSwitchTimeout
	}
	if opts.Windows == nil {
		opts.Windows = def.Windows
	}
	if appMap == nil {
		appMap = NewAppMap()
	}
	return &Resolver{
		Session: session,
		Context: rctx,
		AppMap:  appMap,
		Options: opts,
		nav:     &frames.Navigator{Docs: rctx.Docs, Cache: rctx.Frames, Switcher: session},
		matcher: dom.Matcher{Strategy: opts.Strategy},
	}
}

// Resolve returns the locator of component in window, waiting up to timeout.
// When window and component are the same name the window's locator is
// returned. Expiry fails with core.ErrObjectNotFound; a malformed
// recognition string fails at once with core.ErrMalformedRecognition.
func (r *Resolver) Resolve(ctx context.Context, window, component string, timeout time.Duration) (*core.ElementLocator, error) {
	res, err := r.ResolveResult(ctx, window, component, timeout)
	if err != nil {
		return nil, err
	}
	return res.Locator, nil
}

// ResolveResult is Resolve with the attempt statistics.
func (r *Resolver) ResolveResult(ctx context.Context, window, component string, timeout time.Duration) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := &Result{ID: uuid.NewString(), State: StateSeekWindow}
	start := time.Now()
	defer func() { res.Elapsed = time.Since(start) }()

	winRS, ok := r.AppMap.WindowRecognition(window)
	if !ok {
		return res, core.ErrObjectNotFound.
			WithMessage(fmt.Sprintf("window %q is not in the app map", window))
	}

	var compRS string
	isWindow := strings.EqualFold(window, component)
	if !isWindow {
		compRS, ok = r.AppMap.ComponentRecognition(window, component)
		if !ok {
			return res, core.ErrObjectNotFound.
				WithMessage(fmt.Sprintf("component %q of window %q is not in the app map", component, window))
		}
	}

	p := &poller{interval: r.Options.PollInterval, remaining: timeout}

	// SeekWindow
	var win *core.ElementLocator
	for {
		res.WindowAttempts++
		w, err := r.seekWindow(ctx, window, winRS)
		if err != nil && !recoverable(err) {
			return res, r.abort(ctx, res, window, component, err)
		}
		if w != nil {
			win = w
			break
		}
		if err != nil {
			logger.Escalate(time.Since(start), timeout, "%s: window %s: %v", res.ID, window, err)
		} else {
			logger.Escalate(time.Since(start), timeout, "%s: window %s not found yet", res.ID, window)
		}
		if err := p.wait(ctx, res); err != nil {
			return res, r.notFound(res, window, component, err)
		}
	}

	res.State = StateWindowFound
	res.Window = win
	if isWindow {
		res.State = StateResolved
		res.Locator = win
		return res, nil
	}

	rec, err := recognition.Parse(compRS)
	if err != nil {
		return res, err
	}

	// SeekComponent
	res.State = StateSeekComponent
	for {
		res.Attempts++
		loc, err := r.seekComponent(ctx, window, component, win, rec, res)
		if err != nil && !recoverable(err) {
			return res, r.abort(ctx, res, window, component, err)
		}
		if loc != nil {
			res.State = StateResolved
			res.Locator = loc
			logger.Info("%s: resolved %s.%s to %s after %d attempts", res.ID, window, component, loc.Path, res.Attempts)
			return res, nil
		}
		if err != nil {
			logger.Escalate(time.Since(start), timeout, "%s: %s.%s: %v", res.ID, window, component, err)
		} else {
			logger.Escalate(time.Since(start), timeout, "%s: %s.%s not found yet", res.ID, window, component)
		}
		if err := p.wait(ctx, res); err != nil {
			return res, r.notFound(res, window, component, err)
		}

		if !r.Session.WindowAlive(ctx, win.WindowID) {
			r.AppMap.SetWindow(window, nil)
			w, err := r.seekWindow(ctx, window, winRS)
			if err != nil && !recoverable(err) {
				return res, r.abort(ctx, res, window, component, err)
			}
			if w != nil {
				win = w
				res.Window = w
			}
		}
	}
}

// seekComponent revalidates the cached locator or searches anew. It returns
// nil when the component is absent or not visible yet.
func (r *Resolver) seekComponent(ctx context.Context, window, component string, win *core.ElementLocator, rec *recognition.Recognition, res *Result) (*core.ElementLocator, error) {
	if cached := r.AppMap.CachedComponent(window, component); cached != nil && !cached.IsDynamic && !rec.IsDynamic {
		ok, used := false, []string(nil)
		if cached.WindowID == win.WindowID {
			ok, used = r.visible(ctx, cached)
		}
		if ok {
			res.FromCache = true
			return cached, nil
		}
		logger.Debug("%s: %s.%s at %s", core.ErrStaleCacheEntry.Message, window, component, cached.Path)
		r.AppMap.SetComponent(window, component, nil)
		r.invalidate(used)
	}

	path, used, err := r.search(ctx, rec)
	if err != nil || path == "" {
		r.invalidate(used)
		return nil, err
	}

	loc := &core.ElementLocator{
		Path:          path,
		ComponentType: rec.Target().Type,
		WindowID:      win.WindowID,
		IsDynamic:     rec.IsDynamic,
	}
	if ok, _ := r.visible(ctx, loc); !ok {
		logger.Debug("%s.%s found at %s but not visible", window, component, path)
		r.invalidate(used)
		return nil, nil
	}
	if !loc.IsDynamic {
		r.AppMap.SetComponent(window, component, loc)
	}
	return loc, nil
}

// search matches every segment of rec, entering frames for HTMLFrame
// segments, and returns the target's full path with a leading "//". It also
// returns the document URLs it read. An empty path means no match.
func (r *Resolver) search(ctx context.Context, rec *recognition.Recognition) (string, []string, error) {
	topURL, err := r.Session.CurrentURL(ctx)
	if err != nil {
		return "", nil, core.ErrSessionUnavailable.WithMessage("get current url").WithCause(err)
	}
	used := []string{topURL}

	doc, err := r.Context.Docs.Refresh(ctx, topURL, false)
	if err != nil {
		return "", used, core.ErrSessionUnavailable.WithMessage("load " + topURL).WithCause(err)
	}
	if err := r.nav.Top(ctx); err != nil {
		return "", used, err
	}

	var base core.FrameLocator
	docURL := topURL
	last := len(rec.Segments) - 1

	for i, seg := range rec.Segments {
		q, known, err := seg.Query()
		if err != nil {
			return "", used, err
		}
		if !known {
			logger.Warn("unknown component type %s in %q", seg.Type, rec.Raw)
			return "", used, nil
		}

		local := ""
		if q.Root {
			if root := doc.Root(); root != nil {
				local = root.UniquePath()
			}
		} else {
			local = r.matcher.Match(doc, q.Tags, q.Criteria, q.Index, false, false)
		}
		if local == "" {
			return "", used, nil
		}

		if i == last {
			return "//" + strings.TrimLeft(base.FullPathPrefix+local, "/"), used, nil
		}
		if !recognition.IsFrame(seg.Type) {
			// Intermediate non-frame segments only have to be present.
			continue
		}

		loc, err := r.nav.Enter(ctx, base, docURL, local)
		if err != nil {
			if errors.Is(err, core.ErrFrameUnreachable) {
				return "", used, nil
			}
			return "", used, err
		}
		base, docURL = loc, loc.SourceURL
		used = append(used, docURL)

		doc, err = r.Context.Docs.Get(ctx, docURL)
		if err != nil {
			return "", used, core.ErrSessionUnavailable.WithMessage("load frame " + docURL).WithCause(err)
		}
	}
	return "", used, nil
}

// visible navigates to the locator's frame and asks the session whether the
// element is displayed. It also returns the document URLs involved.
func (r *Resolver) visible(ctx context.Context, loc *core.ElementLocator) (bool, []string) {
	if !r.Session.WindowAlive(ctx, loc.WindowID) {
		return false, nil
	}
	topURL, err := r.Session.CurrentURL(ctx)
	if err != nil {
		return false, nil
	}
	used := []string{topURL}
	frame, err := r.nav.Navigate(ctx, topURL, loc.Path)
	if frame.SourceURL != "" {
		used = append(used, frame.SourceURL)
	}
	if err != nil {
		logger.Debug("navigate to %s: %v", loc.Path, err)
		return false, used
	}
	ok, err := r.Session.ElementVisible(ctx, frame.ChildPathSuffix)
	if err != nil {
		logger.Debug("visibility of %s: %v", loc.Path, err)
		return false, used
	}
	return ok, used
}

// invalidate drops documents read by a failed attempt so the next attempt
// sees the page as it is now.
func (r *Resolver) invalidate(urls []string) {
	for _, u := range urls {
		r.Context.Docs.Invalidate(u)
	}
}

func (r *Resolver) notFound(res *Result, window, component string, cause error) error {
	res.State = StateTimeout
	return core.ErrObjectNotFound.
		WithMessage(fmt.Sprintf("%s.%s not found after %d attempts", window, component, res.Attempts)).
		WithDetails(map[string]interface{}{"window": window, "component": component, "attempts": res.Attempts}).
		WithCause(cause)
}

// abort ends a resolve on a non-recoverable error. Errors caused by the
// caller's context end it as not found, like an expired budget.
func (r *Resolver) abort(ctx context.Context, res *Result, window, component string, err error) error {
	if ctx.Err() != nil {
		return r.notFound(res, window, component, err)
	}
	return err
}

// ClearCache drops cached documents, frames and resolved locators.
func (r *Resolver) ClearCache() {
	r.Context.Clear()
	r.AppMap.Clear()
}

// recoverable reports whether a seek error is worth another poll.
func recoverable(err error) bool {
	return !errors.Is(err, core.ErrMalformedRecognition) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// errTimedOut is the cause attached to ErrObjectNotFound when the budget runs out.
var errTimedOut = errors.New("timeout expired")

// poller spends a timeout budget in fixed intervals.
type poller struct {
	interval  time.Duration
	remaining time.Duration
}

// wait sleeps one interval, or returns errTimedOut when the budget is spent.
// It returns early with the context's error when ctx is done.
func (p *poller) wait(ctx context.Context, res *Result) error {
	if p.remaining <= 0 {
		return errTimedOut
	}
	t := time.NewTimer(p.interval)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	p.remaining -= p.interval
	res.Sleeps++
	return nil
}
