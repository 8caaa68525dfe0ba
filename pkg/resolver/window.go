package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/devicelab-dev/recognizer/pkg/core"
	"github.com/devicelab-dev/recognizer/pkg/logger"
	"github.com/devicelab-dev/recognizer/pkg/recognition"
)

// WindowPath is the locator path of a window: its root element.
const WindowPath = "//HTML[1]"

// seekWindow returns the window's locator, switching the session into it, or
// nil when no open window matches yet.
func (r *Resolver) seekWindow(ctx context.Context, name, rs string) (*core.ElementLocator, error) {
	dynamic := recognition.IsDynamic(rs)

	if cached := r.AppMap.CachedWindow(name); cached != nil && !cached.IsDynamic {
		if r.Session.WindowAlive(ctx, cached.WindowID) {
			ok, err := r.switchWindow(ctx, cached.WindowID)
			if err == nil && ok {
				return cached, nil
			}
		}
		logger.Debug("%s: cached window %s no longer answers", core.ErrStaleCacheEntry.Code, cached.WindowID)
		r.AppMap.SetWindow(name, nil)
	}

	id, err := r.findWindow(ctx, rs)
	if err != nil || id == "" {
		return nil, err
	}

	ok, err := r.switchWindow(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrWindowSwitchTimeout) {
			logger.Warn("%v", err)
			return nil, nil
		}
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if err := r.Options.Windows.Focus(ctx, id); err != nil {
		logger.Warn("focus window %s: %v", id, err)
	}

	loc := &core.ElementLocator{
		Path:          WindowPath,
		ComponentType: recognition.TypeWindow,
		WindowID:      id,
		IsDynamic:     dynamic,
	}
	if !dynamic {
		r.AppMap.SetWindow(name, loc)
	}
	return loc, nil
}

// findWindow returns the id of the first open window whose title matches the
// recognition's title pattern. CurrentWindow selects the session's window.
func (r *Resolver) findWindow(ctx context.Context, rs string) (string, error) {
	if strings.EqualFold(strings.TrimSpace(recognition.StripTags(rs)), recognition.CurrentWindow) {
		id, err := r.Session.CurrentWindow(ctx)
		if err != nil {
			return "", core.ErrSessionUnavailable.WithMessage("get current window").WithCause(err)
		}
		return id, nil
	}

	windows, err := r.Session.AllWindows(ctx)
	if err != nil {
		return "", core.ErrSessionUnavailable.WithMessage("list windows").WithCause(err)
	}

	pattern := recognition.WindowTitlePattern(rs)
	for _, w := range windows {
		if recognition.TitleMatches(w.Title, pattern) {
			return w.ID, nil
		}
	}
	logger.Debug("no window title matches %q among %d windows", pattern, len(windows))
	return "", nil
}

// switchWindow runs the session's window switch under its own timeout. A
// watchdog one second beyond that timeout returns control even when the
// switch ignores its context.
func (r *Resolver) switchWindow(ctx context.Context, id string) (bool, error) {
	timeout := r.Options.WindowSwitchTimeout
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		ok  bool
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		ok, err := r.Session.SwitchToWindow(sctx, id)
		done <- outcome{ok, err}
	}()

	watchdog := time.NewTimer(timeout + time.Second)
	defer watchdog.Stop()

	select {
	case o := <-done:
		if o.err != nil {
			if errors.Is(o.err, context.DeadlineExceeded) && ctx.Err() == nil {
				return false, core.ErrWindowSwitchTimeout.
					WithMessage(fmt.Sprintf("switch to window %s timed out after %s", id, timeout)).
					WithCause(o.err)
			}
			return false, core.ErrSessionUnavailable.WithMessage("switch to window " + id).WithCause(o.err)
		}
		return o.ok, nil
	case <-watchdog.C:
		return false, core.ErrWindowSwitchTimeout.
			WithMessage(fmt.Sprintf("switch to window %s did not return within %s", id, timeout+time.Second))
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
