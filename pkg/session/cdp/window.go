package cdp

import (
	"context"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/target"

	"github.com/devicelab-dev/recognizer/pkg/core"
)

// WindowController changes the OS window state of a session's tabs.
type WindowController struct {
	Session *Session
}

var _ core.WindowController = WindowController{}

// Focus brings window id to the front.
func (w WindowController) Focus(ctx context.Context, id string) error {
	return run(ctx, w.Session.browserCtx, browserExec(func(c context.Context) error {
		return target.ActivateTarget(target.ID(id)).Do(c)
	}))
}

// Maximize maximizes the OS window holding id.
func (w WindowController) Maximize(ctx context.Context, id string) error {
	return w.setState(ctx, id, browser.WindowStateMaximized)
}

// Minimize minimizes the OS window holding id.
func (w WindowController) Minimize(ctx context.Context, id string) error {
	return w.setState(ctx, id, browser.WindowStateMinimized)
}

// Restore returns the OS window holding id to its normal state.
func (w WindowController) Restore(ctx context.Context, id string) error {
	return w.setState(ctx, id, browser.WindowStateNormal)
}

func (w WindowController) setState(ctx context.Context, id string, state browser.WindowState) error {
	return run(ctx, w.Session.browserCtx, browserExec(func(c context.Context) error {
		windowID, _, err := browser.GetWindowForTarget().WithTargetID(target.ID(id)).Do(c)
		if err != nil {
			return core.ErrSessionUnavailable.WithMessage("find window of " + id).WithCause(err)
		}
		return browser.SetWindowBounds(windowID, &browser.Bounds{WindowState: state}).Do(c)
	}))
}
