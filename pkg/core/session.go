package core

import "context"

// BrowserSession is the page/browser host the resolution engine drives.
// Implementations: chromedp, rod, mock.
// A session tracks one current window and one current frame; callers must not
// switch windows or frames on the same session from several goroutines at once.
type BrowserSession interface {
	// CurrentURL returns the location of the active (top-level) page.
	CurrentURL(ctx context.Context) (string, error)

	// CurrentWindow returns the id of the window the session is attached to.
	CurrentWindow(ctx context.Context) (string, error)

	// PageMarkup returns the rendered markup of the document loaded from url,
	// either the top page or any frame document reachable from it.
	PageMarkup(ctx context.Context, url string) (string, error)

	// AttributeValue evaluates an attribute against the rendered page in the
	// current frame. ok is false when the attribute is absent.
	AttributeValue(ctx context.Context, xpath, name string) (value string, ok bool, err error)

	// SwitchToWindow makes the window with the given id current.
	SwitchToWindow(ctx context.Context, id string) (bool, error)

	// SwitchToFrame selects a frame of the current document by "name=X" or
	// "index=N" (1-based). "" or "relative=top" selects the top document.
	SwitchToFrame(ctx context.Context, locator string) error

	// AllWindows lists the open top-level windows.
	AllWindows(ctx context.Context) ([]WindowInfo, error)

	// WindowAlive reports whether the window still answers.
	WindowAlive(ctx context.Context, id string) bool

	// ElementVisible reports whether xpath resolves to a displayed element
	// in the current frame.
	ElementVisible(ctx context.Context, xpath string) (bool, error)
}

// WindowInfo identifies one open top-level window.
type WindowInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// WindowController performs OS-level window management.
// The resolution engine never depends on it; keyword handlers do.
type WindowController interface {
	Focus(ctx context.Context, id string) error
	Maximize(ctx context.Context, id string) error
	Minimize(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
}

// TopFrame is the SwitchToFrame locator selecting the top document.
const TopFrame = "relative=top"

// NoopWindowController ignores every request.
type NoopWindowController struct{}

func (NoopWindowController) Focus(context.Context, string) error    { return nil }
func (NoopWindowController) Maximize(context.Context, string) error { return nil }
func (NoopWindowController) Minimize(context.Context, string) error { return nil }
func (NoopWindowController) Restore(context.Context, string) error  { return nil }
