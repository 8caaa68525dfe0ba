package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/devicelab-dev/recognizer/pkg/core"
	"github.com/devicelab-dev/recognizer/pkg/dom"
	"github.com/devicelab-dev/recognizer/pkg/logger"
)

// Attribute reads an attribute of a resolved element. "text" and "innerText"
// return the element's text, falling back to its value then alt attributes.
// Attributes missing from the parsed markup are asked of the live page.
func (r *Resolver) Attribute(ctx context.Context, loc *core.ElementLocator, name string) (string, bool, error) {
	if loc == nil {
		return "", false, core.ErrObjectNotFound.WithMessage("no locator")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if loc.WindowID != "" {
		if cur, err := r.Session.CurrentWindow(ctx); err != nil || cur != loc.WindowID {
			ok, err := r.switchWindow(ctx, loc.WindowID)
			if err != nil {
				return "", false, err
			}
			if !ok {
				return "", false, core.ErrObjectNotFound.
					WithMessage(fmt.Sprintf("window %s of %s is gone", loc.WindowID, loc.Path))
			}
		}
	}

	topURL, err := r.Session.CurrentURL(ctx)
	if err != nil {
		return "", false, core.ErrSessionUnavailable.WithMessage("get current url").WithCause(err)
	}
	frame, err := r.nav.Navigate(ctx, topURL, loc.Path)
	if err != nil {
		return "", false, err
	}

	docURL := topURL
	if frame.HasFrames() {
		docURL = frame.SourceURL
	}
	doc, err := r.Context.Docs.Get(ctx, docURL)
	if err != nil {
		return "", false, core.ErrSessionUnavailable.WithMessage("load " + docURL).WithCause(err)
	}

	el := doc.SelectByXPath(frame.ChildPathSuffix)
	if el == nil {
		return "", false, core.ErrObjectNotFound.
			WithMessage(fmt.Sprintf("%s is not in the page", loc.Path))
	}

	if strings.EqualFold(name, "text") || strings.EqualFold(name, "innerText") {
		if text := elementText(el); text != "" {
			return text, true, nil
		}
	}

	live := func(xpath, attr string) (string, bool) {
		v, ok, err := r.Session.AttributeValue(ctx, xpath, attr)
		if err != nil {
			logger.Debug("live attribute %s of %s: %v", attr, xpath, err)
			return "", false
		}
		return v, ok
	}
	v, ok := doc.AttributeValue(el, name, live)
	return v, ok, nil
}

func elementText(el *dom.Element) string {
	if t := el.Text(); t != "" {
		return t
	}
	if v, _ := el.AttrFold("value"); v != "" {
		return v
	}
	v, _ := el.AttrFold("alt")
	return v
}

// AllLocatorsForTag returns the paths of every element with the given tag in
// the current window's top document.
func (r *Resolver) AllLocatorsForTag(ctx context.Context, tag string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	topURL, err := r.Session.CurrentURL(ctx)
	if err != nil {
		return nil, core.ErrSessionUnavailable.WithMessage("get current url").WithCause(err)
	}
	doc, err := r.Context.Docs.Refresh(ctx, topURL, false)
	if err != nil {
		return nil, core.ErrSessionUnavailable.WithMessage("load " + topURL).WithCause(err)
	}

	paths := dom.AllPaths(doc, tag)
	for i, p := range paths {
		paths[i] = "/" + p
	}
	return paths, nil
}
