package frames

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/devicelab-dev/recognizer/pkg/core"
	"github.com/devicelab-dev/recognizer/pkg/dom"
	"github.com/devicelab-dev/recognizer/pkg/logger"
	"github.com/devicelab-dev/recognizer/pkg/recognition"
)

// Switcher moves the session between frames.
type Switcher interface {
	SwitchToFrame(ctx context.Context, locator string) error
}

// Navigator switches a session into the frames an element path crosses.
type Navigator struct {
	Docs     *dom.Cache
	Cache    *PrefixCache
	Switcher Switcher
}

// Top selects the top document.
func (n *Navigator) Top(ctx context.Context) error {
	if err := n.Switcher.SwitchToFrame(ctx, core.TopFrame); err != nil {
		return core.ErrSessionUnavailable.WithMessage("switch to top document").WithCause(err)
	}
	return nil
}

// Navigate switches into every frame path crosses, starting from the top
// document at pageURL, and returns the innermost frame's locator. Its
// ChildPathSuffix is the part of path inside that frame. A path that crosses
// no frame comes back unchanged with an empty prefix.
//
// A frame without src stops navigation: the locator built so far is returned
// together with core.ErrFrameUnreachable.
func (n *Navigator) Navigate(ctx context.Context, pageURL, path string) (core.FrameLocator, error) {
	base := core.FrameLocator{ChildPathSuffix: path}
	if err := n.Top(ctx); err != nil {
		return base, err
	}

	docURL := pageURL
	rest := normalize(path)

	if cached, remainder, ok := n.Cache.Longest(pageURL, rest); ok && cached.SourceURL != "" {
		for _, sw := range cached.Chain {
			if err := n.switchTo(ctx, sw); err != nil {
				return base, err
			}
		}
		logger.Debug("frame cache hit %s for %s", cached.FullPathPrefix, path)
		base, docURL, rest = cached, cached.SourceURL, remainder
	}

	for {
		framePath, tail, ok := FindFrameBoundary(rest)
		if !ok {
			if !base.HasFrames() {
				return base, nil
			}
			return base.WithChild(rest), nil
		}
		loc, err := n.Enter(ctx, base, docURL, framePath)
		if err != nil {
			return loc.WithChild(tail), err
		}
		base, docURL, rest = loc, loc.SourceURL, tail
	}
}

// Enter switches from the frame described by base, whose document lives at
// docURL, into the frame element at framePath, a path local to that document.
// The new locator is cached by its top page and full path prefix. A base
// without frames means docURL is the top page.
func (n *Navigator) Enter(ctx context.Context, base core.FrameLocator, docURL, framePath string) (core.FrameLocator, error) {
	framePath = normalize(framePath)

	doc, err := n.Docs.Get(ctx, docURL)
	if err != nil {
		return base, core.ErrSessionUnavailable.WithMessage("load document " + docURL).WithCause(err)
	}
	el := doc.SelectByXPath(framePath)
	if el == nil {
		return base, core.ErrFrameUnreachable.
			WithMessage(fmt.Sprintf("no frame at %s in %s", framePath, docURL))
	}

	page := base.PageURL
	if page == "" {
		page = docURL
	}
	sw := switchLocator(doc, el)
	loc := core.FrameLocator{
		PageURL:           page,
		SwitchLocator:     sw,
		FullPathPrefix:    base.FullPathPrefix + framePath,
		RecognitionPrefix: base.RecognitionPrefix + recognition.TypePrefix + recognition.TypeFrame + recognition.PartSeparator + sw + recognition.LevelSeparator,
		Chain:             append(append([]string(nil), base.Chain...), sw),
		Depth:             base.Depth + 1,
	}

	src, _ := el.AttrFold("src")
	src = strings.TrimSpace(src)
	if src == "" {
		logger.Warn("frame %s has no src, its content is unreachable", loc.FullPathPrefix)
		return loc, core.ErrFrameUnreachable.
			WithMessage(fmt.Sprintf("frame %s has no src", loc.FullPathPrefix)).
			WithDetails(map[string]interface{}{"frame": loc.FullPathPrefix})
	}
	loc.SourceURL = resolveSrc(docURL, src)

	if err := n.switchTo(ctx, sw); err != nil {
		return base, err
	}
	n.Cache.Put(page, loc.FullPathPrefix, loc)
	logger.Debug("entered frame %s (%s) at %s", sw, loc.FullPathPrefix, loc.SourceURL)
	return loc, nil
}

func (n *Navigator) switchTo(ctx context.Context, locator string) error {
	if err := n.Switcher.SwitchToFrame(ctx, locator); err != nil {
		return core.ErrSessionUnavailable.WithMessage("switch to frame " + locator).WithCause(err)
	}
	return nil
}

// switchLocator prefers the frame's name and falls back to its position
// among the document's frames.
func switchLocator(doc *dom.Document, el *dom.Element) string {
	if name, ok := el.AttrFold("name"); ok && strings.TrimSpace(name) != "" {
		return "name=" + name
	}
	return "index=" + strconv.Itoa(dom.FrameIndex(doc, el))
}

func resolveSrc(parent, src string) string {
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	base, err := url.Parse(parent)
	if err != nil || !base.IsAbs() {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// FindFrameBoundary splits path after its first FRAME or IFRAME step that is
// followed by more steps. prefix ends with the frame step; rest is the path
// inside the frame's document.
func FindFrameBoundary(path string) (prefix, rest string, ok bool) {
	steps := strings.Split(strings.Trim(normalize(path), "/"), "/")
	for i := 0; i < len(steps)-1; i++ {
		if isFrameStep(steps[i]) {
			return "/" + strings.Join(steps[:i+1], "/"), "/" + strings.Join(steps[i+1:], "/"), true
		}
	}
	return "", path, false
}

// SplitFrames breaks a path into the per-document paths it crosses,
// outermost first. The last element is the path inside the innermost frame.
func SplitFrames(path string) []string {
	var parts []string
	rest := normalize(path)
	for {
		prefix, tail, ok := FindFrameBoundary(rest)
		if !ok {
			return append(parts, rest)
		}
		parts = append(parts, prefix)
		rest = tail
	}
}

func isFrameStep(step string) bool {
	name := step
	if i := strings.IndexByte(step, '['); i >= 0 {
		name = step[:i]
	}
	return strings.EqualFold(name, "FRAME") || strings.EqualFold(name, "IFRAME")
}

func normalize(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	return "/" + strings.TrimLeft(path, "/")
}
