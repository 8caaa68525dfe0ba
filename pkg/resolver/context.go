package resolver

import (
	"github.com/devicelab-dev/recognizer/pkg/dom"
	"github.com/devicelab-dev/recognizer/pkg/frames"
)

// Context owns the caches shared by resolvers driving one browser: parsed
// documents by URL and entered frames by path prefix.
type Context struct {
	Docs   *dom.Cache
	Frames *frames.PrefixCache
}

// NewContext creates empty caches that load documents through f.
func NewContext(f dom.Fetcher) *Context {
	return &Context{
		Docs:   dom.NewCache(f),
		Frames: frames.NewPrefixCache(),
	}
}

// Clear empties both caches.
func (c *Context) Clear() {
	c.Docs.Clear()
	c.Frames.Clear()
}
