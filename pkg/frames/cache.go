// Package frames crosses frame boundaries in element paths and remembers the
// frames it has already entered.
package frames

import (
	"sort"
	"strings"
	"sync"

	"github.com/devicelab-dev/recognizer/pkg/core"
)

type entry struct {
	page string
	key  string
	loc  core.FrameLocator
}

// PrefixCache maps full frame path prefixes to their locators, separately for
// every top-level page. Keys are kept ordered longest first, ties in
// descending lexical order, so the first key that prefixes a path is the
// longest one.
type PrefixCache struct {
	mu      sync.RWMutex
	entries []entry
}

// NewPrefixCache creates an empty cache.
func NewPrefixCache() *PrefixCache {
	return &PrefixCache{}
}

func before(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}

// Put stores loc under key for page unless that pair is already present.
// It reports whether the entry was added.
func (c *PrefixCache) Put(page, key string, loc core.FrameLocator) bool {
	loc = loc.WithChild("")

	c.mu.Lock()
	defer c.mu.Unlock()

	i := sort.Search(len(c.entries), func(i int) bool {
		return !before(c.entries[i].key, key)
	})
	for j := i; j < len(c.entries) && c.entries[j].key == key; j++ {
		if c.entries[j].page == page {
			return false
		}
	}
	c.entries = append(c.entries, entry{})
	copy(c.entries[i+1:], c.entries[i:])
	c.entries[i] = entry{page: page, key: key, loc: loc}
	return true
}

// Longest returns the locator of the longest key cached for page that
// prefixes path on a step boundary, and the part of path after it. A key only matches when the
// remainder starts with "/", so /HTML/FRAMESET/FRAME never matches
// /HTML/FRAMESET/FRAMESET/... or /HTML/FRAMESET/FRAME[2].
func (c *PrefixCache) Longest(page, path string) (core.FrameLocator, string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, e := range c.entries {
		if e.page != page || !strings.HasPrefix(path, e.key) {
			continue
		}
		rest := path[len(e.key):]
		if strings.HasPrefix(rest, "/") {
			return e.loc.WithChild(rest), rest, true
		}
	}
	return core.FrameLocator{}, path, false
}

// Keys returns the cached keys of every page in lookup order.
func (c *PrefixCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, len(c.entries))
	for i, e := range c.entries {
		keys[i] = e.key
	}
	return keys
}

// Len returns the number of cached frames.
func (c *PrefixCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *PrefixCache) Clear() {
	c.mu.Lock()
	c.entries = nil
	c.mu.Unlock()
}
