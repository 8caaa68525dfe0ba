package dom

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/devicelab-dev/recognizer/pkg/logger"
)

// Cache holds parsed documents keyed by exact URL.
// Concurrent Gets of one URL share a single fetch; different URLs do not
// wait on each other.
type Cache struct {
	fetcher Fetcher

	mu      sync.RWMutex
	docs    map[string]*Document
	mainURL string

	group singleflight.Group
}

// NewCache creates an empty cache that loads missing documents from f.
func NewCache(f Fetcher) *Cache {
	return &Cache{
		fetcher: f,
		docs:    make(map[string]*Document),
	}
}

// Get returns the cached document for url, fetching and parsing it on a miss.
func (c *Cache) Get(ctx context.Context, url string) (*Document, error) {
	if doc := c.lookup(url); doc != nil {
		return doc, nil
	}

	v, err, _ := c.group.Do(url, func() (interface{}, error) {
		if doc := c.lookup(url); doc != nil {
			return doc, nil
		}
		doc, err := c.load(ctx, url)
		if err != nil {
			return nil, err
		}
		return c.putIfAbsent(doc), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Document), nil
}

// Refresh returns the document for the session's current location. When the
// location differs from the main URL the document is re-fetched and
// replaced; the main URL follows unless the change came from a frame switch.
func (c *Cache) Refresh(ctx context.Context, currentURL string, frameSwitched bool) (*Document, error) {
	c.mu.RLock()
	same := currentURL == c.mainURL
	c.mu.RUnlock()
	if same {
		return c.Get(ctx, currentURL)
	}

	v, err, _ := c.group.Do("refresh\x00"+currentURL, func() (interface{}, error) {
		return c.load(ctx, currentURL)
	})
	if err != nil {
		return nil, err
	}
	doc := v.(*Document)

	c.mu.Lock()
	c.docs[currentURL] = doc
	if !frameSwitched {
		if c.mainURL != "" {
			logger.Debug("main document moved from %s to %s", c.mainURL, currentURL)
		}
		c.mainURL = currentURL
	}
	c.mu.Unlock()
	return doc, nil
}

// MainURL returns the location of the current top-level document.
func (c *Cache) MainURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mainURL
}

// Put stores doc, replacing any document cached for the same URL.
func (c *Cache) Put(doc *Document) {
	c.mu.Lock()
	c.docs[doc.URL] = doc
	c.mu.Unlock()
}

// Invalidate drops the document cached for url.
func (c *Cache) Invalidate(url string) {
	c.mu.Lock()
	delete(c.docs, url)
	c.mu.Unlock()
}

// Clear drops every cached document and forgets the main URL.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.docs = make(map[string]*Document)
	c.mainURL = ""
	c.mu.Unlock()
}

// Len returns the number of cached documents.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

func (c *Cache) lookup(url string) *Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.docs[url]
}

func (c *Cache) putIfAbsent(doc *Document) *Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.docs[doc.URL]; ok {
		return existing
	}
	c.docs[doc.URL] = doc
	return doc
}

func (c *Cache) load(ctx context.Context, url string) (*Document, error) {
	markup, err := c.fetcher.PageMarkup(ctx, url)
	if err != nil {
		return nil, err
	}
	logger.Debug("parsed document %s (%d bytes)", url, len(markup))
	return Parse(url, markup)
}
