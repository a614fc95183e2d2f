// internal/browser/document.go
package browser

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/farbler/internal/farbling"
)

// Document is the farbling-relevant state of a loaded page. It owns its
// SessionCache directly; the cache is created on first use and dropped by
// Destroy, so it can never outlive the document.
type Document struct {
	url       string
	key       farbling.BrowsingContextKey
	cache     *farbling.SessionCache
	destroyed bool
	logger    *zap.Logger
}

func newDocument(rawURL string, key farbling.BrowsingContextKey, logger *zap.Logger) *Document {
	return &Document{
		url:    rawURL,
		key:    key,
		logger: logger,
	}
}

// URL returns the address the document was loaded from.
func (d *Document) URL() string { return d.url }

// Key returns the browsing context key of the document.
func (d *Document) Key() farbling.BrowsingContextKey { return d.key }

// SessionCache returns the document's cache, creating it on first call. It
// reports false once the document has been destroyed.
func (d *Document) SessionCache() (*farbling.SessionCache, bool) {
	if d == nil || d.destroyed {
		return nil, false
	}
	if d.cache == nil {
		d.cache = farbling.NewSessionCache(d.key, d.logger)
	}
	return d.cache, true
}

// Destroy ends the document's lifetime and releases its cache.
func (d *Document) Destroy() {
	if d == nil || d.destroyed {
		return
	}
	d.destroyed = true
	d.cache = nil
	d.logger.Debug("Document destroyed.", zap.String("site", d.key.Site()))
}

// Destroyed reports whether Destroy has been called.
func (d *Document) Destroyed() bool { return d == nil || d.destroyed }
