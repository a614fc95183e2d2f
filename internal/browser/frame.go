// internal/browser/frame.go
package browser

import (
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/xkilldash9x/farbler/internal/farbling"
)

// Frame is a browsing context: it shows one Document at a time and carries the
// content-settings client farbling call sites resolve their level from.
//
// A Frame, its Document and the Document's SessionCache belong to a single
// sequence and are not safe for concurrent use.
type Frame struct {
	id       string
	manager  *Manager
	document *Document
	settings farbling.ContentSettingsClient
	detached bool
	logger   *zap.Logger
}

// Ensure Frame implements the interface call sites consume.
var _ farbling.Context = (*Frame)(nil)

// ID returns the frame identifier.
func (f *Frame) ID() string { return f.id }

// Document returns the current document, or nil after Detach.
func (f *Frame) Document() *Document {
	if f == nil || f.detached {
		return nil
	}
	return f.document
}

// Logger returns the frame-scoped logger.
func (f *Frame) Logger() *zap.Logger {
	if f == nil || f.logger == nil {
		return zap.NewNop()
	}
	return f.logger
}

// ContentSettings implements farbling.Context. A detached frame has no client.
func (f *Frame) ContentSettings() farbling.ContentSettingsClient {
	if f == nil || f.detached {
		return nil
	}
	return f.settings
}

// SessionCache implements farbling.Context.
func (f *Frame) SessionCache() (*farbling.SessionCache, bool) {
	if f == nil || f.detached {
		return nil, false
	}
	return f.document.SessionCache()
}

// Navigate replaces the current document with one loaded from rawURL. The old
// document, and with it its cache, is destroyed.
func (f *Frame) Navigate(rawURL string) error {
	if f == nil || f.detached {
		return fmt.Errorf("cannot navigate a detached frame")
	}
	doc, settings, err := f.manager.reload(rawURL, f.logger)
	if err != nil {
		return err
	}
	f.document.Destroy()
	f.document = doc
	f.settings = settings
	f.logger.Debug("Frame navigated.", zap.String("site", doc.Key().Site()))
	return nil
}

// Detach removes the frame from its page. Afterwards farbling resolves to off
// and the document's cache is gone.
func (f *Frame) Detach() {
	if f == nil || f.detached {
		return
	}
	f.detached = true
	f.settings = nil
	f.document.Destroy()
	if f.manager != nil {
		f.manager.forget(f.id)
	}
	f.logger.Debug("Frame detached.")
}

// Detached reports whether Detach has been called.
func (f *Frame) Detached() bool { return f == nil || f.detached }

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", farbling.ErrInvalidURL, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: %q has no host", farbling.ErrInvalidURL, rawURL)
	}
	return u.Hostname(), nil
}
