// internal/browser/manager.go
package browser

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/farbler/internal/contentsettings"
	"github.com/xkilldash9x/farbler/internal/farbling"
)

// Manager represents one browsing session. Every frame it creates derives its
// farbling seed from the session key, so closing the manager and starting a new
// one rotates every fabricated value.
type Manager struct {
	id         string
	sessionKey []byte
	provider   *contentsettings.Provider
	logger     *zap.Logger

	mu     sync.Mutex
	frames map[string]*Frame
	closed bool
}

// NewManager starts a browsing session. A nil sessionKey draws a random one.
func NewManager(provider *contentsettings.Provider, sessionKey []byte, logger *zap.Logger) (*Manager, error) {
	if provider == nil {
		return nil, fmt.Errorf("content settings provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(sessionKey) == 0 {
		key, err := farbling.NewSessionKey()
		if err != nil {
			return nil, err
		}
		sessionKey = key
	} else {
		sessionKey = append([]byte(nil), sessionKey...)
	}

	id := uuid.New().String()
	m := &Manager{
		id:         id,
		sessionKey: sessionKey,
		provider:   provider,
		logger:     logger.Named("browser_manager").With(zap.String("session_id", id)),
		frames:     make(map[string]*Frame),
	}
	m.logger.Debug("Browsing session started.")
	return m, nil
}

// ID returns the browsing session identifier.
func (m *Manager) ID() string { return m.id }

// NewFrame creates a frame showing rawURL.
func (m *Manager) NewFrame(rawURL string) (*Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("browsing session %s is closed", m.id)
	}

	frameID := uuid.New().String()
	frameLogger := m.logger.With(zap.String("frame_id", frameID))
	doc, settings, err := m.load(rawURL, frameLogger)
	if err != nil {
		return nil, err
	}
	f := &Frame{
		id:       frameID,
		manager:  m,
		document: doc,
		settings: settings,
		logger:   frameLogger,
	}
	m.frames[frameID] = f
	frameLogger.Debug("Frame created.",
		zap.String("site", doc.Key().Site()),
		zap.Stringer("level", settings.FarblingLevel()),
	)
	return f, nil
}

// reload builds a replacement document for a navigating frame. It fails once
// the session is closed.
func (m *Manager) reload(rawURL string, logger *zap.Logger) (*Document, farbling.ContentSettingsClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, nil, fmt.Errorf("browsing session %s is closed", m.id)
	}
	return m.load(rawURL, logger)
}

// load builds the document and settings client for rawURL. The caller holds mu.
func (m *Manager) load(rawURL string, logger *zap.Logger) (*Document, farbling.ContentSettingsClient, error) {
	host, err := hostOf(rawURL)
	if err != nil {
		return nil, nil, err
	}
	key, err := farbling.NewBrowsingContextKey(rawURL, m.sessionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to derive browsing context key: %w", err)
	}
	return newDocument(rawURL, key, logger), m.provider.ClientFor(host), nil
}

// FrameCount returns the number of live frames.
func (m *Manager) FrameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

func (m *Manager) forget(frameID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.frames, frameID)
}

// Close detaches every live frame and ends the session. It is idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	frames := make([]*Frame, 0, len(m.frames))
	for _, f := range m.frames {
		frames = append(frames, f)
	}
	m.mu.Unlock()

	// Detach calls forget, which takes the lock again.
	for _, f := range frames {
		f.Detach()
	}
	m.logger.Debug("Browsing session closed.", zap.Int("frames_detached", len(frames)))
}
