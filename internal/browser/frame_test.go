// internal/browser/frame_test.go
package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/farbler/internal/farbling"
)

func TestFrame_SessionCacheIsLazyAndStable(t *testing.T) {
	m := newTestManager(t, farbling.Balanced)
	f, err := m.NewFrame("https://example.com")
	require.NoError(t, err)

	assert.Nil(t, f.Document().cache, "cache is created on first use")

	first, ok := f.SessionCache()
	require.True(t, ok)
	second, ok := f.SessionCache()
	require.True(t, ok)
	assert.Same(t, first, second)
	assert.Equal(t,
		first.GenerateRandomString("LABEL", 12),
		second.GenerateRandomString("LABEL", 12),
	)
}

func TestFrame_Detach(t *testing.T) {
	m := newTestManager(t, farbling.Maximum)
	f, err := m.NewFrame("https://example.com")
	require.NoError(t, err)
	doc := f.Document()

	_, ok := f.SessionCache()
	require.True(t, ok)
	f.Detach()
	f.Detach()

	assert.True(t, f.Detached())
	assert.True(t, doc.Destroyed())
	assert.Nil(t, f.Document())
	assert.Nil(t, f.ContentSettings())
	_, ok = f.SessionCache()
	assert.False(t, ok)

	level, cache := farbling.Resolve(f, nil)
	assert.Equal(t, farbling.Off, level)
	assert.Nil(t, cache)
	assert.Zero(t, m.FrameCount())

	assert.Error(t, f.Navigate("https://example.org"))
}

func TestFrame_Navigate(t *testing.T) {
	m := newTestManager(t, farbling.Balanced)
	f, err := m.NewFrame("https://example.com")
	require.NoError(t, err)

	oldDoc := f.Document()
	oldCache, _ := f.SessionCache()

	require.NoError(t, f.Navigate("https://example.org/index.html"))
	assert.True(t, oldDoc.Destroyed())
	_, ok := oldDoc.SessionCache()
	assert.False(t, ok, "a destroyed document hands out no cache")

	newCache, ok := f.SessionCache()
	require.True(t, ok)
	assert.Equal(t, "example.org", newCache.Key().Site())
	assert.NotEqual(t, oldCache.Seed(), newCache.Seed())

	// A failed navigation leaves the current document in place.
	require.Error(t, f.Navigate("::bad::"))
	assert.False(t, f.Document().Destroyed())
	assert.Equal(t, "https://example.org/index.html", f.Document().URL())
}

func TestFrame_NilSafety(t *testing.T) {
	var f *Frame
	assert.Nil(t, f.ContentSettings())
	_, ok := f.SessionCache()
	assert.False(t, ok)
	assert.Equal(t, farbling.Off, farbling.ResolveLevel(f, nil))
	assert.NotNil(t, f.Logger())
	assert.NotPanics(t, f.Detach)
}

func TestFrame_NavigateAfterSessionClosed(t *testing.T) {
	m := newTestManager(t, farbling.Balanced)
	f, err := m.NewFrame("https://example.com")
	require.NoError(t, err)
	doc := f.Document()

	// The frame is still attached, as it is while Close is detaching its siblings.
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	err = f.Navigate("https://example.org")
	assert.ErrorContains(t, err, "is closed")
	assert.Same(t, doc, f.Document())
	assert.False(t, doc.Destroyed())
}
