// internal/browser/navigator/navigator_test.go
package navigator

import (
	"bytes"
	"fmt"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/farbler/internal/contentsettings"
	"github.com/xkilldash9x/farbler/internal/farbling"
)

type testContext struct {
	client farbling.ContentSettingsClient
	cache  *farbling.SessionCache
}

func (c *testContext) ContentSettings() farbling.ContentSettingsClient { return c.client }
func (c *testContext) SessionCache() (*farbling.SessionCache, bool)    { return c.cache, c.cache != nil }

func newContext(t *testing.T, rawURL string, level farbling.Level) *testContext {
	t.Helper()
	key, err := farbling.NewBrowsingContextKey(rawURL, bytes.Repeat([]byte{9}, farbling.SessionKeySize))
	require.NoError(t, err)
	return &testContext{client: contentsettings.NewClient(level), cache: farbling.NewSessionCache(key, zap.NewNop())}
}

func TestHardwareConcurrency(t *testing.T) {
	t.Run("off reports the real count", func(t *testing.T) {
		n := New(newContext(t, "https://example.com", farbling.Off), 12, nil)
		assert.Equal(t, 12, n.HardwareConcurrency())
	})

	t.Run("defaults to the host count", func(t *testing.T) {
		n := New(nil, 0, nil)
		assert.Equal(t, runtime.NumCPU(), n.HardwareConcurrency())
	})

	for i := 0; i < 20; i++ {
		site := fmt.Sprintf("https://site%d.example", i)
		t.Run("balanced "+site, func(t *testing.T) {
			n := New(newContext(t, site, farbling.Balanced), 16, zap.NewNop())
			got := n.HardwareConcurrency()
			assert.GreaterOrEqual(t, got, 2)
			assert.LessOrEqual(t, got, 16)
			assert.Equal(t, got, n.HardwareConcurrency(), "stable for the context")
		})
		t.Run("maximum "+site, func(t *testing.T) {
			n := New(newContext(t, site, farbling.Maximum), 64, zap.NewNop())
			got := n.HardwareConcurrency()
			assert.GreaterOrEqual(t, got, 2)
			assert.LessOrEqual(t, got, 8)
		})
	}
}
