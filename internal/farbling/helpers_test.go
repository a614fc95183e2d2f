// internal/farbling/helpers_test.go
package farbling

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var testSessionKey = bytes.Repeat([]byte{0x5a}, SessionKeySize)

// newTestCache builds a cache for rawURL under the fixed test session key.
func newTestCache(t *testing.T, rawURL string) *SessionCache {
	t.Helper()
	return newTestCacheWithKey(t, rawURL, testSessionKey)
}

func newTestCacheWithKey(t *testing.T, rawURL string, sessionKey []byte) *SessionCache {
	t.Helper()
	key, err := NewBrowsingContextKey(rawURL, sessionKey)
	require.NoError(t, err)
	return NewSessionCache(key, zap.NewNop())
}

// newRandomCache builds a cache for rawURL under a fresh random session key.
func newRandomCache(t *testing.T, rawURL string) *SessionCache {
	t.Helper()
	sk, err := NewSessionKey()
	require.NoError(t, err)
	return newTestCacheWithKey(t, rawURL, sk)
}

// productionObserver returns a production-mode logger whose entries are captured.
func productionObserver() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

// developmentObserver returns a development-mode logger: DPanic panics.
func developmentObserver() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core, zap.Development()), logs
}
