// internal/farbling/resolve.go
package farbling

import "go.uber.org/zap"

// ContentSettingsClient supplies the configured farbling level of a browsing context.
type ContentSettingsClient interface {
	FarblingLevel() Level
}

// Context is the view of a browsing context that farbling call sites need.
type Context interface {
	// ContentSettings returns nil when the context has no settings client,
	// for example after the frame was detached.
	ContentSettings() ContentSettingsClient
	// SessionCache returns the context's cache, creating it on first use.
	// It reports false once the owning document is gone.
	SessionCache() (*SessionCache, bool)
}

// ResolveLevel returns the farbling level for ctx. A missing context or client
// resolves to Off. A level the client should never report is an invariant
// violation reported through logger, and resolves to Off when logger does not
// panic.
func ResolveLevel(ctx Context, logger *zap.Logger) Level {
	if ctx == nil {
		return Off
	}
	client := ctx.ContentSettings()
	if client == nil {
		return Off
	}
	level := client.FarblingLevel()
	if !level.Valid() {
		unreachableLevel(logger, "resolve", level)
		return Off
	}
	return level
}

// Resolve returns the level and session cache a call site should farble with.
// When the level is Off or the cache is unreachable it returns (Off, nil), and
// the call site must return real data.
func Resolve(ctx Context, logger *zap.Logger) (Level, *SessionCache) {
	level := ResolveLevel(ctx, logger)
	if level == Off {
		return Off, nil
	}
	cache, ok := ctx.SessionCache()
	if !ok || cache == nil {
		return Off, nil
	}
	return level, cache
}

// unreachableLevel reports a level that escaped validation. A development
// logger panics; a production logger records it and the caller degrades to Off.
func unreachableLevel(logger *zap.Logger, policy string, level Level) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.DPanic("Unreachable farbling level; behaving as off.",
		zap.String("policy", policy),
		zap.Stringer("level", level),
	)
}
