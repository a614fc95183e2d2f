// internal/farbling/hardware.go
package farbling

import "go.uber.org/zap"

const (
	minHardwareConcurrency = 2
	maxHardwareConcurrency = 8
)

// FarbleHardwareConcurrency returns the logical core count a page may see.
// Balanced reports a value in [2, actual]; Maximum reports a value in [2, 8]
// regardless of actual. Both are stable for the context.
func FarbleHardwareConcurrency(level Level, cache *SessionCache, actual int, logger *zap.Logger) int {
	switch level {
	case Off:
		return actual
	case Balanced:
		if cache == nil || actual <= minHardwareConcurrency {
			return actual
		}
		return pickInRange(cache, minHardwareConcurrency, actual)
	case Maximum:
		if cache == nil {
			return actual
		}
		return pickInRange(cache, minHardwareConcurrency, maxHardwareConcurrency)
	default:
		unreachableLevel(logger, "hardware_concurrency", level)
		return actual
	}
}

func pickInRange(cache *SessionCache, lo, hi int) int {
	rng := cache.NewSubGenerator("HARDWARE_CONCURRENCY")
	return lo + rng.IntN(hi-lo+1)
}
