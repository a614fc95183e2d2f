// internal/farbling/numeric.go
package farbling

import (
	"math"

	"go.uber.org/zap"
)

// PerturbFunc maps a sample and its position in the output buffer to the
// value a page is allowed to see. It must be a pure function of its inputs and
// the context seed it was built from.
type PerturbFunc func(value float64, index int) float64

// Identity is the PerturbFunc used when farbling is off.
func Identity(value float64, _ int) float64 { return value }

// NewAudioPerturber returns the sample perturbation for level.
//
// Balanced scales every sample by one per-context factor in [0.99, 1.00).
// Maximum draws an independent factor in the same range for every index.
func NewAudioPerturber(level Level, cache *SessionCache, logger *zap.Logger) PerturbFunc {
	switch level {
	case Off:
		return Identity
	case Balanced, Maximum:
	default:
		unreachableLevel(logger, "audio", level)
		return Identity
	}
	if cache == nil {
		return Identity
	}

	seed := cache.Seed()
	if level == Balanced {
		fudge := fudgeFactor(unitFloat(seed))
		return func(value float64, _ int) float64 {
			return value * fudge
		}
	}
	return func(value float64, index int) float64 {
		return value * fudgeFactor(unitFloat(splitmix64(seed^uint64(index))))
	}
}

// fudgeFactor maps u in [0,1) to [0.99, 1.00).
func fudgeFactor(u float64) float64 {
	return 0.99 + u/100
}

// unitFloat maps x onto [0,1) using its top 53 bits.
func unitFloat(x uint64) float64 {
	return float64(x>>11) / (1 << 53)
}

// splitmix64 is the SplitMix64 finalizer, used to decorrelate adjacent indexes.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// ClampByte clamps v to the byte range and truncates it.
func ClampByte(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= math.MaxUint8 {
		return math.MaxUint8
	}
	return uint8(v)
}
