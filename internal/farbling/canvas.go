// internal/farbling/canvas.go
package farbling

import (
	"strconv"

	"go.uber.org/zap"
)

// canvasNoiseStride bounds how many colour channels Balanced touches: roughly
// one channel in every stride.
const canvasNoiseStride = 16

// FarbleImageData perturbs RGBA pixel data in place. Alpha is never modified.
//
// Balanced flips the low bit of pseudo-randomly chosen colour channels.
// Maximum replaces every colour channel with pseudo-random bytes. The choice of
// channels and bytes depends only on the context and len(pixels), so reading
// the same canvas twice yields the same result.
func FarbleImageData(level Level, cache *SessionCache, pixels []byte, logger *zap.Logger) {
	switch level {
	case Off:
		return
	case Balanced, Maximum:
	default:
		unreachableLevel(logger, "canvas", level)
		return
	}
	if cache == nil || len(pixels) < 4 {
		return
	}

	rng := cache.NewSubGenerator("CANVAS_" + strconv.Itoa(len(pixels)))
	if level == Maximum {
		for i := range pixels {
			if i%4 == 3 {
				continue
			}
			pixels[i] = byte(rng.UintN(256))
		}
		return
	}

	for i := range pixels {
		if i%4 == 3 {
			continue
		}
		if rng.IntN(canvasNoiseStride) == 0 {
			pixels[i] ^= 1
		}
	}
}
