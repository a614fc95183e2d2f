// internal/browser/webaudio/analyser.go
package webaudio

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/xkilldash9x/farbler/internal/farbling"
)

// Limits and defaults of an AnalyserNode.
const (
	// MinFFTSize and MaxFFTSize bound the frame size; it must also be a power of two.
	MinFFTSize = 32
	MaxFFTSize = 32768
	// DefaultFFTSize is the frame size of a new analyser.
	DefaultFFTSize = 2048

	// DefaultSmoothingTimeConstant is the weight of the previous spectrum.
	DefaultSmoothingTimeConstant = 0.8
	// DefaultMinDecibels and DefaultMaxDecibels map to byte values 0 and 255.
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0

	// inputBufferSize holds two maximal frames of history.
	inputBufferSize = MaxFFTSize * 2
)

// Errors returned by the analyser setters.
var (
	ErrInvalidFFTSize   = errors.New("fft size must be a power of two between 32 and 32768")
	ErrInvalidSmoothing = errors.New("smoothing time constant must be in [0, 1]")
	ErrInvalidDecibels  = errors.New("min decibels must be less than max decibels")
)

// RealtimeAnalyser exposes frequency and time-domain snapshots of an audio
// stream, as AnalyserNode does. Every value handed out passes through the
// perturbation of the owning context; internal analysis state never does.
type RealtimeAnalyser struct {
	fftSize     int
	smoothing   float64
	minDecibels float64
	maxDecibels float64

	input      []float64
	writeIndex int

	fft       *fourier.FFT
	magnitude []float64
	dirty     bool

	perturb farbling.PerturbFunc
	logger  *zap.Logger
}

// NewRealtimeAnalyser creates an analyser for ctx. The farbling level and seed
// are resolved once, here.
func NewRealtimeAnalyser(ctx farbling.Context, logger *zap.Logger) *RealtimeAnalyser {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("realtime_analyser")
	level, cache := farbling.Resolve(ctx, logger)

	a := &RealtimeAnalyser{
		smoothing:   DefaultSmoothingTimeConstant,
		minDecibels: DefaultMinDecibels,
		maxDecibels: DefaultMaxDecibels,
		input:       make([]float64, inputBufferSize),
		perturb:     farbling.NewAudioPerturber(level, cache, logger),
		logger:      logger,
	}
	// DefaultFFTSize is always valid.
	_ = a.SetFFTSize(DefaultFFTSize)
	logger.Debug("Analyser created.", zap.Stringer("level", level))
	return a
}

// FFTSize returns the analysis frame size.
func (a *RealtimeAnalyser) FFTSize() int { return a.fftSize }

// FrequencyBinCount returns half the FFT size.
func (a *RealtimeAnalyser) FrequencyBinCount() int { return a.fftSize / 2 }

// SetFFTSize changes the frame size and resets the smoothed spectrum.
func (a *RealtimeAnalyser) SetFFTSize(size int) error {
	if size < MinFFTSize || size > MaxFFTSize || size&(size-1) != 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidFFTSize, size)
	}
	if size == a.fftSize {
		return nil
	}
	a.fftSize = size
	a.fft = fourier.NewFFT(size)
	a.magnitude = make([]float64, size/2)
	a.dirty = true
	return nil
}

// SmoothingTimeConstant returns the weight given to the previous spectrum.
func (a *RealtimeAnalyser) SmoothingTimeConstant() float64 { return a.smoothing }

// MinDecibels returns the level mapped to byte value 0.
func (a *RealtimeAnalyser) MinDecibels() float64 { return a.minDecibels }

// MaxDecibels returns the level mapped to byte value 255.
func (a *RealtimeAnalyser) MaxDecibels() float64 { return a.maxDecibels }

// SetSmoothingTimeConstant sets the weight given to the previous spectrum.
func (a *RealtimeAnalyser) SetSmoothingTimeConstant(k float64) error {
	if math.IsNaN(k) || k < 0 || k > 1 {
		return ErrInvalidSmoothing
	}
	a.smoothing = k
	return nil
}

// SetDecibelRange sets the range byte frequency data is scaled to.
func (a *RealtimeAnalyser) SetDecibelRange(minDB, maxDB float64) error {
	if !(minDB < maxDB) {
		return ErrInvalidDecibels
	}
	a.minDecibels = minDB
	a.maxDecibels = maxDB
	return nil
}

// Write appends rendered samples to the input history.
func (a *RealtimeAnalyser) Write(samples []float64) {
	if len(samples) > len(a.input) {
		samples = samples[len(samples)-len(a.input):]
	}
	for _, s := range samples {
		a.input[a.writeIndex] = s
		a.writeIndex = (a.writeIndex + 1) % len(a.input)
	}
	if len(samples) > 0 {
		a.dirty = true
	}
}

// latestFrame copies the last n written samples in order.
func (a *RealtimeAnalyser) latestFrame(n int) []float64 {
	out := make([]float64, n)
	start := (a.writeIndex - n + len(a.input)) % len(a.input)
	for i := range out {
		out[i] = a.input[(start+i)%len(a.input)]
	}
	return out
}

// doFFTAnalysis refreshes the smoothed magnitude spectrum if new input arrived.
func (a *RealtimeAnalyser) doFFTAnalysis() {
	if !a.dirty {
		return
	}
	a.dirty = false

	frame := window.Blackman(a.latestFrame(a.fftSize))
	coeffs := a.fft.Coefficients(nil, frame)

	scale := 1.0 / float64(a.fftSize)
	k := a.smoothing
	for i := range a.magnitude {
		mag := cmplx.Abs(coeffs[i]) * scale
		v := k*a.magnitude[i] + (1-k)*mag
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		a.magnitude[i] = v
	}
}

// GetFloatFrequencyData fills dst with the spectrum in decibels.
func (a *RealtimeAnalyser) GetFloatFrequencyData(dst []float64) {
	a.doFFTAnalysis()
	n := min(len(dst), len(a.magnitude))
	for i := 0; i < n; i++ {
		dst[i] = a.perturb(linearToDecibels(a.magnitude[i]), i)
	}
}

// GetByteFrequencyData fills dst with the spectrum scaled to the decibel range.
func (a *RealtimeAnalyser) GetByteFrequencyData(dst []uint8) {
	a.doFFTAnalysis()
	n := min(len(dst), len(a.magnitude))
	rangeScale := 1 / (a.maxDecibels - a.minDecibels)
	for i := 0; i < n; i++ {
		db := linearToDecibels(a.magnitude[i])
		scaled := math.MaxUint8 * (db - a.minDecibels) * rangeScale
		dst[i] = farbling.ClampByte(a.perturb(scaled, i))
	}
}

// GetFloatTimeDomainData fills dst with the most recent samples.
func (a *RealtimeAnalyser) GetFloatTimeDomainData(dst []float64) {
	n := min(len(dst), a.fftSize)
	frame := a.latestFrame(a.fftSize)
	for i := 0; i < n; i++ {
		dst[i] = a.perturb(frame[i], i)
	}
}

// GetByteTimeDomainData fills dst with the most recent samples mapped so that
// silence is 128.
func (a *RealtimeAnalyser) GetByteTimeDomainData(dst []uint8) {
	n := min(len(dst), a.fftSize)
	frame := a.latestFrame(a.fftSize)
	for i := 0; i < n; i++ {
		value := a.perturb(frame[i], i)
		dst[i] = farbling.ClampByte(128 * (value + 1))
	}
}

func linearToDecibels(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}
