package analyzers

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// ErrNonFiniteWindow is returned when a window holds NaN or Inf samples
var ErrNonFiniteWindow = errors.New("window contains non-finite samples")

// PulseConfig controls the pulse band search
type PulseConfig struct {
	SampleRate float64 `json:"sample_rate" yaml:"sample_rate"` // frames per second
	MinBPM     float64 `json:"min_bpm" yaml:"min_bpm"`
	MaxBPM     float64 `json:"max_bpm" yaml:"max_bpm"`
	MinFFTSize int     `json:"min_fft_size" yaml:"min_fft_size"` // zero padding target
}

// DefaultPulseConfig returns settings for a 60 fps camera
func DefaultPulseConfig() PulseConfig {
	return PulseConfig{
		SampleRate: 60,
		MinBPM:     42,
		MaxBPM:     210,
		MinFFTSize: 4096,
	}
}

// PulseEstimate is the dominant in-band frequency of a detrended window
type PulseEstimate struct {
	BPM            float64 `json:"bpm"`
	FrequencyHz    float64 `json:"frequency_hz"`
	Confidence     float64 `json:"confidence"` // peak power over in-band power
	FreqResolution float64 `json:"freq_resolution"`
	Samples        int     `json:"samples"`
}

// PulseEstimator finds the pulse rate of a PPG window from its spectrum
type PulseEstimator struct {
	config PulseConfig
	hann   []float64
	logger logging.Logger
}

// NewPulseEstimator creates a new pulse estimator
func NewPulseEstimator(config PulseConfig) (*PulseEstimator, error) {
	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %v", config.SampleRate)
	}
	if config.MinBPM <= 0 || config.MaxBPM <= config.MinBPM {
		return nil, fmt.Errorf("invalid pulse band %v-%v bpm", config.MinBPM, config.MaxBPM)
	}
	if config.MaxBPM/60 > config.SampleRate/2 {
		return nil, fmt.Errorf("max bpm %v is above the nyquist limit of %v fps", config.MaxBPM, config.SampleRate)
	}

	return &PulseEstimator{
		config: config,
		logger: logging.WithFields(logging.Fields{
			"component":   "pulse_estimator",
			"sample_rate": config.SampleRate,
		}),
	}, nil
}

// Estimate returns the strongest in-band frequency of window as beats per minute
func (pe *PulseEstimator) Estimate(window []float64) (*PulseEstimate, error) {
	if len(window) < 2 {
		return nil, fmt.Errorf("failed to estimate pulse: %w", ErrDegenerateWindow)
	}
	if floats.HasNaN(window) || hasInf(window) {
		return nil, fmt.Errorf("failed to estimate pulse: %w", ErrNonFiniteWindow)
	}

	size := fftSize(len(window), pe.config.MinFFTSize)
	padded := make([]float64, size)
	copy(padded, window)
	pe.applyHann(padded[:len(window)])

	spectrum := fft.FFTReal(padded)
	freqBins := size/2 + 1
	resolution := pe.config.SampleRate / float64(size)

	lowBin := int(math.Ceil(pe.config.MinBPM / 60 / resolution))
	highBin := int(math.Floor(pe.config.MaxBPM / 60 / resolution))
	highBin = min(highBin, freqBins-1)
	if lowBin > highBin {
		return nil, fmt.Errorf("pulse band is empty at %v Hz resolution", resolution)
	}

	peakBin := lowBin
	peakPower := 0.0
	bandPower := 0.0
	for i := lowBin; i <= highBin; i++ {
		magnitude := cmplx.Abs(spectrum[i])
		power := magnitude * magnitude
		bandPower += power
		if power > peakPower {
			peakPower = power
			peakBin = i
		}
	}

	estimate := &PulseEstimate{
		FreqResolution: resolution,
		Samples:        len(window),
	}
	if bandPower == 0 {
		pe.logger.Debug("Flat window, no pulse band energy", logging.Fields{
			"samples": len(window),
		})
		return estimate, nil
	}

	estimate.FrequencyHz = float64(peakBin) * resolution
	estimate.BPM = estimate.FrequencyHz * 60
	estimate.Confidence = peakPower / bandPower

	pe.logger.Debug("Pulse estimate computed", logging.Fields{
		"bpm":        estimate.BPM,
		"confidence": estimate.Confidence,
		"fft_size":   size,
	})

	return estimate, nil
}

// applyHann tapers the window in place to reduce leakage from the edges
func (pe *PulseEstimator) applyHann(signal []float64) {
	if len(pe.hann) != len(signal) {
		pe.hann = make([]float64, len(signal))
		denominator := float64(len(signal) - 1)
		for i := range pe.hann {
			pe.hann[i] = 0.5 * (1.0 - math.Cos(2*math.Pi*float64(i)/denominator))
		}
	}
	floats.Mul(signal, pe.hann)
}

func fftSize(n, minSize int) int {
	size := 1
	for size < n || size < minSize {
		size <<= 1
	}
	return size
}

func hasInf(values []float64) bool {
	for _, v := range values {
		if math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
