package analyzers

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineWindow(n int, sampleRate, hz float64) []float64 {
	y := make([]float64, n)
	for i := range y {
		y[i] = 0.01 * math.Sin(2*math.Pi*hz*float64(i)/sampleRate)
	}
	return y
}

func TestPulseEstimatorFindsDominantFrequency(t *testing.T) {
	pe, err := NewPulseEstimator(DefaultPulseConfig())
	require.NoError(t, err)

	tests := []struct {
		name string
		bpm  float64
	}{
		{"resting", 60},
		{"normal", 72},
		{"elevated", 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window, err := Detrend(sineWindow(300, 60, tt.bpm/60))
			require.NoError(t, err)

			estimate, err := pe.Estimate(window)
			require.NoError(t, err)
			assert.InDelta(t, tt.bpm, estimate.BPM, 2.0)
			assert.Greater(t, estimate.Confidence, 0.0)
			assert.LessOrEqual(t, estimate.Confidence, 1.0)
			assert.Equal(t, 300, estimate.Samples)
		})
	}
}

func TestPulseEstimatorFlatWindow(t *testing.T) {
	pe, err := NewPulseEstimator(DefaultPulseConfig())
	require.NoError(t, err)

	estimate, err := pe.Estimate(make([]float64, 300))
	require.NoError(t, err)
	assert.Zero(t, estimate.BPM)
	assert.Zero(t, estimate.Confidence)
}

func TestPulseEstimatorRejectsBadWindows(t *testing.T) {
	pe, err := NewPulseEstimator(DefaultPulseConfig())
	require.NoError(t, err)

	_, err = pe.Estimate([]float64{1})
	assert.ErrorIs(t, err, ErrDegenerateWindow)

	window := sineWindow(300, 60, 1.2)
	window[10] = math.NaN()
	_, err = pe.Estimate(window)
	assert.ErrorIs(t, err, ErrNonFiniteWindow)

	window[10] = math.Inf(-1)
	_, err = pe.Estimate(window)
	assert.ErrorIs(t, err, ErrNonFiniteWindow)
}

func TestNewPulseEstimatorValidatesConfig(t *testing.T) {
	tests := []struct {
		name   string
		config PulseConfig
	}{
		{"zero sample rate", PulseConfig{SampleRate: 0, MinBPM: 40, MaxBPM: 200}},
		{"inverted band", PulseConfig{SampleRate: 60, MinBPM: 200, MaxBPM: 40}},
		{"above nyquist", PulseConfig{SampleRate: 4, MinBPM: 40, MaxBPM: 200}},
	}

	for _, tt := range tests {
		_, err := NewPulseEstimator(tt.config)
		assert.Error(t, err, tt.name)
	}
}

func TestFFTSize(t *testing.T) {
	assert.Equal(t, 4096, fftSize(300, 4096))
	assert.Equal(t, 512, fftSize(300, 0))
	assert.Equal(t, 8192, fftSize(5000, 4096))
}
