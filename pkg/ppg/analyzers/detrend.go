package analyzers

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrDegenerateWindow is returned when a regression is asked for fewer
	// than two points and the slope denominator would be zero.
	ErrDegenerateWindow = errors.New("window needs at least two samples")

	// ErrEmptyWindow is returned by Mean for an empty window.
	ErrEmptyWindow = errors.New("window is empty")
)

// LinearTrend is a least-squares line fitted over implicit x = 0..n-1
type LinearTrend struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	Samples   int     `json:"samples"`
}

// At returns the trend value at position i
func (t LinearTrend) At(i int) float64 {
	return t.Intercept + t.Slope*float64(i)
}

// FitLinearTrend fits a line through y using the running sums Σx, Σy, Σxy
// and Σx². The x positions are the sample indices.
//
// The x sequence is laid out with n+1 entries (0..n) but only the first n
// (x, y) pairs enter the sums, so x = n never contributes. This matches the
// capture pipeline's historical output and is pinned by tests.
func FitLinearTrend(y []float64) (LinearTrend, error) {
	n := len(y)
	if n <= 1 {
		return LinearTrend{}, fmt.Errorf("failed to fit trend over %d samples: %w", n, ErrDegenerateWindow)
	}

	x := make([]float64, n+1)
	for i := range x {
		x[i] = float64(i)
	}

	var sx, sy, sxy, sxx float64
	for i := 0; i < n; i++ {
		sx += x[i]
		sy += y[i]
		sxy += x[i] * y[i]
		sxx += x[i] * x[i]
	}

	fn := float64(n)
	denominator := fn*sxx - sx*sx
	if denominator == 0 {
		return LinearTrend{}, fmt.Errorf("failed to fit trend over %d samples: %w", n, ErrDegenerateWindow)
	}

	slope := (fn*sxy - sx*sy) / denominator
	intercept := sy/fn - slope*(sx/fn)

	return LinearTrend{
		Slope:     slope,
		Intercept: intercept,
		Samples:   n,
	}, nil
}

// Detrend removes the best-fit line from y and returns a new slice.
// Non-finite samples propagate into every output value.
func Detrend(y []float64) ([]float64, error) {
	trend, err := FitLinearTrend(y)
	if err != nil {
		return nil, err
	}

	detrended := make([]float64, len(y))
	for i, v := range y {
		detrended[i] = v - trend.At(i)
	}

	return detrended, nil
}

// DetrendInto is Detrend writing into dst, which must match y in length
func DetrendInto(dst, y []float64) error {
	if len(dst) != len(y) {
		return fmt.Errorf("destination length (%d) doesn't match window size (%d)", len(dst), len(y))
	}

	trend, err := FitLinearTrend(y)
	if err != nil {
		return err
	}

	for i, v := range y {
		dst[i] = v - trend.At(i)
	}

	return nil
}

// Mean returns the arithmetic mean of y
func Mean(y []float64) (float64, error) {
	if len(y) == 0 {
		return 0, ErrEmptyWindow
	}
	return stat.Mean(y, nil), nil
}
