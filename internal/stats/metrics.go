package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/sink"
	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/window"
)

// MetricsCalculator summarizes the window reports of a session
type MetricsCalculator struct {
	logger logging.Logger
}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator(logger logging.Logger) *MetricsCalculator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &MetricsCalculator{
		logger: logger,
	}
}

// SeriesStats represents statistical measures of a per-window series
type SeriesStats struct {
	Mean   float64 `json:"mean" yaml:"mean"`
	Median float64 `json:"median" yaml:"median"`
	P95    float64 `json:"p95" yaml:"p95"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
	Count  int     `json:"count" yaml:"count"`
}

// SignalMetrics represents the signal quality of a capture session
type SignalMetrics struct {
	Windows          int          `json:"windows" yaml:"windows"`
	ActiveWindows    int          `json:"active_windows" yaml:"active_windows"`
	HeldWindows      int          `json:"held_windows" yaml:"held_windows"`
	NonFiniteWindows int          `json:"non_finite_windows" yaml:"non_finite_windows"`
	PulseBPM         *SeriesStats `json:"pulse_bpm" yaml:"pulse_bpm"`
	PulseConfidence  *SeriesStats `json:"pulse_confidence" yaml:"pulse_confidence"`
	WindowMean       *SeriesStats `json:"window_mean" yaml:"window_mean"`
}

// CalculateSignalMetrics aggregates window reports
func (mc *MetricsCalculator) CalculateSignalMetrics(reports []sink.WindowReport) *SignalMetrics {
	metrics := &SignalMetrics{Windows: len(reports)}

	var bpm, confidence, means []float64
	for _, report := range reports {
		if report.NonFinite > 0 {
			metrics.NonFiniteWindows++
		}

		switch report.State {
		case window.StateActive:
			metrics.ActiveWindows++
			if !math.IsNaN(report.Mean) && !math.IsInf(report.Mean, 0) {
				means = append(means, report.Mean)
			}
			if report.Pulse != nil && report.Pulse.BPM > 0 {
				bpm = append(bpm, report.Pulse.BPM)
				confidence = append(confidence, report.Pulse.Confidence)
			}
		case window.StateHeld:
			metrics.HeldWindows++
		}
	}

	metrics.PulseBPM = mc.calculateStats(bpm)
	metrics.PulseConfidence = mc.calculateStats(confidence)
	metrics.WindowMean = mc.calculateStats(means)

	mc.logger.Debug("Signal metrics calculated", logging.Fields{
		"windows":        metrics.Windows,
		"active_windows": metrics.ActiveWindows,
		"pulse_samples":  metrics.PulseBPM.Count,
	})

	return metrics
}

// GenerateInsights turns metrics into short human-readable notes
func (mc *MetricsCalculator) GenerateInsights(metrics *SignalMetrics) []string {
	var insights []string

	if metrics.Windows == 0 {
		return append(insights, "No complete window was captured; record for at least one full window")
	}

	if metrics.NonFiniteWindows > 0 {
		insights = append(insights, fmt.Sprintf(
			"%d window(s) contained non-finite samples; filter the intensity input before ingestion",
			metrics.NonFiniteWindows))
	}

	if metrics.PulseBPM.Count == 0 {
		insights = append(insights, "No pulse estimate was produced")
		return insights
	}

	if metrics.PulseConfidence.Median < 0.2 {
		insights = append(insights, fmt.Sprintf(
			"Low spectral confidence (median %.2f); check finger placement and torch", metrics.PulseConfidence.Median))
	}

	if metrics.PulseBPM.Count > 1 && metrics.PulseBPM.StdDev > 10 {
		insights = append(insights, fmt.Sprintf(
			"Pulse estimate is unstable across windows (std dev %.1f bpm)", metrics.PulseBPM.StdDev))
	}

	return insights
}

// calculateStats computes summary statistics
func (mc *MetricsCalculator) calculateStats(data []float64) *SeriesStats {
	if len(data) == 0 {
		return &SeriesStats{Count: 0}
	}

	sortedData := make([]float64, len(data))
	copy(sortedData, data)
	sort.Float64s(sortedData)

	mean, stdDev := stat.PopMeanStdDev(sortedData, nil)

	stats := &SeriesStats{
		Count:  len(data),
		Min:    sortedData[0],
		Max:    sortedData[len(sortedData)-1],
		Median: stat.Quantile(0.5, stat.Empirical, sortedData, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, sortedData, nil),
		Mean:   mean,
		StdDev: stdDev,
	}

	return mc.sanitizeStats(stats)
}

// sanitizeStats clears NaN and Inf so the stats can be encoded
func (mc *MetricsCalculator) sanitizeStats(stats *SeriesStats) *SeriesStats {
	stats.Mean = sink.Finite(stats.Mean)
	stats.Median = sink.Finite(stats.Median)
	stats.P95 = sink.Finite(stats.P95)
	stats.Min = sink.Finite(stats.Min)
	stats.Max = sink.Finite(stats.Max)
	stats.StdDev = sink.Finite(stats.StdDev)
	return stats
}
