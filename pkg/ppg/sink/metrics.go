package sink

import (
	"fmt"
	"syscall"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/tunein/go-logging/v7/pkg/logger"
	"github.com/tunein/go-logging/v7/pkg/logger/logtypes"
	"github.com/tunein/go-logging/v7/pkg/rootcollector"
	"github.com/tunein/go-logging/v7/pkg/rootlogger"
)

// MetricFunc records an integer metric with tags
type MetricFunc func(name string, value int64, tags []string)

// MetricsSink emits per-window statistics to the root collector. Values are
// scaled to integers: means in micro-units, pulse in milli-bpm.
type MetricsSink struct {
	emit     MetricFunc
	baseTags []string
	logger   logging.Logger
}

// ConfigureMetrics points the root logger at logFile, reopened on SIGHUP
func ConfigureMetrics(logFile string) error {
	err := rootlogger.Configure(logger.LogOptions{
		Out:          logFile,
		ReopenSignal: syscall.SIGHUP,
		Level:        logtypes.InfoLevel,
	})
	if err != nil {
		return fmt.Errorf("failed to configure metrics log writer: %w", err)
	}
	return nil
}

// NewMetricsSink creates a sink reporting through rootcollector, tagged
// with the source type
func NewMetricsSink(sourceType string, log logging.Logger) *MetricsSink {
	return NewMetricsSinkWithEmitter(sourceType, func(name string, value int64, tags []string) {
		rootcollector.Metric(name, value, tags)
	}, log)
}

// NewMetricsSinkWithEmitter reports through emit instead of rootcollector
func NewMetricsSinkWithEmitter(sourceType string, emit MetricFunc, log logging.Logger) *MetricsSink {
	if log == nil {
		log = logging.NewDefaultLogger()
	}
	return &MetricsSink{
		emit:     emit,
		baseTags: []string{"source:" + sourceType},
		logger: log.WithFields(logging.Fields{
			"component": "metrics_sink",
		}),
	}
}

// WriteFrame is a no-op; metrics are per window
func (m *MetricsSink) WriteFrame(point FramePoint) error { return nil }

func (m *MetricsSink) WriteWindow(report WindowReport) error {
	tags := append([]string{}, m.baseTags...)
	if report.SessionID != "" {
		tags = append(tags, "session:"+report.SessionID)
	}
	tags = append(tags, "state:"+report.State.String())

	active := int64(0)
	if report.SignalActive {
		active = 1
	}

	m.emit("ppg.window.signal_active", active, tags)
	m.emit("ppg.window.mean.micro", int64(Finite(report.Mean)*1e6), tags)
	m.emit("ppg.window.non_finite", int64(report.NonFinite), tags)

	if report.Pulse != nil && report.Pulse.BPM > 0 {
		m.emit("ppg.pulse.bpm.milli", int64(report.Pulse.BPM*1000), tags)
		m.emit("ppg.pulse.confidence.milli", int64(report.Pulse.Confidence*1000), tags)
	}

	m.logger.Debug("Window metrics emitted", logging.Fields{
		"window": report.Cycle,
		"state":  report.State.String(),
	})

	return nil
}

func (m *MetricsSink) Close() error { return nil }
