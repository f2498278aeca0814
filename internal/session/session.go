// Package session drives one capture session: it feeds samples from a
// source through a PPG window and fans processed frames and window reports
// out to sinks.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/analyzers"
	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/sink"
	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/source"
	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/window"
	"github.com/google/uuid"
)

const sampleBuffer = 256

// Session owns the window for one capture and is not reusable
type Session struct {
	ID string

	config    *Config
	window    *window.Window
	estimator *analyzers.PulseEstimator
	recorder  *sink.Recorder
	sinks     sink.Multi
	logger    logging.Logger
}

// New builds a session with its own window, pulse estimator and history
// recorder. extra sinks receive every frame and window report after the
// recorder.
func New(cfg *Config, logger logging.Logger, extra ...sink.Sink) (*Session, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	w, err := window.New(cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	var estimator *analyzers.PulseEstimator
	if cfg.PulseEnabled {
		estimator, err = analyzers.NewPulseEstimator(cfg.Pulse)
		if err != nil {
			return nil, fmt.Errorf("failed to create pulse estimator: %w", err)
		}
	}

	id := uuid.NewString()
	recorder := sink.NewRecorder(cfg.HistoryLength, cfg.WindowHistory)
	sinks := sink.Multi{recorder}
	for _, s := range extra {
		if s != nil {
			sinks = append(sinks, s)
		}
	}

	return &Session{
		ID:        id,
		config:    cfg,
		window:    w,
		estimator: estimator,
		recorder:  recorder,
		sinks:     sinks,
		logger: logger.WithFields(logging.Fields{
			"component":  "session",
			"session_id": id,
		}),
	}, nil
}

// Window exposes the session window for read-only inspection
func (s *Session) Window() *window.Window { return s.window }

// Run consumes src until it is exhausted, MaxFrames frames have been
// processed, Duration elapses or ctx is cancelled. Cancelling ctx is not an
// error; the summary is marked interrupted instead.
func (s *Session) Run(ctx context.Context, src source.Source) (*Summary, error) {
	startTime := time.Now()

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if s.config.Duration > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.config.Duration)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	s.logger.Info("Starting capture session", logging.Fields{
		"source":        src.Type(),
		"window_length": s.window.Len(),
		"warmup_frames": s.config.WarmupFrames,
		"max_frames":    s.config.MaxFrames,
	})

	samples := make(chan float64, sampleBuffer)
	streamErr := make(chan error, 1)
	go func() {
		defer close(samples)
		streamErr <- src.Stream(runCtx, samples)
	}()

	summary := &Summary{
		SessionID:  s.ID,
		SourceType: string(src.Type()),
		StartTime:  startTime,
	}

	stopped := false
	for sample := range samples {
		if stopped {
			// drain until the producer notices cancellation
			continue
		}

		summary.SamplesReceived++
		if summary.WarmupSkipped < uint64(s.config.WarmupFrames) {
			summary.WarmupSkipped++
			continue
		}
		if math.IsNaN(sample) || math.IsInf(sample, 0) {
			summary.NonFiniteSamples++
		}

		s.process(sample, startTime, summary)

		if s.config.MaxFrames > 0 && summary.FramesProcessed >= uint64(s.config.MaxFrames) {
			s.logger.Debug("Frame limit reached", logging.Fields{
				"frames": summary.FramesProcessed,
			})
			stopped = true
			cancel()
		}
	}

	err := <-streamErr
	s.finish(summary)

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		if ctx.Err() != nil {
			summary.Interrupted = true
		}
	default:
		return summary, fmt.Errorf("failed to read from %s source: %w", src.Type(), err)
	}

	s.logger.Info("Capture session finished", logging.Fields{
		"frames":      summary.FramesProcessed,
		"cycles":      summary.Cycles,
		"frame_rate":  summary.FrameRate,
		"sink_errors": summary.SinkErrors,
		"interrupted": summary.Interrupted,
	})

	return summary, nil
}

func (s *Session) process(sample float64, startTime time.Time, summary *Summary) {
	frame := s.window.Tick(sample)
	summary.FramesProcessed++
	elapsed := time.Since(startTime).Seconds()

	if err := s.sinks.WriteFrame(sink.FramePoint{Frame: frame, Elapsed: elapsed}); err != nil {
		summary.SinkErrors++
		s.logger.Warn("Failed to write frame", logging.Fields{
			"frame": frame.Index,
			"error": err.Error(),
		})
	}

	if !s.window.AtBoundary() {
		return
	}

	report := s.buildReport(elapsed)
	if err := s.sinks.WriteWindow(report); err != nil {
		summary.SinkErrors++
		s.logger.Warn("Failed to write window report", logging.Fields{
			"window": report.Cycle,
			"error":  err.Error(),
		})
	}
}

func (s *Session) buildReport(elapsed float64) sink.WindowReport {
	raw := s.window.Raw()
	nonFinite := 0
	for _, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			nonFinite++
		}
	}

	report := sink.WindowReport{
		SessionID:    s.ID,
		Cycle:        s.window.Cycle() - 1,
		State:        s.window.State(),
		SignalActive: s.window.IsSignalActive(),
		Mean:         s.window.WindowMean(),
		NonFinite:    nonFinite,
		Elapsed:      elapsed,
	}

	fields := logging.Fields{
		"window":     report.Cycle,
		"state":      report.State.String(),
		"mean":       report.Mean,
		"non_finite": nonFinite,
	}

	if report.State != window.StateActive {
		s.logger.Debug("Window held", fields)
		return report
	}
	if s.estimator == nil {
		s.logger.Debug("Window detrended", fields)
		return report
	}

	estimate, err := s.estimator.Estimate(s.window.Active())
	if err != nil {
		fields["error"] = err.Error()
		s.logger.Warn("Skipping pulse estimate", fields)
		return report
	}
	report.Pulse = estimate

	fields["bpm"] = estimate.BPM
	fields["confidence"] = estimate.Confidence
	s.logger.Info("Window detrended", fields)

	return report
}

func (s *Session) finish(summary *Summary) {
	summary.EndTime = time.Now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime)
	if secs := summary.Duration.Seconds(); secs > 0 {
		summary.FrameRate = float64(summary.FramesProcessed) / secs
	}

	summary.Cycles = s.window.Cycle()
	summary.FinalState = s.window.State()
	summary.SignalActive = s.window.IsSignalActive()
	summary.WindowMean = s.window.WindowMean()
	summary.Windows = s.recorder.Windows()
	summary.History = s.recorder.Frames()

	if err := s.sinks.Close(); err != nil {
		summary.SinkErrors++
		s.logger.Warn("Failed to close sinks", logging.Fields{
			"error": err.Error(),
		})
	}
}
