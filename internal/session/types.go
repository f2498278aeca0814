package session

import (
	"time"

	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/analyzers"
	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/sink"
	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/window"
)

// Config contains configuration for a capture session
type Config struct {
	Window        window.Config         `json:"window" yaml:"window"`
	Pulse         analyzers.PulseConfig `json:"pulse" yaml:"pulse"`
	PulseEnabled  bool                  `json:"pulse_enabled" yaml:"pulse_enabled"`
	WarmupFrames  int                   `json:"warmup_frames" yaml:"warmup_frames"`
	MaxFrames     int                   `json:"max_frames" yaml:"max_frames"`
	Duration      time.Duration         `json:"duration" yaml:"duration"`
	HistoryLength int                   `json:"history_length" yaml:"history_length"`
	WindowHistory int                   `json:"window_history" yaml:"window_history"`
}

// DefaultConfig mirrors the browser capture defaults: 300 frame windows at
// 60 fps, 100 warm-up frames and a 100 point chart history. The most recent
// 1000 window reports are kept.
func DefaultConfig() *Config {
	return &Config{
		Window:        window.DefaultConfig(),
		Pulse:         analyzers.DefaultPulseConfig(),
		PulseEnabled:  true,
		WarmupFrames:  100,
		HistoryLength: 100,
		WindowHistory: 1000,
	}
}

// Summary is the outcome of a capture session
type Summary struct {
	SessionID        string              `json:"session_id" yaml:"session_id"`
	SourceType       string              `json:"source_type" yaml:"source_type"`
	StartTime        time.Time           `json:"start_time" yaml:"start_time"`
	EndTime          time.Time           `json:"end_time" yaml:"end_time"`
	Duration         time.Duration       `json:"duration" yaml:"duration"`
	SamplesReceived  uint64              `json:"samples_received" yaml:"samples_received"`
	WarmupSkipped    uint64              `json:"warmup_skipped" yaml:"warmup_skipped"`
	FramesProcessed  uint64              `json:"frames_processed" yaml:"frames_processed"`
	NonFiniteSamples uint64              `json:"non_finite_samples" yaml:"non_finite_samples"`
	Cycles           uint64              `json:"cycles" yaml:"cycles"`
	FrameRate        float64             `json:"frame_rate" yaml:"frame_rate"`
	SinkErrors       int                 `json:"sink_errors" yaml:"sink_errors"`
	Interrupted      bool                `json:"interrupted" yaml:"interrupted"`
	FinalState       window.State        `json:"final_state" yaml:"final_state"`
	SignalActive     bool                `json:"signal_active" yaml:"signal_active"`
	WindowMean       float64             `json:"window_mean" yaml:"window_mean"`
	Windows          []sink.WindowReport `json:"windows" yaml:"windows"`
	History          []sink.FramePoint   `json:"history" yaml:"history"`
}
