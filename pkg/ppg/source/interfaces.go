package source

import (
	"context"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
)

// SourceType identifies where samples come from
type SourceType string

const (
	SourceTypeSynthetic   SourceType = "synthetic"
	SourceTypeFile        SourceType = "file"
	SourceTypeNATS        SourceType = "nats"
	SourceTypeUnsupported SourceType = "unsupported"
)

// Source produces normalized intensity samples, one per captured frame
type Source interface {
	// Stream sends samples to out until the source is exhausted (returns nil)
	// or ctx is done (returns ctx.Err()). It never closes out.
	Stream(ctx context.Context, out chan<- float64) error
	Type() SourceType
	Close() error
}

// Config carries the settings every source type draws from
type Config struct {
	Target     string        `json:"target" yaml:"target"` // file path or nats url
	Subject    string        `json:"subject" yaml:"subject"`
	SampleRate float64       `json:"sample_rate" yaml:"sample_rate"`
	HeartRate  float64       `json:"heart_rate" yaml:"heart_rate"`
	Noise      float64       `json:"noise" yaml:"noise"`
	Realtime   bool          `json:"realtime" yaml:"realtime"`
	MaxSamples int           `json:"max_samples" yaml:"max_samples"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`

	Logger logging.Logger `json:"-" yaml:"-"`
}

// DefaultConfig returns a 60 fps synthetic source at 72 bpm
func DefaultConfig() *Config {
	return &Config{
		Subject:    "ppg.wave",
		SampleRate: 60,
		HeartRate:  72,
		Noise:      0.002,
		Timeout:    time.Second,
	}
}
