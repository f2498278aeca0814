package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/RyanBlaney/ppg-monitor/internal/session"
	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/analyzers"
	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/source"
	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/window"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose      bool   `mapstructure:"verbose"`
	LogLevel     string `mapstructure:"log_level"`
	OutputFormat string `mapstructure:"output_format"`
	ConfigDir    string `mapstructure:"config_dir"`
	DataDir      string `mapstructure:"data_dir"`

	// Signal windowing
	Window WindowConfig `mapstructure:"window"`

	// Capture loop settings
	Capture CaptureConfig `mapstructure:"capture"`

	// Sample source
	Source SourceConfig `mapstructure:"source"`

	// Pulse estimation on detrended windows
	Pulse PulseConfig `mapstructure:"pulse"`

	// Chart feed history
	History HistoryConfig `mapstructure:"history"`

	// Messaging
	NATS NATSConfig `mapstructure:"nats"`

	// Per-window metrics
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Output configuration
	Output OutputConfig `mapstructure:"output"`
}

// WindowConfig sizes the circular sample buffer
type WindowConfig struct {
	Length    int     `mapstructure:"length"`
	FillValue float64 `mapstructure:"fill_value"`
}

// CaptureConfig contains capture loop settings
type CaptureConfig struct {
	SampleRate   float64       `mapstructure:"sample_rate"`
	WarmupFrames int           `mapstructure:"warmup_frames"`
	MaxFrames    int           `mapstructure:"max_frames"`
	Duration     time.Duration `mapstructure:"duration"`
}

// SourceConfig selects and tunes the sample source
type SourceConfig struct {
	Type      string  `mapstructure:"type"`
	File      string  `mapstructure:"file"`
	HeartRate float64 `mapstructure:"heart_rate"`
	Noise     float64 `mapstructure:"noise"`
	Realtime  bool    `mapstructure:"realtime"`
}

// PulseConfig contains pulse estimation settings
type PulseConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	MinBPM     float64 `mapstructure:"min_bpm"`
	MaxBPM     float64 `mapstructure:"max_bpm"`
	MinFFTSize int     `mapstructure:"min_fft_size"`
}

// HistoryConfig bounds the recent frame and window report history
type HistoryConfig struct {
	Length  int `mapstructure:"length"`
	Windows int `mapstructure:"windows"`
}

// NATSConfig contains broker settings for the nats source and publisher
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	InputSubject  string        `mapstructure:"input_subject"`
	OutputSubject string        `mapstructure:"output_subject"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// MetricsConfig contains metric emission settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	LogFile string `mapstructure:"log_file"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Precision      int  `mapstructure:"precision"`
	IncludeHistory bool `mapstructure:"include_history"`
	Colors         bool `mapstructure:"colors"`
}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(viper.GetViper())
}

// LoadConfigFrom decodes configuration from v
func LoadConfigFrom(v *viper.Viper) (*Config, error) {
	config := &Config{}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return config, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config.Window.Length <= 1 {
		return fmt.Errorf("window length must be greater than 1")
	}

	if config.Capture.SampleRate <= 0 {
		return fmt.Errorf("capture sample rate must be positive")
	}

	if config.Capture.WarmupFrames < 0 {
		return fmt.Errorf("warmup frames cannot be negative")
	}

	if config.Capture.MaxFrames < 0 {
		return fmt.Errorf("max frames cannot be negative")
	}

	if config.History.Length <= 0 {
		return fmt.Errorf("history length must be positive")
	}
	if config.History.Windows <= 0 {
		return fmt.Errorf("window history must be positive")
	}

	switch source.ParseSourceType(config.Source.Type) {
	case source.SourceTypeSynthetic:
		if config.Source.HeartRate <= 0 {
			return fmt.Errorf("synthetic heart rate must be positive")
		}
	case source.SourceTypeFile:
		if config.Source.File == "" {
			return fmt.Errorf("file source requires source.file")
		}
	case source.SourceTypeNATS:
		if config.NATS.URL == "" || config.NATS.InputSubject == "" {
			return fmt.Errorf("nats source requires nats.url and nats.input_subject")
		}
	default:
		return fmt.Errorf("unsupported source type: %s", config.Source.Type)
	}

	if config.Pulse.Enabled {
		if config.Pulse.MinBPM <= 0 || config.Pulse.MaxBPM <= config.Pulse.MinBPM {
			return fmt.Errorf("pulse band must satisfy 0 < min_bpm < max_bpm")
		}
	}

	switch strings.ToLower(config.OutputFormat) {
	case "json", "yaml", "csv", "table":
	default:
		return fmt.Errorf("unsupported output format: %s", config.OutputFormat)
	}

	return nil
}

// ToSessionConfig maps the application configuration onto a capture session
func (c *Config) ToSessionConfig() *session.Config {
	return &session.Config{
		Window: window.Config{
			WindowLength: c.Window.Length,
			FillValue:    c.Window.FillValue,
		},
		Pulse: analyzers.PulseConfig{
			SampleRate: c.Capture.SampleRate,
			MinBPM:     c.Pulse.MinBPM,
			MaxBPM:     c.Pulse.MaxBPM,
			MinFFTSize: c.Pulse.MinFFTSize,
		},
		PulseEnabled:  c.Pulse.Enabled,
		WarmupFrames:  c.Capture.WarmupFrames,
		MaxFrames:     c.Capture.MaxFrames,
		Duration:      c.Capture.Duration,
		HistoryLength: c.History.Length,
		WindowHistory: c.History.Windows,
	}
}

// ToSourceConfig maps the application configuration onto a sample source
func (c *Config) ToSourceConfig() *source.Config {
	cfg := source.DefaultConfig()
	cfg.SampleRate = c.Capture.SampleRate
	cfg.HeartRate = c.Source.HeartRate
	cfg.Noise = c.Source.Noise
	cfg.Realtime = c.Source.Realtime

	target, subject := c.SourceTargetFor(source.ParseSourceType(c.Source.Type))
	cfg.Target = target
	if subject != "" {
		cfg.Subject = subject
	}
	if c.NATS.Timeout > 0 {
		cfg.Timeout = c.NATS.Timeout
	}

	return cfg
}

// SourceTargetFor returns the configured target and subject for a source type.
// Synthetic sources have neither.
func (c *Config) SourceTargetFor(sourceType source.SourceType) (target, subject string) {
	switch sourceType {
	case source.SourceTypeFile:
		return c.Source.File, ""
	case source.SourceTypeNATS:
		return c.NATS.URL, c.NATS.InputSubject
	}
	return "", ""
}
