package configs

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const AppName = "ppg-monitor"

// SetDefaults sets default configuration values for all components
func SetDefaults(v *viper.Viper) {
	// Application defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("verbose", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("output_format", "table")
	v.SetDefault("config_dir", filepath.Join(home, ".config", AppName))
	v.SetDefault("data_dir", filepath.Join(home, ".local", "share", AppName))

	// Window defaults (5s at 60 fps)
	v.SetDefault("window.length", 300)
	v.SetDefault("window.fill_value", 0.5)

	// Capture defaults
	v.SetDefault("capture.sample_rate", 60.0)
	v.SetDefault("capture.warmup_frames", 100)
	v.SetDefault("capture.max_frames", 0)
	v.SetDefault("capture.duration", time.Duration(0))

	// Source defaults
	v.SetDefault("source.type", "synthetic")
	v.SetDefault("source.file", "")
	v.SetDefault("source.heart_rate", 72.0)
	v.SetDefault("source.noise", 0.002)
	v.SetDefault("source.realtime", false)

	// Pulse defaults
	v.SetDefault("pulse.enabled", true)
	v.SetDefault("pulse.min_bpm", 42.0)
	v.SetDefault("pulse.max_bpm", 210.0)
	v.SetDefault("pulse.min_fft_size", 4096)

	v.SetDefault("history.length", 100)
	v.SetDefault("history.windows", 1000)

	// NATS defaults
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.input_subject", "ppg.wave")
	v.SetDefault("nats.output_subject", "")
	v.SetDefault("nats.timeout", 3*time.Second)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.log_file", "")

	// Output defaults
	v.SetDefault("output.precision", 3)
	v.SetDefault("output.include_history", false)
	v.SetDefault("output.colors", true)
}

// GetDefaultConfig returns a Config struct with all default values set
func GetDefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Verbose:      false,
		LogLevel:     "info",
		OutputFormat: "table",
		ConfigDir:    filepath.Join(home, ".config", AppName),
		DataDir:      filepath.Join(home, ".local", "share", AppName),

		Window:  GetDefaultWindowConfig(),
		Capture: GetDefaultCaptureConfig(),
		Source:  GetDefaultSourceConfig(),
		Pulse:   GetDefaultPulseConfig(),
		History: HistoryConfig{Length: 100, Windows: 1000},
		NATS:    GetDefaultNATSConfig(),
		Metrics: MetricsConfig{},
		Output:  GetDefaultOutputConfig(),
	}
}

// GetDefaultWindowConfig returns the 300 sample window prefilled with 0.5
func GetDefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Length:    300,
		FillValue: 0.5,
	}
}

// GetDefaultCaptureConfig returns a 60 fps capture with 100 warm-up frames
func GetDefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:   60,
		WarmupFrames: 100,
	}
}

// GetDefaultSourceConfig returns an offline synthetic source at 72 bpm
func GetDefaultSourceConfig() SourceConfig {
	return SourceConfig{
		Type:      "synthetic",
		HeartRate: 72,
		Noise:     0.002,
	}
}

// GetDefaultPulseConfig returns the 42-210 bpm search band
func GetDefaultPulseConfig() PulseConfig {
	return PulseConfig{
		Enabled:    true,
		MinBPM:     42,
		MaxBPM:     210,
		MinFFTSize: 4096,
	}
}

// GetDefaultNATSConfig returns settings for a local broker
func GetDefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:          "nats://127.0.0.1:4222",
		InputSubject: "ppg.wave",
		Timeout:      3 * time.Second,
	}
}

// GetDefaultOutputConfig returns default output formatting settings
func GetDefaultOutputConfig() OutputConfig {
	return OutputConfig{
		Precision: 3,
		Colors:    true,
	}
}

// GetDefaultOutputConfigForFormat returns output config optimized for specific format
func GetDefaultOutputConfigForFormat(format string) OutputConfig {
	base := GetDefaultOutputConfig()

	switch format {
	case "json", "yaml":
		base.Colors = false
		base.Precision = 6
		base.IncludeHistory = true
	case "csv":
		base.Colors = false
	case "table":
		base.Precision = 2
	default:
		// Keep defaults
	}

	return base
}
