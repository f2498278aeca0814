package configs

import (
	"strings"
	"testing"
	"time"

	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/source"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFromYAML(t *testing.T, doc string) *Config {
	t.Helper()

	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(doc)))

	cfg, err := LoadConfigFrom(v)
	require.NoError(t, err)
	return cfg
}

func TestDefaultsMatchGetDefaultConfig(t *testing.T) {
	cfg := loadFromYAML(t, "")
	want := GetDefaultConfig()

	assert.Equal(t, want.Window, cfg.Window)
	assert.Equal(t, want.Capture, cfg.Capture)
	assert.Equal(t, want.Source, cfg.Source)
	assert.Equal(t, want.Pulse, cfg.Pulse)
	assert.Equal(t, want.History, cfg.History)
	assert.Equal(t, want.NATS, cfg.NATS)
	assert.Equal(t, want.Output, cfg.Output)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestConfigFileOverridesDefaults(t *testing.T) {
	cfg := loadFromYAML(t, `
window:
  length: 120
capture:
  sample_rate: 30
  duration: 10s
source:
  type: file
  file: trace.csv
`)

	assert.Equal(t, 120, cfg.Window.Length)
	assert.Equal(t, 0.5, cfg.Window.FillValue)
	assert.Equal(t, 30.0, cfg.Capture.SampleRate)
	assert.Equal(t, 10*time.Second, cfg.Capture.Duration)
	assert.Equal(t, 100, cfg.Capture.WarmupFrames)
	require.NoError(t, ValidateConfig(cfg))

	sessionCfg := cfg.ToSessionConfig()
	assert.Equal(t, 120, sessionCfg.Window.WindowLength)
	assert.Equal(t, 30.0, sessionCfg.Pulse.SampleRate)
	assert.Equal(t, 10*time.Second, sessionCfg.Duration)
	assert.True(t, sessionCfg.PulseEnabled)

	sourceCfg := cfg.ToSourceConfig()
	assert.Equal(t, "trace.csv", sourceCfg.Target)
	assert.Equal(t, 30.0, sourceCfg.SampleRate)
}

func TestToSourceConfigForNATS(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Source.Type = "nats"
	cfg.NATS.InputSubject = "ppg.lab"

	sourceCfg := cfg.ToSourceConfig()
	assert.Equal(t, "nats://127.0.0.1:4222", sourceCfg.Target)
	assert.Equal(t, "ppg.lab", sourceCfg.Subject)
	assert.Equal(t, 3*time.Second, sourceCfg.Timeout)
}

func TestSourceTargetFor(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Source.File = "trace.csv"

	target, subject := cfg.SourceTargetFor(source.SourceTypeFile)
	assert.Equal(t, "trace.csv", target)
	assert.Empty(t, subject)

	target, subject = cfg.SourceTargetFor(source.SourceTypeNATS)
	assert.Equal(t, "nats://127.0.0.1:4222", target)
	assert.Equal(t, "ppg.wave", subject)

	target, subject = cfg.SourceTargetFor(source.SourceTypeSynthetic)
	assert.Empty(t, target)
	assert.Empty(t, subject)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"short window", func(c *Config) { c.Window.Length = 1 }, "window length"},
		{"zero sample rate", func(c *Config) { c.Capture.SampleRate = 0 }, "sample rate"},
		{"negative warmup", func(c *Config) { c.Capture.WarmupFrames = -1 }, "warmup"},
		{"zero window history", func(c *Config) { c.History.Windows = 0 }, "window history"},
		{"file without path", func(c *Config) { c.Source.Type = "file" }, "source.file"},
		{"nats without subject", func(c *Config) {
			c.Source.Type = "nats"
			c.NATS.InputSubject = ""
		}, "nats.input_subject"},
		{"unknown source", func(c *Config) { c.Source.Type = "webcam" }, "unsupported source type"},
		{"inverted pulse band", func(c *Config) { c.Pulse.MaxBPM = 30 }, "pulse band"},
		{"disabled pulse skips band check", func(c *Config) {
			c.Pulse.Enabled = false
			c.Pulse.MaxBPM = 0
		}, ""},
		{"bad output format", func(c *Config) { c.OutputFormat = "xml" }, "output format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDefaultOutputConfigForFormat(t *testing.T) {
	assert.False(t, GetDefaultOutputConfigForFormat("json").Colors)
	assert.True(t, GetDefaultOutputConfigForFormat("json").IncludeHistory)
	assert.Equal(t, 2, GetDefaultOutputConfigForFormat("table").Precision)
	assert.Equal(t, GetDefaultOutputConfig(), GetDefaultOutputConfigForFormat("unknown"))
}
