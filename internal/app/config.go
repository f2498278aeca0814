package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/RyanBlaney/ppg-monitor/configs"
	"github.com/RyanBlaney/ppg-monitor/internal/session"
	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/source"
	"gopkg.in/yaml.v3"
)

// MonitorConfig is everything one capture run needs. Session files use the
// same layout; keys they omit keep the application defaults.
type MonitorConfig struct {
	SourceType    string          `json:"source_type" yaml:"source_type"`
	OutputSubject string          `json:"output_subject,omitempty" yaml:"output_subject,omitempty"`
	Session       *session.Config `json:"session" yaml:"session"`
	Source        *source.Config  `json:"source" yaml:"source"`
}

// Validate checks the merged configuration before a session is built
func (c *MonitorConfig) Validate() error {
	if c.Session == nil || c.Source == nil {
		return fmt.Errorf("session and source settings are required")
	}

	if c.Session.Window.WindowLength <= 1 {
		return fmt.Errorf("window length must be greater than 1, got %d", c.Session.Window.WindowLength)
	}
	if c.Session.WarmupFrames < 0 {
		return fmt.Errorf("warmup frames cannot be negative")
	}
	if c.Session.MaxFrames < 0 {
		return fmt.Errorf("max frames cannot be negative")
	}
	if c.Session.HistoryLength <= 0 {
		return fmt.Errorf("history length must be positive")
	}
	if c.Session.WindowHistory <= 0 {
		return fmt.Errorf("window history must be positive")
	}
	if c.Source.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive")
	}

	switch source.ParseSourceType(c.SourceType) {
	case source.SourceTypeSynthetic:
	case source.SourceTypeFile:
		if c.Source.Target == "" {
			return fmt.Errorf("file source requires a path")
		}
	case source.SourceTypeNATS:
		if c.Source.Subject == "" {
			return fmt.Errorf("nats source requires a subject")
		}
	default:
		return fmt.Errorf("unsupported source type: %s", c.SourceType)
	}

	return nil
}

// loadMonitorConfigFromFile decodes a session file over cfg
func loadMonitorConfigFromFile(filePath string, cfg *MonitorConfig) error {
	// Check if file exists
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("session configuration file does not exist: %s", filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open session config file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read session config file: %w", err)
	}

	// Determine file format
	switch filepath.Ext(filePath) {
	case ".yaml", ".yml":
		return decodeYAML(data, cfg)
	case ".json":
		return decodeJSON(data, cfg)
	default:
		// Try YAML first, then JSON
		if err := decodeYAML(data, cfg); err == nil {
			return nil
		}
		return decodeJSON(data, cfg)
	}
}

func decodeYAML(data []byte, cfg *MonitorConfig) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML session config: %w", err)
	}
	return nil
}

func decodeJSON(data []byte, cfg *MonitorConfig) error {
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse JSON session config: %w", err)
	}
	return nil
}

// baseMonitorConfig projects the viper backed configuration onto a run
func baseMonitorConfig(base *configs.Config) *MonitorConfig {
	return &MonitorConfig{
		SourceType:    base.Source.Type,
		OutputSubject: base.NATS.OutputSubject,
		Session:       base.ToSessionConfig(),
		Source:        base.ToSourceConfig(),
	}
}

// mergeMonitorConfig layers base config, the session file and CLI flags
func mergeMonitorConfig(base *configs.Config, ctx *Context) (*MonitorConfig, error) {
	cfg := baseMonitorConfig(base)

	if ctx.ConfigFile != "" {
		if err := loadMonitorConfigFromFile(ctx.ConfigFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load session configuration: %w", err)
		}
	}

	// Override with CLI flags
	if ctx.SourceFile != "" {
		cfg.Source.Target = ctx.SourceFile
		if ctx.SourceType == "" {
			cfg.SourceType = string(source.DetectType(ctx.SourceFile))
		}
	}
	if ctx.SourceType != "" && ctx.SourceType != cfg.SourceType {
		cfg.SourceType = ctx.SourceType
		if ctx.SourceFile == "" {
			target, subject := base.SourceTargetFor(source.ParseSourceType(ctx.SourceType))
			cfg.Source.Target = target
			if subject != "" {
				cfg.Source.Subject = subject
			}
		}
	}
	if ctx.Duration > 0 {
		cfg.Session.Duration = ctx.Duration
	}
	if ctx.MaxFrames > 0 {
		cfg.Session.MaxFrames = ctx.MaxFrames
	}
	if ctx.HeartRate > 0 {
		cfg.Source.HeartRate = ctx.HeartRate
	}
	if ctx.Realtime {
		cfg.Source.Realtime = true
	}
	if ctx.OutputSubject != "" {
		cfg.OutputSubject = ctx.OutputSubject
	}

	// synthetic runs without a stop condition are paced at the sample rate
	if source.ParseSourceType(cfg.SourceType) == source.SourceTypeSynthetic &&
		cfg.Session.MaxFrames == 0 && cfg.Session.Duration == 0 {
		cfg.Source.Realtime = true
	}

	// the estimator has to see the rate frames actually arrive at
	cfg.Session.Pulse.SampleRate = cfg.Source.SampleRate

	return cfg, nil
}

// GenerateExampleConfig generates an example session configuration file
func GenerateExampleConfig(outputFile string) error {
	exampleConfig := baseMonitorConfig(configs.GetDefaultConfig())
	exampleConfig.Session.Duration = 30 * time.Second
	exampleConfig.Source.Realtime = true

	// Write to YAML file
	data, err := yaml.Marshal(exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ValidateConfig loads a session file over the defaults and validates it
func ValidateConfig(configFile string) (*MonitorConfig, error) {
	cfg := baseMonitorConfig(configs.GetDefaultConfig())
	if err := loadMonitorConfigFromFile(configFile, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
