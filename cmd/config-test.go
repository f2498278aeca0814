package cmd

import (
	"fmt"
	"strings"

	"github.com/RyanBlaney/ppg-monitor/configs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// configTestCmd represents the config test command
var configTestCmd = &cobra.Command{
	Use:   "config-test",
	Short: "Test and display all configuration values",
	Long: `Test configuration loading and display all values to verify proper parsing.

This command loads the configuration and displays all values in a structured format
to help verify that your YAML configuration is being parsed correctly.

Examples:
  # Test with default config file
  ppg-monitor config-test

  # Test with specific config file
  ppg-monitor --config /path/to/config.yaml config-test`,
	RunE: runConfigTest,
}

func init() {
	rootCmd.AddCommand(configTestCmd)
}

func runConfigTest(cmd *cobra.Command, args []string) error {
	fmt.Println("PPG MONITOR CONFIGURATION TEST")
	fmt.Println(strings.Repeat("=", 80))

	// Load configuration
	config, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	printSection("APPLICATION SETTINGS")
	printKeyValue("Verbose", fmt.Sprintf("%t", config.Verbose))
	printKeyValue("Log Level", config.LogLevel)
	printKeyValue("Output Format", config.OutputFormat)
	printKeyValue("Config Directory", config.ConfigDir)
	printKeyValue("Data Directory", config.DataDir)

	printSection("WINDOW")
	printKeyValue("Length", fmt.Sprintf("%d frames", config.Window.Length))
	printKeyValue("Fill Value", fmt.Sprintf("%.3f", config.Window.FillValue))
	if config.Capture.SampleRate > 0 {
		printKeyValue("Window Span", fmt.Sprintf("%.2fs", float64(config.Window.Length)/config.Capture.SampleRate))
	}

	printSection("CAPTURE")
	printKeyValue("Sample Rate", fmt.Sprintf("%.1f fps", config.Capture.SampleRate))
	printKeyValue("Warm-up Frames", fmt.Sprintf("%d", config.Capture.WarmupFrames))
	printKeyValue("Max Frames", fmt.Sprintf("%d", config.Capture.MaxFrames))
	printKeyValue("Duration", config.Capture.Duration.String())

	printSection("SOURCE")
	printKeyValue("Type", config.Source.Type)
	printKeyValue("File", config.Source.File)
	printKeyValue("Heart Rate", fmt.Sprintf("%.1f bpm", config.Source.HeartRate))
	printKeyValue("Noise", fmt.Sprintf("%.4f", config.Source.Noise))
	printKeyValue("Realtime", fmt.Sprintf("%t", config.Source.Realtime))

	printSection("PULSE")
	printKeyValue("Enabled", fmt.Sprintf("%t", config.Pulse.Enabled))
	printKeyValue("Band", fmt.Sprintf("%.0f-%.0f bpm", config.Pulse.MinBPM, config.Pulse.MaxBPM))
	printKeyValue("Min FFT Size", fmt.Sprintf("%d", config.Pulse.MinFFTSize))

	printSection("HISTORY")
	printKeyValue("Length", fmt.Sprintf("%d points", config.History.Length))

	printSection("NATS")
	printKeyValue("URL", config.NATS.URL)
	printKeyValue("Input Subject", config.NATS.InputSubject)
	printKeyValue("Output Subject", config.NATS.OutputSubject)
	printKeyValue("Timeout", config.NATS.Timeout.String())

	printSection("METRICS")
	printKeyValue("Enabled", fmt.Sprintf("%t", config.Metrics.Enabled))
	printKeyValue("Log File", config.Metrics.LogFile)

	printSection("OUTPUT CONFIGURATION")
	printKeyValue("Precision", fmt.Sprintf("%d", config.Output.Precision))
	printKeyValue("Include History", fmt.Sprintf("%t", config.Output.IncludeHistory))
	printKeyValue("Colors", fmt.Sprintf("%t", config.Output.Colors))

	fmt.Println()
	if err := configs.ValidateConfig(config); err != nil {
		fmt.Println(ColorRed + strings.Repeat("-", 80))
		fmt.Printf("CONFIGURATION IS INVALID: %v\n", err)
		fmt.Println(strings.Repeat("=", 80) + ColorReset)
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Println(ColorGreen + strings.Repeat("-", 80))
	fmt.Println("CONFIGURATION TEST COMPLETED SUCCESSFULLY")
	fmt.Printf("Config file: %s\n", configFileUsed())
	fmt.Println(strings.Repeat("=", 80) + ColorReset)

	return nil
}

func configFileUsed() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return "(none, defaults and environment only)"
}
