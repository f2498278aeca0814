package cmd

import (
	"fmt"

	"github.com/RyanBlaney/ppg-monitor/internal/app"
	"github.com/spf13/cobra"
)

var generateConfigCmd = &cobra.Command{
	Use:   "generate-config [output-file]",
	Short: "Write an example session configuration",
	Long: `Write an example session configuration in YAML. Pass it to
"ppg-monitor run --session-config" and edit only the keys you need.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFile := "ppg-session.yaml"
		if len(args) == 1 {
			outputFile = args[0]
		}

		if err := app.GenerateExampleConfig(outputFile); err != nil {
			return err
		}
		printSuccess("Example session configuration written to: %s", outputFile)
		return nil
	},
}

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config <session-file>",
	Short: "Validate a session configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.ValidateConfig(args[0])
		if err != nil {
			return err
		}

		printSuccess("Session configuration is valid: %s", args[0])
		printInfo("Source: %s", cfg.SourceType)
		printInfo("Window: %d frames, fill %.2f", cfg.Session.Window.WindowLength, cfg.Session.Window.FillValue)
		printInfo("Warm-up: %d frames", cfg.Session.WarmupFrames)
		if cfg.Session.Duration > 0 {
			printInfo("Duration: %s", cfg.Session.Duration)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateConfigCmd)
	rootCmd.AddCommand(validateConfigCmd)
}
