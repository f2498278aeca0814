package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/ppg-monitor/internal/app"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	runSessionConfig string
	runOutputFile    string
	runSource        string
	runFile          string
	runDuration      time.Duration
	runMaxFrames     int
	runHeartRate     float64
	runRealtime      bool
	runPublish       string
	runQuiet         bool
	runDetailed      bool
)

var runCmd = &cobra.Command{
	Use:   "run [flags]",
	Short: "Run a capture session through the PPG window",
	Long: `Run one capture session: read intensity samples from the configured
source, push them through the window and report every cycle.

Examples:
  # Ten seconds of the built-in synthetic pulse, paced like a 60 fps camera
  ppg-monitor run --realtime --duration 10s

  # Replay a recorded trace and write a JSON report
  ppg-monitor run --file trace.csv -o json --output-file report.json

  # Consume a live NATS feed and publish frames back
  ppg-monitor run --source-type nats --publish ppg.frames`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runSessionConfig, "session-config", "",
		"session configuration file (yaml or json)")
	runCmd.Flags().StringVar(&runOutputFile, "output-file", "",
		"write the report here instead of stdout")
	runCmd.Flags().StringVar(&runSource, "source-type", "",
		"sample source (synthetic, file, nats)")
	runCmd.Flags().StringVarP(&runFile, "file", "f", "",
		"trace file with one intensity value per line")
	runCmd.Flags().DurationVarP(&runDuration, "duration", "d", 0,
		"stop the session after this long")
	runCmd.Flags().IntVar(&runMaxFrames, "max-frames", 0,
		"stop after this many processed frames")
	runCmd.Flags().Float64Var(&runHeartRate, "heart-rate", 0,
		"synthetic source heart rate in bpm")
	runCmd.Flags().BoolVar(&runRealtime, "realtime", false,
		"pace the synthetic source at the sample rate")
	runCmd.Flags().StringVar(&runPublish, "publish", "",
		"nats subject to publish frames on")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false,
		"suppress the console summary and stdout report")
	runCmd.Flags().BoolVar(&runDetailed, "detailed", false,
		"include signal statistics and insights in the report")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	timer := NewPerformanceTimer()
	timer.StartEvent("setup")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	appCtx := &app.Context{
		ConfigFile:       runSessionConfig,
		OutputFile:       runOutputFile,
		OutputFormat:     viper.GetString("output_format"),
		OutputSubject:    runPublish,
		LogLevel:         viper.GetString("log_level"),
		SourceType:       runSource,
		SourceFile:       runFile,
		Duration:         runDuration,
		MaxFrames:        runMaxFrames,
		HeartRate:        runHeartRate,
		Realtime:         runRealtime,
		Verbose:          viper.GetBool("verbose"),
		Quiet:            runQuiet,
		DetailedAnalysis: runDetailed,
	}

	monitor, err := app.NewMonitorApp(appCtx)
	if err != nil {
		return fmt.Errorf("failed to initialize monitor: %w", err)
	}
	timer.EndEvent("setup")

	// keep stdout clean when it carries a machine readable report
	console := !runQuiet && (runOutputFile != "" || appCtx.OutputFormat == "table")
	if console {
		cfg := appCtx.Config
		printHeader("PPG Monitor", fmt.Sprintf("%s source, %d frame window", cfg.SourceType, cfg.Session.Window.WindowLength))
	}

	timer.StartEvent("capture")
	result, err := monitor.Run(ctx)
	timer.EndEvent("capture")
	if console && result != nil {
		printRunSummary(result, timer)
	}
	if err != nil {
		appCtx.Logger.Error(err, "Capture failed", logging.Fields{
			"source": appCtx.Config.SourceType,
		})
		return err
	}

	return nil
}

func printRunSummary(result *app.Result, timer *PerformanceTimer) {
	summary := result.Summary
	title := cases.Title(language.English)

	printSectionHeader("Session Summary")
	printInfo("Session: %s", summary.SessionID)
	printInfo("Frames: %d processed, %d warm-up skipped", summary.FramesProcessed, summary.WarmupSkipped)
	printInfo("Windows: %d at %.1f fps", summary.Cycles, summary.FrameRate)
	printInfo("Final state: %s (mean %.4f)", title.String(summary.FinalState.String()), summary.WindowMean)

	if summary.NonFiniteSamples > 0 {
		printWarning("%d non-finite samples reached the window", summary.NonFiniteSamples)
	}
	if summary.SinkErrors > 0 {
		printWarning("%d sink writes failed", summary.SinkErrors)
	}
	if summary.Interrupted {
		printWarning("Session interrupted before the source finished")
	}

	if bpm := result.Metrics.PulseBPM; bpm != nil && bpm.Count > 0 {
		printSuccess("Pulse: %.1f bpm median over %d windows", bpm.Median, bpm.Count)
	}

	for _, insight := range result.Insights {
		printInfo("%s", insight)
	}

	fmt.Printf("\n%sTotal Duration: %v (capture %v)%s\n", ColorBold,
		timer.GetTotalDuration().Round(time.Millisecond),
		timer.GetDuration("capture").Round(time.Millisecond), ColorReset)
}
