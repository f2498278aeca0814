package app

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/latency-benchmark-common/output"
	"github.com/RyanBlaney/ppg-monitor/configs"
	"github.com/RyanBlaney/ppg-monitor/internal/session"
	"github.com/RyanBlaney/ppg-monitor/internal/stats"
	"github.com/RyanBlaney/ppg-monitor/internal/transport"
	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/sink"
	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/source"
	"github.com/tunein/go-logging/v7/pkg/rootcollector"
)

// Context holds the application context and configuration
type Context struct {
	// CLI arguments
	ConfigFile       string // Session configuration file (optional)
	OutputFile       string
	OutputFormat     string
	OutputSubject    string
	LogLevel         string
	SourceType       string
	SourceFile       string
	Duration         time.Duration
	MaxFrames        int
	HeartRate        float64
	Realtime         bool
	Verbose          bool
	Quiet            bool
	DetailedAnalysis bool

	// Runtime context
	Logger logging.Logger
	Base   *configs.Config
	Config *MonitorConfig
}

// Result is what a monitor run produced
type Result struct {
	Summary  *session.Summary
	Metrics  *stats.SignalMetrics
	Insights []string
}

// MonitorApp handles the capture application lifecycle
type MonitorApp struct {
	ctx     *Context
	base    *configs.Config
	config  *MonitorConfig
	factory *source.Factory
	logger  logging.Logger
}

// NewMonitorApp creates a new monitor application
func NewMonitorApp(ctx *Context) (*MonitorApp, error) {
	// Set up logging
	logger := setupLogging(ctx)
	ctx.Logger = logger

	// Load configuration
	base := ctx.Base
	if base == nil {
		var err error
		base, err = configs.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load base configuration: %w", err)
		}
	}
	if ctx.OutputFormat == "" {
		ctx.OutputFormat = base.OutputFormat
	}

	config, err := mergeMonitorConfig(base, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session configuration: %w", err)
	}
	config.Source.Logger = logger
	ctx.Base = base
	ctx.Config = config

	logger.Debug("Monitor application initialized", logging.Fields{
		"config_file":   ctx.ConfigFile,
		"source_type":   config.SourceType,
		"window_length": config.Session.Window.WindowLength,
		"sample_rate":   config.Source.SampleRate,
		"output_format": ctx.OutputFormat,
	})

	return &MonitorApp{
		ctx:     ctx,
		base:    base,
		config:  config,
		factory: source.NewFactory(),
		logger:  logger,
	}, nil
}

// Run executes one capture session and writes its report. When the source
// fails mid-run the partial report is still written and returned alongside
// the error.
func (app *MonitorApp) Run(ctx context.Context) (*Result, error) {
	src, err := app.factory.CreateSource(source.ParseSourceType(app.config.SourceType), app.config.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to create source: %w", err)
	}
	defer src.Close()

	sinks, cleanup, err := app.buildSinks(src.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to create sinks: %w", err)
	}
	defer cleanup()

	sess, err := session.New(app.config.Session, app.logger, sinks...)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	summary, runErr := sess.Run(ctx, src)
	if summary == nil {
		return nil, fmt.Errorf("capture session failed: %w", runErr)
	}

	calculator := stats.NewMetricsCalculator(app.logger)
	result := &Result{
		Summary: summary,
		Metrics: calculator.CalculateSignalMetrics(summary.Windows),
	}
	result.Insights = calculator.GenerateInsights(result.Metrics)

	if err := app.outputResults(result); err != nil {
		return result, fmt.Errorf("failed to output results: %w", err)
	}

	if runErr != nil {
		return result, fmt.Errorf("capture session failed: %w", runErr)
	}
	if summary.FramesProcessed == 0 {
		return result, fmt.Errorf("no frames were processed")
	}

	return result, nil
}

// buildSinks wires the optional nats publisher and metrics sinks
func (app *MonitorApp) buildSinks(sourceType source.SourceType) ([]sink.Sink, func(), error) {
	var sinks []sink.Sink
	cleanup := func() {}

	if app.config.OutputSubject != "" {
		conn, err := transport.Connect(app.base.NATS.URL, app.base.NATS.Timeout)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = conn.Close
		sinks = append(sinks, sink.NewNATSPublisher(conn, app.config.OutputSubject, app.logger))
	}

	if app.base.Metrics.Enabled {
		if app.base.Metrics.LogFile != "" {
			if err := sink.ConfigureMetrics(app.base.Metrics.LogFile); err != nil {
				app.logger.Error(err, "Failed configuring metrics log writer")
			}
		}
		sinks = append(sinks, sink.NewMetricsSink(string(sourceType), app.logger))
	}

	return sinks, cleanup, nil
}

// setupLogging configures logging based on context
func setupLogging(ctx *Context) logging.Logger {
	if ctx.Logger != nil {
		return ctx.Logger
	}

	logger := logging.NewDefaultLogger()
	if ctx.Verbose {
		logger.SetLevel(logging.DebugLevel)
	} else {
		logger.SetLevel(ParseLogLevel(ctx.LogLevel))
	}
	return logger
}

// ParseLogLevel maps a log_level setting to a logging level, defaulting to info
func ParseLogLevel(level string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logging.DebugLevel
	case "warn", "warning":
		return logging.WarnLevel
	case "error":
		return logging.ErrorLevel
	default:
		return logging.InfoLevel
	}
}

// outputResults handles all result output
func (app *MonitorApp) outputResults(result *Result) error {
	precision := app.base.Output.Precision
	includeHistory := app.base.Output.IncludeHistory || app.ctx.Verbose

	outputData := map[string]any{
		"session_summary": cleanSessionSummary(result.Summary, precision, includeHistory),
		"timestamp":       time.Now(),
		"configuration": map[string]any{
			"source_type":   app.config.SourceType,
			"window_length": app.config.Session.Window.WindowLength,
			"fill_value":    app.config.Session.Window.FillValue,
			"sample_rate":   app.config.Source.SampleRate,
			"warmup_frames": app.config.Session.WarmupFrames,
			"pulse_enabled": app.config.Session.PulseEnabled,
		},
	}

	if app.ctx.DetailedAnalysis || app.ctx.Verbose {
		outputData["signal_metrics"] = result.Metrics
		outputData["insights"] = result.Insights
	}

	// Create formatter
	var formatter output.Formatter
	switch app.ctx.OutputFormat {
	case "json":
		formatter = &output.JSONFormatter{}
	case "yaml":
		formatter = &output.YAMLFormatter{}
	case "csv":
		formatter = &output.CSVFormatter{}
	case "table":
		formatter = &output.TableFormatter{}
	default:
		formatter = &output.JSONFormatter{}
	}

	// Format data
	formattedData, err := formatter.Format(outputData, true)
	if err != nil {
		// NaN from a non-finite capture is rejected by the JSON encoder
		if strings.Contains(err.Error(), "unsupported value") {
			sanitizedData := sanitizeForJSON(outputData)
			formattedData, err = formatter.Format(sanitizedData, true)
		}
		if err != nil {
			return fmt.Errorf("failed to format output data: %w", err)
		}
	}

	if app.base.Metrics.Enabled {
		app.collectSessionMetrics(result.Summary)
	}

	// Write to file or stdout
	if app.ctx.OutputFile != "" {
		return app.writeToFile(formattedData)
	}

	if app.ctx.Quiet {
		return nil
	}
	_, err = os.Stdout.Write(formattedData)
	return err
}

// collectSessionMetrics sends end of session totals to rootcollector
func (app *MonitorApp) collectSessionMetrics(summary *session.Summary) {
	if summary == nil {
		return
	}

	tags := []string{
		"source:" + summary.SourceType,
		"session:" + summary.SessionID,
	}

	rootcollector.Metric("ppg.session.frames", int64(summary.FramesProcessed), tags)
	rootcollector.Metric("ppg.session.cycles", int64(summary.Cycles), tags)
	rootcollector.Metric("ppg.session.non_finite", int64(summary.NonFiniteSamples), tags)
	rootcollector.Metric("ppg.session.sink_errors", int64(summary.SinkErrors), tags)
	rootcollector.Metric("ppg.session.frame_rate.milli", int64(summary.FrameRate*1000), tags)
	rootcollector.Metric("ppg.session.duration.milliseconds", summary.Duration.Milliseconds(), tags)
}

// cleanSessionSummary flattens the summary for the output formatters
func cleanSessionSummary(summary *session.Summary, precision int, includeHistory bool) map[string]any {
	clean := map[string]any{
		"session_id":         summary.SessionID,
		"source_type":        summary.SourceType,
		"start_time":         summary.StartTime,
		"end_time":           summary.EndTime,
		"duration_seconds":   round(summary.Duration.Seconds(), precision),
		"samples_received":   summary.SamplesReceived,
		"warmup_skipped":     summary.WarmupSkipped,
		"frames_processed":   summary.FramesProcessed,
		"non_finite_samples": summary.NonFiniteSamples,
		"cycles":             summary.Cycles,
		"frame_rate":         round(summary.FrameRate, precision),
		"sink_errors":        summary.SinkErrors,
		"interrupted":        summary.Interrupted,
		"final_state":        summary.FinalState.String(),
		"signal_active":      summary.SignalActive,
		"window_mean":        round(summary.WindowMean, precision),
		"windows":            cleanWindowReports(summary.Windows, precision),
	}

	if includeHistory {
		clean["history"] = cleanHistory(summary.History, precision)
	}

	return clean
}

// cleanWindowReports drops the session id repeated on every report
func cleanWindowReports(reports []sink.WindowReport, precision int) []map[string]any {
	clean := make([]map[string]any, 0, len(reports))

	for _, report := range reports {
		cleanReport := map[string]any{
			"window":     report.Cycle,
			"state":      report.State.String(),
			"signal":     report.SignalActive,
			"mean":       round(report.Mean, precision),
			"non_finite": report.NonFinite,
			"time":       round(report.Elapsed, precision),
		}

		if report.Pulse != nil {
			cleanReport["pulse_bpm"] = round(report.Pulse.BPM, precision)
			cleanReport["pulse_confidence"] = round(report.Pulse.Confidence, precision)
		}

		clean = append(clean, cleanReport)
	}

	return clean
}

// cleanHistory renders the chart feed as time, value, signal points
func cleanHistory(points []sink.FramePoint, precision int) []map[string]any {
	clean := make([]map[string]any, 0, len(points))

	for _, p := range points {
		clean = append(clean, map[string]any{
			"index":  p.Index,
			"time":   round(p.Elapsed, precision),
			"value":  round(p.Value, precision),
			"signal": p.SignalActive,
			"window": p.Cycle,
		})
	}

	return clean
}

// round limits v to precision decimals; NaN and Inf pass through
func round(v float64, precision int) float64 {
	if precision < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	scale := math.Pow(10, float64(precision))
	return math.Round(v*scale) / scale
}

// writeToFile writes data to the specified output file
func (app *MonitorApp) writeToFile(data []byte) error {
	// Ensure directory exists
	dir := filepath.Dir(app.ctx.OutputFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if err := os.WriteFile(app.ctx.OutputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	app.logger.Debug("Results written to file", logging.Fields{
		"output_file": app.ctx.OutputFile,
		"size_bytes":  len(data),
	})

	return nil
}

// sanitizeForJSON recursively cleans infinite and NaN values from any data structure
func sanitizeForJSON(data any) any {
	switch v := data.(type) {
	case float64:
		return sink.Finite(v)
	case map[string]any:
		result := make(map[string]any)
		for k, val := range v {
			result[k] = sanitizeForJSON(val)
		}
		return result
	case []map[string]any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = sanitizeForJSON(val)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = sanitizeForJSON(val)
		}
		return result
	case []float64:
		result := make([]float64, len(v))
		for i, val := range v {
			result[i] = sink.Finite(val)
		}
		return result
	case time.Time:
		return v
	default:
		// Use reflection to handle structs and other complex types
		return sanitizeWithReflection(data)
	}
}

// sanitizeWithReflection uses reflection to sanitize struct fields
func sanitizeWithReflection(data any) any {
	if data == nil {
		return nil
	}

	val := reflect.ValueOf(data)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Struct:
		result := make(map[string]any)
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := val.Field(i)
			fieldType := typ.Field(i)

			// Skip unexported fields
			if !field.CanInterface() {
				continue
			}

			// Get JSON tag name or use field name
			jsonTag := fieldType.Tag.Get("json")
			fieldName := fieldType.Name
			if jsonTag != "" && jsonTag != "-" {
				parts := strings.Split(jsonTag, ",")
				if parts[0] != "" {
					fieldName = parts[0]
				}
			}

			result[fieldName] = sanitizeForJSON(field.Interface())
		}
		return result
	case reflect.Slice:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			result[i] = sanitizeForJSON(val.Index(i).Interface())
		}
		return result
	case reflect.Map:
		result := make(map[string]any)
		for _, key := range val.MapKeys() {
			keyStr := fmt.Sprintf("%v", key.Interface())
			result[keyStr] = sanitizeForJSON(val.MapIndex(key).Interface())
		}
		return result
	case reflect.Float64, reflect.Float32:
		return sink.Finite(val.Float())
	default:
		return val.Interface()
	}
}
