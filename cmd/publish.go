package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/ppg-monitor/configs"
	"github.com/RyanBlaney/ppg-monitor/internal/app"
	"github.com/RyanBlaney/ppg-monitor/internal/transport"
	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/source"
	"github.com/spf13/cobra"
)

var (
	publishSubject  string
	publishBatch    int
	publishDuration time.Duration
	publishHR       float64
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a synthetic PPG feed to NATS",
	Long: `Generate the synthetic PPG waveform in real time and publish it as
little-endian float32 batches, the payload format the nats source consumes.

Examples:
  # Feed the default input subject at 60 fps until interrupted
  ppg-monitor publish

  # 90 bpm in batches of 30 samples for one minute
  ppg-monitor publish --heart-rate 90 --batch 30 --duration 1m`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVar(&publishSubject, "subject", "",
		"subject to publish on (default is nats.input_subject)")
	publishCmd.Flags().IntVar(&publishBatch, "batch", 10,
		"samples per message")
	publishCmd.Flags().DurationVar(&publishDuration, "duration", 0,
		"stop after this long (0 runs until interrupted)")
	publishCmd.Flags().Float64Var(&publishHR, "heart-rate", 0,
		"heart rate in bpm (default is source.heart_rate)")
}

func runPublish(cmd *cobra.Command, args []string) error {
	config, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if publishBatch <= 0 {
		return fmt.Errorf("batch must be positive, got %d", publishBatch)
	}

	subject := publishSubject
	if subject == "" {
		subject = config.NATS.InputSubject
	}

	base := logging.NewDefaultLogger()
	base.SetLevel(app.ParseLogLevel(config.LogLevel))
	logger := base.WithFields(logging.Fields{
		"component": "publisher",
		"subject":   subject,
	})

	nc, err := transport.Connect(config.NATS.URL, config.NATS.Timeout)
	if err != nil {
		return err
	}
	defer nc.Drain()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if publishDuration > 0 {
		ctx, cancel = context.WithTimeout(ctx, publishDuration)
		defer cancel()
	}

	srcConfig := config.ToSourceConfig()
	srcConfig.Realtime = true
	srcConfig.Logger = logger
	if publishHR > 0 {
		srcConfig.HeartRate = publishHR
	}
	src := source.NewSyntheticSource(srcConfig)

	samples := make(chan float64, publishBatch)
	streamErr := make(chan error, 1)
	go func() {
		defer close(samples)
		streamErr <- src.Stream(ctx, samples)
	}()

	logger.Info("Publishing synthetic feed", logging.Fields{
		"url":         config.NATS.URL,
		"sample_rate": srcConfig.SampleRate,
		"heart_rate":  srcConfig.HeartRate,
		"batch":       publishBatch,
	})

	batch := make([]float64, 0, publishBatch)
	published := 0
	for v := range samples {
		batch = append(batch, v)
		if len(batch) < publishBatch {
			continue
		}
		if err := nc.Publish(subject, transport.EncodeSamples(batch)); err != nil {
			logger.Warn("Failed to publish batch", logging.Fields{
				"error": err.Error(),
			})
		} else {
			published++
		}
		batch = batch[:0]
	}

	logger.Info("Publisher stopping", logging.Fields{
		"messages": published,
	})

	if err := <-streamErr; err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("synthetic source failed: %w", err)
	}
	return nil
}
