package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/sink"
	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/source"
	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() *Config {
	cfg := DefaultConfig()
	cfg.Window = window.Config{WindowLength: 4, FillValue: 0.5}
	cfg.PulseEnabled = false
	cfg.WarmupFrames = 0
	cfg.HistoryLength = 5
	return cfg
}

func readerSource(values ...string) source.Source {
	return source.NewReaderSource(&source.Config{}, strings.NewReader(strings.Join(values, "\n")))
}

type countingSink struct {
	frames  int
	windows []sink.WindowReport
	err     error
	closed  bool
}

func (c *countingSink) WriteFrame(sink.FramePoint) error {
	c.frames++
	return c.err
}

func (c *countingSink) WriteWindow(r sink.WindowReport) error {
	c.windows = append(c.windows, r)
	return c.err
}

func (c *countingSink) Close() error {
	c.closed = true
	return nil
}

func TestNewRejectsShortWindow(t *testing.T) {
	cfg := smallConfig()
	cfg.Window.WindowLength = 1

	_, err := New(cfg, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, window.ErrInvalidWindowLength))
}

func TestRunAlternatesWindows(t *testing.T) {
	extra := &countingSink{}
	s, err := New(smallConfig(), nil, extra)
	require.NoError(t, err)

	summary, err := s.Run(context.Background(), readerSource("1", "2", "3", "4", "5", "6", "7", "8"))
	require.NoError(t, err)

	assert.Equal(t, s.ID, summary.SessionID)
	assert.Equal(t, "file", summary.SourceType)
	assert.EqualValues(t, 8, summary.FramesProcessed)
	assert.EqualValues(t, 2, summary.Cycles)
	assert.Equal(t, window.StateHeld, summary.FinalState)
	assert.False(t, summary.SignalActive)
	assert.InDelta(t, 0.0, summary.WindowMean, 1e-9)
	assert.False(t, summary.Interrupted)

	require.Len(t, summary.Windows, 2)
	assert.EqualValues(t, 0, summary.Windows[0].Cycle)
	assert.Equal(t, window.StateActive, summary.Windows[0].State)
	assert.True(t, summary.Windows[0].SignalActive)
	assert.EqualValues(t, 1, summary.Windows[1].Cycle)
	assert.Equal(t, window.StateHeld, summary.Windows[1].State)
	assert.Nil(t, summary.Windows[1].Pulse)

	assert.Equal(t, 8, extra.frames)
	assert.Len(t, extra.windows, 2)
	assert.True(t, extra.closed)
}

func TestRunKeepsBoundedHistory(t *testing.T) {
	s, err := New(smallConfig(), nil)
	require.NoError(t, err)

	summary, err := s.Run(context.Background(), readerSource("1", "2", "3", "4", "5", "6", "7", "8"))
	require.NoError(t, err)

	require.Len(t, summary.History, 5)
	for i, p := range summary.History {
		assert.EqualValues(t, i+3, p.Index)
		assert.GreaterOrEqual(t, p.Elapsed, 0.0)
	}
	// the last frame closes the held cycle and reads back the carried mean
	assert.InDelta(t, 0.0, summary.History[4].Value, 1e-9)
	assert.EqualValues(t, 1, summary.History[4].Cycle)
}

func TestRunKeepsBoundedWindowReports(t *testing.T) {
	cfg := smallConfig()
	cfg.WindowHistory = 2
	cfg.MaxFrames = 40

	extra := &countingSink{}
	s, err := New(cfg, nil, extra)
	require.NoError(t, err)

	src := source.NewSyntheticSource(&source.Config{SampleRate: 60, HeartRate: 72})
	summary, err := s.Run(context.Background(), src)
	require.NoError(t, err)

	assert.EqualValues(t, 10, summary.Cycles)
	assert.Len(t, extra.windows, 10)
	require.Len(t, summary.Windows, 2)
	assert.EqualValues(t, 8, summary.Windows[0].Cycle)
	assert.EqualValues(t, 9, summary.Windows[1].Cycle)
}

func TestRunSkipsWarmupFrames(t *testing.T) {
	cfg := smallConfig()
	cfg.WarmupFrames = 3

	s, err := New(cfg, nil)
	require.NoError(t, err)

	summary, err := s.Run(context.Background(), readerSource("9", "9", "9", "1", "2", "3", "4"))
	require.NoError(t, err)

	assert.EqualValues(t, 7, summary.SamplesReceived)
	assert.EqualValues(t, 3, summary.WarmupSkipped)
	assert.EqualValues(t, 4, summary.FramesProcessed)
	assert.EqualValues(t, 4, s.Window().FrameCounter())
	assert.Equal(t, []float64{1, 2, 3, 4}, s.Window().Raw())
	assert.Equal(t, window.StateActive, summary.FinalState)
}

func TestRunStopsAtMaxFrames(t *testing.T) {
	cfg := smallConfig()
	cfg.MaxFrames = 10

	s, err := New(cfg, nil)
	require.NoError(t, err)

	src := source.NewSyntheticSource(&source.Config{SampleRate: 60, HeartRate: 72})
	summary, err := s.Run(context.Background(), src)
	require.NoError(t, err)

	assert.EqualValues(t, 10, summary.FramesProcessed)
	assert.EqualValues(t, 2, summary.Cycles)
	assert.False(t, summary.Interrupted)
}

func TestRunEstimatesPulseOnActiveWindows(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WarmupFrames = 0
	cfg.MaxFrames = 600

	s, err := New(cfg, nil)
	require.NoError(t, err)

	src := source.NewSyntheticSource(&source.Config{SampleRate: 60, HeartRate: 72})
	summary, err := s.Run(context.Background(), src)
	require.NoError(t, err)

	require.Len(t, summary.Windows, 2)
	active := summary.Windows[0]
	require.NotNil(t, active.Pulse)
	assert.InDelta(t, 72.0, active.Pulse.BPM, 3.0)
	assert.Greater(t, active.Pulse.Confidence, 0.0)
	assert.Nil(t, summary.Windows[1].Pulse)
}

func TestRunCountsNonFiniteSamples(t *testing.T) {
	cfg := smallConfig()
	cfg.PulseEnabled = true
	cfg.Window.WindowLength = 8

	s, err := New(cfg, nil)
	require.NoError(t, err)

	summary, err := s.Run(context.Background(), readerSource("1", "2", "NaN", "4", "5", "6", "7", "8"))
	require.NoError(t, err)

	assert.EqualValues(t, 1, summary.NonFiniteSamples)
	require.Len(t, summary.Windows, 1)
	assert.Equal(t, 1, summary.Windows[0].NonFinite)
	assert.Nil(t, summary.Windows[0].Pulse)
	assert.True(t, math.IsNaN(summary.WindowMean))
}

func TestRunCountsSinkErrors(t *testing.T) {
	extra := &countingSink{err: fmt.Errorf("broker down")}
	s, err := New(smallConfig(), nil, extra)
	require.NoError(t, err)

	summary, err := s.Run(context.Background(), readerSource("1", "2", "3", "4"))
	require.NoError(t, err)

	// four frames plus one window report
	assert.Equal(t, 5, summary.SinkErrors)
	assert.EqualValues(t, 4, summary.FramesProcessed)
}

func TestRunWrapsSourceErrors(t *testing.T) {
	s, err := New(smallConfig(), nil)
	require.NoError(t, err)

	summary, err := s.Run(context.Background(), readerSource("1", "bogus"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read from file source")

	var sourceErr *source.SourceError
	assert.True(t, errors.As(err, &sourceErr))
	require.NotNil(t, summary)
	assert.EqualValues(t, 1, summary.FramesProcessed)
}

func TestRunStopsWhenCancelled(t *testing.T) {
	s, err := New(smallConfig(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	src := source.NewSyntheticSource(&source.Config{SampleRate: 200, Realtime: true})
	summary, err := s.Run(ctx, src)
	require.NoError(t, err)

	assert.True(t, summary.Interrupted)
	assert.Greater(t, summary.FramesProcessed, uint64(0))
}

func TestRunHonoursDuration(t *testing.T) {
	cfg := smallConfig()
	cfg.Duration = 100 * time.Millisecond

	s, err := New(cfg, nil)
	require.NoError(t, err)

	src := source.NewSyntheticSource(&source.Config{SampleRate: 200, Realtime: true})
	summary, err := s.Run(context.Background(), src)
	require.NoError(t, err)

	assert.False(t, summary.Interrupted)
	assert.Greater(t, summary.FrameRate, 0.0)
}
