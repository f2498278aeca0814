package sink

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/analyzers"
	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/window"
)

func point(i uint64, v float64) FramePoint {
	return FramePoint{
		Frame:   window.Frame{Index: i, Raw: v, Value: v, State: window.StateActive, SignalActive: true},
		Elapsed: float64(i) / 60,
	}
}

func TestRecorderKeepsMostRecentFrames(t *testing.T) {
	r := NewRecorder(3, 3)
	assert.Nil(t, r.Frames())

	for i := uint64(0); i < 5; i++ {
		require.NoError(t, r.WriteFrame(point(i, float64(i))))
	}

	frames := r.Frames()
	require.Len(t, frames, 3)
	assert.Equal(t, uint64(2), frames[0].Index)
	assert.Equal(t, uint64(3), frames[1].Index)
	assert.Equal(t, uint64(4), frames[2].Index)
	assert.Equal(t, 3, r.Len())
}

func TestRecorderPartialFill(t *testing.T) {
	r := NewRecorder(10, 10)
	require.NoError(t, r.WriteFrame(point(0, 0.1)))
	require.NoError(t, r.WriteFrame(point(1, 0.2)))

	frames := r.Frames()
	require.Len(t, frames, 2)
	assert.Equal(t, 0.1, frames[0].Value)
	assert.Equal(t, 0.2, frames[1].Value)

	require.NoError(t, r.WriteWindow(WindowReport{Cycle: 0}))
	assert.Len(t, r.Windows(), 1)
}

func TestRecorderBoundsWindowReports(t *testing.T) {
	r := NewRecorder(1, 2)
	assert.Nil(t, r.Windows())

	for c := uint64(0); c < 5; c++ {
		require.NoError(t, r.WriteWindow(WindowReport{Cycle: c}))
	}

	windows := r.Windows()
	require.Len(t, windows, 2)
	assert.Equal(t, uint64(3), windows[0].Cycle)
	assert.Equal(t, uint64(4), windows[1].Cycle)
}

type recordingPublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func TestNATSPublisherEncodesFrames(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewNATSPublisher(pub, "ppg.frames", nil)

	require.NoError(t, p.WriteFrame(point(7, math.NaN())))
	require.NoError(t, p.WriteWindow(WindowReport{
		Cycle: 2, State: window.StateHeld, Mean: math.Inf(1),
		Pulse: &analyzers.PulseEstimate{BPM: 72},
	}))
	require.NoError(t, p.Close())

	require.Equal(t, []string{"ppg.frames", "ppg.frames.window"}, pub.subjects)

	var frame map[string]any
	require.NoError(t, json.Unmarshal(pub.payloads[0], &frame))
	assert.Equal(t, float64(7), frame["index"])
	assert.Equal(t, float64(0), frame["value"])
	assert.Equal(t, "active", frame["state"])
	assert.Equal(t, true, frame["signal"])

	var report map[string]any
	require.NoError(t, json.Unmarshal(pub.payloads[1], &report))
	assert.Equal(t, "held", report["state"])
	assert.Equal(t, float64(0), report["mean"])
}

func TestNATSPublisherWrapsErrors(t *testing.T) {
	boom := errors.New("boom")
	p := NewNATSPublisher(&recordingPublisher{err: boom}, "ppg.frames", nil)

	assert.ErrorIs(t, p.WriteFrame(point(1, 0.5)), boom)
	assert.ErrorIs(t, p.WriteWindow(WindowReport{}), boom)
}

func TestMetricsSinkEmitsWindowStats(t *testing.T) {
	type metric struct {
		name  string
		value int64
		tags  []string
	}
	var got []metric
	m := NewMetricsSinkWithEmitter("synthetic", func(name string, value int64, tags []string) {
		got = append(got, metric{name, value, tags})
	}, nil)

	require.NoError(t, m.WriteFrame(point(0, 0.5)))
	assert.Empty(t, got)

	require.NoError(t, m.WriteWindow(WindowReport{
		SessionID: "abc", Cycle: 0, State: window.StateActive, SignalActive: true, Mean: 0.000002,
		Pulse: &analyzers.PulseEstimate{BPM: 72.5, Confidence: 0.4},
	}))

	names := make(map[string]int64)
	for _, g := range got {
		names[g.name] = g.value
		assert.Equal(t, []string{"source:synthetic", "session:abc", "state:active"}, g.tags)
	}
	assert.Equal(t, int64(1), names["ppg.window.signal_active"])
	assert.Equal(t, int64(2), names["ppg.window.mean.micro"])
	assert.Equal(t, int64(72500), names["ppg.pulse.bpm.milli"])
	assert.Equal(t, int64(400), names["ppg.pulse.confidence.milli"])
}

type failingSink struct{ err error }

func (f failingSink) WriteFrame(FramePoint) error { return f.err }
func (f failingSink) WriteWindow(WindowReport) error { return f.err }
func (f failingSink) Close() error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	r := NewRecorder(4, 4)
	m := Multi{r, failingSink{boom}}

	assert.ErrorIs(t, m.WriteFrame(point(0, 0.5)), boom)
	assert.Equal(t, 1, r.Len())
	assert.ErrorIs(t, m.WriteWindow(WindowReport{}), boom)
	assert.ErrorIs(t, m.Close(), boom)
}
