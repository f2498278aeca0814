// Package window holds the per-session PPG window: a circular buffer of raw
// intensity samples and a parallel buffer that is either the detrended copy
// of the last full cycle or a held constant.
package window

import (
	"errors"
	"fmt"

	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/analyzers"
)

// ErrInvalidWindowLength is returned when the window is too short to fit a trend
var ErrInvalidWindowLength = errors.New("window length must be greater than 1")

const (
	DefaultWindowLength = 300 // 5s at 60 fps
	DefaultFillValue    = 0.5
)

// State is the windowing mode of the active buffer
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateHeld
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateHeld:
		return "held"
	default:
		return "uninitialized"
	}
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config sizes a Window
type Config struct {
	WindowLength int     `json:"window_length" yaml:"window_length"`
	FillValue    float64 `json:"fill_value" yaml:"fill_value"`
}

// DefaultConfig returns a 300 sample window prefilled with 0.5
func DefaultConfig() Config {
	return Config{
		WindowLength: DefaultWindowLength,
		FillValue:    DefaultFillValue,
	}
}

// Frame is the result of one host-loop tick
type Frame struct {
	Index        uint64  `json:"index"`
	Raw          float64 `json:"raw"`
	Value        float64 `json:"value"`
	SignalActive bool    `json:"signal"`
	Cycle        uint64  `json:"window"`
	State        State   `json:"state"`
}

// Window is the analyzer context for one capture session. It is not safe for
// concurrent use; Push and Read are expected to run on one goroutine.
type Window struct {
	length       uint64
	raw          []float64
	active       []float64
	frames       uint64
	mean         float64
	signalActive bool
	state        State
}

// New creates a window with both buffers prefilled with cfg.FillValue
func New(cfg Config) (*Window, error) {
	if cfg.WindowLength <= 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindowLength, cfg.WindowLength)
	}

	w := &Window{
		length: uint64(cfg.WindowLength),
		raw:    make([]float64, cfg.WindowLength),
		active: make([]float64, cfg.WindowLength),
		mean:   cfg.FillValue,
		state:  StateUninitialized,
	}
	for i := range w.raw {
		w.raw[i] = cfg.FillValue
		w.active[i] = cfg.FillValue
	}

	return w, nil
}

// Push stores sample at the current frame slot, advances the frame counter
// and recomputes the active buffer when a cycle has just filled.
func (w *Window) Push(sample float64) {
	w.raw[w.frames%w.length] = sample
	w.frames++
	w.MaybeRecompute(w.frames)
}

// MaybeRecompute refreshes the active buffer when frameCounter (samples
// ingested so far) closes a cycle. Cycles with an even index are detrended,
// odd ones hold the last computed mean. Any other counter is a no-op.
func (w *Window) MaybeRecompute(frameCounter uint64) {
	if frameCounter == 0 || frameCounter%w.length != 0 {
		return
	}

	cycle := frameCounter/w.length - 1
	if cycle%2 == 0 {
		// length > 1 is enforced by New, so neither call can fail
		_ = analyzers.DetrendInto(w.active, w.raw)
		w.mean, _ = analyzers.Mean(w.active)
		w.signalActive = true
		w.state = StateActive
		return
	}

	for i := range w.active {
		w.active[i] = w.mean
	}
	w.signalActive = false
	w.state = StateHeld
}

// Read returns the processed value for frameCounter
func (w *Window) Read(frameCounter uint64) float64 {
	return w.active[frameCounter%w.length]
}

// Tick pushes sample and reads back the value for the frame it was stored at
func (w *Window) Tick(sample float64) Frame {
	index := w.frames
	w.Push(sample)

	return Frame{
		Index:        index,
		Raw:          sample,
		Value:        w.Read(index),
		SignalActive: w.signalActive,
		Cycle:        index / w.length,
		State:        w.state,
	}
}

// IsSignalActive reports whether the active buffer holds a fresh detrend
func (w *Window) IsSignalActive() bool { return w.signalActive }

// WindowMean is the mean of the last detrended window
func (w *Window) WindowMean() float64 { return w.mean }

// FrameCounter is the number of samples pushed so far
func (w *Window) FrameCounter() uint64 { return w.frames }

// Cycle is the number of completed window cycles
func (w *Window) Cycle() uint64 { return w.frames / w.length }

// State is the policy applied at the most recent cycle boundary
func (w *Window) State() State { return w.state }

// Len is the window length N
func (w *Window) Len() int { return int(w.length) }

// AtBoundary reports whether the last Push closed a cycle
func (w *Window) AtBoundary() bool {
	return w.frames != 0 && w.frames%w.length == 0
}

// Raw returns a copy of the raw sample buffer
func (w *Window) Raw() []float64 {
	out := make([]float64, len(w.raw))
	copy(out, w.raw)
	return out
}

// Active returns a copy of the active buffer
func (w *Window) Active() []float64 {
	out := make([]float64, len(w.active))
	copy(out, w.active)
	return out
}
