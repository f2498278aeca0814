// Package sink delivers processed frames and per-window reports to
// downstream consumers.
package sink

import (
	"errors"
	"math"

	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/analyzers"
	"github.com/RyanBlaney/ppg-monitor/pkg/ppg/window"
)

// FramePoint is one processed frame stamped with capture time
type FramePoint struct {
	window.Frame
	Elapsed float64 `json:"time"` // seconds since session start
}

// WindowReport summarizes a cycle boundary
type WindowReport struct {
	SessionID    string                   `json:"session_id"`
	Cycle        uint64                   `json:"window"`
	State        window.State             `json:"state"`
	SignalActive bool                     `json:"signal"`
	Mean         float64                  `json:"mean"`
	NonFinite    int                      `json:"non_finite"`
	Elapsed      float64                  `json:"time"`
	Pulse        *analyzers.PulseEstimate `json:"pulse,omitempty"`
}

// Sink consumes session output. Implementations are called from the session
// goroutine only.
type Sink interface {
	WriteFrame(point FramePoint) error
	WriteWindow(report WindowReport) error
	Close() error
}

// Multi fans out to several sinks and joins their errors
type Multi []Sink

func (m Multi) WriteFrame(point FramePoint) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteFrame(point); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) WriteWindow(report WindowReport) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteWindow(report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Finite maps NaN and Inf to zero for encoders that reject them
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func sanitizePoint(p FramePoint) FramePoint {
	p.Raw = Finite(p.Raw)
	p.Value = Finite(p.Value)
	return p
}

func sanitizeReport(r WindowReport) WindowReport {
	r.Mean = Finite(r.Mean)
	return r
}
