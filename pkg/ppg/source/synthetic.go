package source

import (
	"context"
	"math"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
)

// PPGSim generates a PPG-like intensity trace (not clinical): a slow
// respiratory baseline, a systolic pulse and a smaller diastolic wave.
type PPGSim struct {
	fs     float64
	hrBPM  float64
	noise  float64
	phase  float64
	t      float64
	base   float64
	drift  float64
	pulseA float64
}

// NewPPGSim creates a generator at fs Hz. Typical hrBPM is 50-120, noise
// 0.0-0.01 of full scale.
func NewPPGSim(fs, hrBPM, noise float64) *PPGSim {
	return &PPGSim{
		fs:     fs,
		hrBPM:  hrBPM,
		noise:  noise,
		base:   0.45,
		drift:  0.0004, // per second, exposure settling
		pulseA: 0.01,
	}
}

// Next returns the next sample and advances time
func (s *PPGSim) Next() float64 {
	s.phase += s.hrBPM / 60.0 / s.fs
	if s.phase >= 1.0 {
		s.phase -= 1.0
	}
	s.t += 1 / s.fs

	p := s.phase
	systolic := gauss(p, 0.20, 0.07)
	diastolic := 0.4 * gauss(p, 0.48, 0.10)
	baseline := s.base + s.drift*s.t + 0.002*math.Sin(2*math.Pi*0.25*s.t)
	n := s.noise * (2*fract(math.Sin(12345.678*s.t)*9876.543) - 1)

	return baseline + s.pulseA*(systolic+diastolic) + n
}

func gauss(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}

func fract(x float64) float64 { return x - math.Floor(x) }

// SyntheticSource streams PPGSim samples, optionally paced at the sample rate
type SyntheticSource struct {
	sim        *PPGSim
	sampleRate float64
	realtime   bool
	maxSamples int
	logger     logging.Logger
}

// NewSyntheticSource creates a synthetic source
func NewSyntheticSource(cfg *Config) *SyntheticSource {
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 60
	}
	heartRate := cfg.HeartRate
	if heartRate <= 0 {
		heartRate = 72
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &SyntheticSource{
		sim:        NewPPGSim(sampleRate, heartRate, cfg.Noise),
		sampleRate: sampleRate,
		realtime:   cfg.Realtime,
		maxSamples: cfg.MaxSamples,
		logger: logger.WithFields(logging.Fields{
			"component":  "synthetic_source",
			"heart_rate": heartRate,
		}),
	}
}

func (s *SyntheticSource) Type() SourceType { return SourceTypeSynthetic }

func (s *SyntheticSource) Close() error { return nil }

// Stream implements Source
func (s *SyntheticSource) Stream(ctx context.Context, out chan<- float64) error {
	var tick <-chan time.Time
	if s.realtime {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / s.sampleRate))
		defer ticker.Stop()
		tick = ticker.C
	}

	s.logger.Debug("Synthetic source started", logging.Fields{
		"realtime":    s.realtime,
		"max_samples": s.maxSamples,
	})

	for sent := 0; s.maxSamples <= 0 || sent < s.maxSamples; sent++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- s.sim.Next():
		}
	}

	return nil
}
