package source

import (
	"context"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/nats-io/nats.go"

	"github.com/RyanBlaney/ppg-monitor/internal/transport"
)

// NATSSource consumes float32 little-endian sample batches from a subject
type NATSSource struct {
	url        string
	subject    string
	conn       *nats.Conn
	ownsConn   bool
	maxSamples int
	logger     logging.Logger
}

// NewNATSSource connects to cfg.Target and prepares to subscribe to cfg.Subject
func NewNATSSource(cfg *Config) (*NATSSource, error) {
	url := cfg.Target
	if url == "" {
		url = nats.DefaultURL
	}

	conn, err := transport.Connect(url, cfg.Timeout)
	if err != nil {
		return nil, NewSourceError(SourceTypeNATS, url, ErrCodeConnection, "failed to connect to nats", err)
	}

	s := NewNATSSourceWithConn(cfg, conn)
	s.url = url
	s.ownsConn = true
	return s, nil
}

// NewNATSSourceWithConn uses an existing connection, which the caller keeps ownership of
func NewNATSSourceWithConn(cfg *Config, conn *nats.Conn) *NATSSource {
	subject := cfg.Subject
	if subject == "" {
		subject = DefaultConfig().Subject
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &NATSSource{
		url:        conn.ConnectedUrl(),
		subject:    subject,
		conn:       conn,
		maxSamples: cfg.MaxSamples,
		logger: logger.WithFields(logging.Fields{
			"component": "nats_source",
			"subject":   subject,
		}),
	}
}

func (s *NATSSource) Type() SourceType { return SourceTypeNATS }

func (s *NATSSource) Close() error {
	if s.ownsConn {
		return s.conn.Drain()
	}
	return nil
}

// Stream implements Source. It runs until ctx is done or maxSamples have
// been forwarded; malformed payloads are logged and dropped.
func (s *NATSSource) Stream(ctx context.Context, out chan<- float64) error {
	msgs := make(chan *nats.Msg, 64)
	sub, err := s.conn.ChanSubscribe(s.subject, msgs)
	if err != nil {
		return NewSourceError(SourceTypeNATS, s.url, ErrCodeConnection, "failed to subscribe", err)
	}
	defer sub.Unsubscribe()

	s.logger.Info("Subscribed to sample subject")

	sent := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-msgs:
			samples, err := transport.DecodeSamples(msg.Data)
			if err != nil {
				s.logger.Warn("Dropping malformed sample batch", logging.Fields{
					"bytes": len(msg.Data),
					"error": err.Error(),
				})
				continue
			}

			for _, v := range samples {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case out <- v:
				}

				sent++
				if s.maxSamples > 0 && sent >= s.maxSamples {
					return nil
				}
			}
		}
	}
}
