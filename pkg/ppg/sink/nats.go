package sink

import (
	"encoding/json"
	"fmt"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/nats-io/nats.go"
)

// Publisher is the part of *nats.Conn the NATS sink needs
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes frames as JSON on subject and window reports on
// subject + ".window"
type NATSPublisher struct {
	pub           Publisher
	conn          *nats.Conn
	subject       string
	windowSubject string
	logger        logging.Logger
}

// NewNATSPublisher wraps pub. When pub is a *nats.Conn, Close flushes it.
func NewNATSPublisher(pub Publisher, subject string, logger logging.Logger) *NATSPublisher {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	p := &NATSPublisher{
		pub:           pub,
		subject:       subject,
		windowSubject: subject + ".window",
		logger: logger.WithFields(logging.Fields{
			"component": "nats_publisher",
			"subject":   subject,
		}),
	}
	if conn, ok := pub.(*nats.Conn); ok {
		p.conn = conn
	}
	return p
}

func (p *NATSPublisher) WriteFrame(point FramePoint) error {
	data, err := json.Marshal(sanitizePoint(point))
	if err != nil {
		return fmt.Errorf("failed to encode frame %d: %w", point.Index, err)
	}
	if err := p.pub.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish frame %d: %w", point.Index, err)
	}
	return nil
}

func (p *NATSPublisher) WriteWindow(report WindowReport) error {
	data, err := json.Marshal(sanitizeReport(report))
	if err != nil {
		return fmt.Errorf("failed to encode window %d: %w", report.Cycle, err)
	}
	if err := p.pub.Publish(p.windowSubject, data); err != nil {
		return fmt.Errorf("failed to publish window %d: %w", report.Cycle, err)
	}

	p.logger.Debug("Published window report", logging.Fields{
		"window": report.Cycle,
		"state":  report.State.String(),
	})
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Flush(); err != nil {
		return fmt.Errorf("failed to flush nats connection: %w", err)
	}
	return nil
}
