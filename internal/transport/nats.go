package transport

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/nats-io/nats.go"
)

const ClientName = "ppg-monitor"

const DefaultDialTimeout = 3 * time.Second

// Connect dials NATS with reconnects enabled forever. A zero timeout uses
// DefaultDialTimeout.
func Connect(url string, timeout time.Duration) (*nats.Conn, error) {
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	nc, err := nats.Connect(
		url,
		nats.Name(ClientName),
		nats.Timeout(timeout),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return nc, nil
}

// EncodeSamples packs samples as little-endian float32 values
func EncodeSamples(samples []float64) []byte {
	out := make([]byte, 4*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(v)))
	}
	return out
}

// DecodeSamples unpacks a little-endian float32 batch. Trailing bytes that do
// not form a whole sample are an error.
func DecodeSamples(data []byte) ([]float64, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("payload length %d is not a multiple of 4", len(data))
	}

	samples := make([]float64, len(data)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = float64(math.Float32frombits(bits))
	}
	return samples, nil
}
