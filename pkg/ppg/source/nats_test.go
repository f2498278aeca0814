package source

import (
	"context"
	"errors"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/ppg-monitor/internal/transport"
)

func connectTestServer(t *testing.T) *nats.Conn {
	t.Helper()

	srv := natsserver.RunRandClientPortServer()
	t.Cleanup(srv.Shutdown)

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	return nc
}

// startStream runs src in the background and waits until its subscription
// is registered on nc, so messages published on nc afterwards reach it.
func startStream(t *testing.T, ctx context.Context, src *NATSSource, nc *nats.Conn, out chan<- float64) <-chan error {
	t.Helper()

	done := make(chan error, 1)
	go func() { done <- src.Stream(ctx, out) }()

	require.Eventually(t, func() bool { return nc.NumSubscriptions() == 1 },
		2*time.Second, 5*time.Millisecond)
	return done
}

func TestNATSSourceForwardsBatchesAndDropsMalformed(t *testing.T) {
	nc := connectTestServer(t)
	src := NewNATSSourceWithConn(&Config{Subject: "test.ppg", MaxSamples: 6}, nc)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := make(chan float64, 16)
	done := startStream(t, ctx, src, nc, out)

	require.NoError(t, nc.Publish("test.ppg", transport.EncodeSamples([]float64{0.25, 0.5, 0.75})))
	require.NoError(t, nc.Publish("test.ppg", []byte{1, 2, 3, 4, 5}))
	require.NoError(t, nc.Publish("test.ppg", transport.EncodeSamples([]float64{1, 1.25, 1.5})))
	require.NoError(t, nc.Flush())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("nats source did not stop at max samples")
	}

	close(out)
	var samples []float64
	for v := range out {
		samples = append(samples, v)
	}
	assert.Equal(t, []float64{0.25, 0.5, 0.75, 1, 1.25, 1.5}, samples)
}

func TestNATSSourceStopsOnCancel(t *testing.T) {
	nc := connectTestServer(t)
	src := NewNATSSourceWithConn(&Config{Subject: "test.idle"}, nc)

	ctx, cancel := context.WithCancel(context.Background())
	done := startStream(t, ctx, src, nc, make(chan float64))

	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("nats source did not stop after cancel")
	}

	// the subscription is released on return
	assert.Eventually(t, func() bool { return nc.NumSubscriptions() == 0 },
		2*time.Second, 5*time.Millisecond)
}

func TestNewNATSSourceReportsConnectionFailure(t *testing.T) {
	_, err := NewNATSSource(&Config{Target: "nats://127.0.0.1:1", Timeout: 200 * time.Millisecond})

	var sourceErr *SourceError
	require.True(t, errors.As(err, &sourceErr))
	assert.Equal(t, ErrCodeConnection, sourceErr.Code)
	assert.Equal(t, SourceTypeNATS, sourceErr.Type)
}
