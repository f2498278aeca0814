package transport

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSamples(t *testing.T) {
	payload := EncodeSamples([]float64{0.25, 0.5, -1, math.Inf(1)})
	require.Len(t, payload, 16)

	samples, err := DecodeSamples(payload)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.5, -1, math.Inf(1)}, samples)
}

func TestDecodeSamplesRejectsPartialSample(t *testing.T) {
	_, err := DecodeSamples([]byte{0, 0, 128})
	assert.Error(t, err)

	samples, err := DecodeSamples(nil)
	require.NoError(t, err)
	assert.Empty(t, samples)
}
