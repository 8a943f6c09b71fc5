package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopTracksGateEnforcesMinimumInterval(t *testing.T) {
	gate := NewTopTracksGate(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, gate.Wait(ctx))
	require.NoError(t, gate.Wait(ctx))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestTopTracksGateRespectsCancellation(t *testing.T) {
	gate := NewTopTracksGate(200 * time.Millisecond)
	require.NoError(t, gate.Wait(context.Background()))

	cancelCtx, cancel := context.WithCancel(context.Background())
	cancel()

	err := gate.Wait(cancelCtx)
	assert.ErrorIs(t, err, context.Canceled)
}
