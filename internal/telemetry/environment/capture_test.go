package environment

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCapturer() *Capturer {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewCapturer(log)
}

func TestSnapshotNeverNil(t *testing.T) {
	c := testCapturer()

	snapshot := c.Snapshot(context.Background())
	require.NotNil(t, snapshot)
	assert.False(t, snapshot.Timestamp.IsZero())

	// Client-reported signals are absent on server-side capture.
	assert.Nil(t, snapshot.Battery)
	assert.Nil(t, snapshot.Screen)
}

func TestLightweightOmitsHostProbes(t *testing.T) {
	c := testCapturer()

	snapshot := c.Lightweight(context.Background())
	require.NotNil(t, snapshot)
	assert.False(t, snapshot.Timestamp.IsZero())
	assert.Empty(t, snapshot.Platform)
	assert.Nil(t, snapshot.Network)
}
