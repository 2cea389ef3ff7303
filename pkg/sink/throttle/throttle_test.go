package throttle

import (
	"context"
	"sync"
	"testing"

	"faultline/pkg/models"
	"faultline/pkg/sink"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSink struct {
	mu     sync.Mutex
	writes int
}

func (c *countingSink) Name() string { return "counting" }

func (c *countingSink) Write(_ context.Context, _ models.ErrorPayload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	return nil
}

func (c *countingSink) Flush(_ context.Context) error { return nil }
func (c *countingSink) Close() error                  { return nil }

func TestWriteDeclinesBeyondBurst(t *testing.T) {
	inner := &countingSink{}
	// Zero refill rate: exactly the burst is deliverable.
	s := New(inner, 0, 2)

	require.NoError(t, s.Write(context.Background(), models.ErrorPayload{}))
	require.NoError(t, s.Write(context.Background(), models.ErrorPayload{}))

	err := s.Write(context.Background(), models.ErrorPayload{})
	assert.ErrorIs(t, err, sink.ErrThrottled)
	assert.Equal(t, 2, inner.writes)
}

func TestWriteNeverBlocks(t *testing.T) {
	inner := &countingSink{}
	s := New(inner, 0, 1)

	require.NoError(t, s.Write(context.Background(), models.ErrorPayload{}))
	for i := 0; i < 100; i++ {
		assert.ErrorIs(t, s.Write(context.Background(), models.ErrorPayload{}), sink.ErrThrottled)
	}
	assert.Equal(t, 1, inner.writes)
}

func TestBurstFloor(t *testing.T) {
	inner := &countingSink{}
	s := New(inner, 0, 0)

	// Burst below one is raised to one so the sink is usable at all.
	require.NoError(t, s.Write(context.Background(), models.ErrorPayload{}))
	assert.ErrorIs(t, s.Write(context.Background(), models.ErrorPayload{}), sink.ErrThrottled)
}

func TestPassthroughIdentityAndLifecycle(t *testing.T) {
	inner := &countingSink{}
	s := New(inner, 10, 5)

	assert.Equal(t, "counting", s.Name())
	assert.NoError(t, s.Flush(context.Background()))
	assert.NoError(t, s.Close())
}
