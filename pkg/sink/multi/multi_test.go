package multi

import (
	"context"
	"errors"
	"sync"
	"testing"

	"faultline/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu       sync.Mutex
	name     string
	events   []models.ErrorPayload
	writeErr error
	closed   bool
}

func (c *captureSink) Name() string { return c.name }

func (c *captureSink) Write(_ context.Context, p models.ErrorPayload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.events = append(c.events, p)
	return nil
}

func (c *captureSink) Flush(_ context.Context) error { return nil }

func (c *captureSink) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func TestWriteFansOutToAllSinks(t *testing.T) {
	a := &captureSink{name: "a"}
	b := &captureSink{name: "b"}
	s := New(a, b)

	err := s.Write(context.Background(), models.ErrorPayload{Kind: models.KindRuntimeError})
	require.NoError(t, err)

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestWriteContinuesPastFailures(t *testing.T) {
	failing := &captureSink{name: "failing", writeErr: errors.New("disk full")}
	healthy := &captureSink{name: "healthy"}
	s := New(failing, healthy)

	err := s.Write(context.Background(), models.ErrorPayload{Kind: models.KindHTTPError})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, healthy.events, 1, "healthy sink must still receive the event")
}

func TestCloseReachesEverySink(t *testing.T) {
	a := &captureSink{name: "a"}
	b := &captureSink{name: "b"}
	s := New(a, b)

	require.NoError(t, s.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestEmptyMultiIsHarmless(t *testing.T) {
	s := New()
	assert.NoError(t, s.Write(context.Background(), models.ErrorPayload{}))
	assert.NoError(t, s.Flush(context.Background()))
	assert.NoError(t, s.Close())
}
