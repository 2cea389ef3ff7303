package console

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"faultline/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteEncodesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf)

	err := s.Write(context.Background(), models.ErrorPayload{
		Kind:        models.KindRuntimeError,
		Message:     "boom",
		Fingerprint: "d58b3fa7",
		Timestamp:   "2026-01-02T03:04:05.000Z",
	})
	require.NoError(t, err)

	var decoded models.ErrorPayload
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, models.KindRuntimeError, decoded.Kind)
	assert.Equal(t, "boom", decoded.Message)
	assert.Equal(t, "d58b3fa7", decoded.Fingerprint)
}

func TestWriteOmitsEmptyOptionalFields(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf)

	require.NoError(t, s.Write(context.Background(), models.ErrorPayload{
		Kind:      models.KindNetworkError,
		Timestamp: "2026-01-02T03:04:05.000Z",
	}))

	line := buf.String()
	assert.NotContains(t, line, "stack")
	assert.NotContains(t, line, "user_agent")
	assert.Contains(t, line, "timestamp")
}

func TestConcurrentWritesStayLineSeparated(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Write(context.Background(), models.ErrorPayload{
				Kind:      models.KindExplicitRejection,
				Message:   "msg",
				Timestamp: models.Now(),
			})
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 20)
	for _, line := range lines {
		var decoded models.ErrorPayload
		require.NoError(t, json.Unmarshal([]byte(line), &decoded))
	}
}

func TestFlushAndCloseAreNoops(t *testing.T) {
	s := New(&bytes.Buffer{})
	assert.NoError(t, s.Flush(context.Background()))
	assert.NoError(t, s.Close())
	assert.Equal(t, "console", s.Name())
}
