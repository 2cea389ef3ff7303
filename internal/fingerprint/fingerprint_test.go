package fingerprint

import (
	"testing"

	"faultline/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashKnownVectors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty string is the offset basis", in: "", want: "811c9dc5"},
		{name: "hello world", in: "hello world", want: "d58b3fa7"},
		{name: "single byte", in: "a", want: "e40c292c"},
		{name: "foobar", in: "foobar", want: "bf9cf968"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Hash(tt.in))
		})
	}
}

func TestHashFixedWidth(t *testing.T) {
	for _, in := range []string{"", "x", "some longer input with spaces"} {
		require.Len(t, Hash(in), 8)
	}
}

func TestComputeWhitespaceInsensitive(t *testing.T) {
	base := models.ErrorPayload{
		Kind:    models.KindRuntimeError,
		Name:    "TypeError",
		Message: "x is not a function",
		Stack:   "at boot (app.js:1:1)",
		Source:  "app.js",
	}

	reformatted := base
	reformatted.Message = "  x  is\tnot a\nfunction "
	reformatted.Stack = "at boot (app.js:1:1)\n"

	assert.Equal(t, Compute(base), Compute(reformatted))
}

func TestComputeMatchesComposedHash(t *testing.T) {
	p := models.ErrorPayload{
		Kind:    models.KindRuntimeError,
		Name:    "TypeError",
		Message: "x is not a function",
		Stack:   "at boot (app.js:1:1)",
		Source:  "app.js",
	}

	want := Hash("runtime_error|TypeError|xisnotafunction|atboot(app.js:1:1)|app.js")
	require.Equal(t, "c462c6ce", want)
	assert.Equal(t, want, Compute(p))
}

func TestComputeMissingFieldsAreEmptySegments(t *testing.T) {
	p := models.ErrorPayload{Kind: models.KindNetworkError}

	assert.Equal(t, Hash("network_error||||"), Compute(p))
}

func TestComputeDistinguishesNameFromMessage(t *testing.T) {
	a := models.ErrorPayload{Kind: models.KindRuntimeError, Name: "A", Message: "B"}
	b := models.ErrorPayload{Kind: models.KindRuntimeError, Name: "B", Message: "A"}

	assert.NotEqual(t, Compute(a), Compute(b))
}

func TestComputeStableAcrossCalls(t *testing.T) {
	p := models.ErrorPayload{Kind: models.KindHTTPError, Message: "bad gateway"}

	first := Compute(p)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Compute(p))
	}
}
