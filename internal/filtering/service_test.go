package filtering

import (
	"context"
	"testing"

	"faultline/internal/constants"
	"faultline/internal/logger"
	"faultline/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, fallback string, rules ...Rule) *Service {
	t.Helper()

	s, err := NewService(fallback, logger.NopLogger())
	require.NoError(t, err)
	require.NoError(t, s.ReloadRules(context.Background(), rules))
	return s
}

func TestShouldDropMatchingRule(t *testing.T) {
	s := newTestService(t, constants.FallbackAllow, Rule{
		ID:         "drop-network",
		Name:       "drop network errors",
		Expression: `kind == "network_error"`,
	})

	drop, err := s.ShouldDrop(context.Background(), models.ErrorPayload{Kind: models.KindNetworkError})
	require.NoError(t, err)
	assert.True(t, drop)

	drop, err = s.ShouldDrop(context.Background(), models.ErrorPayload{Kind: models.KindRuntimeError})
	require.NoError(t, err)
	assert.False(t, drop)
}

func TestShouldDropExpressionVariables(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		payload    models.ErrorPayload
		want       bool
	}{
		{
			name:       "message substring",
			expression: `message.contains("ResizeObserver")`,
			payload:    models.ErrorPayload{Message: "ResizeObserver loop limit exceeded"},
			want:       true,
		},
		{
			name:       "environment and route combined",
			expression: `environment == "dev" && route.startsWith("/internal")`,
			payload:    models.ErrorPayload{Environment: "dev", Route: "/internal/debug"},
			want:       true,
		},
		{
			name:       "url match",
			expression: `url.contains("localhost")`,
			payload:    models.ErrorPayload{URL: "https://app.example/page"},
			want:       false,
		},
		{
			name:       "name regex",
			expression: `name.matches("^(Abort|Cancel)")`,
			payload:    models.ErrorPayload{Name: "AbortError"},
			want:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t, constants.FallbackAllow, Rule{
				ID:         "r1",
				Name:       tt.name,
				Expression: tt.expression,
			})

			drop, err := s.ShouldDrop(context.Background(), tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.want, drop)
		})
	}
}

func TestShouldDropFirstMatchWins(t *testing.T) {
	s := newTestService(t, constants.FallbackAllow,
		Rule{ID: "r1", Name: "never", Expression: `kind == "render_error"`},
		Rule{ID: "r2", Name: "hits", Expression: `message != ""`},
	)

	drop, err := s.ShouldDrop(context.Background(), models.ErrorPayload{
		Kind:    models.KindRuntimeError,
		Message: "boom",
	})
	require.NoError(t, err)
	assert.True(t, drop)
}

func TestReloadRulesRejectsBadExpression(t *testing.T) {
	s, err := NewService(constants.FallbackAllow, logger.NopLogger())
	require.NoError(t, err)
	require.NoError(t, s.ReloadRules(context.Background(), []Rule{
		{ID: "good", Expression: `kind == "http_error"`},
	}))

	err = s.ReloadRules(context.Background(), []Rule{
		{ID: "bad", Expression: `kind ==`},
	})
	require.Error(t, err)

	// Old set survives a failed reload.
	assert.Equal(t, 1, s.ActiveRules())
	drop, err := s.ShouldDrop(context.Background(), models.ErrorPayload{Kind: models.KindHTTPError})
	require.NoError(t, err)
	assert.True(t, drop)
}

func TestReloadRulesRejectsNonBoolExpression(t *testing.T) {
	s, err := NewService(constants.FallbackAllow, logger.NopLogger())
	require.NoError(t, err)

	err = s.ReloadRules(context.Background(), []Rule{
		{ID: "non-bool", Expression: `1 + 1`},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must return bool")
}

func TestEvaluationErrorFallbackAllow(t *testing.T) {
	// matches() with a broken regex compiles but fails at evaluation time.
	s := newTestService(t, constants.FallbackAllow, Rule{
		ID:         "broken",
		Name:       "broken regex",
		Expression: `message.matches("[")`,
	})

	drop, err := s.ShouldDrop(context.Background(), models.ErrorPayload{Message: "anything"})
	require.NoError(t, err)
	assert.False(t, drop)
}

func TestEvaluationErrorFallbackDeny(t *testing.T) {
	s := newTestService(t, constants.FallbackDeny, Rule{
		ID:         "broken",
		Name:       "broken regex",
		Expression: `message.matches("[")`,
	})

	drop, err := s.ShouldDrop(context.Background(), models.ErrorPayload{Message: "anything"})
	require.NoError(t, err)
	assert.True(t, drop)
}

func TestShouldDropNoRulesIsNoop(t *testing.T) {
	s := newTestService(t, constants.FallbackAllow)

	drop, err := s.ShouldDrop(context.Background(), models.ErrorPayload{Kind: models.KindRuntimeError})
	require.NoError(t, err)
	assert.False(t, drop)
}

func TestShouldDropHonorsContextCancellation(t *testing.T) {
	s := newTestService(t, constants.FallbackAllow, Rule{
		ID:         "r1",
		Expression: `kind == "runtime_error"`,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ShouldDrop(ctx, models.ErrorPayload{Kind: models.KindRuntimeError})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidateExpression(t *testing.T) {
	s, err := NewService(constants.FallbackAllow, logger.NopLogger())
	require.NoError(t, err)

	assert.NoError(t, s.ValidateExpression(`kind == "runtime_error"`))
	assert.Error(t, s.ValidateExpression(`kind ==`))
	assert.Error(t, s.ValidateExpression(`name`))
}
