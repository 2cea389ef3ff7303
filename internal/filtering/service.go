package filtering

import (
	"context"
	"fmt"
	"sync"

	"faultline/internal/constants"
	"faultline/internal/logger"
	"faultline/pkg/metrics"
	"faultline/pkg/models"

	"github.com/google/cel-go/cel"
)

type errorHandlingStatus int

const (
	errorHandlingDrop errorHandlingStatus = iota
	errorHandlingSkip
)

type compiledRule struct {
	Rule
	program cel.Program
}

type Service struct {
	rulesMu         sync.RWMutex
	rules           []compiledRule
	fallbackOnError string
	env             *cel.Env
	logger          logger.Logger
}

func NewService(fallbackOnError string, log logger.Logger) (*Service, error) {
	env, err := cel.NewEnv(
		cel.Variable("kind", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("message", cel.StringType),
		cel.Variable("stack", cel.StringType),
		cel.Variable("source", cel.StringType),
		cel.Variable("url", cel.StringType),
		cel.Variable("route", cel.StringType),
		cel.Variable("environment", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	if fallbackOnError == "" {
		fallbackOnError = constants.FallbackAllow
	}

	return &Service{
		rules:           make([]compiledRule, 0),
		fallbackOnError: fallbackOnError,
		env:             env,
		logger:          log,
	}, nil
}

func (s *Service) ValidateExpression(expression string) error {
	ast, issues := s.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return fmt.Errorf("drop rule expression must return bool, got %v", ast.OutputType())
	}

	return nil
}

func (s *Service) compile(rule Rule) (compiledRule, error) {
	ast, issues := s.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return compiledRule{}, fmt.Errorf("failed to compile rule %q: %w", rule.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return compiledRule{}, fmt.Errorf("rule %q must return bool, got %v", rule.ID, ast.OutputType())
	}

	program, err := s.env.Program(ast)
	if err != nil {
		return compiledRule{}, fmt.Errorf("failed to create program for rule %q: %w", rule.ID, err)
	}

	return compiledRule{Rule: rule, program: program}, nil
}

// ReloadRules compiles and swaps the active rule set. A compile failure
// rejects the whole set and keeps the previous rules in place.
func (s *Service) ReloadRules(ctx context.Context, rules []Rule) error {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		cr, err := s.compile(rule)
		if err != nil {
			return err
		}
		compiled = append(compiled, cr)
	}

	s.rulesMu.Lock()
	s.rules = compiled
	s.rulesMu.Unlock()

	metrics.SetFilterRulesActive(len(compiled))
	s.logger.InfowCtx(ctx, "Reloaded drop rules",
		"rules_count", len(compiled),
	)
	return nil
}

func (s *Service) ActiveRules() int {
	s.rulesMu.RLock()
	defer s.rulesMu.RUnlock()
	return len(s.rules)
}

func (s *Service) getActiveRules() []compiledRule {
	s.rulesMu.RLock()
	defer s.rulesMu.RUnlock()

	rules := make([]compiledRule, len(s.rules))
	copy(rules, s.rules)
	return rules
}

// ShouldDrop evaluates the active rules in order and reports whether the
// payload matched one. Evaluation errors fall back per configuration:
// allow skips the broken rule, deny discards the event.
func (s *Service) ShouldDrop(ctx context.Context, p models.ErrorPayload) (bool, error) {
	rules := s.getActiveRules()
	if len(rules) == 0 {
		return false, nil
	}

	vars := map[string]interface{}{
		"kind":        string(p.Kind),
		"name":        p.Name,
		"message":     p.Message,
		"stack":       p.Stack,
		"source":      p.Source,
		"url":         p.URL,
		"route":       p.Route,
		"environment": p.Environment,
	}

	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		result, _, err := rule.program.ContextEval(ctx, vars)
		if err != nil {
			if s.handleEvaluationError(ctx, rule.Rule, err) == errorHandlingDrop {
				return true, nil
			}
			continue
		}

		matched, ok := result.Value().(bool)
		if !ok {
			if s.handleEvaluationError(ctx, rule.Rule, fmt.Errorf("rule returned %T, want bool", result.Value())) == errorHandlingDrop {
				return true, nil
			}
			continue
		}

		if matched {
			metrics.IncFilterRuleEvaluation(rule.ID, rule.Name, "matched")
			s.logger.DebugwCtx(ctx, "Drop rule matched event",
				"rule_id", rule.ID,
				"rule_name", rule.Name,
			)
			return true, nil
		}

		metrics.IncFilterRuleEvaluation(rule.ID, rule.Name, "passed")
	}

	return false, nil
}

func (s *Service) handleEvaluationError(ctx context.Context, rule Rule, err error) errorHandlingStatus {
	s.logger.ErrorwCtx(ctx, "Drop rule evaluation error",
		"rule_id", rule.ID,
		"rule_name", rule.Name,
		"error", err,
	)

	switch s.fallbackOnError {
	case constants.FallbackDeny:
		metrics.IncFallbackUsage("filtering", "deny_on_error", "evaluation_error")
		s.logger.WarnwCtx(ctx, "Evaluation error, dropping event (fallback: deny)",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
		)
		return errorHandlingDrop
	default:
		metrics.IncFallbackUsage("filtering", "allow_on_error", "evaluation_error")
		s.logger.WarnwCtx(ctx, "Evaluation error, keeping event (fallback: allow)",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
		)
		return errorHandlingSkip
	}
}
