package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

const defaultTierQuery = "data.beatmapper.difficulty.tier"

// Engine evaluates the difficulty tier through a rego policy, so operators
// can retune bucketing without a rebuild. The policy receives
// {onset_density, interval_cv} as input and must yield a number.
type Engine struct {
	query rego.PreparedEvalQuery
}

func NewEngineFromPath(ctx context.Context, policyPath string) (*Engine, error) {
	r := rego.New(
		rego.Query(defaultTierQuery),
		rego.StrictBuiltinErrors(true),
		rego.Load([]string{policyPath}, nil),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare difficulty policy: %w", err)
	}
	return &Engine{query: prepared}, nil
}

func (e *Engine) EvaluateTier(ctx context.Context, metrics Metrics) (int, error) {
	if e == nil {
		return 0, errors.New("difficulty policy engine is nil")
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(metrics))
	if err != nil {
		return 0, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return 0, errors.New("empty difficulty policy result")
	}
	switch v := results[0].Expressions[0].Value.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("difficulty policy returned %T, want number", v)
	}
}
