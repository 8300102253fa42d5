package policy

import (
	"context"
	"fmt"
	"math"

	"github.com/amcgready/BeatMapper/internal/domain"
)

// Tier thresholds. Density is detected onsets per second over the whole
// track; tracks whose inter-onset intervals vary wildly (coefficient of
// variation above cvComplexityBoost) are bumped one tier because irregular
// rhythms play harder than their density suggests. These are tunable policy
// values, not part of the pipeline contract.
const (
	easyMaxDensity   = 1.2
	mediumMaxDensity = 2.2
	hardMaxDensity   = 3.5

	cvComplexityBoost = 0.9
)

// TierEvaluator resolves a tier from the classification metrics. The
// built-in constant thresholds satisfy it; the OPA engine is a drop-in
// replacement.
type TierEvaluator interface {
	EvaluateTier(ctx context.Context, metrics Metrics) (int, error)
}

// Metrics are the classification inputs derived from analyzer output.
type Metrics struct {
	OnsetDensity float64 `json:"onset_density"`
	IntervalCV   float64 `json:"interval_cv"`
}

// Classifier maps analyzer output (or an explicit override) to a difficulty
// tier. With a nil evaluator the built-in thresholds apply.
type Classifier struct {
	Evaluator TierEvaluator
}

func NewClassifier(evaluator TierEvaluator) *Classifier {
	return &Classifier{Evaluator: evaluator}
}

// Classify never fails for valid analyzer input: an out-of-range override
// or evaluator result is clamped with a warning, and an evaluator error
// falls back to the built-in thresholds.
func (c *Classifier) Classify(ctx context.Context, analysis domain.AudioAnalysis, override *domain.Difficulty) domain.ResolvedDifficulty {
	if override != nil {
		tier, clamped := domain.ClampDifficulty(int(*override))
		res := domain.ResolvedDifficulty{Tier: tier, WasOverridden: true}
		if clamped {
			res.Warning = fmt.Sprintf("difficulty override %d out of range, clamped to %s", int(*override), tier)
		}
		return res
	}

	m := ComputeMetrics(analysis)
	if c.Evaluator != nil {
		if raw, err := c.Evaluator.EvaluateTier(ctx, m); err == nil {
			tier, clamped := domain.ClampDifficulty(raw)
			res := domain.ResolvedDifficulty{Tier: tier}
			if clamped {
				res.Warning = fmt.Sprintf("difficulty policy returned %d, clamped to %s", raw, tier)
			}
			return res
		}
	}
	return domain.ResolvedDifficulty{Tier: bucketTier(m)}
}

// ComputeMetrics derives the classification inputs from analyzer output.
func ComputeMetrics(analysis domain.AudioAnalysis) Metrics {
	var m Metrics
	if analysis.DurationSeconds > 0 {
		m.OnsetDensity = float64(len(analysis.Onsets)) / analysis.DurationSeconds
	}
	m.IntervalCV = intervalCV(analysis.Onsets)
	return m
}

func bucketTier(m Metrics) domain.Difficulty {
	var tier domain.Difficulty
	switch {
	case m.OnsetDensity <= easyMaxDensity:
		tier = domain.DifficultyEasy
	case m.OnsetDensity <= mediumMaxDensity:
		tier = domain.DifficultyMedium
	case m.OnsetDensity <= hardMaxDensity:
		tier = domain.DifficultyHard
	default:
		tier = domain.DifficultyExtreme
	}
	if m.IntervalCV > cvComplexityBoost && tier < domain.DifficultyExtreme {
		tier++
	}
	return tier
}

// intervalCV is the coefficient of variation of the inter-onset intervals:
// standard deviation over mean. Zero for fewer than three onsets.
func intervalCV(onsets []float64) float64 {
	if len(onsets) < 3 {
		return 0
	}
	intervals := make([]float64, len(onsets)-1)
	var mean float64
	for i := 1; i < len(onsets); i++ {
		intervals[i-1] = onsets[i] - onsets[i-1]
		mean += intervals[i-1]
	}
	mean /= float64(len(intervals))
	if mean <= 0 {
		return 0
	}
	var variance float64
	for _, iv := range intervals {
		variance += (iv - mean) * (iv - mean)
	}
	variance /= float64(len(intervals))
	return math.Sqrt(variance) / mean
}
