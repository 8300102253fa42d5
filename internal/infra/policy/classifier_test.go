package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/amcgready/BeatMapper/internal/domain"
)

func evenAnalysis(duration, interval float64) domain.AudioAnalysis {
	var onsets []float64
	for t := 0.0; t < duration; t += interval {
		onsets = append(onsets, t)
	}
	return domain.AudioAnalysis{Onsets: onsets, DurationSeconds: duration}
}

func TestClassifyDensityBuckets(t *testing.T) {
	cases := []struct {
		name     string
		interval float64
		want     domain.Difficulty
	}{
		{"sparse", 1.0, domain.DifficultyEasy},
		{"moderate", 0.5, domain.DifficultyMedium},
		{"busy", 0.35, domain.DifficultyHard},
		{"relentless", 0.2, domain.DifficultyExtreme},
	}
	c := NewClassifier(nil)
	for _, tc := range cases {
		res := c.Classify(context.Background(), evenAnalysis(100, tc.interval), nil)
		if res.Tier != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, res.Tier, tc.want)
		}
		if res.WasOverridden {
			t.Fatalf("%s: auto classification marked as override", tc.name)
		}
	}
}

func TestClassifyIrregularRhythmBumpsTier(t *testing.T) {
	// Alternating 0.1s / 2.9s gaps: low density but a high coefficient of
	// variation, which plays harder than the density alone suggests.
	var onsets []float64
	t0 := 0.0
	for i := 0; t0 < 100; i++ {
		onsets = append(onsets, t0)
		if i%2 == 0 {
			t0 += 0.1
		} else {
			t0 += 2.9
		}
	}
	analysis := domain.AudioAnalysis{Onsets: onsets, DurationSeconds: 100}

	m := ComputeMetrics(analysis)
	if m.IntervalCV <= cvComplexityBoost {
		t.Fatalf("test input not irregular enough: cv=%.3f", m.IntervalCV)
	}
	res := NewClassifier(nil).Classify(context.Background(), analysis, nil)
	if res.Tier != domain.DifficultyMedium {
		t.Fatalf("got %s, want MEDIUM after complexity bump", res.Tier)
	}
}

func TestClassifyOverride(t *testing.T) {
	c := NewClassifier(nil)
	tier := domain.DifficultyHard
	res := c.Classify(context.Background(), evenAnalysis(100, 1.0), &tier)
	if res.Tier != domain.DifficultyHard || !res.WasOverridden {
		t.Fatalf("override not honored: %+v", res)
	}
	if res.Warning != "" {
		t.Fatalf("unexpected warning for in-range override: %q", res.Warning)
	}
}

func TestClassifyOverrideClamped(t *testing.T) {
	c := NewClassifier(nil)
	tier := domain.Difficulty(9)
	res := c.Classify(context.Background(), evenAnalysis(100, 1.0), &tier)
	if res.Tier != domain.DifficultyExtreme {
		t.Fatalf("got %s, want EXTREME", res.Tier)
	}
	if res.Warning == "" {
		t.Fatal("expected a clamp warning")
	}
}

type fixedEvaluator struct {
	tier int
	err  error
}

func (f fixedEvaluator) EvaluateTier(context.Context, Metrics) (int, error) {
	return f.tier, f.err
}

func TestClassifyEvaluatorWins(t *testing.T) {
	c := NewClassifier(fixedEvaluator{tier: 3})
	res := c.Classify(context.Background(), evenAnalysis(100, 1.0), nil)
	if res.Tier != domain.DifficultyExtreme {
		t.Fatalf("got %s, want EXTREME from evaluator", res.Tier)
	}
}

func TestClassifyEvaluatorErrorFallsBack(t *testing.T) {
	c := NewClassifier(fixedEvaluator{err: errors.New("policy unavailable")})
	res := c.Classify(context.Background(), evenAnalysis(100, 1.0), nil)
	if res.Tier != domain.DifficultyEasy {
		t.Fatalf("got %s, want EASY from built-in thresholds", res.Tier)
	}
}

func TestClassifyEvaluatorResultClamped(t *testing.T) {
	c := NewClassifier(fixedEvaluator{tier: 12})
	res := c.Classify(context.Background(), evenAnalysis(100, 1.0), nil)
	if res.Tier != domain.DifficultyExtreme || res.Warning == "" {
		t.Fatalf("out-of-range evaluator result not clamped with warning: %+v", res)
	}
}
