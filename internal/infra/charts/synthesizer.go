package charts

import (
	"fmt"
	"math"

	"github.com/amcgready/BeatMapper/internal/domain"
)

// Synthesis policy. Target densities come from the tuned game feel
// (notes per second a player of that tier can track); spacing floors are the
// hard minimum gap between consecutive notes. Notes inside the lead-in are
// dropped so charts never open mid-count-in.
const (
	leadInSeconds    = 3.0
	minPlayableNotes = 10

	timestampGranularity = 0.001 // quantize to 1 ms
)

var tierTargetDensity = map[domain.Difficulty]float64{
	domain.DifficultyEasy:    0.8,
	domain.DifficultyMedium:  1.5,
	domain.DifficultyHard:    2.5,
	domain.DifficultyExtreme: 4.0,
}

var tierMinSpacing = map[domain.Difficulty]float64{
	domain.DifficultyEasy:    0.60,
	domain.DifficultyMedium:  0.35,
	domain.DifficultyHard:    0.22,
	domain.DifficultyExtreme: 0.12,
}

var tierLaneCount = map[domain.Difficulty]int{
	domain.DifficultyEasy:    2,
	domain.DifficultyMedium:  3,
	domain.DifficultyHard:    4,
	domain.DifficultyExtreme: 4,
}

// MinSpacing exposes the per-tier spacing floor for consumers and tests.
func MinSpacing(tier domain.Difficulty) float64 {
	if s, ok := tierMinSpacing[tier]; ok {
		return s
	}
	return tierMinSpacing[domain.DifficultyMedium]
}

// Synthesizer converts analyzer output plus a resolved tier into the note
// sequence. It is deterministic: identical input always yields an identical
// sequence, which is what makes regeneration idempotent.
type Synthesizer struct{}

func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// Synthesize selects onsets after the lead-in, enforces the tier's spacing
// floor, thins to the tier's target density with a deterministic stride, and
// assigns lanes from each note's position on the beat grid.
func (s *Synthesizer) Synthesize(analysis domain.AudioAnalysis, tier domain.Difficulty) ([]domain.NoteEvent, error) {
	spacing := MinSpacing(tier)
	target := tierTargetDensity[tier]
	if target == 0 {
		target = tierTargetDensity[domain.DifficultyMedium]
	}

	candidates := spacedCandidates(analysis.Onsets, spacing)
	playable := analysis.DurationSeconds - leadInSeconds
	if playable > 0 {
		if limit := int(math.Round(target * playable)); len(candidates) > limit && limit > 0 {
			candidates = strideSelect(candidates, limit)
		}
	}
	if len(candidates) < minPlayableNotes {
		return nil, fmt.Errorf("%w: %d notes after selection, need %d",
			domain.ErrInsufficientOnsets, len(candidates), minPlayableNotes)
	}

	notes := make([]domain.NoteEvent, 0, len(candidates))
	last := math.Inf(-1)
	for i, t := range candidates {
		q := quantize(t)
		if q <= last {
			continue
		}
		notes = append(notes, domain.NoteEvent{
			TimeSeconds: q,
			Lane:        lane(t, analysis.Beats, tier, i),
		})
		last = q
	}
	if len(notes) < minPlayableNotes {
		return nil, fmt.Errorf("%w: %d notes after quantization, need %d",
			domain.ErrInsufficientOnsets, len(notes), minPlayableNotes)
	}
	return notes, nil
}

// spacedCandidates keeps onsets past the lead-in, greedily enforcing the
// minimum gap.
func spacedCandidates(onsets []float64, spacing float64) []float64 {
	var out []float64
	last := math.Inf(-1)
	for _, t := range onsets {
		if t < leadInSeconds {
			continue
		}
		if t-last >= spacing {
			out = append(out, t)
			last = t
		}
	}
	return out
}

// strideSelect evenly keeps limit entries out of in, preserving order.
func strideSelect(in []float64, limit int) []float64 {
	out := make([]float64, 0, limit)
	step := float64(len(in)) / float64(limit)
	for i := 0; i < limit; i++ {
		out = append(out, in[int(float64(i)*step)])
	}
	return out
}

// lane maps a note onto a drum lane from its phase within the current beat:
// downbeats hit the kick lane, off-beats walk the remaining lanes in a
// fixed rotation keyed by the note index.
func lane(t float64, beats []float64, tier domain.Difficulty, index int) int {
	lanes := tierLaneCount[tier]
	if lanes < 2 {
		lanes = 2
	}
	period := beatPeriodAt(t, beats)
	if period > 0 {
		phase := math.Mod(t-previousBeat(t, beats), period) / period
		if phase < 0.125 || phase > 0.875 {
			return 0
		}
		if phase > 0.375 && phase < 0.625 {
			return 1 % lanes
		}
	}
	return 1 + index%(lanes-1)
}

func previousBeat(t float64, beats []float64) float64 {
	prev := 0.0
	for _, b := range beats {
		if b > t {
			break
		}
		prev = b
	}
	return prev
}

func beatPeriodAt(t float64, beats []float64) float64 {
	if len(beats) < 2 {
		return 0
	}
	for i := 1; i < len(beats); i++ {
		if beats[i] > t {
			return beats[i] - beats[i-1]
		}
	}
	return beats[len(beats)-1] - beats[len(beats)-2]
}

func quantize(t float64) float64 {
	return math.Round(t/timestampGranularity) * timestampGranularity
}
