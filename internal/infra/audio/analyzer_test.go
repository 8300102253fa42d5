package audio

import (
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/amcgready/BeatMapper/internal/domain"
)

// clickTrack builds a silent track with short full-frame bursts at a fixed
// period. The sample rate is a power of two so click positions land exactly
// on frame boundaries.
func clickTrack(duration, period float64, sampleRate int) domain.PCM {
	samples := make([]float64, int(duration*float64(sampleRate)))
	step := int(period * float64(sampleRate))
	for start := 0; start < len(samples); start += step {
		for i := 0; i < frameSize && start+i < len(samples); i++ {
			samples[start+i] = 0.8
		}
	}
	return domain.PCM{Samples: samples, SampleRate: sampleRate}
}

func TestAnalyzeRejectsEmptyAudio(t *testing.T) {
	_, err := NewAnalyzer().Analyze(domain.PCM{SampleRate: 44100}, nil)
	if !errors.Is(err, domain.ErrEmptyAudio) {
		t.Fatalf("expected ErrEmptyAudio, got %v", err)
	}
	_, err = NewAnalyzer().Analyze(domain.PCM{Samples: make([]float64, 10)}, nil)
	if !errors.Is(err, domain.ErrEmptyAudio) {
		t.Fatalf("expected ErrEmptyAudio for zero sample rate, got %v", err)
	}
}

func TestAnalyzeClickTrack(t *testing.T) {
	// 120 BPM: clicks every 0.5s at 32768 Hz, one click per 32 hop frames.
	pcm := clickTrack(30, 0.5, 32768)
	analysis, err := NewAnalyzer().Analyze(pcm, nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if analysis.DurationSeconds != 30 {
		t.Fatalf("duration %.2f, want 30", analysis.DurationSeconds)
	}
	if math.Abs(analysis.Tempo-120) > 5 {
		t.Fatalf("tempo %.2f, want ~120", analysis.Tempo)
	}
	if len(analysis.Onsets) < 50 {
		t.Fatalf("only %d onsets detected on a 59-click track", len(analysis.Onsets))
	}
	for _, onset := range analysis.Onsets {
		nearest := math.Round(onset/0.5) * 0.5
		if math.Abs(onset-nearest) > 0.05 {
			t.Fatalf("onset %.4f not near any click", onset)
		}
	}
	if !sort.Float64sAreSorted(analysis.Onsets) {
		t.Fatal("onsets not sorted")
	}
	if len(analysis.Beats) == 0 {
		t.Fatal("no beat grid produced")
	}
}

func TestAnalyzeUsesReferenceBeats(t *testing.T) {
	pcm := clickTrack(10, 0.5, 32768)
	ref := []float64{4.0, 1.0, 1.0, -2.0, 25.0, 7.5}
	analysis, err := NewAnalyzer().Analyze(pcm, ref)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	want := []float64{1.0, 4.0, 7.5}
	if len(analysis.Beats) != len(want) {
		t.Fatalf("beats %v, want %v", analysis.Beats, want)
	}
	for i := range want {
		if analysis.Beats[i] != want[i] {
			t.Fatalf("beats %v, want %v", analysis.Beats, want)
		}
	}
}

func TestBeatGridAnchorsOnFirstOnset(t *testing.T) {
	beats := beatGrid(120, []float64{0.73}, 10)
	if len(beats) == 0 {
		t.Fatal("empty grid")
	}
	// 0.73 mod 0.5 anchors the grid at 0.23.
	if math.Abs(beats[0]-0.23) > 1e-9 {
		t.Fatalf("first beat %.4f, want 0.23", beats[0])
	}
	for i := 1; i < len(beats); i++ {
		if math.Abs((beats[i]-beats[i-1])-0.5) > 1e-9 {
			t.Fatalf("beat period drifts at %d: %v", i, beats[i]-beats[i-1])
		}
	}
}
