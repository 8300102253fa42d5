package audio

import (
	"testing"

	"github.com/amcgready/BeatMapper/internal/domain"
)

func previewInput(seconds int) domain.PCM {
	rate := 100
	samples := make([]float64, seconds*rate)
	for i := range samples {
		samples[i] = float64(i)
	}
	return domain.PCM{Samples: samples, SampleRate: rate}
}

func TestExtractPreviewWindow(t *testing.T) {
	pcm := previewInput(60)
	clip := ExtractPreview(pcm, 10, 30)
	if len(clip.Samples) != 30*pcm.SampleRate {
		t.Fatalf("clip length %d samples", len(clip.Samples))
	}
	if clip.Samples[0] != float64(10*pcm.SampleRate) {
		t.Fatalf("clip starts at sample %v", clip.Samples[0])
	}
}

func TestExtractPreviewShortTrackStartsFromBeginning(t *testing.T) {
	pcm := previewInput(5)
	clip := ExtractPreview(pcm, 10, 30)
	if len(clip.Samples) != len(pcm.Samples) {
		t.Fatalf("clip length %d, want full track", len(clip.Samples))
	}
	if clip.Samples[0] != 0 {
		t.Fatalf("clip starts at sample %v", clip.Samples[0])
	}
}

func TestExtractPreviewClampsHostileOffsets(t *testing.T) {
	pcm := previewInput(5)

	clip := ExtractPreview(pcm, -3, 2)
	if len(clip.Samples) != 2*pcm.SampleRate || clip.Samples[0] != 0 {
		t.Fatalf("negative start mishandled: %d samples starting at %v", len(clip.Samples), clip.Samples[0])
	}

	clip = ExtractPreview(pcm, 1, -10)
	if len(clip.Samples) != 0 {
		t.Fatalf("negative length produced %d samples", len(clip.Samples))
	}
}
