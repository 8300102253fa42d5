package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/amcgready/BeatMapper/internal/domain"
)

// ExtractPreview slices a trimmed clip out of the decoded track. The window
// is clamped to the track bounds; a track shorter than the start offset
// previews from the beginning.
func ExtractPreview(pcm domain.PCM, startSeconds, lengthSeconds int) domain.PCM {
	if pcm.SampleRate <= 0 || len(pcm.Samples) == 0 {
		return pcm
	}
	start := startSeconds * pcm.SampleRate
	if start < 0 || start >= len(pcm.Samples) {
		start = 0
	}
	end := start + lengthSeconds*pcm.SampleRate
	if end > len(pcm.Samples) {
		end = len(pcm.Samples)
	}
	if end < start {
		end = start
	}
	return domain.PCM{Samples: pcm.Samples[start:end], SampleRate: pcm.SampleRate}
}

// WriteWAV encodes mono PCM as a 16-bit WAV file at path.
func WriteWAV(path string, pcm domain.PCM) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, pcm.SampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: pcm.SampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(pcm.Samples)),
	}
	for i, s := range pcm.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		buf.Data[i] = int(s * 32767)
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
	}
	return nil
}
