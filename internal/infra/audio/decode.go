package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/amcgready/BeatMapper/internal/domain"
)

// Decoder turns a source audio file into mono PCM for analysis. It is the
// only place container formats are understood; everything downstream works
// on domain.PCM.
type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) DecodeFile(path string) (domain.PCM, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(path)
	case ".mp3":
		return decodeMP3(path)
	default:
		return domain.PCM{}, fmt.Errorf("%w: unsupported container %q", domain.ErrDecode, filepath.Ext(path))
	}
}

func decodeWAV(path string) (domain.PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.PCM{}, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return domain.PCM{}, fmt.Errorf("%w: not a valid wav file", domain.ErrDecode)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return domain.PCM{}, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	bitDepth := int(dec.BitDepth)
	if buf.SourceBitDepth > 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	frames := len(buf.Data) / channels
	samples := make([]float64, 0, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(buf.Data[i*channels+ch]) / scale
		}
		samples = append(samples, sum/float64(channels))
	}
	pcm := domain.PCM{Samples: samples, SampleRate: buf.Format.SampleRate}
	if pcm.DurationSeconds() == 0 {
		return domain.PCM{}, domain.ErrEmptyAudio
	}
	return pcm, nil
}

func decodeMP3(path string) (domain.PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.PCM{}, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return domain.PCM{}, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return domain.PCM{}, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}

	// go-mp3 always yields 16-bit little-endian stereo frames.
	const frameBytes = 4
	frames := len(raw) / frameBytes
	samples := make([]float64, 0, frames)
	for i := 0; i < frames; i++ {
		left := int16(binary.LittleEndian.Uint16(raw[i*frameBytes:]))
		right := int16(binary.LittleEndian.Uint16(raw[i*frameBytes+2:]))
		samples = append(samples, (float64(left)+float64(right))/2/32768)
	}
	pcm := domain.PCM{Samples: samples, SampleRate: dec.SampleRate()}
	if pcm.DurationSeconds() == 0 {
		return domain.PCM{}, domain.ErrEmptyAudio
	}
	return pcm, nil
}
