package audio

import (
	"math"
	"sort"

	"github.com/amcgready/BeatMapper/internal/domain"
)

// Analysis parameters. Frame/hop sizes are in samples at the source rate;
// the thresholds shape the adaptive onset picker.
const (
	frameSize = 1024
	hopSize   = 512

	// An onset fires where the energy flux exceeds the local moving
	// average by this factor plus an absolute floor.
	onsetThresholdRatio = 1.5
	onsetThresholdFloor = 1e-4
	onsetAvgWindow      = 16

	minTempoBPM = 30.0
	maxTempoBPM = 240.0
	// Used when the flux envelope carries no periodicity at all.
	fallbackTempoBPM = 120.0
)

// Analyzer computes tempo, onsets and a beat grid from mono PCM. It is a
// pure transform: same input, same output.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze extracts onset and beat timing. When refBeats is non-empty it is
// an externally supplied beat reference (e.g. from a MIDI file) and replaces
// the inferred grid; detected onsets are kept either way.
func (a *Analyzer) Analyze(pcm domain.PCM, refBeats []float64) (domain.AudioAnalysis, error) {
	if pcm.SampleRate <= 0 || len(pcm.Samples) == 0 {
		return domain.AudioAnalysis{}, domain.ErrEmptyAudio
	}
	duration := pcm.DurationSeconds()

	flux := energyFlux(pcm.Samples)
	onsets := pickOnsets(flux, pcm.SampleRate)
	tempo := estimateTempo(flux, pcm.SampleRate)

	var beats []float64
	if len(refBeats) > 0 {
		beats = mergeReferenceBeats(refBeats, duration)
	} else {
		beats = beatGrid(tempo, onsets, duration)
	}

	return domain.AudioAnalysis{
		Tempo:           tempo,
		Onsets:          onsets,
		Beats:           beats,
		DurationSeconds: duration,
	}, nil
}

// energyFlux is the half-wave rectified frame-to-frame RMS energy delta.
func energyFlux(samples []float64) []float64 {
	if len(samples) < frameSize {
		return nil
	}
	frames := 1 + (len(samples)-frameSize)/hopSize
	env := make([]float64, frames)
	for i := 0; i < frames; i++ {
		start := i * hopSize
		var sum float64
		for _, s := range samples[start : start+frameSize] {
			sum += s * s
		}
		env[i] = math.Sqrt(sum / frameSize)
	}
	flux := make([]float64, frames)
	for i := 1; i < frames; i++ {
		d := env[i] - env[i-1]
		if d > 0 {
			flux[i] = d
		}
	}
	return flux
}

func pickOnsets(flux []float64, sampleRate int) []float64 {
	var onsets []float64
	for i := 1; i < len(flux)-1; i++ {
		if flux[i] <= flux[i-1] || flux[i] < flux[i+1] {
			continue // not a local peak
		}
		lo := i - onsetAvgWindow
		if lo < 0 {
			lo = 0
		}
		var avg float64
		for _, v := range flux[lo:i] {
			avg += v
		}
		if i > lo {
			avg /= float64(i - lo)
		}
		if flux[i] > avg*onsetThresholdRatio+onsetThresholdFloor {
			t := float64(i*hopSize+frameSize/2) / float64(sampleRate)
			onsets = append(onsets, t)
		}
	}
	return onsets
}

// estimateTempo autocorrelates the flux envelope over the plausible BPM lag
// range and returns the strongest period as BPM.
func estimateTempo(flux []float64, sampleRate int) float64 {
	framesPerSecond := float64(sampleRate) / hopSize
	minLag := int(framesPerSecond * 60.0 / maxTempoBPM)
	maxLag := int(framesPerSecond * 60.0 / minTempoBPM)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(flux) {
		maxLag = len(flux) - 1
	}
	bestLag, bestScore := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var score float64
		for i := lag; i < len(flux); i++ {
			score += flux[i] * flux[i-lag]
		}
		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}
	if bestLag == 0 || bestScore == 0 {
		return fallbackTempoBPM
	}
	return 60.0 * framesPerSecond / float64(bestLag)
}

// beatGrid lays a metric grid at the estimated tempo, anchored at the first
// detected onset so downbeats land on real audio events.
func beatGrid(tempo float64, onsets []float64, duration float64) []float64 {
	if tempo <= 0 {
		tempo = fallbackTempoBPM
	}
	period := 60.0 / tempo
	anchor := 0.0
	if len(onsets) > 0 {
		anchor = math.Mod(onsets[0], period)
	}
	var beats []float64
	for t := anchor; t < duration; t += period {
		beats = append(beats, t)
	}
	return beats
}

// mergeReferenceBeats sanitizes an external beat reference: sorted, deduped,
// clipped to the track duration.
func mergeReferenceBeats(ref []float64, duration float64) []float64 {
	beats := make([]float64, 0, len(ref))
	for _, t := range ref {
		if t >= 0 && t <= duration {
			beats = append(beats, t)
		}
	}
	sort.Float64s(beats)
	out := beats[:0]
	last := math.Inf(-1)
	for _, t := range beats {
		if t > last {
			out = append(out, t)
			last = t
		}
	}
	return out
}
