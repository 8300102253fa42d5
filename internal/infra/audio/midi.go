package audio

import (
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

// ReadBeatReference extracts note-on timestamps (seconds) from a standard
// MIDI file, tracking tempo changes as it goes. The result feeds the
// analyzer as an external beat reference.
func ReadBeatReference(path string) ([]float64, error) {
	data, err := smf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read midi reference: %w", err)
	}
	ticks, ok := data.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("read midi reference: unsupported time format %v", data.TimeFormat)
	}

	var times []float64
	for _, track := range data.Tracks {
		elapsed := 0.0
		tempo := 120.0
		for _, ev := range track {
			elapsed += ticks.Duration(tempo, ev.Delta).Seconds()
			var bpm float64
			if ev.Message.GetMetaTempo(&bpm) {
				tempo = bpm
				continue
			}
			var ch, key, vel uint8
			if ev.Message.GetNoteOn(&ch, &key, &vel) && vel > 0 {
				times = append(times, elapsed)
			}
		}
	}

	sort.Float64s(times)
	out := times[:0]
	last := -1.0
	for _, t := range times {
		if t > last {
			out = append(out, t)
			last = t
		}
	}
	return out, nil
}
