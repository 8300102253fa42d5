package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/amcgready/BeatMapper/internal/infra/audio"
	"github.com/amcgready/BeatMapper/internal/infra/policy"
)

// runAnalyze decodes and analyzes a track without writing anything,
// printing the analysis and the derived difficulty metrics as JSON.
func runAnalyze(args []string) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	in := fs.String("in", "", "source audio file (wav or mp3)")
	midi := fs.String("midi", "", "optional MIDI beat reference")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *in == "" {
		fmt.Fprintln(os.Stderr, "analyze: --in is required")
		return 1
	}

	pcm, err := audio.NewDecoder().DecodeFile(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		return 1
	}
	var refBeats []float64
	if *midi != "" {
		refBeats, err = audio.ReadBeatReference(*midi)
		if err != nil {
			fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
			return 1
		}
	}
	analysis, err := audio.NewAnalyzer().Analyze(pcm, refBeats)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		return 1
	}

	out := struct {
		Tempo           float64        `json:"tempo"`
		DurationSeconds float64        `json:"duration_seconds"`
		OnsetCount      int            `json:"onset_count"`
		BeatCount       int            `json:"beat_count"`
		Metrics         policy.Metrics `json:"metrics"`
	}{
		Tempo:           analysis.Tempo,
		DurationSeconds: analysis.DurationSeconds,
		OnsetCount:      len(analysis.Onsets),
		BeatCount:       len(analysis.Beats),
		Metrics:         policy.ComputeMetrics(analysis),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		return 1
	}
	return 0
}

func defaultClassifier() *policy.Classifier {
	return policy.NewClassifier(nil)
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
