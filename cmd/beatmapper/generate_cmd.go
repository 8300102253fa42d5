package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/amcgready/BeatMapper/internal/domain"
	"github.com/amcgready/BeatMapper/internal/infra/artifacts"
	"github.com/amcgready/BeatMapper/internal/infra/audio"
	"github.com/amcgready/BeatMapper/internal/infra/catalogmem"
	"github.com/amcgready/BeatMapper/internal/infra/charts"
	"github.com/amcgready/BeatMapper/internal/usecase"
)

// runGenerate executes the full pipeline synchronously and leaves the
// committed artifact set under the output directory.
func runGenerate(args []string) int {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	in := fs.String("in", "", "source audio file (wav or mp3)")
	out := fs.String("out", "output", "artifact root directory")
	title := fs.String("title", "", "song title (defaults to file name)")
	artist := fs.String("artist", "Unknown Artist", "artist name")
	difficulty := fs.String("difficulty", "AUTO", "AUTO or a tier name")
	songMap := fs.String("song-map", "VULCAN", "stage name")
	midi := fs.String("midi", "", "optional MIDI beat reference")
	artwork := fs.String("artwork", "", "optional cover art")
	previewStart := fs.Int("preview-start", 10, "preview start offset in seconds")
	previewLength := fs.Int("preview-length", 30, "preview length in seconds")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *in == "" {
		fmt.Fprintln(os.Stderr, "generate: --in is required")
		return 1
	}

	mode, err := domain.ParseDifficultyMode(*difficulty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate: %v\n", err)
		return 1
	}
	stage, err := domain.ParseSongMap(*songMap)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate: %v\n", err)
		return 1
	}
	if *title == "" {
		*title = stemOf(*in)
	}

	store, err := artifacts.NewStore(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate: %v\n", err)
		return 1
	}
	pipeline := &usecase.GenerateChart{
		Decoder:           audio.NewDecoder(),
		Analyzer:          audio.NewAnalyzer(),
		Classifier:        defaultClassifier(),
		Synthesizer:       charts.NewSynthesizer(),
		Writer:            charts.NewWriter(),
		Catalog:           catalogmem.New(),
		Artifacts:         store,
		ReadBeatReference: audio.ReadBeatReference,
		WritePreview: func(h domain.ArtifactWriteHandle, pcm domain.PCM) error {
			preview := audio.ExtractPreview(pcm, *previewStart, *previewLength)
			return audio.WriteWAV(h.Path(domain.ArtifactPreview), preview)
		},
	}

	beatmapID := uuid.NewString()
	req := usecase.GenerateRequest{
		BeatmapID:   beatmapID,
		SourcePath:  *in,
		MIDIPath:    *midi,
		ArtworkPath: *artwork,
		Title:       *title,
		Artist:      *artist,
		Mode:        mode,
		Map:         stage,
	}
	report := func(percent int, message string) {
		fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", percent, message)
	}
	if err := pipeline.Execute(context.Background(), req, report); err != nil {
		fmt.Fprintf(os.Stderr, "generate: %v\n", err)
		return 1
	}

	set, err := store.CurrentArtifacts(beatmapID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate: %v\n", err)
		return 1
	}
	fmt.Printf("beatmap %s written to %s\n", beatmapID, set.Dir)
	return 0
}
