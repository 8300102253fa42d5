package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/amcgready/BeatMapper/internal/domain"
	"github.com/amcgready/BeatMapper/internal/infra/artifacts"
	"github.com/amcgready/BeatMapper/internal/infra/charts"
)

type fakeDecoder struct {
	pcm   domain.PCM
	err   error
	calls int
}

func (d *fakeDecoder) DecodeFile(path string) (domain.PCM, error) {
	d.calls++
	if d.err != nil {
		return domain.PCM{}, d.err
	}
	return d.pcm, nil
}

type fakeAnalyzer struct {
	analysis domain.AudioAnalysis
}

func (a *fakeAnalyzer) Analyze(pcm domain.PCM, refBeats []float64) (domain.AudioAnalysis, error) {
	return a.analysis, nil
}

type fakeClassifier struct {
	tier domain.Difficulty
}

func (c *fakeClassifier) Classify(_ context.Context, _ domain.AudioAnalysis, override *domain.Difficulty) domain.ResolvedDifficulty {
	if override != nil {
		return domain.ResolvedDifficulty{Tier: *override, WasOverridden: true}
	}
	return domain.ResolvedDifficulty{Tier: c.tier}
}

type fakeSynthesizer struct {
	err error
}

func (s *fakeSynthesizer) Synthesize(_ domain.AudioAnalysis, _ domain.Difficulty) ([]domain.NoteEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	notes := make([]domain.NoteEvent, 12)
	for i := range notes {
		notes[i] = domain.NoteEvent{TimeSeconds: 3.5 + 0.5*float64(i), Lane: i % 2}
	}
	return notes, nil
}

func testAnalysis() domain.AudioAnalysis {
	return domain.AudioAnalysis{
		Tempo:           120,
		Onsets:          []float64{3.5, 4.0, 4.5, 5.0},
		Beats:           []float64{0, 0.5, 1.0},
		DurationSeconds: 42,
	}
}

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newTestPipeline(t *testing.T, catalog *fakeCatalog, dec *fakeDecoder, syn *fakeSynthesizer) (*GenerateChart, *artifacts.Store) {
	t.Helper()
	store, err := artifacts.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new artifact store: %v", err)
	}
	return &GenerateChart{
		Decoder:     dec,
		Analyzer:    &fakeAnalyzer{analysis: testAnalysis()},
		Classifier:  &fakeClassifier{tier: domain.DifficultyHard},
		Synthesizer: syn,
		Writer:      charts.NewWriter(),
		Catalog:     catalog,
		Artifacts:   store,
		WritePreview: func(h domain.ArtifactWriteHandle, pcm domain.PCM) error {
			f, err := h.Create(domain.ArtifactPreview)
			if err != nil {
				return err
			}
			if _, err := f.Write([]byte("preview")); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}, store
}

func TestGenerateCommitsFullArtifactSet(t *testing.T) {
	dir := t.TempDir()
	src := writeTempFile(t, dir, "track.wav", "fake audio bytes")
	art := writeTempFile(t, dir, "cover.jpg", "fake jpeg")

	catalog := newFakeCatalog()
	dec := &fakeDecoder{pcm: domain.PCM{Samples: make([]float64, 4200), SampleRate: 100}}
	pipeline, store := newTestPipeline(t, catalog, dec, &fakeSynthesizer{})

	var lastPercent int
	err := pipeline.Execute(context.Background(), GenerateRequest{
		BeatmapID:   "b1",
		SourcePath:  src,
		ArtworkPath: art,
		Title:       "Test Song",
		Artist:      "Test Artist",
		Mode:        domain.AutoDifficulty(),
		Map:         domain.MapDesert,
	}, func(percent int, _ string) { lastPercent = percent })
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if lastPercent != 100 {
		t.Fatalf("final progress %d, want 100", lastPercent)
	}

	set, err := store.CurrentArtifacts("b1")
	if err != nil {
		t.Fatalf("current artifacts: %v", err)
	}
	want := []string{
		domain.ArtifactAnalysis,
		domain.ArtifactArtwork,
		domain.ArtifactInfo,
		domain.ArtifactNotes,
		domain.ArtifactPreview,
		"song.wav",
	}
	if len(set.Files) != len(want) {
		t.Fatalf("file list %v, want %v", set.Files, want)
	}
	for i := range want {
		if set.Files[i] != want[i] {
			t.Fatalf("file list %v, want %v", set.Files, want)
		}
	}

	record, err := catalog.GetByID(context.Background(), "b1")
	if err != nil {
		t.Fatalf("catalog record: %v", err)
	}
	if record.ArtifactVersion != 1 {
		t.Fatalf("artifact version %d, want 1", record.ArtifactVersion)
	}
	if record.Resolved != domain.DifficultyHard {
		t.Fatalf("resolved tier %s, want HARD", record.Resolved)
	}
	if record.DurationSeconds != 42 {
		t.Fatalf("duration %.1f, want 42", record.DurationSeconds)
	}
}

func TestRegenerateReusesAnalysisAndBumpsVersion(t *testing.T) {
	dir := t.TempDir()
	src := writeTempFile(t, dir, "track.wav", "fake audio bytes")

	catalog := newFakeCatalog()
	dec := &fakeDecoder{pcm: domain.PCM{Samples: make([]float64, 4200), SampleRate: 100}}
	pipeline, store := newTestPipeline(t, catalog, dec, &fakeSynthesizer{})

	req := GenerateRequest{
		BeatmapID:  "b1",
		SourcePath: src,
		Title:      "Test Song",
		Artist:     "Test Artist",
		Mode:       domain.AutoDifficulty(),
		Map:        domain.MapVulcan,
	}
	if err := pipeline.Execute(context.Background(), req, nil); err != nil {
		t.Fatalf("initial generation: %v", err)
	}

	// Regeneration re-enters at synthesis; decoding again is a bug.
	dec.err = errors.New("decode must not run during regeneration")
	err := pipeline.Execute(context.Background(), GenerateRequest{BeatmapID: "b1", Regenerate: true}, nil)
	if err != nil {
		t.Fatalf("regeneration: %v", err)
	}

	record, err := catalog.GetByID(context.Background(), "b1")
	if err != nil {
		t.Fatalf("catalog record: %v", err)
	}
	if record.ArtifactVersion != 2 {
		t.Fatalf("artifact version %d, want 2", record.ArtifactVersion)
	}

	set, err := store.CurrentArtifacts("b1")
	if err != nil {
		t.Fatalf("current artifacts: %v", err)
	}
	for _, name := range []string{"song.wav", domain.ArtifactPreview, domain.ArtifactNotes, domain.ArtifactInfo, domain.ArtifactAnalysis} {
		if !set.Has(name) {
			t.Fatalf("regenerated set missing %s: %v", name, set.Files)
		}
	}
}

func TestRegenerateWithoutCachedAnalysisReanalyzes(t *testing.T) {
	dir := t.TempDir()
	src := writeTempFile(t, dir, "track.wav", "fake audio bytes")

	catalog := newFakeCatalog()
	dec := &fakeDecoder{pcm: domain.PCM{Samples: make([]float64, 4200), SampleRate: 100}}
	pipeline, store := newTestPipeline(t, catalog, dec, &fakeSynthesizer{})

	req := GenerateRequest{
		BeatmapID:  "b1",
		SourcePath: src,
		Title:      "Test Song",
		Artist:     "Test Artist",
		Mode:       domain.AutoDifficulty(),
	}
	if err := pipeline.Execute(context.Background(), req, nil); err != nil {
		t.Fatalf("initial generation: %v", err)
	}
	set, _ := store.CurrentArtifacts("b1")
	if err := os.Remove(filepath.Join(set.Dir, domain.ArtifactAnalysis)); err != nil {
		t.Fatalf("drop analysis cache: %v", err)
	}

	decodesBefore := dec.calls
	if err := pipeline.Execute(context.Background(), GenerateRequest{BeatmapID: "b1", Regenerate: true}, nil); err != nil {
		t.Fatalf("regeneration: %v", err)
	}
	if dec.calls != decodesBefore+1 {
		t.Fatalf("expected one recovery decode, got %d", dec.calls-decodesBefore)
	}
}

func TestGenerateFailureLeavesNoArtifacts(t *testing.T) {
	dir := t.TempDir()
	src := writeTempFile(t, dir, "track.wav", "fake audio bytes")

	catalog := newFakeCatalog()
	dec := &fakeDecoder{pcm: domain.PCM{Samples: make([]float64, 4200), SampleRate: 100}}
	pipeline, store := newTestPipeline(t, catalog, dec, &fakeSynthesizer{err: domain.ErrInsufficientOnsets})

	err := pipeline.Execute(context.Background(), GenerateRequest{
		BeatmapID:  "b1",
		SourcePath: src,
		Mode:       domain.AutoDifficulty(),
	}, nil)
	if !errors.Is(err, domain.ErrInsufficientOnsets) {
		t.Fatalf("expected ErrInsufficientOnsets, got %v", err)
	}
	if _, err := store.CurrentArtifacts("b1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("failed generation left artifacts: %v", err)
	}
	if _, err := catalog.GetByID(context.Background(), "b1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("failed generation created a catalog record: %v", err)
	}
}

func TestRegenerateFailurePreservesPreviousSet(t *testing.T) {
	dir := t.TempDir()
	src := writeTempFile(t, dir, "track.wav", "fake audio bytes")

	catalog := newFakeCatalog()
	dec := &fakeDecoder{pcm: domain.PCM{Samples: make([]float64, 4200), SampleRate: 100}}
	syn := &fakeSynthesizer{}
	pipeline, store := newTestPipeline(t, catalog, dec, syn)

	req := GenerateRequest{
		BeatmapID:  "b1",
		SourcePath: src,
		Title:      "Test Song",
		Mode:       domain.AutoDifficulty(),
	}
	if err := pipeline.Execute(context.Background(), req, nil); err != nil {
		t.Fatalf("initial generation: %v", err)
	}

	syn.err = domain.ErrInsufficientOnsets
	err := pipeline.Execute(context.Background(), GenerateRequest{BeatmapID: "b1", Regenerate: true}, nil)
	if !errors.Is(err, domain.ErrInsufficientOnsets) {
		t.Fatalf("expected ErrInsufficientOnsets, got %v", err)
	}

	record, _ := catalog.GetByID(context.Background(), "b1")
	if record.ArtifactVersion != 1 {
		t.Fatalf("failed regeneration bumped version to %d", record.ArtifactVersion)
	}
	set, err := store.CurrentArtifacts("b1")
	if err != nil {
		t.Fatalf("previous set lost: %v", err)
	}
	if !set.Has(domain.ArtifactNotes) {
		t.Fatalf("previous set incomplete: %v", set.Files)
	}
}
