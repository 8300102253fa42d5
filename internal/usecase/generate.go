package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amcgready/BeatMapper/internal/domain"
)

// GenerateRequest describes one unit of (re)generation work. Initial
// generation carries the source paths and seed metadata; a regeneration
// only names the beatmap and re-enters at the synthesizer stage using the
// persisted analysis.
type GenerateRequest struct {
	BeatmapID  string
	Regenerate bool

	SourcePath  string
	MIDIPath    string
	ArtworkPath string
	Title       string
	Artist      string
	Mode        domain.DifficultyMode
	Map         domain.SongMap

	// CleanupDir, when set, is a staging directory holding the uploaded
	// inputs. The orchestrator removes it once the task reaches a terminal
	// state; by then the pipeline has copied everything it needs.
	CleanupDir string
}

// GenerateChart runs the full pipeline for one task:
// decode → analyze → classify → synthesize → stage artifacts → commit →
// catalog update. Any stage failure aborts staging and leaves the
// previously committed artifacts untouched.
type GenerateChart struct {
	Decoder     AudioDecoder
	Analyzer    AudioAnalyzer
	Classifier  DifficultyClassifier
	Synthesizer ChartSynthesizer
	Writer      ChartWriter
	Catalog     BeatmapRepository
	Artifacts   domain.ArtifactStore

	// Optional collaborators.
	ReadBeatReference func(path string) ([]float64, error)
	WritePreview      func(h domain.ArtifactWriteHandle, pcm domain.PCM) error

	Clock func() time.Time
}

func (uc *GenerateChart) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock()
	}
	return time.Now()
}

func (uc *GenerateChart) Execute(ctx context.Context, req GenerateRequest, report ProgressFunc) error {
	if report == nil {
		report = func(int, string) {}
	}
	if req.Regenerate {
		return uc.regenerate(ctx, req, report)
	}
	return uc.generate(ctx, req, report)
}

func (uc *GenerateChart) generate(ctx context.Context, req GenerateRequest, report ProgressFunc) error {
	report(5, "decoding audio")
	pcm, err := uc.Decoder.DecodeFile(req.SourcePath)
	if err != nil {
		return err
	}

	var refBeats []float64
	if req.MIDIPath != "" && uc.ReadBeatReference != nil {
		refBeats, err = uc.ReadBeatReference(req.MIDIPath)
		if err != nil {
			// The reference improves alignment but is not required.
			log.Printf("beat reference %s unusable, falling back to detection: %v", req.MIDIPath, err)
			refBeats = nil
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	report(25, "analyzing audio")
	analysis, err := uc.Analyzer.Analyze(pcm, refBeats)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	resolved, notes, warnings, err := uc.synthesize(ctx, req.Mode, analysis, report)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	report(75, stepMessage("writing artifacts", warnings))
	h, err := uc.Artifacts.BeginWrite(req.BeatmapID)
	if err != nil {
		return err
	}
	moreWarnings, err := uc.stageNew(h, req, pcm, analysis, resolved, notes)
	if err != nil {
		_ = h.Abort()
		return err
	}
	warnings = append(warnings, moreWarnings...)

	if err := ctx.Err(); err != nil {
		_ = h.Abort()
		return err
	}
	report(90, stepMessage("committing artifacts", warnings))
	if err := h.Commit(); err != nil {
		return err
	}

	now := uc.now()
	beatmap := domain.Beatmap{
		ID:              req.BeatmapID,
		Title:           req.Title,
		Artist:          req.Artist,
		Mode:            req.Mode,
		Resolved:        resolved.Tier,
		Map:             req.Map,
		DurationSeconds: analysis.DurationSeconds,
		ArtifactVersion: 1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := uc.Catalog.Create(ctx, beatmap); err != nil {
		return err
	}
	report(100, stepMessage("completed", warnings))
	return nil
}

func (uc *GenerateChart) regenerate(ctx context.Context, req GenerateRequest, report ProgressFunc) error {
	beatmap, err := uc.Catalog.GetByID(ctx, req.BeatmapID)
	if err != nil {
		return err
	}
	current, err := uc.Artifacts.CurrentArtifacts(req.BeatmapID)
	if err != nil {
		return err
	}

	report(10, "loading cached analysis")
	analysis, err := uc.loadAnalysis(current)
	if err != nil {
		// No cached analysis: recover by re-analyzing the committed audio.
		report(15, "re-analyzing committed audio")
		analysis, err = uc.reanalyze(current)
		if err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	resolved, notes, warnings, err := uc.synthesize(ctx, beatmap.Mode, analysis, report)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	report(75, stepMessage("writing artifacts", warnings))
	h, err := uc.Artifacts.BeginWrite(req.BeatmapID)
	if err != nil {
		return err
	}
	rec := domain.InfoRecord{
		Title:           beatmap.Title,
		Artist:          beatmap.Artist,
		Difficulty:      resolved.Tier,
		DurationSeconds: analysis.DurationSeconds,
		Map:             beatmap.Map,
	}
	moreWarnings, err := uc.stageChart(h, notes, rec, analysis)
	if err == nil {
		err = carryForward(h, current)
	}
	if err != nil {
		_ = h.Abort()
		return err
	}
	warnings = append(warnings, moreWarnings...)

	if err := ctx.Err(); err != nil {
		_ = h.Abort()
		return err
	}
	report(90, stepMessage("committing artifacts", warnings))
	if err := h.Commit(); err != nil {
		return err
	}

	beatmap.Resolved = resolved.Tier
	beatmap.DurationSeconds = analysis.DurationSeconds
	beatmap.ArtifactVersion++
	beatmap.UpdatedAt = uc.now()
	if err := uc.Catalog.Update(ctx, *beatmap); err != nil {
		return err
	}
	report(100, stepMessage("completed", warnings))
	return nil
}

func (uc *GenerateChart) synthesize(ctx context.Context, mode domain.DifficultyMode, analysis domain.AudioAnalysis, report ProgressFunc) (domain.ResolvedDifficulty, []domain.NoteEvent, []string, error) {
	report(45, "resolving difficulty")
	var override *domain.Difficulty
	if !mode.Auto {
		tier := mode.Override
		override = &tier
	}
	resolved := uc.Classifier.Classify(ctx, analysis, override)
	var warnings []string
	if resolved.Warning != "" {
		log.Printf("beatmap difficulty corrected: %s", resolved.Warning)
		warnings = append(warnings, resolved.Warning)
	}

	report(60, stepMessage(fmt.Sprintf("synthesizing %s chart", resolved.Tier), warnings))
	notes, err := uc.Synthesizer.Synthesize(analysis, resolved.Tier)
	if err != nil {
		return domain.ResolvedDifficulty{}, nil, warnings, err
	}
	return resolved, notes, warnings, nil
}

// stageNew writes the complete artifact set for an initial generation.
func (uc *GenerateChart) stageNew(h domain.ArtifactWriteHandle, req GenerateRequest, pcm domain.PCM, analysis domain.AudioAnalysis, resolved domain.ResolvedDifficulty, notes []domain.NoteEvent) ([]string, error) {
	rec := domain.InfoRecord{
		Title:           req.Title,
		Artist:          req.Artist,
		Difficulty:      resolved.Tier,
		DurationSeconds: analysis.DurationSeconds,
		Map:             req.Map,
	}
	warnings, err := uc.stageChart(h, notes, rec, analysis)
	if err != nil {
		return warnings, err
	}

	songName := domain.SongArtifactName(filepath.Ext(req.SourcePath))
	if err := copyInto(h, req.SourcePath, songName); err != nil {
		return warnings, err
	}
	if req.ArtworkPath != "" {
		if err := copyInto(h, req.ArtworkPath, domain.ArtifactArtwork); err != nil {
			return warnings, err
		}
	}
	if uc.WritePreview != nil {
		if err := uc.WritePreview(h, pcm); err != nil {
			return warnings, err
		}
	}
	return warnings, nil
}

// stageChart writes the derived artifacts shared by both flows: the note
// chart, the info record and the analysis cache.
func (uc *GenerateChart) stageChart(h domain.ArtifactWriteHandle, notes []domain.NoteEvent, rec domain.InfoRecord, analysis domain.AudioAnalysis) ([]string, error) {
	f, err := h.Create(domain.ArtifactNotes)
	if err != nil {
		return nil, err
	}
	if err := uc.Writer.WriteNotes(f, notes); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
	}

	f, err = h.Create(domain.ArtifactInfo)
	if err != nil {
		return nil, err
	}
	warnings, err := uc.Writer.WriteInfo(f, rec)
	for _, w := range warnings {
		log.Printf("info record corrected: %s", w)
	}
	if err != nil {
		f.Close()
		return warnings, err
	}
	if err := f.Close(); err != nil {
		return warnings, fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
	}

	f, err = h.Create(domain.ArtifactAnalysis)
	if err != nil {
		return warnings, err
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(analysis); err != nil {
		f.Close()
		return warnings, fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
	}
	if err := f.Close(); err != nil {
		return warnings, fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
	}
	return warnings, nil
}

func (uc *GenerateChart) loadAnalysis(set domain.ArtifactSet) (domain.AudioAnalysis, error) {
	if !set.Has(domain.ArtifactAnalysis) {
		return domain.AudioAnalysis{}, domain.ErrNotFound
	}
	f, err := os.Open(filepath.Join(set.Dir, domain.ArtifactAnalysis))
	if err != nil {
		return domain.AudioAnalysis{}, err
	}
	defer f.Close()
	var analysis domain.AudioAnalysis
	if err := json.NewDecoder(f).Decode(&analysis); err != nil {
		return domain.AudioAnalysis{}, err
	}
	return analysis, nil
}

func (uc *GenerateChart) reanalyze(set domain.ArtifactSet) (domain.AudioAnalysis, error) {
	for _, name := range set.Files {
		if strings.HasPrefix(name, "song.") {
			pcm, err := uc.Decoder.DecodeFile(filepath.Join(set.Dir, name))
			if err != nil {
				return domain.AudioAnalysis{}, err
			}
			return uc.Analyzer.Analyze(pcm, nil)
		}
	}
	return domain.AudioAnalysis{}, fmt.Errorf("%w: no committed audio to analyze", domain.ErrNotFound)
}

// carryForward copies the committed files a regeneration does not rebuild
// (audio, preview, artwork) into the staging set.
func carryForward(h domain.ArtifactWriteHandle, current domain.ArtifactSet) error {
	rebuilt := map[string]bool{
		domain.ArtifactNotes:    true,
		domain.ArtifactInfo:     true,
		domain.ArtifactAnalysis: true,
	}
	for _, name := range current.Files {
		if rebuilt[name] {
			continue
		}
		if err := copyInto(h, filepath.Join(current.Dir, name), name); err != nil {
			return err
		}
	}
	return nil
}

func copyInto(h domain.ArtifactWriteHandle, srcPath, name string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
	}
	defer src.Close()
	dst, err := h.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
	}
	return nil
}

func stepMessage(step string, warnings []string) string {
	if len(warnings) == 0 {
		return step
	}
	return step + " (warning: " + strings.Join(warnings, "; ") + ")"
}
