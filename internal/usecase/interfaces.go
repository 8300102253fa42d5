package usecase

import (
	"context"
	"io"

	"github.com/amcgready/BeatMapper/internal/domain"
)

type BeatmapRepository interface {
	Create(ctx context.Context, b domain.Beatmap) error
	GetByID(ctx context.Context, id string) (*domain.Beatmap, error)
	Update(ctx context.Context, b domain.Beatmap) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Beatmap, error)
}

type TaskStore interface {
	Put(ctx context.Context, task domain.GenerationTask) error
	Get(ctx context.Context, taskID string) (*domain.GenerationTask, error)
}

type AudioDecoder interface {
	DecodeFile(path string) (domain.PCM, error)
}

type AudioAnalyzer interface {
	Analyze(pcm domain.PCM, refBeats []float64) (domain.AudioAnalysis, error)
}

type DifficultyClassifier interface {
	Classify(ctx context.Context, analysis domain.AudioAnalysis, override *domain.Difficulty) domain.ResolvedDifficulty
}

type ChartSynthesizer interface {
	Synthesize(analysis domain.AudioAnalysis, tier domain.Difficulty) ([]domain.NoteEvent, error)
}

type ChartWriter interface {
	WriteNotes(w io.Writer, notes []domain.NoteEvent) error
	WriteInfo(w io.Writer, rec domain.InfoRecord) ([]string, error)
}

// ProgressFunc reports pipeline progress into the owning task record.
type ProgressFunc func(percent int, message string)

// ChartPipeline is what the orchestrator drives per task.
type ChartPipeline interface {
	Execute(ctx context.Context, req GenerateRequest, report ProgressFunc) error
}
