package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/amcgready/BeatMapper/internal/domain"
)

// TaskLauncher is the slice of the orchestrator the metadata usecases need.
type TaskLauncher interface {
	Enqueue(ctx context.Context, req GenerateRequest) (domain.GenerationTask, error)
	CancelActive(beatmapID string) bool
}

// UpdateBeatmapRequest carries the editable fields. Nil pointers mean "leave
// unchanged".
type UpdateBeatmapRequest struct {
	BeatmapID  string
	Title      *string
	Artist     *string
	Difficulty *string
	SongMap    *string
}

// UpdateBeatmapResult reports what the update did. Title, artist and song
// map changes apply immediately; a difficulty change additionally starts a
// regeneration task, returned here for polling.
type UpdateBeatmapResult struct {
	Beatmap      domain.Beatmap
	Regenerating bool
	Task         *domain.GenerationTask
	Warnings     []string
}

// UpdateBeatmap edits catalog metadata and, when the difficulty mode
// changes, schedules a regeneration.
type UpdateBeatmap struct {
	Catalog  BeatmapRepository
	Launcher TaskLauncher
	Clock    func() time.Time
}

func (uc *UpdateBeatmap) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock()
	}
	return time.Now()
}

func (uc *UpdateBeatmap) Execute(ctx context.Context, req UpdateBeatmapRequest) (UpdateBeatmapResult, error) {
	current, err := uc.Catalog.GetByID(ctx, req.BeatmapID)
	if err != nil {
		return UpdateBeatmapResult{}, err
	}

	updated := *current
	var warnings []string
	needsRegen := false

	if req.Title != nil {
		updated.Title = *req.Title
	}
	if req.Artist != nil {
		updated.Artist = *req.Artist
	}
	if req.Difficulty != nil {
		mode, warning, err := parseDifficultyField(*req.Difficulty)
		if err != nil {
			return UpdateBeatmapResult{}, err
		}
		if warning != "" {
			warnings = append(warnings, warning)
		}
		if mode != updated.Mode {
			updated.Mode = mode
			needsRegen = true
		}
	}
	if req.SongMap != nil {
		songMap, warning, err := parseSongMapField(*req.SongMap)
		if err != nil {
			return UpdateBeatmapResult{}, err
		}
		if warning != "" {
			warnings = append(warnings, warning)
		}
		// Stage choice does not shape the chart; it applies in place.
		updated.Map = songMap
	}

	updated.UpdatedAt = uc.now()
	if err := uc.Catalog.Update(ctx, updated); err != nil {
		return UpdateBeatmapResult{}, err
	}

	if !needsRegen {
		return UpdateBeatmapResult{Beatmap: updated, Warnings: warnings}, nil
	}

	task, err := uc.Launcher.Enqueue(ctx, GenerateRequest{
		BeatmapID:  req.BeatmapID,
		Regenerate: true,
	})
	if err != nil {
		if errors.Is(err, domain.ErrTaskInProgress) {
			// Put the record back; the caller retries once the live
			// task finishes.
			if rbErr := uc.Catalog.Update(ctx, *current); rbErr != nil {
				log.Printf("rollback of beatmap %s after rejected regeneration failed: %v", req.BeatmapID, rbErr)
			}
		}
		return UpdateBeatmapResult{}, err
	}
	return UpdateBeatmapResult{
		Beatmap:      updated,
		Regenerating: true,
		Task:         &task,
		Warnings:     warnings,
	}, nil
}

// parseDifficultyField accepts "AUTO", a tier name, or a numeric tier.
// Numeric values outside the tier range are corrected with a warning.
func parseDifficultyField(s string) (domain.DifficultyMode, string, error) {
	if v, err := strconv.Atoi(s); err == nil {
		tier, clamped := domain.ClampDifficulty(v)
		if clamped {
			return domain.OverrideDifficulty(tier), fmt.Sprintf("difficulty %d out of range, corrected to %s", v, tier), nil
		}
		return domain.OverrideDifficulty(tier), "", nil
	}
	mode, err := domain.ParseDifficultyMode(s)
	if err != nil {
		return domain.DifficultyMode{}, "", err
	}
	return mode, "", nil
}

// parseSongMapField accepts a stage name or its numeric code. Out-of-range
// codes fall back to the default stage with a warning; unknown names are
// errors.
func parseSongMapField(s string) (domain.SongMap, string, error) {
	if v, err := strconv.Atoi(s); err == nil {
		songMap, corrected := domain.ClampSongMap(v)
		if corrected {
			return songMap, fmt.Sprintf("song map %d out of range, corrected to %s", v, songMap), nil
		}
		return songMap, "", nil
	}
	songMap, err := domain.ParseSongMap(s)
	if err != nil {
		return 0, "", err
	}
	return songMap, "", nil
}

// DeleteBeatmap removes a beatmap from the catalog together with its
// committed artifacts. A live task for the beatmap is canceled first; it
// observes the cancellation at its next stage boundary.
type DeleteBeatmap struct {
	Catalog   BeatmapRepository
	Artifacts domain.ArtifactStore
	Launcher  TaskLauncher
}

func (uc *DeleteBeatmap) Execute(ctx context.Context, beatmapID string) error {
	if uc.Launcher != nil && uc.Launcher.CancelActive(beatmapID) {
		log.Printf("canceled live generation task for beatmap %s", beatmapID)
	}
	if err := uc.Catalog.Delete(ctx, beatmapID); err != nil {
		return err
	}
	if err := uc.Artifacts.Remove(beatmapID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}
