package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/amcgready/BeatMapper/internal/domain"
)

var errDBUnavailable = errors.New("database unavailable")

type BeatmapRepository struct {
	db *gorm.DB
}

func NewBeatmapRepository(db *gorm.DB) *BeatmapRepository {
	return &BeatmapRepository{db: db}
}

func (r *BeatmapRepository) Create(ctx context.Context, b domain.Beatmap) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := toModel(b)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *BeatmapRepository) GetByID(ctx context.Context, id string) (*domain.Beatmap, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model BeatmapModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	b := toDomain(model)
	return &b, nil
}

func (r *BeatmapRepository) Update(ctx context.Context, b domain.Beatmap) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := toModel(b)
	// Select("*") so zero values (auto mode, tier 0, map 0) still persist.
	res := r.db.WithContext(ctx).Model(&BeatmapModel{}).Where("id = ?", b.ID).
		Select("*").Omit("id", "created_at").Updates(&model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *BeatmapRepository) Delete(ctx context.Context, id string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).Delete(&BeatmapModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *BeatmapRepository) List(ctx context.Context) ([]domain.Beatmap, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []BeatmapModel
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Beatmap, 0, len(models))
	for _, m := range models {
		out = append(out, toDomain(m))
	}
	return out, nil
}

func toModel(b domain.Beatmap) BeatmapModel {
	return BeatmapModel{
		ID:                 b.ID,
		Title:              b.Title,
		Artist:             b.Artist,
		DifficultyAuto:     b.Mode.Auto,
		DifficultyOverride: int(b.Mode.Override),
		ResolvedDifficulty: int(b.Resolved),
		SongMap:            int(b.Map),
		DurationSeconds:    b.DurationSeconds,
		ArtifactVersion:    b.ArtifactVersion,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func toDomain(m BeatmapModel) domain.Beatmap {
	mode := domain.AutoDifficulty()
	if !m.DifficultyAuto {
		override, _ := domain.ClampDifficulty(m.DifficultyOverride)
		mode = domain.OverrideDifficulty(override)
	}
	resolved, _ := domain.ClampDifficulty(m.ResolvedDifficulty)
	songMap, _ := domain.ClampSongMap(m.SongMap)
	return domain.Beatmap{
		ID:              m.ID,
		Title:           m.Title,
		Artist:          m.Artist,
		Mode:            mode,
		Resolved:        resolved,
		Map:             songMap,
		DurationSeconds: m.DurationSeconds,
		ArtifactVersion: m.ArtifactVersion,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
