package db

import "time"

type BeatmapModel struct {
	ID                 string `gorm:"type:uuid;primaryKey"`
	Title              string `gorm:"not null"`
	Artist             string `gorm:"not null"`
	DifficultyAuto     bool   `gorm:"not null"`
	DifficultyOverride int    `gorm:"not null"`
	ResolvedDifficulty int    `gorm:"not null"`
	SongMap            int    `gorm:"not null"`
	DurationSeconds    float64
	ArtifactVersion    int64     `gorm:"not null"`
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

func (BeatmapModel) TableName() string {
	return "beatmaps"
}
