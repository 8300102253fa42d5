package db

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/amcgready/BeatMapper/internal/config"
)

type Store struct {
	DB *gorm.DB
}

// NewStore connects to postgres when a DSN is configured; otherwise the
// service runs with the in-memory catalog.
func NewStore(cfg config.Config) (*Store, error) {
	if cfg.PostgresDSN == "" {
		log.Printf("POSTGRES_DSN not set; beatmap catalog runs in memory.")
		return &Store{DB: nil}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := gdb.AutoMigrate(&BeatmapModel{}); err != nil {
		return nil, fmt.Errorf("migrate beatmaps: %w", err)
	}
	return &Store{DB: gdb}, nil
}
