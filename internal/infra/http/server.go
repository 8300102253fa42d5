package http

import (
	"net/http"

	"github.com/amcgready/BeatMapper/internal/config"
	"github.com/amcgready/BeatMapper/internal/domain"
	"github.com/amcgready/BeatMapper/internal/infra/db"
	"github.com/amcgready/BeatMapper/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine

	orchestrator *usecase.Orchestrator
	updateUC     *usecase.UpdateBeatmap
	deleteUC     *usecase.DeleteBeatmap
	catalog      usecase.BeatmapRepository
	artifacts    domain.ArtifactStore

	uploadDir string
}

type ServerDeps struct {
	Orchestrator *usecase.Orchestrator
	Update       *usecase.UpdateBeatmap
	Delete       *usecase.DeleteBeatmap
	Catalog      usecase.BeatmapRepository
	Artifacts    domain.ArtifactStore

	// Store is only consulted for health reporting; nil means catalog-in-memory mode.
	Store *db.Store

	// UploadDir receives incoming audio/artwork before the pipeline copies
	// them into the artifact store. Empty means the OS temp dir.
	UploadDir string
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:          cfg,
		store:        deps.Store,
		r:            r,
		orchestrator: deps.Orchestrator,
		updateUC:     deps.Update,
		deleteUC:     deps.Delete,
		catalog:      deps.Catalog,
		artifacts:    deps.Artifacts,
		uploadDir:    deps.UploadDir,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store != nil && s.store.DB != nil {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode})
	})

	v1 := s.r.Group("/v1")
	{
		v1.POST("/beatmaps", s.handleCreateBeatmap)
		v1.GET("/beatmaps", s.handleListBeatmaps)
		v1.GET("/beatmaps/:beatmap_id", s.handleGetBeatmap)
		v1.PUT("/beatmaps/:beatmap_id", s.handleUpdateBeatmap)
		v1.DELETE("/beatmaps/:beatmap_id", s.handleDeleteBeatmap)
		v1.POST("/beatmaps/:beatmap_id/regenerate", s.handleRegenerate)
		v1.GET("/beatmaps/:beatmap_id/artifacts", s.handleListArtifacts)
		v1.GET("/beatmaps/:beatmap_id/artifacts/:name", s.handleGetArtifact)

		v1.GET("/tasks/:task_id", s.handleTaskProgress)
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.r
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}
