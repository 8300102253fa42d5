package main

import (
	"context"
	"log"

	"github.com/amcgready/BeatMapper/internal/config"
	"github.com/amcgready/BeatMapper/internal/domain"
	"github.com/amcgready/BeatMapper/internal/infra/artifacts"
	"github.com/amcgready/BeatMapper/internal/infra/audio"
	"github.com/amcgready/BeatMapper/internal/infra/catalogmem"
	"github.com/amcgready/BeatMapper/internal/infra/charts"
	"github.com/amcgready/BeatMapper/internal/infra/db"
	httpinfra "github.com/amcgready/BeatMapper/internal/infra/http"
	"github.com/amcgready/BeatMapper/internal/infra/policy"
	"github.com/amcgready/BeatMapper/internal/infra/tasks"
	"github.com/amcgready/BeatMapper/internal/infra/watch"
	"github.com/amcgready/BeatMapper/internal/usecase"
)

func main() {
	cfg := config.FromEnv()

	store, err := db.NewStore(cfg)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	var catalog usecase.BeatmapRepository
	if store != nil && store.DB != nil {
		catalog = db.NewBeatmapRepository(store.DB)
	} else {
		catalog = catalogmem.New()
	}

	artifactStore, err := artifacts.NewStore(cfg.ArtifactRoot)
	if err != nil {
		log.Fatalf("failed to init artifact store: %v", err)
	}

	var taskStore usecase.TaskStore
	if cfg.RedisAddr != "" {
		redisStore, err := tasks.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TaskRetention())
		if err != nil {
			log.Printf("redis task store unavailable, using memory: %v", err)
		} else {
			taskStore = redisStore
		}
	}
	if taskStore == nil {
		taskStore = tasks.NewMemoryStore(tasks.MemoryStoreConfig{Retention: cfg.TaskRetention()})
	}

	var evaluator policy.TierEvaluator
	if cfg.DifficultyPolicyPath != "" {
		engine, err := policy.NewEngineFromPath(context.Background(), cfg.DifficultyPolicyPath)
		if err != nil {
			log.Printf("difficulty policy %s unusable, using built-in thresholds: %v", cfg.DifficultyPolicyPath, err)
		} else {
			evaluator = engine
		}
	}

	pipeline := &usecase.GenerateChart{
		Decoder:           audio.NewDecoder(),
		Analyzer:          audio.NewAnalyzer(),
		Classifier:        policy.NewClassifier(evaluator),
		Synthesizer:       charts.NewSynthesizer(),
		Writer:            charts.NewWriter(),
		Catalog:           catalog,
		Artifacts:         artifactStore,
		ReadBeatReference: audio.ReadBeatReference,
		WritePreview: func(h domain.ArtifactWriteHandle, pcm domain.PCM) error {
			preview := audio.ExtractPreview(pcm, cfg.PreviewStartSeconds, cfg.PreviewLengthSeconds)
			return audio.WriteWAV(h.Path(domain.ArtifactPreview), preview)
		},
	}

	orch := usecase.NewOrchestrator(taskStore, pipeline, cfg.TaskTimeout())

	if cfg.InboxDir != "" {
		watcher, err := watch.New(cfg.InboxDir, orch)
		if err != nil {
			log.Printf("inbox watcher on %s unavailable: %v", cfg.InboxDir, err)
		} else {
			go func() {
				if err := watcher.Run(context.Background()); err != nil && err != context.Canceled {
					log.Printf("inbox watcher stopped: %v", err)
				}
			}()
		}
	}

	srv := httpinfra.NewServerWithDeps(cfg, httpinfra.ServerDeps{
		Orchestrator: orch,
		Update:       &usecase.UpdateBeatmap{Catalog: catalog, Launcher: orch},
		Delete:       &usecase.DeleteBeatmap{Catalog: catalog, Artifacts: artifactStore, Launcher: orch},
		Catalog:      catalog,
		Artifacts:    artifactStore,
		Store:        store,
	})
	if err := srv.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
