package tasks

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amcgready/BeatMapper/internal/domain"
)

const redisKeyPrefix = "beatmapper:task:"

// In-flight keys carry a generous TTL so a worker crash cannot leak its
// record forever. Every progress write renews it, so only abandoned records
// ever reach the deadline.
const inFlightTTL = 24 * time.Hour

type redisStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisStore keeps task records in redis so progress polls can be served
// by any instance. Terminal records expire via TTL after the retention
// window.
func NewRedisStore(addr, password string, db int, retention time.Duration) (*redisStore, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if retention <= 0 {
		retention = time.Hour
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisStore{client: client, retention: retention}, nil
}

func (r *redisStore) Put(ctx context.Context, task domain.GenerationTask) error {
	key := redisKeyPrefix + task.ID
	if err := r.client.HSet(ctx, key, taskFields(task)).Err(); err != nil {
		return err
	}
	return r.client.Expire(ctx, key, r.ttl(task.Status)).Err()
}

func taskFields(task domain.GenerationTask) map[string]any {
	updated := task.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	return map[string]any{
		"beatmap_id": task.BeatmapID,
		"status":     string(task.Status),
		"progress":   task.Progress,
		"message":    task.Message,
		"created_at": task.CreatedAt.UnixMilli(),
		"updated_at": updated.UnixMilli(),
	}
}

func (r *redisStore) ttl(status domain.TaskStatus) time.Duration {
	if status.Terminal() {
		return r.retention
	}
	return inFlightTTL
}

func (r *redisStore) Get(ctx context.Context, taskID string) (*domain.GenerationTask, error) {
	values, err := r.client.HGetAll(ctx, redisKeyPrefix+taskID).Result()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, domain.ErrNotFound
	}
	progress, _ := strconv.Atoi(values["progress"])
	createdMillis, _ := strconv.ParseInt(values["created_at"], 10, 64)
	updatedMillis, _ := strconv.ParseInt(values["updated_at"], 10, 64)
	return &domain.GenerationTask{
		ID:        taskID,
		BeatmapID: values["beatmap_id"],
		Status:    domain.TaskStatus(values["status"]),
		Progress:  progress,
		Message:   values["message"],
		CreatedAt: time.UnixMilli(createdMillis),
		UpdatedAt: time.UnixMilli(updatedMillis),
	}, nil
}
