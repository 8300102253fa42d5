package http

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amcgready/BeatMapper/internal/domain"
	"github.com/amcgready/BeatMapper/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type beatmapResponse struct {
	ID                 string  `json:"beatmap_id"`
	Title              string  `json:"title"`
	Artist             string  `json:"artist"`
	Difficulty         string  `json:"difficulty"`
	ResolvedDifficulty string  `json:"resolved_difficulty"`
	SongMap            string  `json:"song_map"`
	DurationSeconds    float64 `json:"duration_seconds"`
	ArtifactVersion    int64   `json:"artifact_version"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

type taskResponse struct {
	TaskID    string `json:"task_id"`
	BeatmapID string `json:"beatmap_id"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	Message   string `json:"message,omitempty"`
}

type createResponse struct {
	BeatmapID string `json:"beatmap_id"`
	TaskID    string `json:"task_id"`
}

type updateRequest struct {
	Title      *string `json:"title"`
	Artist     *string `json:"artist"`
	Difficulty *string `json:"difficulty"`
	SongMap    *string `json:"song_map"`
}

type updateResponse struct {
	Beatmap      beatmapResponse `json:"beatmap"`
	Regenerating bool            `json:"regenerating"`
	TaskID       string          `json:"task_id,omitempty"`
	Warnings     []string        `json:"warnings,omitempty"`
}

var supportedAudioExts = map[string]bool{
	".wav": true,
	".mp3": true,
}

// handleCreateBeatmap accepts a multipart upload (song plus optional midi
// and artwork) and schedules generation. The catalog record appears once
// the task completes; until then the returned task ID is the only handle.
func (s *Server) handleCreateBeatmap(c *gin.Context) {
	song, err := c.FormFile("song")
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "MISSING_SONG", "song file is required")
		return
	}
	ext := strings.ToLower(filepath.Ext(song.Filename))
	if !supportedAudioExts[ext] {
		writeErrorCode(c, http.StatusBadRequest, "UNSUPPORTED_AUDIO_FORMAT", "song must be wav or mp3")
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	artist := strings.TrimSpace(c.PostForm("artist"))
	if title == "" {
		title = strings.TrimSuffix(song.Filename, filepath.Ext(song.Filename))
	}
	if artist == "" {
		artist = "Unknown Artist"
	}

	mode := domain.AutoDifficulty()
	if raw := c.PostForm("difficulty"); raw != "" {
		mode, err = domain.ParseDifficultyMode(raw)
		if err != nil {
			writeError(c, err)
			return
		}
	}
	songMap := domain.DefaultSongMap
	if raw := c.PostForm("song_map"); raw != "" {
		songMap, err = domain.ParseSongMap(raw)
		if err != nil {
			writeError(c, err)
			return
		}
	}

	beatmapID := uuid.NewString()
	dir, err := s.uploadDirFor(beatmapID)
	if err != nil {
		writeError(c, err)
		return
	}
	// Once staged, the directory belongs to the task: the orchestrator
	// removes it when the task finishes. Until the enqueue succeeds it is
	// ours to clean up.
	discardUploads := func() { _ = os.RemoveAll(dir) }

	sourcePath := filepath.Join(dir, "song"+ext)
	if err := c.SaveUploadedFile(song, sourcePath); err != nil {
		discardUploads()
		writeError(c, err)
		return
	}
	midiPath, err := s.saveOptional(c, dir, "midi", ".mid")
	if err != nil {
		discardUploads()
		writeError(c, err)
		return
	}
	artworkPath, err := s.saveOptional(c, dir, "artwork", ".jpg")
	if err != nil {
		discardUploads()
		writeError(c, err)
		return
	}

	task, err := s.orchestrator.Enqueue(c.Request.Context(), usecase.GenerateRequest{
		BeatmapID:   beatmapID,
		SourcePath:  sourcePath,
		MIDIPath:    midiPath,
		ArtworkPath: artworkPath,
		Title:       title,
		Artist:      artist,
		Mode:        mode,
		Map:         songMap,
		CleanupDir:  dir,
	})
	if err != nil {
		discardUploads()
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, createResponse{BeatmapID: beatmapID, TaskID: task.ID})
}

func (s *Server) uploadDirFor(beatmapID string) (string, error) {
	base := s.uploadDir
	if base == "" {
		base = os.TempDir()
	}
	dir := filepath.Join(base, "upload-"+beatmapID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func (s *Server) saveOptional(c *gin.Context, dir, field, defaultExt string) (string, error) {
	file, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == "" {
		ext = defaultExt
	}
	path := filepath.Join(dir, field+ext)
	if err := c.SaveUploadedFile(file, path); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Server) handleListBeatmaps(c *gin.Context) {
	beatmaps, err := s.catalog.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]beatmapResponse, 0, len(beatmaps))
	for _, b := range beatmaps {
		out = append(out, buildBeatmapResponse(b))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetBeatmap(c *gin.Context) {
	beatmap, err := s.catalog.GetByID(c.Request.Context(), c.Param("beatmap_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildBeatmapResponse(*beatmap))
}

func (s *Server) handleUpdateBeatmap(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	result, err := s.updateUC.Execute(c.Request.Context(), usecase.UpdateBeatmapRequest{
		BeatmapID:  c.Param("beatmap_id"),
		Title:      req.Title,
		Artist:     req.Artist,
		Difficulty: req.Difficulty,
		SongMap:    req.SongMap,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	out := updateResponse{
		Beatmap:      buildBeatmapResponse(result.Beatmap),
		Regenerating: result.Regenerating,
		Warnings:     result.Warnings,
	}
	if result.Task != nil {
		out.TaskID = result.Task.ID
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleDeleteBeatmap(c *gin.Context) {
	if err := s.deleteUC.Execute(c.Request.Context(), c.Param("beatmap_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleRegenerate(c *gin.Context) {
	beatmapID := c.Param("beatmap_id")
	if _, err := s.catalog.GetByID(c.Request.Context(), beatmapID); err != nil {
		writeError(c, err)
		return
	}
	task, err := s.orchestrator.Enqueue(c.Request.Context(), usecase.GenerateRequest{
		BeatmapID:  beatmapID,
		Regenerate: true,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, createResponse{BeatmapID: beatmapID, TaskID: task.ID})
}

func (s *Server) handleListArtifacts(c *gin.Context) {
	set, err := s.artifacts.CurrentArtifacts(c.Param("beatmap_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"beatmap_id": set.BeatmapID,
		"files":      set.Files,
	})
}

func (s *Server) handleGetArtifact(c *gin.Context) {
	set, err := s.artifacts.CurrentArtifacts(c.Param("beatmap_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	name := c.Param("name")
	if !set.Has(name) {
		writeError(c, domain.ErrNotFound)
		return
	}
	c.File(filepath.Join(set.Dir, name))
}

func (s *Server) handleTaskProgress(c *gin.Context) {
	task, err := s.orchestrator.Progress(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskResponse{
		TaskID:    task.ID,
		BeatmapID: task.BeatmapID,
		Status:    string(task.Status),
		Progress:  task.Progress,
		Message:   task.Message,
	})
}

func buildBeatmapResponse(b domain.Beatmap) beatmapResponse {
	return beatmapResponse{
		ID:                 b.ID,
		Title:              b.Title,
		Artist:             b.Artist,
		Difficulty:         b.Mode.String(),
		ResolvedDifficulty: b.Resolved.String(),
		SongMap:            b.Map.String(),
		DurationSeconds:    b.DurationSeconds,
		ArtifactVersion:    b.ArtifactVersion,
		CreatedAt:          b.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          b.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidDifficulty):
		status, code = http.StatusBadRequest, "INVALID_DIFFICULTY"
	case errors.Is(err, domain.ErrInvalidSongMap):
		status, code = http.StatusBadRequest, "INVALID_SONG_MAP"
	case errors.Is(err, domain.ErrDecode):
		status, code = http.StatusBadRequest, "DECODE_FAILED"
	case errors.Is(err, domain.ErrEmptyAudio):
		status, code = http.StatusBadRequest, "EMPTY_AUDIO"
	case errors.Is(err, domain.ErrInsufficientOnsets):
		status, code = http.StatusUnprocessableEntity, "INSUFFICIENT_ONSETS"
	case errors.Is(err, domain.ErrTaskInProgress):
		status, code = http.StatusConflict, "TASK_IN_PROGRESS"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
