package watch

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/amcgready/BeatMapper/internal/domain"
	"github.com/amcgready/BeatMapper/internal/usecase"
)

// settleDelay is how long a file must stay quiet before it is treated as
// fully written. Copies into the inbox arrive as a burst of write events.
const settleDelay = 2 * time.Second

type Enqueuer interface {
	Enqueue(ctx context.Context, req usecase.GenerateRequest) (domain.GenerationTask, error)
}

// Watcher turns audio files dropped into an inbox directory into
// generation tasks. File names of the form "Artist - Title.ext" seed the
// catalog metadata; anything else becomes the title verbatim.
type Watcher struct {
	dir string
	enq Enqueuer
	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func New(dir string, enq Enqueuer) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{
		dir:     dir,
		enq:     enq,
		fsw:     fsw,
		pending: make(map[string]*time.Timer),
	}, nil
}

func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			w.drainPending()
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isAudioFile(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("inbox watcher error: %v", err)
		}
	}
}

// schedule (re)arms the settle timer for a path. Every new write event
// pushes the enqueue further out until the file goes quiet.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Reset(settleDelay)
		return
	}
	w.pending[path] = time.AfterFunc(settleDelay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.ingest(ctx, path)
	})
}

func (w *Watcher) drainPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	artist, title := parseInboxName(filepath.Base(path))
	task, err := w.enq.Enqueue(ctx, usecase.GenerateRequest{
		BeatmapID:  uuid.NewString(),
		SourcePath: path,
		Title:      title,
		Artist:     artist,
		Mode:       domain.AutoDifficulty(),
		Map:        domain.DefaultSongMap,
	})
	if err != nil {
		log.Printf("inbox ingest of %s failed: %v", path, err)
		return
	}
	log.Printf("inbox ingest of %s started task %s", path, task.ID)
}

func isAudioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".mp3":
		return true
	}
	return false
}

// parseInboxName splits "Artist - Title.ext" into its parts. Without the
// separator the whole stem becomes the title.
func parseInboxName(base string) (artist, title string) {
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if idx := strings.Index(stem, " - "); idx > 0 {
		return strings.TrimSpace(stem[:idx]), strings.TrimSpace(stem[idx+3:])
	}
	return "Unknown Artist", strings.TrimSpace(stem)
}
