package artifacts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/amcgready/BeatMapper/internal/domain"
)

const stagingDirName = ".staging"

// Store owns the on-disk beatmap layout: one directory per beatmap id under
// the root, holding the committed artifact set. Writes go to a staging
// directory and are promoted with directory renames, so readers never see a
// partially written or mixed-version set. The two-rename swap that replaces
// an existing set is serialized against reads, so a poll during a
// regeneration never observes the set as missing.
type Store struct {
	root string
	mu   sync.RWMutex
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, stagingDirName), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
	}
	return &Store{root: root}, nil
}

// WriteHandle collects the artifacts for one generation in staging until
// Commit promotes them or Abort discards them.
type WriteHandle struct {
	store     *Store
	beatmapID string
	dir       string
	done      bool
}

func (s *Store) BeginWrite(beatmapID string) (domain.ArtifactWriteHandle, error) {
	if err := validateID(beatmapID); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.root, stagingDirName, beatmapID+"."+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
	}
	return &WriteHandle{store: s, beatmapID: beatmapID, dir: dir}, nil
}

// Create opens a new artifact file inside staging.
func (h *WriteHandle) Create(name string) (io.WriteCloser, error) {
	if h.done {
		return nil, fmt.Errorf("%w: write already finished", domain.ErrArtifactWrite)
	}
	if name != filepath.Base(name) || name == "" {
		return nil, fmt.Errorf("%w: bad artifact name %q", domain.ErrArtifactWrite, name)
	}
	f, err := os.Create(filepath.Join(h.dir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
	}
	return f, nil
}

// Path returns the staging path for name, for encoders that need to manage
// the file themselves.
func (h *WriteHandle) Path(name string) string {
	return filepath.Join(h.dir, name)
}

// Commit atomically replaces the visible artifact set with the staged one.
// A previously committed set is moved aside first and restored if the swap
// fails, so the visible directory is always a complete set.
func (h *WriteHandle) Commit() error {
	if h.done {
		return fmt.Errorf("%w: write already finished", domain.ErrArtifactWrite)
	}
	h.done = true
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	final := filepath.Join(h.store.root, h.beatmapID)

	_, statErr := os.Stat(final)
	if os.IsNotExist(statErr) {
		if err := os.Rename(h.dir, final); err != nil {
			_ = os.RemoveAll(h.dir)
			return fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
		}
		return nil
	}
	if statErr != nil {
		_ = os.RemoveAll(h.dir)
		return fmt.Errorf("%w: %v", domain.ErrArtifactWrite, statErr)
	}

	aside := filepath.Join(h.store.root, stagingDirName, h.beatmapID+".old."+uuid.NewString())
	if err := os.Rename(final, aside); err != nil {
		_ = os.RemoveAll(h.dir)
		return fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
	}
	if err := os.Rename(h.dir, final); err != nil {
		// Put the previous set back so readers keep a complete view.
		_ = os.Rename(aside, final)
		_ = os.RemoveAll(h.dir)
		return fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
	}
	_ = os.RemoveAll(aside)
	return nil
}

// Abort discards staging without touching the visible set.
func (h *WriteHandle) Abort() error {
	if h.done {
		return nil
	}
	h.done = true
	return os.RemoveAll(h.dir)
}

// CurrentArtifacts lists the committed set for a beatmap.
func (s *Store) CurrentArtifacts(beatmapID string) (domain.ArtifactSet, error) {
	if err := validateID(beatmapID); err != nil {
		return domain.ArtifactSet{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	dir := filepath.Join(s.root, beatmapID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ArtifactSet{}, domain.ErrNotFound
		}
		return domain.ArtifactSet{}, err
	}
	set := domain.ArtifactSet{BeatmapID: beatmapID, Dir: dir}
	for _, e := range entries {
		if !e.IsDir() {
			set.Files = append(set.Files, e.Name())
		}
	}
	sort.Strings(set.Files)
	return set, nil
}

// Remove deletes a beatmap's committed artifacts.
func (s *Store) Remove(beatmapID string) error {
	if err := validateID(beatmapID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.RemoveAll(filepath.Join(s.root, beatmapID))
}

func validateID(beatmapID string) error {
	if beatmapID == "" || strings.ContainsAny(beatmapID, `/\`) ||
		beatmapID != filepath.Base(beatmapID) || strings.HasPrefix(beatmapID, ".") {
		return fmt.Errorf("%w: bad beatmap id %q", domain.ErrArtifactWrite, beatmapID)
	}
	return nil
}
