package artifacts

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/amcgready/BeatMapper/internal/domain"
)

func writeArtifact(t *testing.T, h domain.ArtifactWriteHandle, name, content string) {
	t.Helper()
	f, err := h.Create(name)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	if _, err := io.WriteString(f, content); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close %s: %v", name, err)
	}
}

func TestCommitPublishesCompleteSet(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	h, err := store.BeginWrite("bm-1")
	if err != nil {
		t.Fatalf("begin write: %v", err)
	}
	writeArtifact(t, h, domain.ArtifactNotes, "timestampSeconds,laneOrType\n")
	writeArtifact(t, h, domain.ArtifactInfo, "Song Name,Author Name,Difficulty,Song Duration,Song Map\n")

	// Nothing visible until commit.
	if _, err := store.CurrentArtifacts("bm-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before commit, got %v", err)
	}

	if err := h.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	set, err := store.CurrentArtifacts("bm-1")
	if err != nil {
		t.Fatalf("current artifacts: %v", err)
	}
	if len(set.Files) != 2 || set.Files[0] != domain.ArtifactInfo || set.Files[1] != domain.ArtifactNotes {
		t.Fatalf("unexpected file list: %v", set.Files)
	}
}

func TestAbortDiscardsStaging(t *testing.T) {
	root := t.TempDir()
	store, err := NewStore(root)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	h, err := store.BeginWrite("bm-1")
	if err != nil {
		t.Fatalf("begin write: %v", err)
	}
	writeArtifact(t, h, domain.ArtifactNotes, "partial")
	if err := h.Abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if _, err := store.CurrentArtifacts("bm-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("aborted write became visible: %v", err)
	}
	assertStagingEmpty(t, root)
}

func TestRecommitReplacesPreviousSet(t *testing.T) {
	root := t.TempDir()
	store, err := NewStore(root)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	h, _ := store.BeginWrite("bm-1")
	writeArtifact(t, h, domain.ArtifactNotes, "v1")
	writeArtifact(t, h, "song.wav", "audio")
	if err := h.Commit(); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	h, _ = store.BeginWrite("bm-1")
	writeArtifact(t, h, domain.ArtifactNotes, "v2")
	if err := h.Commit(); err != nil {
		t.Fatalf("second commit: %v", err)
	}

	set, err := store.CurrentArtifacts("bm-1")
	if err != nil {
		t.Fatalf("current artifacts: %v", err)
	}
	if len(set.Files) != 1 || set.Files[0] != domain.ArtifactNotes {
		t.Fatalf("old files leaked into new set: %v", set.Files)
	}
	content, err := os.ReadFile(filepath.Join(set.Dir, domain.ArtifactNotes))
	if err != nil {
		t.Fatalf("read notes: %v", err)
	}
	if string(content) != "v2" {
		t.Fatalf("stale content %q", content)
	}
	assertStagingEmpty(t, root)
}

func TestReadsDuringRecommitNeverMissTheSet(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	h, _ := store.BeginWrite("bm-1")
	writeArtifact(t, h, domain.ArtifactNotes, "v0")
	if err := h.Commit(); err != nil {
		t.Fatalf("initial commit: %v", err)
	}

	// Replace the set repeatedly while polling it; the swap must never
	// surface a not-found to a concurrent reader.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			h, err := store.BeginWrite("bm-1")
			if err != nil {
				t.Errorf("begin write %d: %v", i, err)
				return
			}
			f, err := h.Create(domain.ArtifactNotes)
			if err != nil {
				t.Errorf("create %d: %v", i, err)
				return
			}
			io.WriteString(f, "vN")
			f.Close()
			if err := h.Commit(); err != nil {
				t.Errorf("commit %d: %v", i, err)
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		set, err := store.CurrentArtifacts("bm-1")
		if err != nil {
			t.Fatalf("committed set vanished mid-swap: %v", err)
		}
		if !set.Has(domain.ArtifactNotes) {
			t.Fatalf("incomplete set observed: %v", set.Files)
		}
	}
}

func TestRemoveDeletesCommittedSet(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	h, _ := store.BeginWrite("bm-1")
	writeArtifact(t, h, domain.ArtifactNotes, "x")
	if err := h.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := store.Remove("bm-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.CurrentArtifacts("bm-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
}

func TestRejectsUnsafeIDs(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	for _, id := range []string{"", "../evil", "a/b", `a\b`, ".hidden"} {
		if _, err := store.BeginWrite(id); err == nil {
			t.Fatalf("begin write accepted id %q", id)
		}
		if _, err := store.CurrentArtifacts(id); err == nil {
			t.Fatalf("current artifacts accepted id %q", id)
		}
	}
}

func assertStagingEmpty(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(root, stagingDirName))
	if err != nil {
		t.Fatalf("read staging: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("staging not cleaned up: %d entries", len(entries))
	}
}
