package domain

import "io"

// ArtifactWriteHandle stages the artifacts of one generation. Nothing is
// visible to readers until Commit; Abort discards the staging area.
type ArtifactWriteHandle interface {
	Create(name string) (io.WriteCloser, error)
	// Path exposes the staging location of name for writers that need to
	// own the file (seekable encoders).
	Path(name string) string
	Commit() error
	Abort() error
}

// ArtifactStore owns the per-beatmap artifact directories and their
// all-or-nothing replacement.
type ArtifactStore interface {
	BeginWrite(beatmapID string) (ArtifactWriteHandle, error)
	CurrentArtifacts(beatmapID string) (ArtifactSet, error)
	Remove(beatmapID string) error
}
