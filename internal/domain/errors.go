package domain

import "errors"

var (
	// Fatal for the task; no artifacts change.
	ErrDecode             = errors.New("audio decode failed")
	ErrEmptyAudio         = errors.New("audio has zero duration")
	ErrInsufficientOnsets = errors.New("not enough onsets for a playable chart")
	ErrArtifactWrite      = errors.New("artifact write failed")

	// Recoverable: corrected in place, surfaced as a warning.
	ErrInvalidDifficulty = errors.New("invalid difficulty value")
	ErrInvalidSongMap    = errors.New("invalid song map value")

	// Request-level.
	ErrTaskInProgress = errors.New("a task is already active for this beatmap")
	ErrNotFound       = errors.New("not found")
)
