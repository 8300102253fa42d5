package domain

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty is the ordinal tier a chart is generated for. The numeric
// values are part of the persisted info.csv contract and must not change.
type Difficulty int

const (
	DifficultyEasy Difficulty = iota
	DifficultyMedium
	DifficultyHard
	DifficultyExtreme
)

func (d Difficulty) String() string {
	switch d {
	case DifficultyEasy:
		return "EASY"
	case DifficultyMedium:
		return "MEDIUM"
	case DifficultyHard:
		return "HARD"
	case DifficultyExtreme:
		return "EXTREME"
	default:
		return fmt.Sprintf("DIFFICULTY(%d)", int(d))
	}
}

// ClampDifficulty forces v into the valid tier range. The second return
// reports whether clamping was needed.
func ClampDifficulty(v int) (Difficulty, bool) {
	if v < int(DifficultyEasy) {
		return DifficultyEasy, true
	}
	if v > int(DifficultyExtreme) {
		return DifficultyExtreme, true
	}
	return Difficulty(v), false
}

// ParseDifficulty accepts the tier names used by the editing UI.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EASY":
		return DifficultyEasy, nil
	case "MEDIUM":
		return DifficultyMedium, nil
	case "HARD":
		return DifficultyHard, nil
	case "EXTREME":
		return DifficultyExtreme, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
}

// SongMap is the selectable stage, serialized as 0..2 in info.csv.
type SongMap int

const (
	MapVulcan SongMap = iota
	MapDesert
	MapStorm
)

// DefaultSongMap is substituted for out-of-range stage values.
const DefaultSongMap = MapVulcan

func (m SongMap) String() string {
	switch m {
	case MapVulcan:
		return "VULCAN"
	case MapDesert:
		return "DESERT"
	case MapStorm:
		return "STORM"
	default:
		return fmt.Sprintf("MAP(%d)", int(m))
	}
}

// ClampSongMap corrects an out-of-range stage to the default. The second
// return reports whether a correction happened.
func ClampSongMap(v int) (SongMap, bool) {
	if v < int(MapVulcan) || v > int(MapStorm) {
		return DefaultSongMap, true
	}
	return SongMap(v), false
}

func ParseSongMap(s string) (SongMap, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "VULCAN":
		return MapVulcan, nil
	case "DESERT":
		return MapDesert, nil
	case "STORM":
		return MapStorm, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSongMap, s)
}

// DifficultyMode is the tagged Auto/Override variant. The zero value is
// Auto, which classifies from the audio.
type DifficultyMode struct {
	Auto     bool
	Override Difficulty
}

func AutoDifficulty() DifficultyMode {
	return DifficultyMode{Auto: true}
}

func OverrideDifficulty(d Difficulty) DifficultyMode {
	return DifficultyMode{Override: d}
}

func (m DifficultyMode) String() string {
	if m.Auto {
		return "AUTO"
	}
	return m.Override.String()
}

// ParseDifficultyMode accepts "AUTO" or a tier name.
func ParseDifficultyMode(s string) (DifficultyMode, error) {
	if strings.ToUpper(strings.TrimSpace(s)) == "AUTO" {
		return AutoDifficulty(), nil
	}
	d, err := ParseDifficulty(s)
	if err != nil {
		return DifficultyMode{}, err
	}
	return OverrideDifficulty(d), nil
}

// Beatmap is one chart project: the catalog fields the generation pipeline
// reads and writes. ArtifactVersion increments on every committed
// (re)generation and lets readers detect stale artifact sets.
type Beatmap struct {
	ID              string
	Title           string
	Artist          string
	Mode            DifficultyMode
	Resolved        Difficulty
	Map             SongMap
	DurationSeconds float64
	ArtifactVersion int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Canonical artifact file names inside a beatmap directory.
const (
	ArtifactNotes    = "notes.csv"
	ArtifactInfo     = "info.csv"
	ArtifactPreview  = "preview.wav"
	ArtifactArtwork  = "artwork.jpg"
	ArtifactAnalysis = "analysis.json"
)

// SongArtifactName keeps the committed full audio in its source container.
func SongArtifactName(sourceExt string) string {
	ext := strings.ToLower(strings.TrimPrefix(sourceExt, "."))
	if ext == "" {
		ext = "wav"
	}
	return "song." + ext
}

// ArtifactSet is the committed output of one generation for one beatmap.
// Readers never observe files from two different versions (the store
// promotes whole directories atomically).
type ArtifactSet struct {
	BeatmapID string
	Dir       string
	Files     []string
}

func (s ArtifactSet) Has(name string) bool {
	for _, f := range s.Files {
		if f == name {
			return true
		}
	}
	return false
}
