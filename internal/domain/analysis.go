package domain

// PCM is decoded audio normalized to mono float64 samples in [-1, 1].
type PCM struct {
	Samples    []float64
	SampleRate int
}

func (p PCM) DurationSeconds() float64 {
	if p.SampleRate <= 0 {
		return 0
	}
	return float64(len(p.Samples)) / float64(p.SampleRate)
}

// AudioAnalysis is the analyzer output the rest of the pipeline consumes.
// Onsets and Beats are ordered ascending, in seconds. The struct is
// persisted alongside the artifacts so a regeneration can skip decoding.
type AudioAnalysis struct {
	Tempo           float64   `json:"tempo"`
	Onsets          []float64 `json:"onsets"`
	Beats           []float64 `json:"beats"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// ResolvedDifficulty is the classifier output: the effective tier plus how
// it was arrived at. Warning is non-empty when an out-of-range override was
// clamped.
type ResolvedDifficulty struct {
	Tier          Difficulty
	WasOverridden bool
	Warning       string
}

// NoteEvent is one chart entry. Lane identifies the drum lane / enemy type
// the note spawns in; events in a chart are strictly increasing in time.
type NoteEvent struct {
	TimeSeconds float64
	Lane        int
}

// InfoRecord is the descriptive metadata persisted next to the chart.
// Difficulty and song map serialize as their numeric codes.
type InfoRecord struct {
	Title           string
	Artist          string
	Difficulty      Difficulty
	DurationSeconds float64
	Map             SongMap
}
