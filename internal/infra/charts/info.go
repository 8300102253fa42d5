package charts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/amcgready/BeatMapper/internal/domain"
)

var infoHeader = []string{"Song Name", "Author Name", "Difficulty", "Song Duration", "Song Map"}

// WriteInfo emits the single-record info file. Out-of-range difficulty or
// song map values are corrected rather than propagated; the returned
// warnings describe any correction. Re-invoking with the same inputs yields
// byte-identical output.
func (Writer) WriteInfo(w io.Writer, rec domain.InfoRecord) ([]string, error) {
	var warnings []string
	tier, clamped := domain.ClampDifficulty(int(rec.Difficulty))
	if clamped {
		warnings = append(warnings, fmt.Sprintf("difficulty %d out of range, corrected to %d", int(rec.Difficulty), int(tier)))
	}
	songMap, corrected := domain.ClampSongMap(int(rec.Map))
	if corrected {
		warnings = append(warnings, fmt.Sprintf("song map %d out of range, corrected to %d", int(rec.Map), int(songMap)))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(infoHeader); err != nil {
		return warnings, fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
	}
	row := []string{
		rec.Title,
		rec.Artist,
		strconv.Itoa(int(tier)),
		strconv.FormatFloat(rec.DurationSeconds, 'f', -1, 64),
		strconv.Itoa(int(songMap)),
	}
	if err := cw.Write(row); err != nil {
		return warnings, fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return warnings, fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
	}
	return warnings, nil
}
