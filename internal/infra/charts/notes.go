package charts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/amcgready/BeatMapper/internal/domain"
)

// Writer serializes charts to their external CSV contracts.
type Writer struct{}

func NewWriter() Writer {
	return Writer{}
}

var notesHeader = []string{"timestampSeconds", "laneOrType"}

// WriteNotes serializes the chart as UTF-8 CSV: one header row, one row per
// note, timestamps strictly increasing. Consumers rely on the sort order.
func (Writer) WriteNotes(w io.Writer, notes []domain.NoteEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(notesHeader); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
	}
	prev := -1.0
	for _, n := range notes {
		if n.TimeSeconds <= prev {
			return fmt.Errorf("%w: timestamps not strictly increasing at %.3f", domain.ErrArtifactWrite, n.TimeSeconds)
		}
		prev = n.TimeSeconds
		row := []string{
			strconv.FormatFloat(n.TimeSeconds, 'f', 3, 64),
			strconv.Itoa(n.Lane),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrArtifactWrite, err)
	}
	return nil
}
