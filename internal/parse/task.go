package parse

import (
	"fmt"

	"github.com/google/uuid"
)

// taskNamespace seeds deterministic task IDs. Never change it: state
// continuity across refreshes depends on stable IDs.
var taskNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// TaskItem is one actionable entry extracted from a note's list content.
// It never represents a checked entry and never originates from the meta
// section.
type TaskItem struct {
	ID            string `json:"id"`
	NoteID        string `json:"note_id"`
	NoteTitle     string `json:"note_title"`
	SequenceIndex int    `json:"sequence_index"`
	Text          string `json:"text"`
	SectionHeader string `json:"section_header"`
	Category      string `json:"category"`
}

// TaskID derives a stable identifier from the note and the item's
// position within it, so the same logical item keeps its identity across
// refreshes.
func TaskID(noteID string, sequenceIndex int) string {
	name := fmt.Sprintf("%s#%d", noteID, sequenceIndex)
	return uuid.NewSHA1(taskNamespace, []byte(name)).String()
}
