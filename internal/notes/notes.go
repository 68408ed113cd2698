package notes

import (
	"context"
	"errors"
	"time"
)

// RawNote is one note as read from the underlying store. A note is
// immutable once read; each refresh supersedes the previous set wholesale,
// there is no incremental diffing.
type RawNote struct {
	ID         string
	FolderName string
	Title      string
	BodyMarkup string // markdown
	ModifiedAt time.Time
}

// ErrStoreUnavailable indicates the note store could not be read at all,
// typically a missing database or denied permissions. Callers keep the
// previous task set and surface a degraded status instead of aborting.
var ErrStoreUnavailable = errors.New("note store unavailable")

// Source reads the current set of notes inside a designated folder.
// Implementations may be slow; they are the single potentially blocking
// operation in the refresh path.
type Source interface {
	ReadFolder(ctx context.Context, folder string) ([]RawNote, error)
}
