package notes

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// NoteStoreSource reads notes straight out of Apple Notes' private
// SQLite store. The database is always opened read-only; Notes itself
// remains the sole writer.
type NoteStoreSource struct {
	path string
}

// DefaultNoteStorePath returns the location Notes keeps its store at on
// macOS. Empty when the home directory cannot be resolved.
func DefaultNoteStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Library", "Group Containers",
		"group.com.apple.notes", "NoteStore.sqlite")
}

// NewNoteStoreSource creates a source for the store at path, or the
// default macOS location when path is empty.
func NewNoteStoreSource(path string) *NoteStoreSource {
	if path == "" {
		path = DefaultNoteStorePath()
	}
	return &NoteStoreSource{path: path}
}

func (s *NoteStoreSource) ReadFolder(ctx context.Context, folder string) ([]RawNote, error) {
	db, err := sql.Open("sqlite", "file:"+s.path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: opening note store: %v", ErrStoreUnavailable, err)
	}
	defer db.Close()

	// Opening is lazy; the ping surfaces missing-file and permission
	// errors (Full Disk Access not granted) before any query runs.
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	folderEnt, err := entityType(ctx, db, "ICFolder")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	noteEnt, err := entityType(ctx, db, "ICNote")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT o.Z_PK, o.ZTITLE1, o.ZMODIFICATIONDATE1, d.ZDATA
		FROM ZICCLOUDSYNCINGOBJECT o
		JOIN ZICNOTEDATA d ON d.Z_PK = o.ZNOTEDATA
		WHERE o.ZFOLDER = (
			SELECT Z_PK FROM ZICCLOUDSYNCINGOBJECT
			WHERE ZTITLE2 = ? AND Z_ENT = ?
		)
		AND o.Z_ENT = ?
		AND (o.ZMARKEDFORDELETION = 0 OR o.ZMARKEDFORDELETION IS NULL)`,
		folder, folderEnt, noteEnt)
	if err != nil {
		return nil, fmt.Errorf("%w: querying notes: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []RawNote
	for rows.Next() {
		var (
			pk       int64
			title    sql.NullString
			modified sql.NullFloat64
			zdata    []byte
		)
		if err := rows.Scan(&pk, &title, &modified, &zdata); err != nil {
			return nil, fmt.Errorf("%w: scanning note row: %v", ErrStoreUnavailable, err)
		}
		if len(zdata) == 0 {
			continue
		}

		body, err := renderNoteMarkdown(zdata)
		if err != nil {
			// One undecodable note must not take down the refresh.
			slog.Warn("skipping unparseable note", "title", title.String, "error", err)
			continue
		}

		out = append(out, RawNote{
			ID:         fmt.Sprintf("icnote-%d", pk),
			FolderName: folder,
			Title:      title.String,
			BodyMarkup: body,
			ModifiedAt: appleTime(modified),
		})
	}
	return out, rows.Err()
}

// entityType resolves a Core Data entity name to its Z_ENT discriminator.
func entityType(ctx context.Context, db *sql.DB, name string) (int64, error) {
	var ent int64
	err := db.QueryRowContext(ctx,
		"SELECT Z_ENT FROM Z_PRIMARYKEY WHERE Z_NAME = ?", name).Scan(&ent)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("entity %s not found in Z_PRIMARYKEY", name)
	}
	if err != nil {
		return 0, err
	}
	return ent, nil
}

// Core Data timestamps are seconds since 2001-01-01 UTC.
func appleTime(v sql.NullFloat64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	ref := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	return ref.Add(time.Duration(v.Float64 * float64(time.Second)))
}
