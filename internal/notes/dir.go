package notes

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DirSource reads notes from a directory of markdown files. Each *.md
// file inside <root>/<folder> is one note; the file name (without the
// extension) is the note title.
type DirSource struct {
	root string
}

// NewDirSource creates a DirSource rooted at root.
func NewDirSource(root string) *DirSource {
	return &DirSource{root: root}
}

func (s *DirSource) ReadFolder(ctx context.Context, folder string) ([]RawNote, error) {
	dir := filepath.Join(s.root, folder)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrStoreUnavailable, dir, err)
	}

	var out []RawNote
	for _, e := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}

		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			// A single unreadable note is skipped; the rest of the
			// folder is still processed.
			slog.Warn("skipping unreadable note", "path", path, "error", err)
			continue
		}

		var modified time.Time
		if info, err := e.Info(); err == nil {
			modified = info.ModTime()
		}

		out = append(out, RawNote{
			ID:         folder + "/" + e.Name(),
			FolderName: folder,
			Title:      strings.TrimSuffix(e.Name(), ".md"),
			BodyMarkup: string(data),
			ModifiedAt: modified,
		})
	}
	return out, nil
}
