package parse

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/nudge-sh/nudge/internal/notes"
)

const (
	// MetaSection labels list items that are never eligible for
	// reminders. Compared case-insensitively.
	MetaSection = "meta"

	// DefaultSection labels items that appear before any header.
	DefaultSection = "general"

	// Text blocks at least this long are never section headers.
	maxHeaderLen = 50
)

var md = goldmark.New(goldmark.WithExtensions(extension.TaskList))

// Parse extracts the ordered task items from one note. It never fails:
// malformed or empty notes yield nil.
//
// Headings and short plain paragraphs become the current section header.
// List entries become candidate tasks; checked entries and entries under
// the meta section are discarded but still advance the sequence index, so
// identities of later items stay stable when earlier ones change.
func Parse(note notes.RawNote) []TaskItem {
	if strings.TrimSpace(note.BodyMarkup) == "" {
		return nil
	}
	source := []byte(note.BodyMarkup)
	doc := md.Parser().Parse(text.NewReader(source))

	var items []TaskItem
	section := DefaultSection
	seq := 0

	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			section = strings.ToLower(strings.TrimSpace(string(node.Text(source))))
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph:
			if node.Parent() == nil || node.Parent().Kind() != ast.KindDocument {
				return ast.WalkContinue, nil
			}
			t := strings.TrimSpace(string(node.Text(source)))
			if t != "" && len([]rune(t)) < maxHeaderLen && !startsWithBullet(t) {
				section = strings.ToLower(t)
			}
			return ast.WalkSkipChildren, nil

		case *ast.ListItem:
			itemText, checked := listItemContent(node, source)
			if itemText == "" {
				return ast.WalkContinue, nil
			}
			index := seq
			seq++
			if checked || strings.EqualFold(section, MetaSection) {
				return ast.WalkContinue, nil
			}
			items = append(items, TaskItem{
				ID:            TaskID(note.ID, index),
				NoteID:        note.ID,
				NoteTitle:     note.Title,
				SequenceIndex: index,
				Text:          itemText,
				SectionHeader: section,
			})
			// Continue so nested list entries are visited as
			// independent candidates.
			return ast.WalkContinue, nil
		}
		return ast.WalkContinue, nil
	})

	return items
}

// listItemContent returns the item's own text (nested lists excluded)
// and whether the item carries a checked task-list marker.
func listItemContent(item *ast.ListItem, source []byte) (string, bool) {
	var b strings.Builder
	checked := false

	for child := item.FirstChild(); child != nil; child = child.NextSibling() {
		if child.Kind() == ast.KindList {
			continue
		}
		for grand := child.FirstChild(); grand != nil; grand = grand.NextSibling() {
			if box, ok := grand.(*east.TaskCheckBox); ok {
				checked = box.IsChecked
				continue
			}
			b.Write(grand.Text(source))
		}
	}
	return strings.TrimSpace(b.String()), checked
}

func startsWithBullet(s string) bool {
	return strings.HasPrefix(s, "-") || strings.HasPrefix(s, "*") || strings.HasPrefix(s, "•")
}
