package document

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/personalweb03/services/internal/storage"
	"github.com/personalweb03/services/internal/timecalc"
)

// DefaultWindowDays is the number of days of notes extracted.
const DefaultWindowDays = 7

// ErrNotLoaded is wrapped by ExtractError when no document was given.
var ErrNotLoaded = errors.New("document not loaded")

// ExtractError reports a failed extraction.
type ExtractError struct {
	Path string
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("failed to extract recent notes to %s: %v", e.Path, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// Extraction is the result of ExtractRecent.
type Extraction struct {
	// Cutoff is the newest date that falls outside the window.
	Cutoff time.Time
	// CutoffIndex is the index of the first dated heading on or before
	// Cutoff, or len(doc.Paragraphs) when there is none.
	CutoffIndex int
	// Found reports whether a cutoff heading was found.
	Found      bool
	Paragraphs []Paragraph
	Content    string
}

// FindCutoff scans paragraphs in order and returns the index of the first
// dated heading whose date is on or before cutoff.
func FindCutoff(paras []Paragraph, cutoff time.Time) (int, bool) {
	for i, p := range paras {
		if d, ok := p.Date(cutoff.Location()); ok && !d.After(cutoff) {
			return i, true
		}
	}
	return len(paras), false
}

// ExtractRecent keeps everything above the first dated heading that is older
// than windowDays days, renders it as markdown and writes it to dest. When no
// such heading exists the whole document is kept.
func ExtractRecent(doc *Document, dest string, windowDays int, now time.Time) (*Extraction, error) {
	if doc == nil {
		return nil, &ExtractError{Path: dest, Err: ErrNotLoaded}
	}

	cutoff := timecalc.DaysAgo(now, windowDays+1)
	idx, found := FindCutoff(doc.Paragraphs, cutoff)
	kept := doc.Paragraphs[:idx]
	content := Render(kept)

	if err := storage.WriteFile(dest, []byte(content)); err != nil {
		return nil, &ExtractError{Path: dest, Err: err}
	}
	return &Extraction{
		Cutoff:      cutoff,
		CutoffIndex: idx,
		Found:       found,
		Paragraphs:  kept,
		Content:     content,
	}, nil
}

// Render formats paragraphs as markdown lines joined by newlines, with no
// trailing newline. Levels 1 to 3 get heading prefixes; deeper headings and
// body text are emitted verbatim.
func Render(paras []Paragraph) string {
	lines := make([]string, len(paras))
	for i, p := range paras {
		switch p.Level {
		case 1, 2, 3:
			lines[i] = strings.Repeat("#", p.Level) + " " + p.Text
		default:
			lines[i] = p.Text
		}
	}
	return strings.Join(lines, "\n")
}
