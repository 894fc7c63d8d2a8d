// Package document loads a personal notes document and extracts its most
// recent dated sections as markdown.
//
// Notes are organised as level-1 headings titled with a YYYYMMDD date,
// newest first, each followed by that day's paragraphs.
package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/personalweb03/services/internal/timecalc"
)

// Paragraph is one block of text. Level is 0 for body text and the heading
// level otherwise.
type Paragraph struct {
	Text  string
	Level int
}

var dateStampPattern = regexp.MustCompile(`^\d{8}$`)

// Date returns the calendar date of a dated heading: a level-1 heading whose
// trimmed text is a valid YYYYMMDD stamp.
func (p Paragraph) Date(loc *time.Location) (time.Time, bool) {
	if p.Level != 1 {
		return time.Time{}, false
	}
	text := strings.TrimSpace(p.Text)
	if !dateStampPattern.MatchString(text) {
		return time.Time{}, false
	}
	t, err := timecalc.ParseDateStamp(text, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Document is a loaded notes file with its paragraphs in source order.
type Document struct {
	Path       string
	Paragraphs []Paragraph
}

// ErrUnsupportedFormat is wrapped by LoadError for unknown extensions.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// LoadError reports a document that could not be opened or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load document %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads a .docx or .md notes file.
func Load(path string) (*Document, error) {
	var (
		paras []Paragraph
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		paras, err = loadDocx(path)
	case ".md", ".markdown":
		paras, err = loadMarkdown(path)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return &Document{Path: path, Paragraphs: paras}, nil
}
