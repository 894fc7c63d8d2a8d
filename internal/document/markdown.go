package document

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// loadMarkdown maps a markdown file onto the paragraph model: ATX and setext
// headings keep their level, every other top-level block contributes its
// source lines as body paragraphs.
func loadMarkdown(path string) ([]Paragraph, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading markdown: %w", err)
	}
	return parseMarkdown(src), nil
}

func parseMarkdown(src []byte) []Paragraph {
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	var paras []Paragraph
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch b := n.(type) {
		case *ast.Heading:
			paras = append(paras, Paragraph{Text: strings.TrimSpace(string(joinLines(b, src))), Level: b.Level})
		case *ast.ThematicBreak:
			paras = append(paras, Paragraph{Text: "---"})
		case *ast.FencedCodeBlock:
			fence := "```"
			if b.Info != nil {
				fence += string(b.Info.Segment.Value(src))
			}
			paras = append(paras, Paragraph{Text: fence})
			lines := b.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				paras = append(paras, Paragraph{Text: strings.TrimRight(string(seg.Value(src)), "\r\n")})
			}
			paras = append(paras, Paragraph{Text: "```"})
		default:
			start, stop, ok := blockRange(n)
			if !ok {
				continue
			}
			for _, line := range sourceLines(src, start, stop) {
				paras = append(paras, Paragraph{Text: line})
			}
		}
	}
	return paras
}

func joinLines(n ast.Node, src []byte) []byte {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		if i > 0 {
			buf.WriteByte(' ')
		}
		seg := lines.At(i)
		buf.Write(bytes.TrimRight(seg.Value(src), "\r\n"))
	}
	return buf.Bytes()
}

// blockRange returns the byte range covered by the line segments of n and
// its block descendants.
func blockRange(n ast.Node) (start, stop int, ok bool) {
	start = -1
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || c.Type() != ast.TypeBlock {
			return ast.WalkContinue, nil
		}
		lines := c.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			if start < 0 || seg.Start < start {
				start = seg.Start
			}
			if seg.Stop > stop {
				stop = seg.Stop
			}
		}
		if hb, isHTML := c.(*ast.HTMLBlock); isHTML && hb.HasClosure() && hb.ClosureLine.Stop > stop {
			stop = hb.ClosureLine.Stop
		}
		return ast.WalkContinue, nil
	})
	return start, stop, start >= 0
}

// sourceLines widens [start, stop) to whole lines and splits them.
func sourceLines(src []byte, start, stop int) []string {
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	for stop < len(src) && src[stop] != '\n' && (stop == 0 || src[stop-1] != '\n') {
		stop++
	}
	chunk := strings.TrimRight(string(src[start:stop]), "\r\n")
	lines := strings.Split(chunk, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}
