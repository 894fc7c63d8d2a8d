package document

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	docxBody   = "word/document.xml"
	docxStyles = "word/styles.xml"
)

// loadDocx returns the body-level paragraphs of a Word document. Paragraphs
// inside tables, text boxes and content controls are not part of the body
// sequence and are skipped.
func loadDocx(path string) ([]Paragraph, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening docx: %w", err)
	}
	defer zr.Close()

	var body, styles *zip.File
	for _, f := range zr.File {
		switch f.Name {
		case docxBody:
			body = f
		case docxStyles:
			styles = f
		}
	}
	if body == nil {
		return nil, errors.New("docx has no " + docxBody)
	}

	names := map[string]string{}
	if styles != nil {
		if names, err = readStyleNames(styles); err != nil {
			return nil, err
		}
	}

	rc, err := body.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", docxBody, err)
	}
	defer rc.Close()
	return parseBody(rc, names)
}

// readStyleNames maps style IDs to their display names.
func readStyleNames(f *zip.File) (map[string]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", docxStyles, err)
	}
	defer rc.Close()

	var doc struct {
		Styles []struct {
			ID   string `xml:"styleId,attr"`
			Name struct {
				Val string `xml:"val,attr"`
			} `xml:"name"`
		} `xml:"style"`
	}
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", docxStyles, err)
	}
	names := make(map[string]string, len(doc.Styles))
	for _, s := range doc.Styles {
		names[s.ID] = s.Name.Val
	}
	return names, nil
}

// headingLevel returns N for the "heading N" style (any case), falling back
// to the built-in "HeadingN" style ID when the name is unknown.
func headingLevel(styleID string, names map[string]string) int {
	name := strings.ToLower(names[styleID])
	if name == "" {
		name = strings.ToLower(styleID)
	}
	rest, ok := strings.CutPrefix(name, "heading")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// parseBody streams document.xml, collecting the text of every paragraph
// that is a direct child of w:body.
func parseBody(r io.Reader, styleNames map[string]string) ([]Paragraph, error) {
	dec := xml.NewDecoder(r)

	var (
		paras  []Paragraph
		stack  []string
		pDepth = -1 // stack index of the open body paragraph
		text   strings.Builder
		style  string
		inText bool
	)

	parent := func(n int) string {
		if i := len(stack) - n; i >= 0 {
			return stack[i]
		}
		return ""
	}
	// inRun reports whether the current element is a run of the open
	// paragraph, either directly or through a hyperlink.
	inRun := func() bool {
		if pDepth < 0 || parent(1) != "r" {
			return false
		}
		top := len(stack) - 1
		return top == pDepth+1 || (top == pDepth+2 && parent(2) == "hyperlink")
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", docxBody, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch name := t.Name.Local; {
			case name == "p" && parent(1) == "body":
				pDepth = len(stack)
				text.Reset()
				style = ""
			case name == "pStyle" && pDepth >= 0 && len(stack) == pDepth+2 && parent(1) == "pPr":
				style = attr(t, "val")
			case inRun():
				switch name {
				case "t":
					inText = true
				case "tab":
					text.WriteByte('\t')
				case "br", "cr":
					text.WriteByte('\n')
				case "noBreakHyphen":
					text.WriteByte('-')
				}
			}
			stack = append(stack, t.Name.Local)

		case xml.EndElement:
			stack = stack[:len(stack)-1]
			switch {
			case t.Name.Local == "t":
				inText = false
			case len(stack) == pDepth:
				paras = append(paras, Paragraph{Text: text.String(), Level: headingLevel(style, styleNames)})
				pDepth = -1
			}

		case xml.CharData:
			if inText {
				text.Write(t)
			}
		}
	}
	return paras, nil
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
