package extract

import (
	"io"
	"strings"
)

// Candidate is a bounded span of raw instruction text the pre-filter
// judged worth handing to the grammar/CST parser, addressed by the
// section it came from and its line range within that section's text.
type Candidate struct {
	SectionPath string // e.g. "SEC. 3. CONFORMING AMENDMENTS"
	Kind        Kind
	Text        string
	StartLine   int // 0-based, relative to the section's own text, inclusive
	EndLine     int // 0-based, relative to the section's own text, exclusive
}

// Stream scans raw bill text into sections, splits each section's body
// into blank-line-delimited paragraphs, and returns one Candidate per
// paragraph the Recognizer classifies as amendatory. Paragraphs that
// don't match any anchor pattern are silently dropped; this is a
// pre-filter, not a completeness guarantee.
func Stream(r io.Reader) ([]Candidate, error) {
	sections, err := ScanSections(r)
	if err != nil {
		return nil, err
	}

	rec := NewRecognizer()
	var candidates []Candidate
	for _, sec := range sections {
		paragraphs := splitParagraphs(sec.Text)
		for _, p := range paragraphs {
			kind, ok := rec.Classify(p.text)
			if !ok {
				continue
			}
			candidates = append(candidates, Candidate{
				SectionPath: sectionLabel(sec),
				Kind:        kind,
				Text:        p.text,
				StartLine:   p.startLine,
				EndLine:     p.endLine,
			})
		}
	}
	return candidates, nil
}

func sectionLabel(sec Section) string {
	if sec.Title == "" {
		return "SEC. " + sec.Number
	}
	return "SEC. " + sec.Number + ". " + sec.Title
}

type paragraph struct {
	text      string
	startLine int
	endLine   int
}

// splitParagraphs breaks text into blank-line-delimited paragraphs,
// tracking each paragraph's line range for Candidate bounding.
func splitParagraphs(text string) []paragraph {
	lines := strings.Split(text, "\n")
	var out []paragraph
	var buf []string
	start := -1

	flush := func(end int) {
		if len(buf) == 0 {
			return
		}
		out = append(out, paragraph{
			text:      strings.TrimSpace(strings.Join(buf, "\n")),
			startLine: start,
			endLine:   end,
		})
		buf = nil
		start = -1
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
		buf = append(buf, line)
	}
	flush(len(lines))
	return out
}
