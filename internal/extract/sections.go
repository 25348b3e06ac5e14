package extract

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Section is one "SECTION N." / "SEC. N." block of a scanned bill, with
// its line range in the source file. Candidate line ranges are relative
// to the section's Text, not to the source file.
type Section struct {
	Number    string
	Title     string
	Text      string
	StartLine int // 0-based, inclusive
	EndLine   int // 0-based, exclusive
}

var (
	sectionFullPattern = regexp.MustCompile(`^SECTION\s+(\d+)\.\s+(.+)$`)
	sectionAbbrPattern = regexp.MustCompile(`^SEC\.\s+(\d+)\.\s+(.+)$`)
)

// ScanSections splits raw bill text into its top-level sections, one per
// "SECTION N." or "SEC. N." marker line. Text before the first marker
// (header, enacting clause) is discarded.
func ScanSections(r io.Reader) ([]Section, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading bill text: %w", err)
	}

	var sections []Section
	var current *Section
	var body []string

	flush := func(endLine int) {
		if current == nil {
			return
		}
		current.Text = strings.TrimSpace(strings.Join(body, "\n"))
		current.EndLine = endLine
		sections = append(sections, *current)
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if number, title, ok := matchSectionHeader(trimmed); ok {
			flush(i)
			current = &Section{Number: number, Title: title, StartLine: i}
			body = nil
			continue
		}
		if current != nil {
			body = append(body, line)
		}
	}
	flush(len(lines))

	return sections, nil
}

func matchSectionHeader(line string) (number, title string, ok bool) {
	if m := sectionFullPattern.FindStringSubmatch(line); m != nil {
		return m[1], strings.TrimRight(m[2], "."), true
	}
	if m := sectionAbbrPattern.FindStringSubmatch(line); m != nil {
		return m[1], strings.TrimRight(m[2], "."), true
	}
	return "", "", false
}
