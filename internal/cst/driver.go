package cst

import (
	"strings"

	"github.com/coolbeans/amendlex/internal/grammar"
)

// anchorMarkers are the markers the driver scans the first line for,
// each occurrence also tried as an anchored parse start, so an
// instruction embedded after leading prose ("Effective on enactment,
// Section 5 ... is amended") still parses.
var anchorMarkers = []string{
	"Section ", "Subsection ", "Paragraph ", "Subparagraph ",
	"Clause ", "Subclause ", "Item ", "Subitem ",
}

// ParsedInstruction is the driver's result: the matched range within
// the joined line buffer plus the reconstructed tree.
type ParsedInstruction struct {
	StartLineIndex int
	EndLineIndex   int
	EndColumn      int
	MatchedText    string
	ParseOffset    int
	AST            *Node
}

// RangeResolver translates a matched byte range in the joined line
// buffer back into paragraph-level provenance. The identity function is
// used when the caller supplies none.
type RangeResolver func(start, end int) (start2, end2 int)

type candidate struct {
	parseOffset int
	end         int // absolute end within the joined buffer
}

// ParseInstructionFromLines joins lines[startLineIndex:] with "\n",
// collects every candidate parse of the "instruction" rule (from offset
// 0 and from every anchor marker occurrence in the first line), picks
// the longest (ties broken by smallest parseOffset), and reconstructs
// its tree.
func ParseInstructionFromLines(table *grammar.RuleTable, lines []string, startLineIndex int, resolveRange RangeResolver) *ParsedInstruction {
	if startLineIndex < 0 || startLineIndex >= len(lines) {
		return nil
	}
	source := strings.Join(lines[startLineIndex:], "\n")

	var candidates []candidate
	matchers := make(map[int]*Matcher) // parseOffset -> matcher bound to source[offset:]

	tryOffset := func(offset int) {
		if offset < 0 || offset > len(source) {
			return
		}
		if _, ok := matchers[offset]; ok {
			return
		}
		m := NewMatcher(table, source[offset:])
		matchers[offset] = m
		for _, localEnd := range m.ParsePrefix("instruction") {
			candidates = append(candidates, candidate{parseOffset: offset, end: offset + localEnd})
		}
	}

	tryOffset(0)
	if len(lines) > startLineIndex {
		firstLine := lines[startLineIndex]
		for _, marker := range anchorMarkers {
			searchFrom := 0
			for {
				idx := strings.Index(firstLine[searchFrom:], marker)
				if idx < 0 {
					break
				}
				anchor := searchFrom + idx
				tryOffset(anchor)
				searchFrom = anchor + 1
				if searchFrom >= len(firstLine) {
					break
				}
			}
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.end > best.end || (c.end == best.end && c.parseOffset < best.parseOffset) {
			best = c
		}
	}

	m := matchers[best.parseOffset]
	localTarget := best.end - best.parseOffset
	tree, ok := Reconstruct(m, "instruction", localTarget)
	if !ok {
		return nil
	}

	matchedText := source[best.parseOffset:best.end]
	endLineIndex, endColumn := countLinesAndColumn(startLineIndex, matchedText)

	if resolveRange != nil {
		resolveRange(best.parseOffset, best.end)
	}

	return &ParsedInstruction{
		StartLineIndex: startLineIndex,
		EndLineIndex:   endLineIndex,
		EndColumn:      endColumn,
		MatchedText:    matchedText,
		ParseOffset:    best.parseOffset,
		AST:            tree,
	}
}

// countLinesAndColumn returns the inclusive end line index and column of
// matchedText, starting from startLineIndex.
func countLinesAndColumn(startLineIndex int, matchedText string) (endLineIndex, endColumn int) {
	endLineIndex = startLineIndex
	lastNewline := -1
	for i, r := range matchedText {
		if r == '\n' {
			endLineIndex++
			lastNewline = i
		}
	}
	endColumn = len(matchedText) - (lastNewline + 1)
	return endLineIndex, endColumn
}
