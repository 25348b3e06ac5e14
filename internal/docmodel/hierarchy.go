package docmodel

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/coolbeans/amendlex/internal/types"
)

// markerRe matches one leading "(label)" token. label is alphanumeric,
// matching the same label alphabet instruction.bnf's "label" rule uses.
var markerRe = regexp.MustCompile(`^\(([A-Za-z0-9]+)\)`)

// detectMarkers peels one or more leading "(label)" tokens off a block's
// text and returns them in outer-to-inner order, plus the byte offset
// (within text) where the block's non-marker content begins.
func detectMarkers(text string) ([]string, int) {
	var labels []string
	pos := 0
	for {
		rest := strings.TrimPrefix(text[pos:], " ")
		skipped := len(text[pos:]) - len(rest)
		m := markerRe.FindStringSubmatch(rest)
		if m == nil {
			break
		}
		pos += skipped + len(m[0])
		labels = append(labels, m[1])
	}
	return labels, pos
}

// classifyMarker ranks a single marker label. indent is the block's
// blockquote nesting depth (the count of ">" quote chars preceding the
// marker), which is how section Markdown signals hierarchy: an
// all-digit label is a paragraph; a lowercase roman numeral at indent
// >= 2 is a clause and an uppercase one at indent >= 4 a subclause; a
// single letter distinguishes subsection (lowercase) from subparagraph
// (uppercase); anything else falls through to item.
func classifyMarker(label string, indent int) types.ScopeKind {
	switch {
	case isAllDigits(label):
		return types.ScopeParagraph
	case isRomanNumeral(label) && label == strings.ToLower(label) && indent >= 2:
		return types.ScopeClause
	case isRomanNumeral(label) && label == strings.ToUpper(label) && indent >= 4:
		return types.ScopeSubclause
	case len(label) == 1 && label == strings.ToLower(label):
		return types.ScopeSubsection
	case len(label) == 1 && label == strings.ToUpper(label):
		return types.ScopeSubparagraph
	default:
		return types.ScopeItem
	}
}

// buildHierarchy walks the document's paragraph-level blocks in order
// and pushes/pops a stack of open StructuralNodes on each marker it
// finds, the same way a nested outline is read top to bottom: a marker
// ranked no shallower than the stack's current top closes ancestors
// until it finds (or becomes) a proper child.
func buildHierarchy(plainText string, blockSpans []Span) ([]string, map[string]*StructuralNode) {
	nodesByID := make(map[string]*StructuralNode)
	var rootIDs []string
	var stack []*StructuralNode
	idCounts := make(map[string]int)

	closeTo := func(rank types.ScopeKind, at int) {
		for len(stack) > 0 && stack[len(stack)-1].Kind >= rank {
			stack[len(stack)-1].End = at
			stack = stack[:len(stack)-1]
		}
	}

	for _, span := range blockSpans {
		blockText := plainText[span.Start:span.End]
		labels, _ := detectMarkers(blockText)
		if len(labels) == 0 {
			continue
		}
		for i, label := range labels {
			rank := classifyMarker(label, span.Depth)
			if i > 0 && len(stack) > 0 && rank <= stack[len(stack)-1].Kind {
				// A later token in the same block's own marker chain
				// ranked no deeper than the one just pushed: the
				// chain is written together and must still deepen,
				// e.g. "(a)(a)" is subsection (a) paragraph (a), not
				// two subsections.
				rank = stack[len(stack)-1].Kind + 1
				if rank > types.ScopeSubitem {
					rank = types.ScopeSubitem
				}
			}
			// Pop every open node ranked the same as or shallower than
			// this one -- a fresh block-initial marker (i == 0) can
			// only nest under something strictly shallower, which is
			// how two subsections' same-numbered paragraphs end up as
			// siblings instead of one nesting inside the other.
			closeTo(rank, span.Start)

			var parentPath types.Path
			var parent *StructuralNode
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
				parentPath = parent.Path
			}
			path := append(append(types.Path{}, parentPath...), types.PathSegment{Kind: rank, Label: label})

			id := nodeID(path)
			idCounts[id]++
			if idCounts[id] > 1 {
				id = id + "#" + strconv.Itoa(idCounts[id])
			}

			node := &StructuralNode{
				ID:          id,
				Kind:        rank,
				Label:       label,
				Path:        path,
				Start:       span.Start,
				End:         -1,
				TargetLevel: len(path),
			}
			nodesByID[id] = node
			if parent == nil {
				rootIDs = append(rootIDs, id)
			} else {
				parent.ChildIDs = append(parent.ChildIDs, id)
			}
			stack = append(stack, node)
		}
	}
	closeTo(types.ScopeSection, len(plainText))

	return rootIDs, nodesByID
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var romanChars = map[rune]bool{'I': true, 'V': true, 'X': true, 'L': true, 'C': true, 'D': true, 'M': true}

func isRomanNumeral(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range strings.ToUpper(s) {
		if !romanChars[r] {
			return false
		}
	}
	return true
}

func nodeID(path types.Path) string {
	parts := make([]string, len(path))
	for i, seg := range path {
		parts[i] = strings.ToLower(seg.Kind.String()) + ":" + strings.ToLower(seg.Label)
	}
	return strings.Join(parts, "/")
}
