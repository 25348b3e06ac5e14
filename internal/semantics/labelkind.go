package semantics

import (
	"strings"

	"github.com/coolbeans/amendlex/internal/types"
)

// inferLabelKind assigns a ScopeKind to a bare citation label (one with no
// accompanying scope word, e.g. the "(e)(6)(C)" in "Section 5(e)(6)(C)").
// depth is the label's 0-based position among the labels following the
// section number (subsection=0, paragraph=1, subparagraph=2, clause=3,
// subclause=4 in a fully-qualified citation). The ranking mirrors the
// document model's marker classification (digits before letters, roman
// numerals gated by depth before plain letters, case distinguishing
// subsection from subparagraph), adapted from indentation-gated
// thresholds to position-gated ones since a citation has no indentation
// to read: the clause/subclause roman checks only fire once position
// alone makes the roman reading more likely than the plain-letter one.
func inferLabelKind(label string, depth int) types.ScopeKind {
	switch {
	case isAllDigits(label):
		return types.ScopeParagraph
	case isRomanNumeral(label) && label == strings.ToLower(label) && depth >= 3:
		return types.ScopeClause
	case isRomanNumeral(label) && label == strings.ToUpper(label) && depth >= 4:
		return types.ScopeSubclause
	case len(label) == 1 && label == strings.ToLower(label):
		return types.ScopeSubsection
	case len(label) == 1 && label == strings.ToUpper(label):
		return types.ScopeSubparagraph
	default:
		return types.ScopeItem
	}
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

// buildPathFromLabels classifies a flat list of citation labels (the
// sub-section part of "Section 5(e)(6)(C)") into a scope path.
func buildPathFromLabels(labels []string) types.Path {
	var path types.Path
	for i, lbl := range labels {
		path = append(path, types.PathSegment{Kind: inferLabelKind(lbl, i), Label: lbl})
	}
	return path
}
