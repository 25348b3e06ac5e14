// Package citerefs recognizes and normalizes statutory section
// citations embedded in amendatory-instruction text. The planner uses
// it as a best-effort fallback when a strike needle spells a citation
// differently than the section body does ("Section 5" vs "Sec. 5" vs
// "§ 5"); only the bare statutory section form is recognized.
package citerefs

import (
	"fmt"
	"regexp"
	"strings"
)

// Ref is a recognized section-style citation.
type Ref struct {
	RawText    string
	Section    string
	Subparts   []string // e.g. ["e", "6", "C"] from "5(e)(6)(C)"
	TextOffset int
	TextLength int
}

var (
	sectionWordPattern = regexp.MustCompile(`(?i)(?:Sec(?:tion|\.)?|§)\s*(\d+[A-Za-z]?)((?:\([A-Za-z0-9]+\))*)`)
	subpartPattern     = regexp.MustCompile(`\(([A-Za-z0-9]+)\)`)
)

// Find scans text for every recognizable section citation, in order of
// appearance.
func Find(text string) []Ref {
	var refs []Ref
	for _, m := range sectionWordPattern.FindAllStringSubmatchIndex(text, -1) {
		raw := text[m[0]:m[1]]
		section := text[m[2]:m[3]]
		var subparts []string
		if m[4] != -1 && m[4] != m[5] {
			chain := text[m[4]:m[5]]
			for _, sm := range subpartPattern.FindAllStringSubmatch(chain, -1) {
				subparts = append(subparts, sm[1])
			}
		}
		refs = append(refs, Ref{
			RawText:    raw,
			Section:    section,
			Subparts:   subparts,
			TextOffset: m[0],
			TextLength: m[1] - m[0],
		})
	}
	return refs
}

// Normalize renders a Ref in its canonical "Section N(a)(1)..." form, the
// shape internal/plan's needle search tries after a verbatim match fails.
func Normalize(r Ref) string {
	var sb strings.Builder
	sb.WriteString("Section ")
	sb.WriteString(r.Section)
	for _, s := range r.Subparts {
		sb.WriteString("(")
		sb.WriteString(s)
		sb.WriteString(")")
	}
	return sb.String()
}

// Variants returns the common alternate renderings of a citation's
// canonical form that a strike needle might actually use verbatim:
// "Sec. N", "§ N", and the bare citation with no leading word at all.
func Variants(r Ref) []string {
	canonical := Normalize(r)
	tail := canonical[len("Section "):]
	return []string{
		canonical,
		"Sec. " + tail,
		"§ " + tail,
		tail,
	}
}

// ResolveAlias searches needle inside scoped using the original needle
// first, then (when it embeds a recognizable section citation) every
// common rendering of that citation, returning the first occurrence
// found and which rendering matched. ok is false when nothing matched.
func ResolveAlias(scoped, needle string) (index int, matched string, ok bool) {
	if idx := strings.Index(scoped, needle); idx >= 0 {
		return idx, needle, true
	}

	refs := Find(needle)
	if len(refs) == 0 {
		return 0, "", false
	}

	for _, ref := range refs {
		prefix := needle[:ref.TextOffset]
		suffix := needle[ref.TextOffset+ref.TextLength:]
		for _, variant := range Variants(ref) {
			candidate := prefix + variant + suffix
			if idx := strings.Index(scoped, candidate); idx >= 0 {
				return idx, candidate, true
			}
		}
	}
	return 0, "", false
}

// FormatSubpartPath renders a subpart chain back into its parenthesized
// form, the inverse of the subpart-extraction Find performs.
func FormatSubpartPath(section string, subparts []string) string {
	parts := make([]string, 0, len(subparts)+1)
	parts = append(parts, fmt.Sprintf("Section %s", section))
	for _, s := range subparts {
		parts = append(parts, "("+s+")")
	}
	return strings.Join(parts, "")
}

