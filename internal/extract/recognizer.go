// Package extract pulls bounded amendatory-instruction candidates out
// of a raw bill text stream: a section-boundary scanner splits the text
// into named sections, and a regex pre-filter decides which paragraphs
// within each section are worth handing to the grammar/CST parser at
// all.
package extract

import "regexp"

// Recognizer classifies paragraphs as amendatory (or not) using anchor
// patterns over the stock amendment phrases. It answers "does this
// paragraph propose an amendment at all", not what the amendment
// precisely does; that is the grammar parser's job.
type Recognizer struct {
	isAmendedPattern       *regexp.Regexp
	strikeInsertPattern    *regexp.Regexp
	repealPattern          *regexp.Regexp
	addNewSectionPattern   *regexp.Regexp
	addAtEndPattern        *regexp.Regexp
	redesignatePattern     *regexp.Regexp
	tableOfContentsPattern *regexp.Regexp
}

// Kind names which anchor pattern matched a paragraph, for CLI display.
type Kind string

const (
	KindStrikeInsert    Kind = "strike_insert"
	KindRepeal          Kind = "repeal"
	KindAddNewSection   Kind = "add_new_section"
	KindAddAtEnd        Kind = "add_at_end"
	KindRedesignate     Kind = "redesignate"
	KindTableOfContents Kind = "table_of_contents"
	KindGeneral         Kind = "general_amendment"
)

// NewRecognizer compiles the anchor patterns. The recognizer is safe for
// concurrent use.
func NewRecognizer() *Recognizer {
	return &Recognizer{
		isAmendedPattern: regexp.MustCompile(
			`(?i)is\s+amended\s*[\x{2014}\-]{1,2}|is\s+amended\s+by\b`,
		),
		strikeInsertPattern: regexp.MustCompile(
			`(?i)(?:by\s+)?striking\s+["\x{201c}]([^"\x{201d}]+)["\x{201d}]\s+and\s+inserting\s+["\x{201c}]([^"\x{201d}]+)["\x{201d}]`,
		),
		repealPattern: regexp.MustCompile(
			`(?i)is\s+(?:hereby\s+)?repealed`,
		),
		addNewSectionPattern: regexp.MustCompile(
			`(?i)(?:by\s+)?inserting\s+after\s+(?:section|subsection)\s+(\([a-zA-Z0-9]+\)|\d+[a-zA-Z]?)\s+the\s+following\s+new\s+(?:section|subsection)`,
		),
		addAtEndPattern: regexp.MustCompile(
			`(?i)(?:by\s+)?adding\s+at\s+the\s+end\s+the\s+following`,
		),
		redesignatePattern: regexp.MustCompile(
			`(?i)(?:by\s+)?redesignating\s+(?:paragraph|subsection|section|subparagraph|clause)\s+\(([a-zA-Z0-9]+)\)\s+as\s+(?:paragraph|subsection|section|subparagraph|clause)\s+\(([a-zA-Z0-9]+)\)`,
		),
		tableOfContentsPattern: regexp.MustCompile(
			`(?i)table\s+of\s+contents\s+.{0,120}is\s+amended`,
		),
	}
}

// Classify reports whether text reads as an amendatory instruction and,
// if so, which anchor pattern it matched, checked in specificity order.
func (r *Recognizer) Classify(text string) (Kind, bool) {
	switch {
	case r.redesignatePattern.MatchString(text):
		return KindRedesignate, true
	case r.tableOfContentsPattern.MatchString(text):
		return KindTableOfContents, true
	case r.addNewSectionPattern.MatchString(text):
		return KindAddNewSection, true
	case r.addAtEndPattern.MatchString(text):
		return KindAddAtEnd, true
	case r.strikeInsertPattern.MatchString(text):
		return KindStrikeInsert, true
	case r.repealPattern.MatchString(text):
		return KindRepeal, true
	case r.isAmendedPattern.MatchString(text):
		return KindGeneral, true
	}
	return "", false
}
