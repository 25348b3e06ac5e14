// Package docmodel parses a section's Markdown body into the coordinate
// space the rest of the pipeline operates on: plain text with formatting
// spans beside it, a monotone offset map back to the source, and a
// hierarchy of structural nodes (subsection/paragraph/.../subitem)
// indexed by path.
//
// Parsing itself is goldmark's job (GFM tables and strikethrough
// enabled); this package only walks the resulting AST and does not
// re-implement Markdown parsing.
package docmodel

import "github.com/coolbeans/amendlex/internal/types"

// SpanType discriminates the closed set of formatting spans a block or
// inline element can contribute.
type SpanType int

const (
	SpanParagraph SpanType = iota
	SpanBlockquote
	SpanHeading
	SpanStrong
	SpanEmphasis
	SpanInlineCode
	SpanLink
	SpanDelete
	// SpanInsertion and SpanDeletion are never produced by Build; they
	// exist so the type stays the closed set the rest of the pipeline's
	// renderer (outside this core) annotates post-apply replacements
	// with.
	SpanInsertion
	SpanDeletion
)

// Span is a half-open [Start,End) range over plainText.
type Span struct {
	Start int      `json:"start"`
	End   int      `json:"end"`
	Type  SpanType `json:"type"`
	Depth int      `json:"depth,omitempty"` // heading level, or blockquote nesting depth (outermost = 1)
	Href  string   `json:"href,omitempty"`  // link destination
}

// StructuralNode is one hierarchy node: a subsection, paragraph, ...,
// subitem detected from a leading "(label)" marker.
type StructuralNode struct {
	ID          string     `json:"id"`
	Kind        types.ScopeKind `json:"kind"`
	Label       string     `json:"label"`
	Path        types.Path `json:"path"`
	Start       int        `json:"start"`
	End         int        `json:"end"`
	TargetLevel int        `json:"targetLevel"`
	ChildIDs    []string   `json:"childIds,omitempty"`
}

// Model is the document model builder's full result.
type Model struct {
	PlainText            string
	Spans                []Span
	SourceToPlainOffsets []int
	NodesByID            map[string]*StructuralNode
	RootNodeIDs          []string
}
