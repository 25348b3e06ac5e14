package docmodel

import (
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Build parses a section body's Markdown source into a Model.
func Build(source string) (*Model, error) {
	src := []byte(source)
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(src))

	b := &builder{source: src}
	b.walkBlocks(doc, 0)
	plainText := b.plain.String()

	roots, nodesByID := buildHierarchy(plainText, b.blockSpans)

	return &Model{
		PlainText:            plainText,
		Spans:                b.spans,
		SourceToPlainOffsets: buildOffsetMap(src, b.segs, len(plainText)),
		NodesByID:            nodesByID,
		RootNodeIDs:          roots,
	}, nil
}

type offsetSeg struct {
	sourceStart, sourceEnd int
	plainStart, plainEnd   int
}

// buildOffsetMap fills in the bytes goldmark consumed as pure Markdown
// syntax (list markers, "**", quote markers, ...) by carrying the
// preceding text segment's plain-text end forward, so the result stays
// monotone non-decreasing and never exceeds len(plainText).
func buildOffsetMap(source []byte, segs []offsetSeg, plainLen int) []int {
	n := len(source)
	m := make([]int, n+1)
	sort.Slice(segs, func(i, j int) bool { return segs[i].sourceStart < segs[j].sourceStart })

	pos, last := 0, 0
	for _, s := range segs {
		for pos < s.sourceStart && pos <= n {
			m[pos] = last
			pos++
		}
		span := s.sourceEnd - s.sourceStart
		for pos < s.sourceEnd && pos <= n {
			if span <= 0 {
				m[pos] = s.plainStart
			} else {
				m[pos] = s.plainStart + (pos-s.sourceStart)*(s.plainEnd-s.plainStart)/span
			}
			pos++
		}
		last = s.plainEnd
	}
	for pos <= n {
		m[pos] = last
		pos++
	}
	if n >= 0 {
		m[n] = plainLen
	}
	return m
}

// builder accumulates plain text, spans, and the source-segment map
// while walking a goldmark AST in document order.
type builder struct {
	source []byte
	plain  strings.Builder
	spans  []Span
	// blockSpans mirrors the SpanParagraph entries in spans but is kept
	// separate so buildHierarchy never has to filter the full span list.
	// Unlike the public paragraph spans, each entry carries the block's
	// blockquote nesting depth in Depth: that count of ">" quote chars
	// is the indent signal marker classification reads.
	blockSpans []Span
	segs       []offsetSeg
}

func (b *builder) addBlockSpan(start, end, quoteDepth int) {
	span := Span{Start: start, End: end, Type: SpanParagraph}
	b.spans = append(b.spans, span)
	span.Depth = quoteDepth
	b.blockSpans = append(b.blockSpans, span)
}

func (b *builder) beginBlock() {
	if b.plain.Len() > 0 {
		b.plain.WriteString("\n\n")
	}
}

type linesNode interface {
	Lines() *text.Segments
}

func (b *builder) walkBlocks(parent ast.Node, quoteDepth int) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch v := n.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			b.beginBlock()
			start := b.plain.Len()
			b.writeInline(n)
			b.addBlockSpan(start, b.plain.Len(), quoteDepth)
		case *ast.Heading:
			b.beginBlock()
			start := b.plain.Len()
			b.writeInline(n)
			end := b.plain.Len()
			b.addBlockSpan(start, end, quoteDepth)
			b.spans = append(b.spans, Span{Start: start, End: end, Type: SpanHeading, Depth: v.Level})
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			b.beginBlock()
			start := b.plain.Len()
			if ln, ok := n.(linesNode); ok {
				b.writeLines(ln.Lines())
			}
			b.addBlockSpan(start, b.plain.Len(), quoteDepth)
		case *ast.Blockquote:
			bqStart := b.plain.Len()
			b.walkBlocks(n, quoteDepth+1)
			bqEnd := b.plain.Len()
			b.spans = append(b.spans, Span{Start: bqStart, End: bqEnd, Type: SpanBlockquote, Depth: quoteDepth + 1})
		case *ast.List:
			for li := n.FirstChild(); li != nil; li = li.NextSibling() {
				b.walkBlocks(li, quoteDepth)
			}
		case *extast.Table:
			b.walkTable(n, quoteDepth)
		default:
			// ThematicBreak, HTMLBlock, and anything else contribute no
			// plain text.
		}
	}
}

func (b *builder) walkTable(table ast.Node, quoteDepth int) {
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		switch row.(type) {
		case *extast.TableHeader, *extast.TableRow:
		default:
			continue
		}
		b.beginBlock()
		start := b.plain.Len()
		first := true
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			if !first {
				b.plain.WriteString(" ")
			}
			first = false
			b.writeInline(cell)
		}
		b.addBlockSpan(start, b.plain.Len(), quoteDepth)
	}
}

func (b *builder) writeLines(lines *text.Segments) {
	if lines == nil {
		return
	}
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		start := b.plain.Len()
		val := seg.Value(b.source)
		b.plain.Write(val)
		end := b.plain.Len()
		b.segs = append(b.segs, offsetSeg{seg.Start, seg.Stop, start, end})
	}
}

func (b *builder) writeInline(parent ast.Node) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		b.writeInlineNode(n)
	}
}

func (b *builder) writeInlineNode(n ast.Node) {
	switch t := n.(type) {
	case *ast.Text:
		start := b.plain.Len()
		seg := t.Segment
		b.plain.Write(seg.Value(b.source))
		end := b.plain.Len()
		b.segs = append(b.segs, offsetSeg{seg.Start, seg.Stop, start, end})
		if t.HardLineBreak() {
			b.plain.WriteString("\n")
		} else if t.SoftLineBreak() {
			b.plain.WriteString(" ")
		}
	case *ast.String:
		b.plain.Write(t.Value)
	case *ast.Emphasis:
		start := b.plain.Len()
		b.writeInline(t)
		end := b.plain.Len()
		typ := SpanEmphasis
		if t.Level >= 2 {
			typ = SpanStrong
		}
		b.spans = append(b.spans, Span{Start: start, End: end, Type: typ})
	case *ast.CodeSpan:
		start := b.plain.Len()
		b.writeInline(t)
		end := b.plain.Len()
		b.spans = append(b.spans, Span{Start: start, End: end, Type: SpanInlineCode})
	case *ast.Link:
		start := b.plain.Len()
		b.writeInline(t)
		end := b.plain.Len()
		b.spans = append(b.spans, Span{Start: start, End: end, Type: SpanLink, Href: string(t.Destination)})
	case *ast.AutoLink:
		start := b.plain.Len()
		b.plain.Write(t.URL(b.source))
		end := b.plain.Len()
		b.spans = append(b.spans, Span{Start: start, End: end, Type: SpanLink, Href: string(t.URL(b.source))})
	case *extast.Strikethrough:
		start := b.plain.Len()
		b.writeInline(t)
		end := b.plain.Len()
		b.spans = append(b.spans, Span{Start: start, End: end, Type: SpanDelete})
	default:
		b.writeInline(n)
	}
}
