package plan

import (
	"sort"
	"strings"

	"github.com/coolbeans/amendlex/internal/citerefs"
	"github.com/coolbeans/amendlex/internal/docmodel"
	"github.com/coolbeans/amendlex/internal/resolve"
	"github.com/coolbeans/amendlex/internal/semantics"
)

// findNeedle locates needle inside scoped, falling back to citerefs'
// best-effort section-citation aliasing when a verbatim match fails.
// Returns the rendering that actually matched, so repeat searches for
// "each place it appears" reuse it instead of re-aliasing.
func findNeedle(scoped, needle string) (int, string, bool) {
	return citerefs.ResolveAlias(scoped, needle)
}

func planStrikeInsert(model *docmodel.Model, op resolve.Operation, res resolve.Result, rng textRange, att *Attempt) ([]Patch, bool) {
	si := op.Edit.StrikeInsert
	target := si.Strike

	if target.Kind == semantics.TargetText {
		att.SearchText = target.Text
		scoped := model.PlainText[rng.start:rng.end]
		firstIdx, matched, ok := findNeedle(scoped, target.Text)
		if !ok {
			return nil, false
		}
		att.SearchIndex = firstIdx

		if target.EachPlaceItAppears {
			var patches []Patch
			idx := firstIdx
			for idx >= 0 {
				abs := rng.start + idx
				patches = append(patches, Patch{OperationIndex: op.Index, Start: abs, End: abs + len(matched), Deleted: matched, Inserted: si.Insert})
				next := strings.Index(scoped[idx+len(matched):], matched)
				if next < 0 {
					break
				}
				idx = idx + len(matched) + next
			}
			return patches, len(patches) > 0
		}

		abs := rng.start + firstIdx
		return []Patch{{OperationIndex: op.Index, Start: abs, End: abs + len(matched), Deleted: matched, Inserted: si.Insert}}, true
	}

	// Pure structural strike: replace the struck node's range (when the
	// resolver found one) or the whole scoped range, re-indented to sit
	// at the replaced node's own level.
	start, end := rng.start, rng.end
	level := targetLevelFromRole(model, res, resolve.RoleTarget)
	if id, ok := res.NodeIDs[resolve.RoleStrikeTarget]; ok {
		if r, ok := rangeOf(model, id); ok {
			start, end = r.start, r.end
			level = targetLevelOf(model, id)
		}
	}
	end = trimTrailingNewlines(model.PlainText, start, end)
	formatted := levelAwareFormat(si.Insert, level)
	return []Patch{{OperationIndex: op.Index, Start: start, End: end, Deleted: model.PlainText[start:end], Inserted: formatted}}, true
}

// trimTrailingNewlines shrinks a replacement range so it does not swallow
// the block separator between the replaced node and its next sibling. A
// deletion keeps the separator (striking a node removes its blank line
// too); a replacement must leave it in place.
func trimTrailingNewlines(text string, start, end int) int {
	for end > start && text[end-1] == '\n' {
		end--
	}
	return end
}

func planStrike(model *docmodel.Model, op resolve.Operation, res resolve.Result, rng textRange, att *Attempt) ([]Patch, bool) {
	se := op.Edit.Strike
	target := se.Target

	if target.Kind == semantics.TargetText {
		att.SearchText = target.Text
		scoped := model.PlainText[rng.start:rng.end]
		firstIdx, matched, ok := findNeedle(scoped, target.Text)
		if !ok {
			return nil, false
		}
		att.SearchIndex = firstIdx

		if target.EachPlaceItAppears {
			var patches []Patch
			idx := firstIdx
			for idx >= 0 {
				abs := rng.start + idx
				s, e := abs, abs+len(matched)
				if se.Through != nil {
					s, e = extendThrough(model, res, se.Through, s, e)
					s, e = absorbSpace(model.PlainText, s, e)
				}
				patches = append(patches, Patch{OperationIndex: op.Index, Start: s, End: e, Deleted: model.PlainText[s:e]})
				next := strings.Index(scoped[idx+len(matched):], matched)
				if next < 0 {
					break
				}
				idx = idx + len(matched) + next
			}
			return patches, len(patches) > 0
		}

		s, e := rng.start+firstIdx, rng.start+firstIdx+len(matched)
		if se.Through != nil {
			s, e = extendThrough(model, res, se.Through, s, e)
			s, e = absorbSpace(model.PlainText, s, e)
		}
		return []Patch{{OperationIndex: op.Index, Start: s, End: e, Deleted: model.PlainText[s:e]}}, true
	}

	// Pure structural strike: delete the struck node's range when the
	// resolver found one, the whole scoped range otherwise. A structural
	// "through" at the same hierarchy rank widens the deletion to a block
	// spanning both nodes; at a different rank only the first node's
	// range is used.
	start, end := rng.start, rng.end
	strikeLevel := -1
	if id, ok := res.NodeIDs[resolve.RoleStrikeTarget]; ok {
		if r, ok := rangeOf(model, id); ok {
			start, end = r.start, r.end
			strikeLevel = targetLevelOf(model, id)
		}
	}
	if se.Through != nil {
		if se.Through.Kind == semantics.TargetRef {
			if id, ok := res.NodeIDs[resolve.RoleThrough]; ok {
				if n := model.NodesByID[id]; n != nil && n.End > end &&
					(strikeLevel < 0 || n.TargetLevel == strikeLevel) {
					end = n.End
				}
			}
		} else {
			start, end = extendThrough(model, res, se.Through, start, end)
		}
	}
	return []Patch{{OperationIndex: op.Index, Start: start, End: end, Deleted: model.PlainText[start:end]}}, true
}

func extendThrough(model *docmodel.Model, res resolve.Result, through *semantics.EditTarget, start, end int) (int, int) {
	switch through.Kind {
	case semantics.TargetText:
		idx := strings.Index(model.PlainText[end:], through.Text)
		if idx >= 0 {
			end = end + idx + len(through.Text)
		}
	case semantics.TargetPunctuation:
		if e2, ok := findPunctuationAfter(model.PlainText, end, through.Punctuation); ok {
			end = e2
		}
	case semantics.TargetRef:
		if id, ok := res.NodeIDs[resolve.RoleThrough]; ok {
			if n := model.NodesByID[id]; n != nil && n.End > end {
				end = n.End
			}
		}
	}
	return start, end
}

func findPunctuationAfter(text string, from int, word string) (int, bool) {
	ch := punctuationChar(word)
	idx := strings.IndexByte(text[from:], ch)
	if idx < 0 {
		return 0, false
	}
	return from + idx + 1, true
}

func punctuationChar(word string) byte {
	switch word {
	case "comma":
		return ','
	case "semicolon":
		return ';'
	default:
		return '.'
	}
}

// absorbSpace applies the through-extension cleanup: a deletion flanked
// by spaces on both sides absorbs the leading one; a deletion starting
// at position 0 absorbs a trailing one instead.
func absorbSpace(text string, start, end int) (int, int) {
	if start > 0 && end < len(text) && text[start-1] == ' ' && text[end] == ' ' {
		return start - 1, end
	}
	if start == 0 && end < len(text) && text[end] == ' ' {
		return start, end + 1
	}
	return start, end
}

func planInsert(model *docmodel.Model, op resolve.Operation, res resolve.Result, rng textRange, att *Attempt) ([]Patch, bool) {
	ie := op.Edit.Insert

	switch {
	case ie.Before != nil:
		// Anchored inserts are inline matter next to the anchor text;
		// they never pick up block indentation.
		pos, ok := anchorPos(model, res, resolve.RoleBefore, ie.Before, rng, att, true)
		if !ok {
			return nil, false
		}
		return []Patch{{OperationIndex: op.Index, Start: pos, End: pos, Inserted: separatorBefore(ie.Content, model.PlainText, pos)}}, true
	case ie.After != nil:
		pos, ok := anchorPos(model, res, resolve.RoleAfter, ie.After, rng, att, false)
		if !ok {
			return nil, false
		}
		return []Patch{{OperationIndex: op.Index, Start: pos, End: pos, Inserted: separatorAfter(ie.Content, model.PlainText, pos)}}, true
	case ie.AtEndOf != nil:
		id, ok := res.NodeIDs[resolve.RoleAtEndOf]
		if !ok {
			return nil, false
		}
		r, ok := rangeOf(model, id)
		if !ok {
			return nil, false
		}
		content := levelAwareFormat(ie.Content, targetLevelOf(model, id)+1)
		return insertAtEnd(op.Index, model.PlainText, r.end, content), true
	default:
		content := levelAwareFormat(ie.Content, targetLevelFromRole(model, res, resolve.RoleTarget)+1)
		return insertAtEnd(op.Index, model.PlainText, rng.end, content), true
	}
}

func anchorPos(model *docmodel.Model, res resolve.Result, role resolve.RoleKey, target *semantics.EditTarget, rng textRange, att *Attempt, before bool) (int, bool) {
	if target.Kind == semantics.TargetText {
		att.SearchText = target.Text
		scoped := model.PlainText[rng.start:rng.end]
		idx, matched, ok := findNeedle(scoped, target.Text)
		if !ok {
			return 0, false
		}
		att.SearchIndex = idx
		if before {
			return rng.start + idx, true
		}
		return rng.start + idx + len(matched), true
	}
	id, ok := res.NodeIDs[role]
	if !ok {
		return 0, false
	}
	n := model.NodesByID[id]
	if n == nil {
		return 0, false
	}
	if before {
		return n.Start, true
	}
	return n.End, true
}

func isAlnumOrCloseParen(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == ')'
}

func isAlnumOrOpenParen(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '('
}

// separatorBefore implements the before-anchor separator rule: a single
// space is added between content and the anchor text when the formatted
// content ends in [A-Za-z0-9)] and the anchor begins with [A-Za-z0-9(].
func separatorBefore(content, text string, pos int) string {
	if content == "" || pos >= len(text) {
		return content
	}
	if isAlnumOrCloseParen(content[len(content)-1]) && isAlnumOrOpenParen(text[pos]) {
		return content + " "
	}
	return content
}

// separatorAfter mirrors separatorBefore for an after-anchor insert: the
// separator is prepended to content when the preceding anchor text ends
// in [A-Za-z0-9)] and the content begins with [A-Za-z0-9(].
func separatorAfter(content, text string, pos int) string {
	if content == "" || pos <= 0 {
		return content
	}
	if isAlnumOrCloseParen(text[pos-1]) && isAlnumOrOpenParen(content[0]) {
		return " " + content
	}
	return content
}

func insertAtEnd(opIndex int, text string, pos int, content string) []Patch {
	var sb strings.Builder
	if pos > 0 && text[pos-1] != '\n' {
		sb.WriteString("\n")
	}
	sb.WriteString(content)
	if pos < len(text) && text[pos] != '\n' {
		sb.WriteString("\n\n")
	}
	return []Patch{{OperationIndex: opIndex, Start: pos, End: pos, Inserted: sb.String()}}
}

func planRewrite(model *docmodel.Model, op resolve.Operation, res resolve.Result, rng textRange, att *Attempt) ([]Patch, bool) {
	re := op.Edit.Rewrite
	start, end := rng.start, rng.end
	level := 0
	if re.Target != nil {
		id, ok := res.NodeIDs[resolve.RoleRewriteTarget]
		if !ok {
			return nil, false
		}
		r, ok := rangeOf(model, id)
		if !ok {
			return nil, false
		}
		start, end = r.start, r.end
		level = targetLevelOf(model, id)
	}
	end = trimTrailingNewlines(model.PlainText, start, end)
	content := levelAwareFormat(re.Content, level)
	if strings.Contains(content, "\n") && end < len(model.PlainText) && model.PlainText[end] != '\n' {
		content += "\n"
	}
	return []Patch{{OperationIndex: op.Index, Start: start, End: end, Deleted: model.PlainText[start:end], Inserted: content}}, true
}

func planRedesignate(model *docmodel.Model, op resolve.Operation, rng textRange, att *Attempt) ([]Patch, bool) {
	red := op.Edit.Redesignate
	var patches []Patch
	for _, m := range red.Mappings {
		marker := "(" + m.From + ")"
		scoped := model.PlainText[rng.start:rng.end]
		idx := strings.Index(scoped, marker)
		if idx < 0 {
			continue
		}
		abs := rng.start + idx
		patches = append(patches, Patch{OperationIndex: op.Index, Start: abs, End: abs + len(marker), Deleted: marker, Inserted: "(" + m.To + ")"})
	}
	return patches, len(patches) > 0
}

func planMove(model *docmodel.Model, op resolve.Operation, res resolve.Result, att *Attempt) ([]Patch, bool) {
	text := model.PlainText

	type seg struct{ start, end int }
	var segs []seg
	var pieces []string
	for _, id := range res.MoveFromNodeIDs {
		if id == "" {
			return nil, false
		}
		n := model.NodesByID[id]
		if n == nil {
			return nil, false
		}
		segs = append(segs, seg{n.Start, n.End})
		pieces = append(pieces, strings.TrimSpace(text[n.Start:n.End]))
	}
	if len(segs) == 0 {
		return nil, false
	}

	var anchorID string
	anchorAfter := false
	if id, ok := res.NodeIDs[resolve.RoleMoveBefore]; ok {
		anchorID = id
	}
	if id, ok := res.NodeIDs[resolve.RoleMoveAfter]; ok {
		anchorID = id
		anchorAfter = true
	}
	anchorNode := model.NodesByID[anchorID]
	if anchorNode == nil {
		return nil, false
	}

	sortedSegs := append([]seg(nil), segs...)
	sort.Slice(sortedSegs, func(i, j int) bool { return sortedSegs[i].start > sortedSegs[j].start })

	anchorPos := anchorNode.Start
	if anchorAfter {
		anchorPos = anchorNode.End
	}

	buf := []byte(text)
	removedBeforeAnchor := 0
	for _, s := range sortedSegs {
		if s.end <= anchorPos {
			removedBeforeAnchor += s.end - s.start
		}
		buf = append(buf[:s.start], buf[s.end:]...)
	}
	newAnchorPos := anchorPos - removedBeforeAnchor
	if newAnchorPos < 0 {
		newAnchorPos = 0
	}
	if newAnchorPos > len(buf) {
		newAnchorPos = len(buf)
	}

	joined := strings.Join(pieces, "\n")
	var insertion string
	if anchorAfter {
		insertion = "\n" + joined
	} else {
		insertion = joined + "\n"
	}
	result := string(buf[:newAnchorPos]) + insertion + string(buf[newAnchorPos:])

	return []Patch{{OperationIndex: op.Index, Start: 0, End: len(text), Deleted: text, Inserted: result}}, true
}

func targetLevelFromRole(model *docmodel.Model, res resolve.Result, role resolve.RoleKey) int {
	id, ok := res.NodeIDs[role]
	if !ok {
		return 0
	}
	return targetLevelOf(model, id)
}
