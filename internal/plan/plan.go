// Package plan translates resolved operations into non-overlapping
// byte-range patches on a document model's plain text. Every operation
// produces exactly one Attempt record whether or not it yielded a
// patch, so callers can always explain what happened.
package plan

import (
	"regexp"
	"sort"
	"strings"

	"github.com/coolbeans/amendlex/internal/docmodel"
	"github.com/coolbeans/amendlex/internal/resolve"
	"github.com/coolbeans/amendlex/internal/semantics"
)

// Outcome is the per-operation attempt outcome.
type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeNoPatch        Outcome = "no_patch"
	OutcomeScopeUnresolved Outcome = "scope_unresolved"
)

// Patch is one planned replacement of a half-open plain-text range.
type Patch struct {
	OperationIndex int    `json:"operationIndex"`
	Start          int    `json:"start"`
	End            int    `json:"end"`
	Deleted        string `json:"deleted"`
	Inserted       string `json:"inserted"`
}

// Attempt is the per-operation debug record, produced for every
// operation independent of success.
type Attempt struct {
	OperationIndex        int     `json:"operationIndex"`
	Kind                  string  `json:"kind"`
	HasExplicitTargetPath bool    `json:"hasExplicitTargetPath"`
	ScopeStart            int     `json:"scopeStart"`
	ScopeEnd              int     `json:"scopeEnd"`
	ScopedRangePreview    string  `json:"scopedRangePreview"`
	SearchText            string  `json:"searchText,omitempty"`
	SearchIndex           int     `json:"searchIndex"` // -1 when no text search was attempted or it failed
	Outcome               Outcome `json:"outcome"`
}

const previewLen = 180

// Plan computes zero or more tentative patches per operation, then
// resolves overlaps across the whole operation list (sorted by
// (operationIndex, start), first-accepted-wins, zero-width ties never
// conflicting) and returns the accepted patches plus one Attempt per
// operation.
func Plan(model *docmodel.Model, results []resolve.Result) ([]Patch, []Attempt) {
	attempts := make([]Attempt, len(results))
	var tentative []Patch

	for i, res := range results {
		patches, att := planOne(model, res)
		attempts[i] = att
		tentative = append(tentative, patches...)
	}

	accepted := resolveOverlaps(tentative)

	// Attempts whose operation produced zero surviving patches after
	// overlap resolution degrade from "applied" to "no_patch".
	survived := make(map[int]bool)
	for _, p := range accepted {
		survived[p.OperationIndex] = true
	}
	for i := range attempts {
		if attempts[i].Outcome == OutcomeApplied && !survived[attempts[i].OperationIndex] {
			attempts[i].Outcome = OutcomeNoPatch
		}
	}

	return accepted, attempts
}

type textRange struct{ start, end int }

func rootRange(model *docmodel.Model) textRange { return textRange{0, len(model.PlainText)} }

func rangeOf(model *docmodel.Model, nodeID string) (textRange, bool) {
	if nodeID == "" {
		return rootRange(model), true
	}
	n := model.NodesByID[nodeID]
	if n == nil {
		return textRange{}, false
	}
	return textRange{n.Start, n.End}, true
}

func targetLevelOf(model *docmodel.Model, nodeID string) int {
	if n := model.NodesByID[nodeID]; n != nil {
		return n.TargetLevel
	}
	return 0
}

func preview(text string, r textRange) string {
	s := text[r.start:r.end]
	if len(s) > previewLen {
		s = s[:previewLen]
	}
	return s
}

func planOne(model *docmodel.Model, res resolve.Result) ([]Patch, Attempt) {
	op := res.Op
	att := Attempt{
		OperationIndex:        op.Index,
		Kind:                  editKindName(op.Edit.Kind),
		HasExplicitTargetPath: hasExplicitPath(op),
		SearchIndex:           -1,
	}

	// Step 1: base range from the resolved primary target.
	rng := rootRange(model)
	if op.HasExplicitTargetPath {
		id, ok := res.NodeIDs[resolve.RoleTarget]
		if !ok {
			att.Outcome = OutcomeScopeUnresolved
			return nil, att
		}
		r, ok := rangeOf(model, id)
		if !ok {
			att.Outcome = OutcomeScopeUnresolved
			return nil, att
		}
		rng = r
	}

	// Step 2/3: matter preceding/following narrowing.
	if op.HasMatterPreceding {
		id, ok := res.NodeIDs[resolve.RoleMatterPreceding]
		if !ok {
			att.Outcome = OutcomeScopeUnresolved
			return nil, att
		}
		r, ok := rangeOf(model, id)
		if !ok {
			att.Outcome = OutcomeScopeUnresolved
			return nil, att
		}
		if r.start < rng.end {
			rng.end = min(rng.end, r.start)
		}
	}
	if op.HasMatterFollowing {
		id, ok := res.NodeIDs[resolve.RoleMatterFollowing]
		if !ok {
			att.Outcome = OutcomeScopeUnresolved
			return nil, att
		}
		r, ok := rangeOf(model, id)
		if !ok {
			att.Outcome = OutcomeScopeUnresolved
			return nil, att
		}
		rng.start = max(rng.start, r.end)
	}

	if op.ScopeBeforeTarget != nil {
		if r, ok := narrowByTarget(model, res, resolve.RoleScopeBefore, op.ScopeBeforeTarget, rng, true); ok {
			rng = r
		}
	}
	if op.ScopeAfterTarget != nil {
		if r, ok := narrowByTarget(model, res, resolve.RoleScopeAfter, op.ScopeAfterTarget, rng, false); ok {
			rng = r
		}
	}

	// Step 4: sentence ordinal restriction.
	if op.SentenceOrdinal > 0 || op.SentenceLast {
		if r, ok := restrictToSentence(model.PlainText, rng, op.SentenceOrdinal, op.SentenceLast); ok {
			rng = r
		}
	}

	if op.HeadingRestriction {
		if r, ok := restrictToHeading(model, rng); ok {
			rng = r
		}
	}

	att.ScopeStart, att.ScopeEnd = rng.start, rng.end
	att.ScopedRangePreview = preview(model.PlainText, rng)

	var patches []Patch
	var ok bool
	switch op.Edit.Kind {
	case semantics.EditStrikeInsert:
		patches, ok = planStrikeInsert(model, op, res, rng, &att)
	case semantics.EditStrike:
		patches, ok = planStrike(model, op, res, rng, &att)
	case semantics.EditInsert:
		patches, ok = planInsert(model, op, res, rng, &att)
	case semantics.EditRewrite:
		patches, ok = planRewrite(model, op, res, rng, &att)
	case semantics.EditRedesignate:
		patches, ok = planRedesignate(model, op, rng, &att)
	case semantics.EditMove:
		patches, ok = planMove(model, op, res, &att)
	}

	if ok && len(patches) > 0 {
		att.Outcome = OutcomeApplied
	} else {
		att.Outcome = OutcomeNoPatch
	}
	return patches, att
}

// hasExplicitPath reports whether the operation names any structural
// target of its own: a scope-derived target path, an insert's atEndOf
// location, or a rewrite's structural target.
func hasExplicitPath(op resolve.Operation) bool {
	if op.HasExplicitTargetPath {
		return true
	}
	switch op.Edit.Kind {
	case semantics.EditInsert:
		return op.Edit.Insert != nil && op.Edit.Insert.AtEndOf != nil
	case semantics.EditRewrite:
		return op.Edit.Rewrite != nil && op.Edit.Rewrite.Target != nil
	}
	return false
}

func editKindName(k semantics.EditKind) string {
	switch k {
	case semantics.EditStrike:
		return "strike"
	case semantics.EditInsert:
		return "insert"
	case semantics.EditStrikeInsert:
		return "strike_insert"
	case semantics.EditRewrite:
		return "rewrite"
	case semantics.EditRedesignate:
		return "redesignate"
	case semantics.EditMove:
		return "move"
	}
	return "unknown"
}

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)

func restrictToSentence(text string, rng textRange, ordinal int, last bool) (textRange, bool) {
	scoped := text[rng.start:rng.end]
	matches := sentenceRe.FindAllStringIndex(scoped, -1)
	if len(matches) == 0 {
		return rng, false
	}
	idx := ordinal - 1
	if last || ordinal <= 0 {
		idx = len(matches) - 1
	}
	if idx < 0 || idx >= len(matches) {
		return rng, false
	}
	m := matches[idx]
	return textRange{rng.start + m[0], rng.start + m[1]}, true
}

// narrowByTarget implements a before_restriction/after_restriction that
// wraps an edit directly: a text target is located by needle search
// within rng, a structural target by its resolved node's range.
func narrowByTarget(model *docmodel.Model, res resolve.Result, role resolve.RoleKey, target *semantics.EditTarget, rng textRange, before bool) (textRange, bool) {
	if target.Kind == semantics.TargetText {
		scoped := model.PlainText[rng.start:rng.end]
		idx := strings.Index(scoped, target.Text)
		if idx < 0 {
			return rng, false
		}
		if before {
			return textRange{rng.start, rng.start + idx}, true
		}
		return textRange{rng.start + idx + len(target.Text), rng.end}, true
	}
	id, ok := res.NodeIDs[role]
	if !ok {
		return rng, false
	}
	n := model.NodesByID[id]
	if n == nil {
		return rng, false
	}
	if before {
		return textRange{rng.start, min(rng.end, n.Start)}, true
	}
	return textRange{max(rng.start, n.End), rng.end}, true
}

// restrictToHeading narrows rng to a heading span from the document
// model that falls inside it, for "in the heading"/"in the subsection
// heading" restrictions.
func restrictToHeading(model *docmodel.Model, rng textRange) (textRange, bool) {
	for _, s := range model.Spans {
		if s.Type == docmodel.SpanHeading && s.Start >= rng.start && s.End <= rng.end {
			return textRange{s.Start, s.End}, true
		}
	}
	return rng, false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// resolveOverlaps walks tentative patches sorted by (OperationIndex,
// Start) and accepts a patch only if it does not overlap any already
// accepted patch; two zero-width patches at the same position never
// conflict.
func resolveOverlaps(tentative []Patch) []Patch {
	sorted := append([]Patch(nil), tentative...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].OperationIndex != sorted[j].OperationIndex {
			return sorted[i].OperationIndex < sorted[j].OperationIndex
		}
		return sorted[i].Start < sorted[j].Start
	})

	var accepted []Patch
	for _, p := range sorted {
		conflict := false
		for _, a := range accepted {
			if overlaps(p, a) {
				conflict = true
				break
			}
		}
		if !conflict {
			accepted = append(accepted, p)
		}
	}
	return accepted
}

func overlaps(a, b Patch) bool {
	if a.Start == a.End && b.Start == b.End {
		return false
	}
	return a.Start < b.End && b.Start < a.End
}

// levelAwareFormat re-indents insertion/rewrite content so the block
// appears at baseDepth. Depth 1 is an unquoted top-level block; each
// deeper level adds one ">" quote character, matching how the document
// model reads blockquote nesting back out of the source. Relative
// structure across multi-line content is preserved because every line
// gets the same prefix.
func levelAwareFormat(content string, baseDepth int) string {
	if baseDepth <= 1 {
		return content
	}
	prefix := strings.Repeat(">", baseDepth-1) + " "
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
