// Package resolve maps each operation's hierarchy paths onto a unique
// structural node id in a docmodel.Model, recording an issue when a
// path is unresolved or ambiguous. The resolver never errors: it only
// ever returns a node id, a list of ambiguous candidates, or neither.
package resolve

import (
	"strings"

	"github.com/coolbeans/amendlex/internal/docmodel"
	"github.com/coolbeans/amendlex/internal/semantics"
	"github.com/coolbeans/amendlex/internal/types"
)

// RoleKey names one of the path-bearing roles an Operation can carry:
// the primary target, matter-preceding/-following targets, a strike's
// through target, insert anchors, and move sources/anchors.
type RoleKey string

const (
	RoleTarget          RoleKey = "target"
	RoleStrikeTarget    RoleKey = "strikeTarget"
	RoleMatterPreceding RoleKey = "matterPreceding"
	RoleMatterFollowing RoleKey = "matterFollowing"
	RoleThrough         RoleKey = "through"
	RoleBefore          RoleKey = "before"
	RoleAfter           RoleKey = "after"
	RoleAtEndOf         RoleKey = "atEndOf"
	RoleRewriteTarget   RoleKey = "rewriteTarget"
	RoleMoveBefore      RoleKey = "moveBefore"
	RoleMoveAfter       RoleKey = "moveAfter"
	RoleScopeBefore     RoleKey = "scopeBefore"
	RoleScopeAfter      RoleKey = "scopeAfter"
)

// Operation is one flattened instruction operation: an ultimate edit plus
// whatever scope/location-restriction context wrapped it in the semantic
// tree. internal/apply's flattening step builds these; internal/resolve
// and internal/plan consume them in sequence.
type Operation struct {
	Index int
	Edit  semantics.UltimateEdit

	TargetPath            types.Path
	HasExplicitTargetPath bool

	MatterPrecedingTarget types.Path
	HasMatterPreceding    bool
	MatterFollowingTarget types.Path
	HasMatterFollowing    bool

	SentenceOrdinal int  // >0 selects the nth sentence
	SentenceLast    bool // "the last sentence"

	// HeadingRestriction is set when the operation is narrowed to a
	// heading ("in the heading", "in the subsection heading", "in the
	// <scope_word> heading").
	HeadingRestriction bool

	// UnanchoredInsertMode distinguishes an Insert edit with no
	// before/after/atEndOf anchor: "insert" (plain trailing insert) or
	// "add_at_end" (the instruction said "adding at the end").
	UnanchoredInsertMode string

	// ScopeBeforeTarget/ScopeAfterTarget carry a before_restriction/
	// after_restriction that wraps the edit directly (as opposed to an
	// Insert edit's own Before/After anchor): a generic narrowing of
	// the scoped range to before or after wherever the target resolves.
	ScopeBeforeTarget *semantics.EditTarget
	ScopeAfterTarget  *semantics.EditTarget
}

// Issue records a path that did not resolve to a unique node.
type Issue struct {
	OperationIndex   int
	Kind             string // "<role>_unresolved" | "<role>_ambiguous"
	Role             RoleKey
	Path             types.Path
	CandidateNodeIDs []string
}

// Result is the resolver's output for one Operation: node ids for every
// role the operation actually carries, plus any issues encountered.
type Result struct {
	Op Operation

	NodeIDs         map[RoleKey]string
	MoveFromNodeIDs []string // parallel to Op.Edit.Move.From

	Issues []Issue
}

// Resolve resolves every role-bearing path on each operation against
// model, in operation order.
func Resolve(model *docmodel.Model, ops []Operation) []Result {
	out := make([]Result, len(ops))
	for i, op := range ops {
		out[i] = resolveOne(model, op)
	}
	return out
}

func resolveOne(model *docmodel.Model, op Operation) Result {
	r := Result{Op: op, NodeIDs: make(map[RoleKey]string)}

	resolveRole := func(role RoleKey, path types.Path) {
		if path == nil {
			return
		}
		id, candidates := ResolvePath(model, path)
		switch {
		case id != "":
			r.NodeIDs[role] = id
		case len(candidates) > 1:
			r.Issues = append(r.Issues, Issue{OperationIndex: op.Index, Kind: string(role) + "_ambiguous", Role: role, Path: path, CandidateNodeIDs: candidates})
		default:
			r.Issues = append(r.Issues, Issue{OperationIndex: op.Index, Kind: string(role) + "_unresolved", Role: role, Path: path})
		}
	}

	if op.HasExplicitTargetPath {
		resolveRole(RoleTarget, op.TargetPath)
	}
	if op.HasMatterPreceding {
		resolveRole(RoleMatterPreceding, op.MatterPrecedingTarget)
	}
	if op.HasMatterFollowing {
		resolveRole(RoleMatterFollowing, op.MatterFollowingTarget)
	}
	if op.ScopeBeforeTarget != nil {
		if p, ok := op.ScopeBeforeTarget.AsStructuralPath(); ok {
			resolveRole(RoleScopeBefore, p)
		}
	}
	if op.ScopeAfterTarget != nil {
		if p, ok := op.ScopeAfterTarget.AsStructuralPath(); ok {
			resolveRole(RoleScopeAfter, p)
		}
	}

	switch op.Edit.Kind {
	case semantics.EditStrike:
		if p, ok := op.Edit.Strike.Target.AsStructuralPath(); ok {
			resolveRole(RoleStrikeTarget, p)
		}
		if op.Edit.Strike.Through != nil {
			if p, ok := op.Edit.Strike.Through.AsStructuralPath(); ok {
				resolveRole(RoleThrough, p)
			}
		}
	case semantics.EditStrikeInsert:
		if p, ok := op.Edit.StrikeInsert.Strike.AsStructuralPath(); ok {
			resolveRole(RoleStrikeTarget, p)
		}
	case semantics.EditInsert:
		ie := op.Edit.Insert
		if ie.Before != nil {
			if p, ok := ie.Before.AsStructuralPath(); ok {
				resolveRole(RoleBefore, p)
			}
		}
		if ie.After != nil {
			if p, ok := ie.After.AsStructuralPath(); ok {
				resolveRole(RoleAfter, p)
			}
		}
		if ie.AtEndOf != nil {
			resolveRole(RoleAtEndOf, *ie.AtEndOf)
		}
	case semantics.EditRewrite:
		if op.Edit.Rewrite.Target != nil {
			resolveRole(RoleRewriteTarget, *op.Edit.Rewrite.Target)
		}
	case semantics.EditMove:
		me := op.Edit.Move
		for _, from := range me.From {
			id, candidates := ResolvePath(model, from)
			r.MoveFromNodeIDs = append(r.MoveFromNodeIDs, id)
			if id == "" {
				kind := "moveFrom_unresolved"
				if len(candidates) > 1 {
					kind = "moveFrom_ambiguous"
				}
				r.Issues = append(r.Issues, Issue{OperationIndex: op.Index, Kind: kind, Path: from, CandidateNodeIDs: candidates})
			}
		}
		if me.Before != nil {
			resolveRole(RoleMoveBefore, *me.Before)
		}
		if me.After != nil {
			resolveRole(RoleMoveAfter, *me.After)
		}
	}

	return r
}

// ResolvePath walks a hierarchy path against the model: drop a leading
// section segment, match (kind,label) exactly, fall back to label-only
// matching, then expand to transitive descendants and retry label-only.
// Returns a unique node id, or ("", candidates) when zero or more than
// one node remains after all segments.
func ResolvePath(model *docmodel.Model, path types.Path) (string, []string) {
	path = path.WithoutLeadingSection()
	if len(path) == 0 {
		return "", nil
	}

	frontier := model.RootNodeIDs
	var matched []string
	for _, seg := range path {
		matched = filterNodes(model, frontier, func(n *docmodel.StructuralNode) bool {
			return n.Kind == seg.Kind && strings.EqualFold(n.Label, seg.Label)
		})
		if len(matched) == 0 {
			matched = filterNodes(model, frontier, func(n *docmodel.StructuralNode) bool {
				return strings.EqualFold(n.Label, seg.Label)
			})
		}
		if len(matched) == 0 {
			descendants := transitiveDescendants(model, frontier)
			matched = filterNodes(model, descendants, func(n *docmodel.StructuralNode) bool {
				return strings.EqualFold(n.Label, seg.Label)
			})
		}
		if len(matched) == 0 {
			return "", nil
		}
		frontier = childIDsOf(model, matched)
	}

	switch len(matched) {
	case 0:
		return "", nil
	case 1:
		return matched[0], nil
	default:
		return "", matched
	}
}

func filterNodes(model *docmodel.Model, ids []string, pred func(*docmodel.StructuralNode) bool) []string {
	var out []string
	for _, id := range ids {
		n := model.NodesByID[id]
		if n != nil && pred(n) {
			out = append(out, id)
		}
	}
	return out
}

// childIDsOf flattens the direct children of every node in ids, the
// frontier for matching the next path segment.
func childIDsOf(model *docmodel.Model, ids []string) []string {
	var out []string
	for _, id := range ids {
		if n := model.NodesByID[id]; n != nil {
			out = append(out, n.ChildIDs...)
		}
	}
	return out
}

// transitiveDescendants returns every descendant (not including ids
// themselves) reachable from ids, used to recover from a path that omits
// an intermediate hierarchy level.
func transitiveDescendants(model *docmodel.Model, ids []string) []string {
	var out []string
	var walk func(id string)
	walk = func(id string) {
		n := model.NodesByID[id]
		if n == nil {
			return
		}
		for _, c := range n.ChildIDs {
			out = append(out, c)
			walk(c)
		}
	}
	for _, id := range ids {
		walk(id)
	}
	return out
}
