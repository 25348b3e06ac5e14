package apply

import (
	"strings"

	"github.com/coolbeans/amendlex/internal/resolve"
	"github.com/coolbeans/amendlex/internal/semantics"
	"github.com/coolbeans/amendlex/internal/types"
)

// InstructionNode is one flattened operation plus the raw instruction
// text it was read from.
type InstructionNode struct {
	Operation resolve.Operation
	Text      string
}

type flattenCtx struct {
	scope types.Path

	hasMatterPreceding bool
	matterPreceding    types.Path
	hasMatterFollowing bool
	matterFollowing    types.Path

	sentenceOrdinal    int
	sentenceLast       bool
	headingRestriction bool

	atEndPath   *types.Path
	scopeBefore *semantics.EditTarget
	scopeAfter  *semantics.EditTarget

	inRefs []types.Path
}

// Flatten walks a semantic tree's scope/restriction wrappers down to its
// edit leaves, concatenating scopes into a target path and unwrapping
// each LocationRestriction into operation fields. A restriction wrapping
// an "in(refs)" list expands into one operation per ref.
func Flatten(tree *semantics.Tree, instructionText string) []InstructionNode {
	if tree == nil || tree.Root == nil {
		return nil
	}

	var nodes []InstructionNode
	var walk func(children []semantics.Node, ctx flattenCtx)
	walk = func(children []semantics.Node, ctx flattenCtx) {
		for _, child := range children {
			switch n := child.(type) {
			case *semantics.ScopeNode:
				next := ctx
				next.scope = append(append(types.Path{}, ctx.scope...), n.Scope)
				walk(n.Children, next)
			case *semantics.LocationRestrictionNode:
				walk(n.Children, applyRestriction(ctx, n.Restriction))
			case *semantics.EditNode:
				nodes = append(nodes, buildOperations(ctx, n.Edit, instructionText)...)
			}
		}
	}
	walk(tree.Root.Children, flattenCtx{})

	for i := range nodes {
		nodes[i].Operation.Index = i
	}
	return nodes
}

func applyRestriction(ctx flattenCtx, r semantics.LocationRestriction) flattenCtx {
	next := ctx
	switch r.Kind {
	case semantics.RestrictionHeading, semantics.RestrictionSubsectionHeading, semantics.RestrictionSubLocationHeading:
		next.headingRestriction = true
	case semantics.RestrictionSentenceOrdinal:
		next.sentenceOrdinal = r.Ordinal
	case semantics.RestrictionSentenceLast:
		next.sentenceLast = true
	case semantics.RestrictionMatterPreceding:
		next.hasMatterPreceding = true
		next.matterPreceding = prefixPath(ctx.scope, r.Ref)
	case semantics.RestrictionMatterFollowing:
		next.hasMatterFollowing = true
		next.matterFollowing = prefixPath(ctx.scope, r.Ref)
	case semantics.RestrictionIn:
		refs := make([]types.Path, len(r.Refs))
		for i, ref := range r.Refs {
			refs[i] = prefixPath(ctx.scope, ref)
		}
		next.inRefs = refs
	case semantics.RestrictionAtEnd:
		p := prefixPath(ctx.scope, r.Ref)
		next.atEndPath = &p
	case semantics.RestrictionBefore:
		next.scopeBefore = r.Target
	case semantics.RestrictionAfter:
		next.scopeAfter = r.Target
	}
	return next
}

func prefixPath(scope, ref types.Path) types.Path {
	if len(ref) == 0 {
		return scope
	}
	out := make(types.Path, 0, len(scope)+len(ref))
	out = append(out, scope...)
	out = append(out, ref...)
	return out
}

func buildOperations(ctx flattenCtx, edit semantics.UltimateEdit, instructionText string) []InstructionNode {
	if ctx.atEndPath != nil && edit.Kind == semantics.EditInsert && edit.Insert != nil &&
		edit.Insert.Before == nil && edit.Insert.After == nil && edit.Insert.AtEndOf == nil {
		ie := *edit.Insert
		ie.AtEndOf = ctx.atEndPath
		edit.Insert = &ie
	}

	unanchoredMode := ""
	if edit.Kind == semantics.EditInsert && edit.Insert != nil &&
		edit.Insert.Before == nil && edit.Insert.After == nil && edit.Insert.AtEndOf == nil {
		if strings.Contains(strings.ToLower(instructionText), "adding at the end") {
			unanchoredMode = "add_at_end"
		} else {
			unanchoredMode = "insert"
		}
	}

	base := resolve.Operation{
		Edit:                  edit,
		HasMatterPreceding:    ctx.hasMatterPreceding,
		MatterPrecedingTarget: ctx.matterPreceding,
		HasMatterFollowing:    ctx.hasMatterFollowing,
		MatterFollowingTarget: ctx.matterFollowing,
		SentenceOrdinal:       ctx.sentenceOrdinal,
		SentenceLast:          ctx.sentenceLast,
		HeadingRestriction:    ctx.headingRestriction,
		UnanchoredInsertMode:  unanchoredMode,
		ScopeBeforeTarget:     ctx.scopeBefore,
		ScopeAfterTarget:      ctx.scopeAfter,
	}

	if len(ctx.inRefs) > 0 {
		out := make([]InstructionNode, 0, len(ctx.inRefs))
		for _, ref := range ctx.inRefs {
			op := base
			op.TargetPath = ref
			op.HasExplicitTargetPath = len(ref) > 0
			out = append(out, InstructionNode{Operation: op, Text: instructionText})
		}
		return out
	}

	base.TargetPath = ctx.scope
	base.HasExplicitTargetPath = len(ctx.scope) > 0
	return []InstructionNode{{Operation: base, Text: instructionText}}
}
