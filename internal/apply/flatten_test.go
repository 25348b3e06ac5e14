package apply

import (
	"testing"

	"github.com/coolbeans/amendlex/internal/resolve"
	"github.com/coolbeans/amendlex/internal/semantics"
	"github.com/coolbeans/amendlex/internal/types"
)

func TestFlatten_ScopeConcatenation(t *testing.T) {
	tree := editTree(&semantics.ScopeNode{
		Scope: seg(types.ScopeSubsection, "e"),
		Children: []semantics.Node{&semantics.ScopeNode{
			Scope: seg(types.ScopeParagraph, "6"),
			Children: []semantics.Node{
				strikeInsertNode(semantics.EditTarget{Kind: semantics.TargetText, Text: "x"}, "y"),
			},
		}},
	})
	nodes := Flatten(tree, "")
	if len(nodes) != 1 {
		t.Fatalf("nodes = %d", len(nodes))
	}
	op := nodes[0].Operation
	want := types.Path{seg(types.ScopeSubsection, "e"), seg(types.ScopeParagraph, "6")}
	if !op.TargetPath.Equal(want) {
		t.Fatalf("target path = %v, want %v", op.TargetPath, want)
	}
	if !op.HasExplicitTargetPath {
		t.Fatal("want explicit target path")
	}
	if op.Index != 0 {
		t.Fatalf("index = %d", op.Index)
	}
}

func TestFlatten_InRestrictionFansOut(t *testing.T) {
	tree := editTree(&semantics.LocationRestrictionNode{
		Restriction: semantics.LocationRestriction{
			Kind: semantics.RestrictionIn,
			Refs: []types.Path{
				{seg(types.ScopeSubparagraph, "A")},
				{seg(types.ScopeSubparagraph, "B")},
			},
		},
		Children: []semantics.Node{
			strikeInsertNode(semantics.EditTarget{Kind: semantics.TargetText, Text: "x"}, "y"),
		},
	})
	nodes := Flatten(tree, "")
	if len(nodes) != 2 {
		t.Fatalf("nodes = %d, want one per ref", len(nodes))
	}
	if nodes[0].Operation.TargetPath[0].Label != "A" || nodes[1].Operation.TargetPath[0].Label != "B" {
		t.Fatalf("targets = %v, %v", nodes[0].Operation.TargetPath, nodes[1].Operation.TargetPath)
	}
	if nodes[0].Operation.Index != 0 || nodes[1].Operation.Index != 1 {
		t.Fatalf("indexes = %d, %d", nodes[0].Operation.Index, nodes[1].Operation.Index)
	}
}

func TestFlatten_InRestrictionPrefixedByScope(t *testing.T) {
	tree := editTree(&semantics.ScopeNode{
		Scope: seg(types.ScopeSubsection, "a"),
		Children: []semantics.Node{&semantics.LocationRestrictionNode{
			Restriction: semantics.LocationRestriction{
				Kind: semantics.RestrictionIn,
				Refs: []types.Path{{seg(types.ScopeParagraph, "2")}},
			},
			Children: []semantics.Node{
				strikeInsertNode(semantics.EditTarget{Kind: semantics.TargetText, Text: "x"}, "y"),
			},
		}},
	})
	nodes := Flatten(tree, "")
	want := types.Path{seg(types.ScopeSubsection, "a"), seg(types.ScopeParagraph, "2")}
	if !nodes[0].Operation.TargetPath.Equal(want) {
		t.Fatalf("target path = %v, want the enclosing scope prefixed", nodes[0].Operation.TargetPath)
	}
}

func TestFlatten_MatterRestrictions(t *testing.T) {
	tree := editTree(&semantics.ScopeNode{
		Scope: seg(types.ScopeSubsection, "a"),
		Children: []semantics.Node{&semantics.LocationRestrictionNode{
			Restriction: semantics.LocationRestriction{
				Kind: semantics.RestrictionMatterPreceding,
				Ref:  types.Path{seg(types.ScopeParagraph, "2")},
			},
			Children: []semantics.Node{
				strikeInsertNode(semantics.EditTarget{Kind: semantics.TargetText, Text: "x"}, "y"),
			},
		}},
	})
	op := Flatten(tree, "")[0].Operation
	if !op.HasMatterPreceding {
		t.Fatal("want matter-preceding set")
	}
	want := types.Path{seg(types.ScopeSubsection, "a"), seg(types.ScopeParagraph, "2")}
	if !op.MatterPrecedingTarget.Equal(want) {
		t.Fatalf("matter-preceding = %v, want %v", op.MatterPrecedingTarget, want)
	}
}

func TestFlatten_SentenceRestrictions(t *testing.T) {
	mk := func(r semantics.LocationRestriction) resolve.Operation {
		tree := editTree(&semantics.LocationRestrictionNode{
			Restriction: r,
			Children: []semantics.Node{
				strikeInsertNode(semantics.EditTarget{Kind: semantics.TargetText, Text: "x"}, "y"),
			},
		})
		return Flatten(tree, "")[0].Operation
	}
	if op := mk(semantics.LocationRestriction{Kind: semantics.RestrictionSentenceOrdinal, Ordinal: 2}); op.SentenceOrdinal != 2 {
		t.Fatalf("sentence ordinal = %d", op.SentenceOrdinal)
	}
	if op := mk(semantics.LocationRestriction{Kind: semantics.RestrictionSentenceLast}); !op.SentenceLast {
		t.Fatal("want sentence-last")
	}
	if op := mk(semantics.LocationRestriction{Kind: semantics.RestrictionHeading}); !op.HeadingRestriction {
		t.Fatal("want heading restriction")
	}
}

func TestFlatten_AtEndRestrictionBindsInsert(t *testing.T) {
	tree := editTree(&semantics.LocationRestrictionNode{
		Restriction: semantics.LocationRestriction{
			Kind: semantics.RestrictionAtEnd,
			Ref:  types.Path{seg(types.ScopeSubsection, "a")},
		},
		Children: []semantics.Node{&semantics.EditNode{Edit: semantics.UltimateEdit{
			Kind:   semantics.EditInsert,
			Insert: &semantics.InsertEdit{Content: "tail"},
		}}},
	})
	op := Flatten(tree, "")[0].Operation
	if op.Edit.Insert.AtEndOf == nil {
		t.Fatal("at-end restriction should bind the unanchored insert")
	}
	if (*op.Edit.Insert.AtEndOf)[0].Label != "a" {
		t.Fatalf("atEndOf = %v", *op.Edit.Insert.AtEndOf)
	}
}

func TestFlatten_UnanchoredInsertMode(t *testing.T) {
	insert := &semantics.EditNode{Edit: semantics.UltimateEdit{
		Kind:   semantics.EditInsert,
		Insert: &semantics.InsertEdit{Content: "tail"},
	}}

	op := Flatten(editTree(insert), `Subsection (a) is amended by adding at the end the following: "tail".`)[0].Operation
	if op.UnanchoredInsertMode != "add_at_end" {
		t.Fatalf("mode = %q, want add_at_end", op.UnanchoredInsertMode)
	}

	op = Flatten(editTree(insert), `Subsection (a) is amended by inserting the following: "tail".`)[0].Operation
	if op.UnanchoredInsertMode != "insert" {
		t.Fatalf("mode = %q, want insert", op.UnanchoredInsertMode)
	}
}

func TestFlatten_EmptyTree(t *testing.T) {
	if nodes := Flatten(nil, ""); nodes != nil {
		t.Fatalf("nodes = %v", nodes)
	}
	if nodes := Flatten(&semantics.Tree{}, ""); nodes != nil {
		t.Fatalf("nodes = %v", nodes)
	}
}
