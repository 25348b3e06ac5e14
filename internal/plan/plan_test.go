package plan

import (
	"strings"
	"testing"

	"github.com/coolbeans/amendlex/internal/docmodel"
	"github.com/coolbeans/amendlex/internal/resolve"
	"github.com/coolbeans/amendlex/internal/semantics"
	"github.com/coolbeans/amendlex/internal/types"
)

func buildModel(t *testing.T, src string) *docmodel.Model {
	t.Helper()
	m, err := docmodel.Build(src)
	if err != nil {
		t.Fatalf("docmodel.Build: %v", err)
	}
	return m
}

func seg(kind types.ScopeKind, label string) types.PathSegment {
	return types.PathSegment{Kind: kind, Label: label}
}

func textTarget(text string) semantics.EditTarget {
	return semantics.EditTarget{Kind: semantics.TargetText, Text: text}
}

func planOps(t *testing.T, m *docmodel.Model, ops []resolve.Operation) ([]Patch, []Attempt) {
	t.Helper()
	return Plan(m, resolve.Resolve(m, ops))
}

func strikeInsertOp(index int, strike semantics.EditTarget, insert string) resolve.Operation {
	return resolve.Operation{
		Index: index,
		Edit: semantics.UltimateEdit{
			Kind:         semantics.EditStrikeInsert,
			StrikeInsert: &semantics.StrikeInsertEdit{Strike: strike, Insert: insert},
		},
	}
}

func TestPlan_StrikeInsertText(t *testing.T) {
	m := buildModel(t, "This is old text.")
	patches, attempts := planOps(t, m, []resolve.Operation{strikeInsertOp(0, textTarget("old"), "new")})
	if len(patches) != 1 {
		t.Fatalf("patches = %+v", patches)
	}
	p := patches[0]
	if p.Deleted != "old" || p.Inserted != "new" {
		t.Fatalf("patch = %+v", p)
	}
	if m.PlainText[p.Start:p.End] != p.Deleted {
		t.Fatalf("deleted %q does not match text at [%d,%d)", p.Deleted, p.Start, p.End)
	}
	if attempts[0].Outcome != OutcomeApplied {
		t.Fatalf("outcome = %v", attempts[0].Outcome)
	}
	if attempts[0].SearchText != "old" || attempts[0].SearchIndex != 8 {
		t.Fatalf("attempt search = %q@%d", attempts[0].SearchText, attempts[0].SearchIndex)
	}
}

func TestPlan_EachPlaceItAppears(t *testing.T) {
	m := buildModel(t, "For 2023 and 2023 only.")
	target := textTarget("2023")
	target.EachPlaceItAppears = true
	patches, _ := planOps(t, m, []resolve.Operation{strikeInsertOp(0, target, "2031")})
	if len(patches) != 2 {
		t.Fatalf("patches = %+v, want one per occurrence", patches)
	}
	for _, p := range patches {
		if p.Deleted != "2023" || p.Inserted != "2031" {
			t.Fatalf("patch = %+v", p)
		}
	}
}

func TestPlan_StrikeWithoutThroughKeepsBothSpaces(t *testing.T) {
	m := buildModel(t, "This is old text.")
	ops := []resolve.Operation{{
		Index: 0,
		Edit: semantics.UltimateEdit{
			Kind:   semantics.EditStrike,
			Strike: &semantics.StrikeEdit{Target: textTarget("old")},
		},
	}}
	patches, _ := planOps(t, m, ops)
	if len(patches) != 1 {
		t.Fatalf("patches = %+v", patches)
	}
	if patches[0].Deleted != "old" {
		t.Fatalf("deleted = %q, want the needle alone", patches[0].Deleted)
	}
}

func TestPlan_StrikeThroughTextAbsorbsSpace(t *testing.T) {
	m := buildModel(t, "Keep alpha beta gamma delta end.")
	through := textTarget("delta")
	ops := []resolve.Operation{{
		Index: 0,
		Edit: semantics.UltimateEdit{
			Kind:   semantics.EditStrike,
			Strike: &semantics.StrikeEdit{Target: textTarget("beta"), Through: &through},
		},
	}}
	patches, _ := planOps(t, m, ops)
	if len(patches) != 1 {
		t.Fatalf("patches = %+v", patches)
	}
	// Deletion "beta gamma delta" is flanked by spaces, so it absorbs
	// the leading one.
	if patches[0].Deleted != " beta gamma delta" {
		t.Fatalf("deleted = %q", patches[0].Deleted)
	}
}

func TestPlan_StrikeThroughPunctuation(t *testing.T) {
	m := buildModel(t, "Strike from here, to there; but not further.")
	through := semantics.EditTarget{Kind: semantics.TargetPunctuation, Punctuation: "semicolon"}
	ops := []resolve.Operation{{
		Index: 0,
		Edit: semantics.UltimateEdit{
			Kind:   semantics.EditStrike,
			Strike: &semantics.StrikeEdit{Target: textTarget("here"), Through: &through},
		},
	}}
	patches, _ := planOps(t, m, ops)
	if len(patches) != 1 {
		t.Fatalf("patches = %+v", patches)
	}
	if !strings.HasSuffix(patches[0].Deleted, ";") {
		t.Fatalf("deleted = %q, want it to extend past the semicolon", patches[0].Deleted)
	}
}

func TestPlan_ScopedStrikeInsert(t *testing.T) {
	m := buildModel(t, "(a) The word target here.\n\n(b) Another target here.")
	op := strikeInsertOp(0, textTarget("target"), "replacement")
	op.TargetPath = types.Path{seg(types.ScopeSubsection, "b")}
	op.HasExplicitTargetPath = true
	patches, attempts := planOps(t, m, []resolve.Operation{op})
	if len(patches) != 1 {
		t.Fatalf("patches = %+v", patches)
	}
	b := m.NodesByID["subsection:b"]
	if patches[0].Start < b.Start {
		t.Fatalf("patch at %d escapes subsection (b) starting at %d", patches[0].Start, b.Start)
	}
	if !attempts[0].HasExplicitTargetPath {
		t.Fatal("attempt should record the explicit target path")
	}
}

func TestPlan_ScopeUnresolved(t *testing.T) {
	m := buildModel(t, "(a) Text.")
	op := strikeInsertOp(0, textTarget("Text"), "X")
	op.TargetPath = types.Path{seg(types.ScopeSubsection, "z")}
	op.HasExplicitTargetPath = true
	patches, attempts := planOps(t, m, []resolve.Operation{op})
	if len(patches) != 0 {
		t.Fatalf("patches = %+v, want none", patches)
	}
	if attempts[0].Outcome != OutcomeScopeUnresolved {
		t.Fatalf("outcome = %v, want scope_unresolved", attempts[0].Outcome)
	}
}

func TestPlan_NoMatchIsNoPatch(t *testing.T) {
	m := buildModel(t, "(a) Text.")
	patches, attempts := planOps(t, m, []resolve.Operation{strikeInsertOp(0, textTarget("absent"), "X")})
	if len(patches) != 0 {
		t.Fatalf("patches = %+v, want none", patches)
	}
	if attempts[0].Outcome != OutcomeNoPatch {
		t.Fatalf("outcome = %v, want no_patch", attempts[0].Outcome)
	}
}

func TestPlan_SentenceOrdinal(t *testing.T) {
	m := buildModel(t, "First sentence here. Second sentence there. Third sentence everywhere.")
	op := strikeInsertOp(0, textTarget("sentence"), "clause")
	op.SentenceOrdinal = 2
	patches, _ := planOps(t, m, []resolve.Operation{op})
	if len(patches) != 1 {
		t.Fatalf("patches = %+v", patches)
	}
	if !strings.Contains(m.PlainText[patches[0].Start-7:patches[0].End], "Second sentence"[7:]) {
		t.Fatalf("patch at [%d,%d) not inside the second sentence", patches[0].Start, patches[0].End)
	}
	if patches[0].Start < strings.Index(m.PlainText, "Second") {
		t.Fatalf("patch at %d precedes the second sentence", patches[0].Start)
	}
}

func TestPlan_SentenceLast(t *testing.T) {
	m := buildModel(t, "One here. Two here. Three here.")
	op := strikeInsertOp(0, textTarget("here"), "there")
	op.SentenceLast = true
	patches, _ := planOps(t, m, []resolve.Operation{op})
	if len(patches) != 1 {
		t.Fatalf("patches = %+v", patches)
	}
	if patches[0].Start < strings.Index(m.PlainText, "Three") {
		t.Fatalf("patch at %d not in the last sentence", patches[0].Start)
	}
}

func TestPlan_MatterPrecedingAndFollowing(t *testing.T) {
	src := "(a) Opening flush text here.\n\n" +
		"> (1) First item text.\n\n" +
		"> (2) Second item text.\n"
	m := buildModel(t, src)

	// Matter preceding paragraph (1): only the opening flush text.
	op := strikeInsertOp(0, textTarget("text"), "matter")
	op.TargetPath = types.Path{seg(types.ScopeSubsection, "a")}
	op.HasExplicitTargetPath = true
	op.HasMatterPreceding = true
	op.MatterPrecedingTarget = types.Path{seg(types.ScopeSubsection, "a"), seg(types.ScopeParagraph, "1")}
	patches, _ := planOps(t, m, []resolve.Operation{op})
	if len(patches) != 1 {
		t.Fatalf("patches = %+v", patches)
	}
	firstItem := strings.Index(m.PlainText, "(1)")
	if patches[0].End > firstItem {
		t.Fatalf("matter-preceding patch [%d,%d) crosses into paragraph (1) at %d", patches[0].Start, patches[0].End, firstItem)
	}

	// Matter following paragraph (1): the needle before it is skipped.
	op2 := strikeInsertOp(0, textTarget("text"), "matter")
	op2.TargetPath = types.Path{seg(types.ScopeSubsection, "a")}
	op2.HasExplicitTargetPath = true
	op2.HasMatterFollowing = true
	op2.MatterFollowingTarget = types.Path{seg(types.ScopeSubsection, "a"), seg(types.ScopeParagraph, "1")}
	patches2, _ := planOps(t, m, []resolve.Operation{op2})
	if len(patches2) != 1 {
		t.Fatalf("patches = %+v", patches2)
	}
	if patches2[0].Start < strings.Index(m.PlainText, "(2)") {
		t.Fatalf("matter-following patch at %d should land inside paragraph (2)", patches2[0].Start)
	}
}

func TestPlan_InsertAfterTextAnchor(t *testing.T) {
	m := buildModel(t, "(a) old")
	op := resolve.Operation{
		Index: 0,
		Edit: semantics.UltimateEdit{
			Kind:   semantics.EditInsert,
			Insert: &semantics.InsertEdit{Content: "new", After: &semantics.EditTarget{Kind: semantics.TargetText, Text: "old"}},
		},
		TargetPath:            types.Path{seg(types.ScopeSubsection, "a")},
		HasExplicitTargetPath: true,
	}
	patches, _ := planOps(t, m, []resolve.Operation{op})
	if len(patches) != 1 {
		t.Fatalf("patches = %+v", patches)
	}
	p := patches[0]
	if p.Start != p.End {
		t.Fatalf("anchored insert should be zero-width, got [%d,%d)", p.Start, p.End)
	}
	if p.Inserted != " new" {
		t.Fatalf("inserted = %q, want a separating space before %q", p.Inserted, "new")
	}
}

func TestPlan_InsertBeforeTextAnchorSeparator(t *testing.T) {
	m := buildModel(t, "alpha beta")
	op := resolve.Operation{
		Index: 0,
		Edit: semantics.UltimateEdit{
			Kind:   semantics.EditInsert,
			Insert: &semantics.InsertEdit{Content: "gamma", Before: &semantics.EditTarget{Kind: semantics.TargetText, Text: "beta"}},
		},
	}
	patches, _ := planOps(t, m, []resolve.Operation{op})
	if len(patches) != 1 {
		t.Fatalf("patches = %+v", patches)
	}
	if patches[0].Inserted != "gamma " {
		t.Fatalf("inserted = %q, want a trailing separator", patches[0].Inserted)
	}
}

func TestPlan_InsertAtEndOfNode(t *testing.T) {
	m := buildModel(t, "(a) Alpha.")
	atEnd := types.Path{seg(types.ScopeParagraph, "a")}
	op := resolve.Operation{
		Index: 0,
		Edit: semantics.UltimateEdit{
			Kind:   semantics.EditInsert,
			Insert: &semantics.InsertEdit{Content: "(1) New item.", AtEndOf: &atEnd},
		},
	}
	patches, attempts := planOps(t, m, []resolve.Operation{op})
	if len(patches) != 1 {
		t.Fatalf("patches = %+v", patches)
	}
	if !strings.Contains(patches[0].Inserted, "(1) New item.") {
		t.Fatalf("inserted = %q", patches[0].Inserted)
	}
	if !strings.HasPrefix(patches[0].Inserted, "\n") {
		t.Fatalf("inserted = %q, want a leading newline after non-newline text", patches[0].Inserted)
	}
	if !attempts[0].HasExplicitTargetPath {
		t.Fatal("atEndOf inserts carry an explicit target path")
	}
}

func TestPlan_Redesignate(t *testing.T) {
	m := buildModel(t, "(a) Original text.")
	op := resolve.Operation{
		Index: 0,
		Edit: semantics.UltimateEdit{
			Kind: semantics.EditRedesignate,
			Redesignate: &semantics.RedesignateEdit{
				Mappings: []semantics.RedesignateMapping{{From: "a", To: "b"}},
			},
		},
	}
	patches, _ := planOps(t, m, []resolve.Operation{op})
	if len(patches) != 1 {
		t.Fatalf("patches = %+v", patches)
	}
	if patches[0].Deleted != "(a)" || patches[0].Inserted != "(b)" {
		t.Fatalf("patch = %+v", patches[0])
	}
}

func TestPlan_RedesignateChain(t *testing.T) {
	m := buildModel(t, "(A) First.\n\n(B) Second.\n\n(C) Third.")
	op := resolve.Operation{
		Index: 0,
		Edit: semantics.UltimateEdit{
			Kind: semantics.EditRedesignate,
			Redesignate: &semantics.RedesignateEdit{
				Mappings: []semantics.RedesignateMapping{
					{From: "A", To: "B"}, {From: "B", To: "C"}, {From: "C", To: "D"},
				},
				Respectively: true,
			},
		},
	}
	patches, _ := planOps(t, m, []resolve.Operation{op})
	if len(patches) != 3 {
		t.Fatalf("patches = %+v, want one per mapping", patches)
	}
}

func TestPlan_Rewrite(t *testing.T) {
	m := buildModel(t, "(a) Old words.\n\n(b) Keep me.")
	target := types.Path{seg(types.ScopeSubsection, "a")}
	op := resolve.Operation{
		Index: 0,
		Edit: semantics.UltimateEdit{
			Kind:    semantics.EditRewrite,
			Rewrite: &semantics.RewriteEdit{Target: &target, Content: "(a) New words."},
		},
	}
	patches, _ := planOps(t, m, []resolve.Operation{op})
	if len(patches) != 1 {
		t.Fatalf("patches = %+v", patches)
	}
	a := m.NodesByID["subsection:a"]
	if patches[0].Start != a.Start {
		t.Fatalf("rewrite patch starts at %d, want node start %d", patches[0].Start, a.Start)
	}
	if patches[0].Deleted != "(a) Old words." {
		t.Fatalf("deleted = %q, want the node text without its block separator", patches[0].Deleted)
	}
	if !strings.Contains(patches[0].Inserted, "New words.") {
		t.Fatalf("inserted = %q", patches[0].Inserted)
	}
}

func TestPlan_StructuralStrikeDeletesNodeRange(t *testing.T) {
	m := buildModel(t, "(a) Keep.\n\n(b) Delete me.\n\n(c) Keep too.")
	op := resolve.Operation{
		Index: 0,
		Edit: semantics.UltimateEdit{
			Kind: semantics.EditStrike,
			Strike: &semantics.StrikeEdit{
				Target: semantics.EditTarget{Kind: semantics.TargetRef, Ref: types.Path{seg(types.ScopeSubsection, "b")}},
			},
		},
	}
	patches, _ := planOps(t, m, []resolve.Operation{op})
	if len(patches) != 1 {
		t.Fatalf("patches = %+v", patches)
	}
	b := m.NodesByID["subsection:b"]
	if patches[0].Start != b.Start || patches[0].End != b.End {
		t.Fatalf("strike patch [%d,%d), want node range [%d,%d)", patches[0].Start, patches[0].End, b.Start, b.End)
	}
}

func TestPlan_StructuralStrikeThroughSameRank(t *testing.T) {
	m := buildModel(t, "(a) Keep.\n\n(b) Gone.\n\n(c) Also gone.\n\n(d) Keep.")
	through := semantics.EditTarget{Kind: semantics.TargetRef, Ref: types.Path{seg(types.ScopeSubsection, "c")}}
	op := resolve.Operation{
		Index: 0,
		Edit: semantics.UltimateEdit{
			Kind: semantics.EditStrike,
			Strike: &semantics.StrikeEdit{
				Target:  semantics.EditTarget{Kind: semantics.TargetRef, Ref: types.Path{seg(types.ScopeSubsection, "b")}},
				Through: &through,
			},
		},
	}
	patches, _ := planOps(t, m, []resolve.Operation{op})
	if len(patches) != 1 {
		t.Fatalf("patches = %+v", patches)
	}
	b, c := m.NodesByID["subsection:b"], m.NodesByID["subsection:c"]
	if patches[0].Start != b.Start || patches[0].End != c.End {
		t.Fatalf("block strike [%d,%d), want [%d,%d)", patches[0].Start, patches[0].End, b.Start, c.End)
	}
}

func TestPlan_OverlapResolution(t *testing.T) {
	m := buildModel(t, "shared target text")
	first := strikeInsertOp(0, textTarget("target"), "winner")
	second := strikeInsertOp(1, textTarget("target text"), "loser")
	patches, attempts := planOps(t, m, []resolve.Operation{first, second})
	if len(patches) != 1 {
		t.Fatalf("patches = %+v, want only the first operation's", patches)
	}
	if patches[0].OperationIndex != 0 {
		t.Fatalf("surviving patch from op %d, want 0", patches[0].OperationIndex)
	}
	if attempts[1].Outcome != OutcomeNoPatch {
		t.Fatalf("losing op outcome = %v, want no_patch after overlap resolution", attempts[1].Outcome)
	}
}

func TestPlan_ZeroWidthPatchesDoNotConflict(t *testing.T) {
	m := buildModel(t, "anchor")
	mk := func(i int) resolve.Operation {
		return resolve.Operation{
			Index: i,
			Edit: semantics.UltimateEdit{
				Kind:   semantics.EditInsert,
				Insert: &semantics.InsertEdit{Content: "x", After: &semantics.EditTarget{Kind: semantics.TargetText, Text: "anchor"}},
			},
		}
	}
	patches, _ := planOps(t, m, []resolve.Operation{mk(0), mk(1)})
	if len(patches) != 2 {
		t.Fatalf("patches = %+v, want both zero-width inserts", patches)
	}
}

func TestPlan_Move(t *testing.T) {
	src := "(a) First.\n\n(b) Second.\n\n(c) Third."
	m := buildModel(t, src)
	after := types.Path{seg(types.ScopeSubsection, "c")}
	op := resolve.Operation{
		Index: 0,
		Edit: semantics.UltimateEdit{
			Kind: semantics.EditMove,
			Move: &semantics.MoveEdit{
				From:  []types.Path{{seg(types.ScopeSubsection, "a")}},
				After: &after,
			},
		},
	}
	patches, _ := planOps(t, m, []resolve.Operation{op})
	if len(patches) != 1 {
		t.Fatalf("patches = %+v", patches)
	}
	result := patches[0].Inserted
	if strings.Index(result, "(a) First.") < strings.Index(result, "(c) Third.") {
		t.Fatalf("move result = %q, want (a) after (c)", result)
	}
	if strings.Count(result, "(a) First.") != 1 {
		t.Fatalf("move result duplicates the moved text: %q", result)
	}
}

func TestPlan_AttemptPreviewBounded(t *testing.T) {
	m := buildModel(t, strings.Repeat("long text ", 50))
	_, attempts := planOps(t, m, []resolve.Operation{strikeInsertOp(0, textTarget("absent"), "x")})
	if len(attempts[0].ScopedRangePreview) > 180 {
		t.Fatalf("preview length = %d, want <= 180", len(attempts[0].ScopedRangePreview))
	}
}
