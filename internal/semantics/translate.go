package semantics

import (
	"strings"

	"github.com/coolbeans/amendlex/internal/cst"
	"github.com/coolbeans/amendlex/internal/types"
)

var ordinalWords = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
}

// Translate walks an instruction's CST and returns its semantic tree plus
// any issue strings the translator encountered along the way. A non-nil
// Tree is returned even when issues is non-empty; callers decide whether
// an empty issue list is required.
func Translate(ast *cst.Node) (*Tree, []string) {
	if ast == nil {
		return nil, []string{"empty_ast"}
	}

	targetIntro := childByName(ast, "target_intro")
	body := childByName(ast, "amend_body")
	if targetIntro == nil || body == nil {
		return nil, []string{"instruction_missing_target_or_body"}
	}

	root := &InstructionRoot{}
	translateTarget(targetIntro, root)

	bodyNode, issues := translateAmendBody(body)
	root.Children = wrapScope(root.TargetScopePath, bodyNode)

	return &Tree{Root: root}, issues
}

// wrapScope nests one ScopeNode per path segment, shallowest outermost,
// around inner, per the scope-stacking rule.
func wrapScope(path types.Path, inner Node) []Node {
	cur := inner
	for i := len(path) - 1; i >= 0; i-- {
		cur = &ScopeNode{Scope: path[i], Children: []Node{cur}}
	}
	return []Node{cur}
}

func translateTarget(n *cst.Node, root *InstructionRoot) {
	inner := soleRuleChild(n)
	if inner == nil {
		return
	}
	switch inner.Name {
	case "this_section":
		// No explicit section or scope: edits apply within the caller's
		// current section.
	case "section_ref":
		lc := childByName(inner, "label_chain")
		labels := childrenByName(lc, "label")
		if len(labels) == 0 {
			return
		}
		sec := leafText(labels[0])
		root.TargetSection = &sec
		rest := make([]string, 0, len(labels)-1)
		for _, l := range labels[1:] {
			rest = append(rest, leafText(l))
		}
		root.TargetScopePath = buildPathFromLabels(rest)
	case "scope_chain_leading":
		root.TargetScopePath = parseScopeChainLeading(inner)
	}
}

func parseScopeChainLeading(n *cst.Node) types.Path {
	var path types.Path
	wordNode := childByName(n, "scope_word_cap")
	labelNode := childByName(n, "label")
	if wordNode != nil && labelNode != nil {
		kind, _ := types.ParseScopeKind(strings.ToLower(leafText(wordNode)))
		path = append(path, types.PathSegment{Kind: kind, Label: leafText(labelNode)})
	}
	for _, c := range childrenByName(n, "scope_segment") {
		path = append(path, parseScopeSegment(c))
	}
	return path
}

func parseScopeChain(n *cst.Node) types.Path {
	var path types.Path
	for _, c := range childrenByName(n, "scope_segment") {
		path = append(path, parseScopeSegment(c))
	}
	return path
}

func parseScopeSegment(n *cst.Node) types.PathSegment {
	kind, _ := types.ParseScopeKind(strings.ToLower(leafText(childByName(n, "scope_word"))))
	return types.PathSegment{Kind: kind, Label: leafText(childByName(n, "label"))}
}

func withLastLabel(p types.Path, label string) types.Path {
	if len(p) == 0 {
		return types.Path{{Label: label}}
	}
	out := append(types.Path(nil), p...)
	out[len(out)-1] = types.PathSegment{Kind: out[len(out)-1].Kind, Label: label}
	return out
}

func translateAmendBody(n *cst.Node) (Node, []string) {
	var issues []string

	var restriction *LocationRestriction
	if r := childByName(n, "restriction"); r != nil {
		lr, iss := parseRestriction(r)
		restriction = lr
		issues = append(issues, iss...)
	}

	edit, iss := parseUltimateEdit(childByName(n, "ultimate_edit"))
	issues = append(issues, iss...)

	editNode := &EditNode{Edit: edit}
	var result Node = editNode
	if restriction != nil {
		result = &LocationRestrictionNode{Restriction: *restriction, Children: []Node{editNode}}
	}
	return result, issues
}

func parseRestriction(n *cst.Node) (*LocationRestriction, []string) {
	inner := soleRuleChild(n)
	if inner == nil {
		return nil, []string{"restriction_empty"}
	}
	switch inner.Name {
	case "heading_restriction":
		return &LocationRestriction{Kind: RestrictionHeading}, nil

	case "subsection_heading_restriction":
		return &LocationRestriction{Kind: RestrictionSubsectionHeading}, nil

	case "sub_location_heading_restriction":
		kind, _ := types.ParseScopeKind(strings.ToLower(leafText(childByName(inner, "scope_word"))))
		return &LocationRestriction{Kind: RestrictionSubLocationHeading, SubLocationKind: kind}, nil

	case "sentence_restriction":
		word := leafText(childByName(inner, "sentence_ordinal_word"))
		if word == "last" {
			return &LocationRestriction{Kind: RestrictionSentenceLast}, nil
		}
		return &LocationRestriction{Kind: RestrictionSentenceOrdinal, Ordinal: ordinalWords[word]}, nil

	case "matter_restriction":
		ref := parseScopeChain(childByName(inner, "scope_chain"))
		dirNode := childByName(inner, "matter_dir")
		// "preceding" is a stripped rule name, so a matter_dir node with
		// no children matched it; one with a "following" token matched
		// the other alternative.
		if dirNode != nil && len(dirNode.Children) == 0 {
			return &LocationRestriction{Kind: RestrictionMatterPreceding, Ref: ref}, nil
		}
		return &LocationRestriction{Kind: RestrictionMatterFollowing, Ref: ref}, nil

	case "in_restriction":
		base := parseScopeChain(childByName(inner, "scope_chain"))
		refs := []types.Path{base}
		for _, l := range childrenByName(inner, "label") {
			refs = append(refs, withLastLabel(base, leafText(l)))
		}
		return &LocationRestriction{Kind: RestrictionIn, Refs: refs}, nil

	case "at_end_restriction":
		ref := parseScopeChain(childByName(inner, "scope_chain"))
		return &LocationRestriction{Kind: RestrictionAtEnd, Ref: ref}, nil

	case "before_restriction":
		t := parseEditTarget(childByName(inner, "edit_target"))
		return &LocationRestriction{Kind: RestrictionBefore, Target: &t}, nil

	case "after_restriction":
		t := parseEditTarget(childByName(inner, "edit_target"))
		return &LocationRestriction{Kind: RestrictionAfter, Target: &t}, nil
	}
	return nil, []string{"restriction_unrecognized:" + inner.Name}
}

func parseUltimateEdit(n *cst.Node) (UltimateEdit, []string) {
	inner := soleRuleChild(n)
	if inner == nil {
		return UltimateEdit{}, []string{"ultimate_edit_empty"}
	}
	switch inner.Name {
	case "strike_insert":
		return parseStrikeInsert(inner)
	case "strike":
		return parseStrike(inner)
	case "insert":
		return parseInsert(inner)
	case "rewrite":
		return parseRewrite(inner)
	case "redesignate":
		return parseRedesignate(inner)
	case "move":
		return parseMove(inner)
	}
	return UltimateEdit{}, []string{"ultimate_edit_unrecognized:" + inner.Name}
}

func parseStrikeInsert(n *cst.Node) (UltimateEdit, []string) {
	target := parseEditTarget(childByName(n, "edit_target"))
	content := quotedContent(childByName(n, "quoted_text"))
	return UltimateEdit{
		Kind:         EditStrikeInsert,
		StrikeInsert: &StrikeInsertEdit{Strike: target, Insert: content},
	}, nil
}

func parseStrike(n *cst.Node) (UltimateEdit, []string) {
	targets := childrenByName(n, "edit_target")
	if len(targets) == 0 {
		return UltimateEdit{}, []string{"strike_missing_target"}
	}
	se := &StrikeEdit{Target: parseEditTarget(targets[0])}
	if len(targets) > 1 {
		t := parseEditTarget(targets[1])
		se.Through = &t
	}
	return UltimateEdit{Kind: EditStrike, Strike: se}, nil
}

func parseInsert(n *cst.Node) (UltimateEdit, []string) {
	inner := soleRuleChild(n)
	if inner == nil {
		return UltimateEdit{}, []string{"insert_empty"}
	}
	ie := &InsertEdit{Content: quotedContent(childByName(inner, "quoted_text"))}
	switch inner.Name {
	case "insert_before":
		t := parseEditTarget(childByName(inner, "edit_target"))
		ie.Before = &t
	case "insert_after":
		t := parseEditTarget(childByName(inner, "edit_target"))
		ie.After = &t
	case "insert_at_end", "insert_bare":
		// Unanchored; the apply facade decides between insert and
		// add_at_end mode by inspecting the raw instruction text.
	default:
		return UltimateEdit{}, []string{"insert_unrecognized:" + inner.Name}
	}
	return UltimateEdit{Kind: EditInsert, Insert: ie}, nil
}

func parseRewrite(n *cst.Node) (UltimateEdit, []string) {
	var issues []string
	re := &RewriteEdit{Content: quotedContent(childByName(n, "quoted_text"))}
	if targetNode := childByName(n, "edit_target"); targetNode != nil {
		t := parseEditTarget(targetNode)
		if p, ok := t.AsStructuralPath(); ok {
			re.Target = &p
		} else {
			issues = append(issues, "rewrite_target_not_structural")
		}
	}
	return UltimateEdit{Kind: EditRewrite, Rewrite: re}, issues
}

func parseRedesignate(n *cst.Node) (UltimateEdit, []string) {
	labelLists := childrenByName(n, "label_list")
	if len(labelLists) < 2 {
		return UltimateEdit{}, []string{"redesignate_missing_lists"}
	}
	fromLabels := childrenByName(labelLists[0], "label")
	toLabels := childrenByName(labelLists[1], "label")
	count := len(fromLabels)
	if len(toLabels) < count {
		count = len(toLabels)
	}
	mappings := make([]RedesignateMapping, 0, count)
	for i := 0; i < count; i++ {
		mappings = append(mappings, RedesignateMapping{From: leafText(fromLabels[i]), To: leafText(toLabels[i])})
	}
	resp := childByName(n, "respectively") != nil
	return UltimateEdit{
		Kind:        EditRedesignate,
		Redesignate: &RedesignateEdit{Mappings: mappings, Respectively: resp},
	}, nil
}

func parseMove(n *cst.Node) (UltimateEdit, []string) {
	targets := childrenByName(n, "edit_target")
	if len(targets) == 0 {
		return UltimateEdit{}, []string{"move_missing_targets"}
	}
	me := &MoveEdit{}
	for _, t := range targets {
		tgt := parseEditTarget(t)
		if p, ok := tgt.AsStructuralPath(); ok {
			me.From = append(me.From, p)
		}
	}
	if anchor := childByName(n, "move_anchor"); anchor != nil {
		at := parseEditTarget(childByName(anchor, "edit_target"))
		p, ok := at.AsStructuralPath()
		if ok {
			if hasTokenText(anchor, "after") {
				me.After = &p
			} else {
				me.Before = &p
			}
		}
	}
	return UltimateEdit{Kind: EditMove, Move: me}, nil
}

func parseEditTarget(n *cst.Node) EditTarget {
	if n == nil {
		return EditTarget{}
	}
	inner := soleRuleChild(n)
	if inner == nil {
		return EditTarget{}
	}
	switch inner.Name {
	case "quoted_text_target":
		return EditTarget{
			Kind:               TargetText,
			Text:               quotedContent(childByName(inner, "quoted_text")),
			EachPlaceItAppears: hasTokenText(inner, "each"),
		}
	case "punctuation_target":
		return EditTarget{Kind: TargetPunctuation, Punctuation: leafText(childByName(inner, "punctuation_word"))}
	case "scope_chain":
		return EditTarget{Kind: TargetRef, Ref: parseScopeChain(inner)}
	}
	return EditTarget{}
}
