package cst

import (
	"sort"

	"github.com/coolbeans/amendlex/internal/grammar"
)

// rebuildKey memoizes reconstruction attempts by (node id, start,
// target end). Reconstruction keeps its own cache; the match-phase
// caches only answer reachability, not tree shape.
type rebuildKey struct {
	id     int
	pos    int
	target int
}

type rebuilder struct {
	m     *Matcher
	cache map[rebuildKey]rebuildResult
}

type rebuildResult struct {
	nodes []*Node
	ok    bool
}

// Reconstruct rebuilds one concrete parse tree for startRule matching
// m.input[0:targetEnd], choosing among ambiguous alternatives greedily
// (longest first), and strips "sep"/"preceding" nodes from the result.
func Reconstruct(m *Matcher, startRule string, targetEnd int) (*Node, bool) {
	rb := &rebuilder{m: m, cache: make(map[rebuildKey]rebuildResult)}
	node, ok := rb.rebuildRule(startRule, 0, targetEnd)
	if !ok {
		return nil, false
	}
	return stripAuxiliaryNodes(node), true
}

func (rb *rebuilder) rebuildRule(name string, pos, target int) (*Node, bool) {
	ends := rb.m.matchRule(name, pos)
	if !containsInt(ends, target) {
		return nil, false
	}
	expr := rb.m.table.Lookup(name)
	if expr == nil {
		return nil, false
	}
	children, ok := rb.rebuildExpr(expr, pos, target)
	if !ok {
		return nil, false
	}
	return &Node{Kind: NodeRule, Name: name, Start: pos, End: target, Children: children}, true
}

// rebuildExpr returns the flat list of CST nodes an expression
// contributes when matching [pos,target). Sequence/choice/repeat are
// transparent combinators; only literals, character classes, and rule
// references materialize as nodes.
func (rb *rebuilder) rebuildExpr(e *grammar.Expr, pos, target int) ([]*Node, bool) {
	key := rebuildKey{e.ID(), pos, target}
	if cached, ok := rb.cache[key]; ok {
		if !cached.ok {
			return nil, false
		}
		return cached.nodes, true
	}

	nodes, ok := rb.rebuildExprUncached(e, pos, target)
	rb.cache[key] = rebuildResult{nodes: nodes, ok: ok}
	return nodes, ok
}

func (rb *rebuilder) rebuildExprUncached(e *grammar.Expr, pos, target int) ([]*Node, bool) {
	switch e.Kind {
	case grammar.ExprLiteral:
		if pos+len(e.Literal) != target {
			return nil, false
		}
		return []*Node{{Kind: NodeToken, Start: pos, End: target, Text: rb.m.input[pos:target]}}, true

	case grammar.ExprCharClass:
		end, ok := rb.m.matchClassAt(e, pos)
		if !ok || end != target {
			return nil, false
		}
		return []*Node{{Kind: NodeToken, Start: pos, End: target, Text: rb.m.input[pos:target]}}, true

	case grammar.ExprRef:
		node, ok := rb.rebuildRule(e.RefName, pos, target)
		if !ok {
			return nil, false
		}
		return []*Node{node}, true

	case grammar.ExprSequence:
		return rb.rebuildSequence(e.Items, pos, target)

	case grammar.ExprChoice:
		return rb.rebuildChoice(e.Items, pos, target)

	case grammar.ExprRepeat:
		return rb.rebuildRepeat(e, pos, target)
	}
	return nil, false
}

// rebuildSequence tries each item's candidate end positions longest
// first (shortest first for a ref to "act"), recursing on the tail.
func (rb *rebuilder) rebuildSequence(items []*grammar.Expr, pos, target int) ([]*Node, bool) {
	if len(items) == 0 {
		if pos == target {
			return nil, true
		}
		return nil, false
	}
	first := items[0]
	ends := rb.orderedCandidates(first, pos)
	for _, end := range ends {
		if end > target {
			continue
		}
		headNodes, ok := rb.rebuildExpr(first, pos, end)
		if !ok {
			continue
		}
		tailNodes, ok := rb.rebuildSequence(items[1:], end, target)
		if !ok {
			continue
		}
		return append(append([]*Node(nil), headNodes...), tailNodes...), true
	}
	return nil, false
}

// rebuildChoice tries alternatives ordered by their maximum reachable
// end descending, then declaration order, and rebuilds whichever
// alternative actually reaches target.
func (rb *rebuilder) rebuildChoice(alts []*grammar.Expr, pos, target int) ([]*Node, bool) {
	type scored struct {
		idx    int
		alt    *grammar.Expr
		maxEnd int
	}
	scoredAlts := make([]scored, len(alts))
	for i, alt := range alts {
		ends := rb.m.matchExpr(alt, pos)
		maxEnd := -1
		for _, e := range ends {
			if e > maxEnd {
				maxEnd = e
			}
		}
		scoredAlts[i] = scored{idx: i, alt: alt, maxEnd: maxEnd}
	}
	sort.SliceStable(scoredAlts, func(i, j int) bool {
		if scoredAlts[i].maxEnd != scoredAlts[j].maxEnd {
			return scoredAlts[i].maxEnd > scoredAlts[j].maxEnd
		}
		return scoredAlts[i].idx < scoredAlts[j].idx
	})
	for _, sa := range scoredAlts {
		if !containsInt(rb.m.matchExpr(sa.alt, pos), target) {
			continue
		}
		nodes, ok := rb.rebuildExpr(sa.alt, pos, target)
		if ok {
			return nodes, true
		}
	}
	return nil, false
}

// rebuildRepeat prefers consuming one more iteration of the repeated
// item before stopping, falling back to zero iterations for "*" only
// when the current position already equals target.
func (rb *rebuilder) rebuildRepeat(e *grammar.Expr, pos, target int) ([]*Node, bool) {
	if e.RepeatMode == grammar.RepeatOptional {
		if pos == target {
			return nil, true
		}
		return rb.rebuildExpr(e.Repeat, pos, target)
	}

	minIterations := 0
	if e.RepeatMode == grammar.RepeatPlus {
		minIterations = 1
	}
	return rb.rebuildRepeatIter(e.Repeat, pos, target, minIterations)
}

func (rb *rebuilder) rebuildRepeatIter(item *grammar.Expr, pos, target, minIterations int) ([]*Node, bool) {
	ends := rb.orderedCandidates(item, pos)
	for _, mid := range ends {
		if mid <= pos || mid > target {
			continue
		}
		headNodes, ok := rb.rebuildExpr(item, pos, mid)
		if !ok {
			continue
		}
		nextMin := minIterations - 1
		if nextMin < 0 {
			nextMin = 0
		}
		if mid == target && nextMin == 0 {
			return headNodes, true
		}
		tailNodes, ok := rb.rebuildRepeatIter(item, mid, target, nextMin)
		if ok {
			return append(append([]*Node(nil), headNodes...), tailNodes...), true
		}
	}
	if minIterations == 0 && pos == target {
		return nil, true
	}
	return nil, false
}

// orderedCandidates returns an item's reachable end positions in the
// order tree reconstruction should try them: longest match first,
// except a ref to the rule "act" prefers the shortest match, so that a
// title of an act of Congress does not greedily swallow the clause
// that follows it.
func (rb *rebuilder) orderedCandidates(item *grammar.Expr, pos int) []int {
	ends := append([]int(nil), rb.m.matchExpr(item, pos)...)
	ascending := item.Kind == grammar.ExprRef && item.RefName == "act"
	sort.Slice(ends, func(i, j int) bool {
		if ascending {
			return ends[i] < ends[j]
		}
		return ends[i] > ends[j]
	})
	return ends
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
