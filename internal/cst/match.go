package cst

import (
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/coolbeans/amendlex/internal/grammar"
)

// Matcher holds the memoized state for one parse call against one
// input string. It is never reused across calls; all memoization is
// scoped to the parse and discarded with the Matcher.
type Matcher struct {
	table *grammar.RuleTable
	input string

	ruleCache map[ruleKey][]int
	nodeCache map[nodeKey][]int
	inFlight  map[ruleKey]bool

	classCache map[int]*regexp.Regexp
}

type ruleKey struct {
	name string
	pos  int
}

type nodeKey struct {
	id  int
	pos int
}

// NewMatcher builds a Matcher bound to a grammar and an input string.
func NewMatcher(table *grammar.RuleTable, input string) *Matcher {
	return &Matcher{
		table:      table,
		input:      input,
		ruleCache:  make(map[ruleKey][]int),
		nodeCache:  make(map[nodeKey][]int),
		inFlight:   make(map[ruleKey]bool),
		classCache: make(map[int]*regexp.Regexp),
	}
}

// ParsePrefix enumerates every prefix end position that startRule can
// match starting at byte offset 0, sorted ascending with duplicates
// removed.
func (m *Matcher) ParsePrefix(startRule string) []int {
	ends := m.matchRule(startRule, 0)
	return dedupSorted(ends)
}

// matchRule resolves a named rule at a position via the rule cache and
// an in-flight guard. A re-entrant call for the same (name, pos), which
// only occurs through pathological nesting since the grammars this
// parser targets are not left-recursive, returns an empty set instead
// of recursing forever.
func (m *Matcher) matchRule(name string, pos int) []int {
	key := ruleKey{name, pos}
	if cached, ok := m.ruleCache[key]; ok {
		return cached
	}
	if m.inFlight[key] {
		return nil
	}
	expr := m.table.Lookup(name)
	if expr == nil {
		return nil
	}
	m.inFlight[key] = true
	ends := m.matchExpr(expr, pos)
	delete(m.inFlight, key)

	ends = dedupSorted(ends)
	m.ruleCache[key] = ends
	return ends
}

// matchExpr computes the set of end positions an expression node can
// reach from pos, memoized by (node id, pos).
func (m *Matcher) matchExpr(e *grammar.Expr, pos int) []int {
	key := nodeKey{e.ID(), pos}
	if cached, ok := m.nodeCache[key]; ok {
		return cached
	}

	var result []int
	switch e.Kind {
	case grammar.ExprLiteral:
		if hasPrefixAt(m.input, pos, e.Literal) {
			result = []int{pos + len(e.Literal)}
		}
	case grammar.ExprCharClass:
		if end, ok := m.matchClassAt(e, pos); ok {
			result = []int{end}
		}
	case grammar.ExprRef:
		result = append(result, m.matchRule(e.RefName, pos)...)
	case grammar.ExprSequence:
		result = m.matchSequence(e.Items, pos)
	case grammar.ExprChoice:
		seen := make(map[int]bool)
		for _, alt := range e.Items {
			for _, end := range m.matchExpr(alt, pos) {
				if !seen[end] {
					seen[end] = true
					result = append(result, end)
				}
			}
		}
	case grammar.ExprRepeat:
		result = m.matchRepeat(e, pos)
	}

	result = dedupSorted(result)
	m.nodeCache[key] = result
	return result
}

// matchSequence accumulates reachable positions across sequence items,
// terminating early once the frontier empties.
func (m *Matcher) matchSequence(items []*grammar.Expr, pos int) []int {
	frontier := []int{pos}
	for _, item := range items {
		if len(frontier) == 0 {
			return nil
		}
		seen := make(map[int]bool)
		var next []int
		for _, p := range frontier {
			for _, end := range m.matchExpr(item, p) {
				if !seen[end] {
					seen[end] = true
					next = append(next, end)
				}
			}
		}
		frontier = next
	}
	return frontier
}

// matchRepeat implements the three repeat modes: "?" is pos plus
// match(item); "*" and "+" are a breadth-first closure over match(item)
// seeded with pos, with "+" removing pos from the result.
func (m *Matcher) matchRepeat(e *grammar.Expr, pos int) []int {
	if e.RepeatMode == grammar.RepeatOptional {
		out := []int{pos}
		out = append(out, m.matchExpr(e.Repeat, pos)...)
		return out
	}

	visited := map[int]bool{pos: true}
	frontier := []int{pos}
	for len(frontier) > 0 {
		var next []int
		for _, p := range frontier {
			for _, end := range m.matchExpr(e.Repeat, p) {
				if !visited[end] {
					visited[end] = true
					next = append(next, end)
				}
			}
		}
		frontier = next
	}

	out := make([]int, 0, len(visited))
	for p := range visited {
		if e.RepeatMode == grammar.RepeatPlus && p == pos {
			continue
		}
		out = append(out, p)
	}
	return out
}

// matchClassAt decodes one Unicode code unit at pos and tests it against
// the character class, compiled lazily and cached per node id (never
// mutating the shared, possibly-concurrently-used grammar.Expr).
func (m *Matcher) matchClassAt(e *grammar.Expr, pos int) (int, bool) {
	if pos >= len(m.input) {
		return 0, false
	}
	re, ok := m.classCache[e.ID()]
	if !ok {
		re = regexp.MustCompile(`^[` + e.Class + `]$`)
		m.classCache[e.ID()] = re
	}
	r, size := utf8.DecodeRuneInString(m.input[pos:])
	if r == utf8.RuneError && size <= 1 {
		return 0, false
	}
	if !re.MatchString(string(r)) {
		return 0, false
	}
	return pos + size, true
}

func hasPrefixAt(s string, pos int, prefix string) bool {
	if pos+len(prefix) > len(s) {
		return false
	}
	return s[pos:pos+len(prefix)] == prefix
}

func dedupSorted(in []int) []int {
	if len(in) == 0 {
		return nil
	}
	out := append([]int(nil), in...)
	sort.Ints(out)
	w := 1
	for r := 1; r < len(out); r++ {
		if out[r] != out[w-1] {
			out[w] = out[r]
			w++
		}
	}
	return out[:w]
}
