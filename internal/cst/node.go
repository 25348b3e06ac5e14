// Package cst is the memoized nondeterministic parser for amendatory
// instructions: prefix-match enumeration over a grammar.RuleTable,
// followed by greedy tree reconstruction toward a chosen end position,
// and the instruction driver that joins an instruction's lines and
// picks the longest candidate parse.
//
// Matching and reconstruction are split on purpose. The matcher only
// answers "which end positions can this rule reach from here",
// memoized by rule name and by node id; the rebuilder then derives one
// concrete tree toward the selected end, consulting those same caches.
package cst

// NodeKind discriminates the two CST node kinds.
type NodeKind int

const (
	NodeToken NodeKind = iota
	NodeRule
)

// Node is one node of a concrete syntax tree: a token (one matched
// literal or character-class run) or a rule invocation (a named
// production, with its children attached).
type Node struct {
	Kind     NodeKind
	Name     string // rule name, set only for NodeRule
	Start    int
	End      int
	Text     string  // set only for NodeToken
	Children []*Node // set only for NodeRule
}

// strippedRuleNames are rule invocations the instruction driver
// removes from the tree handed to downstream consumers; whitespace and
// the "preceding" keyword carry no information the translator needs
// beyond their presence.
var strippedRuleNames = map[string]bool{
	"sep":       true,
	"preceding": true,
}

// stripAuxiliaryNodes returns a copy of the tree with every "sep" and
// "preceding" rule node removed from wherever it appears.
func stripAuxiliaryNodes(n *Node) *Node {
	if n == nil {
		return nil
	}
	if n.Kind != NodeRule {
		return n
	}
	out := &Node{Kind: NodeRule, Name: n.Name, Start: n.Start, End: n.End}
	for _, c := range n.Children {
		if c.Kind == NodeRule && strippedRuleNames[c.Name] {
			continue
		}
		out.Children = append(out.Children, stripAuxiliaryNodes(c))
	}
	return out
}
