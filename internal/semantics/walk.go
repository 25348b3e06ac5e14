package semantics

import (
	"strings"

	"github.com/coolbeans/amendlex/internal/cst"
)

// childByName returns the first direct rule-kind child named name, or nil.
func childByName(n *cst.Node, name string) *cst.Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Kind == cst.NodeRule && c.Name == name {
			return c
		}
	}
	return nil
}

// childrenByName returns every direct rule-kind child named name, in
// encounter order.
func childrenByName(n *cst.Node, name string) []*cst.Node {
	if n == nil {
		return nil
	}
	var out []*cst.Node
	for _, c := range n.Children {
		if c.Kind == cst.NodeRule && c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// soleRuleChild returns the first rule-kind child, for productions that
// are a bare choice of refs (each alternative materializes as exactly one
// rule-kind child).
func soleRuleChild(n *cst.Node) *cst.Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Kind == cst.NodeRule {
			return c
		}
	}
	return nil
}

// hasTokenText reports whether n has a direct token child with the given
// text.
func hasTokenText(n *cst.Node, text string) bool {
	if n == nil {
		return false
	}
	for _, c := range n.Children {
		if c.Kind == cst.NodeToken && c.Text == text {
			return true
		}
	}
	return false
}

// leafText concatenates every token leaf under n, in order, reproducing
// the exact substring n matched (modulo sep/preceding nodes the CST
// driver already stripped).
func leafText(n *cst.Node) string {
	if n == nil {
		return ""
	}
	if n.Kind == cst.NodeToken {
		return n.Text
	}
	var sb strings.Builder
	for _, c := range n.Children {
		sb.WriteString(leafText(c))
	}
	return sb.String()
}

// quotedContent returns the text between a quoted_text node's opening and
// closing quote tokens.
func quotedContent(n *cst.Node) string {
	if n == nil || len(n.Children) < 2 {
		return ""
	}
	var sb strings.Builder
	for _, c := range n.Children[1 : len(n.Children)-1] {
		sb.WriteString(leafText(c))
	}
	return sb.String()
}
