package grammar

import (
	"strings"
)

// Load parses a grammar source text into a RuleTable. Each logical rule
// is "name ::= expression" with continuation lines consumed until the
// next "::=" or EOF.
//
// Load validates that every ref used in the grammar resolves to a
// declared rule; an unresolved ref is a grammar_parse_error, since a
// dangling reference would otherwise surface much later as a confusing
// CST-parser failure.
func Load(source string) (*RuleTable, error) {
	blocks, err := splitRuleBlocks(source)
	if err != nil {
		return nil, err
	}

	table := &RuleTable{rules: make(map[string]*Expr, len(blocks))}
	nextID := 0

	for _, b := range blocks {
		p := &exprParser{
			toks:    tokenize(b.body),
			ruleName: b.name,
			nextID:  &nextID,
		}
		expr, perr := p.parseExpr()
		if perr != nil {
			return nil, perr
		}
		if !p.atEnd() {
			return nil, &ParseError{Rule: b.name, Snippet: p.remainder(), Reason: "unexpected trailing tokens"}
		}
		table.rules[b.name] = expr
		table.order = append(table.order, b.name)
	}

	for name, expr := range table.rules {
		if err := validateRefs(name, expr, table); err != nil {
			return nil, err
		}
	}

	return table, nil
}

type ruleBlock struct {
	name string
	body string
}

// splitRuleBlocks splits the source into "name ::= body" blocks, joining
// continuation lines until the next "::=" or EOF.
func splitRuleBlocks(source string) ([]ruleBlock, error) {
	lines := strings.Split(source, "\n")

	type rawBlock struct {
		name      string
		bodyLines []string
	}
	var raw []rawBlock
	var current *rawBlock

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if idx := strings.Index(line, "::="); idx >= 0 {
			name := strings.TrimSpace(line[:idx])
			if name == "" {
				return nil, &ParseError{Snippet: line, Reason: "missing rule name before ::="}
			}
			if current != nil {
				raw = append(raw, *current)
			}
			current = &rawBlock{name: name}
			rest := strings.TrimSpace(line[idx+3:])
			if rest != "" {
				current.bodyLines = append(current.bodyLines, rest)
			}
			continue
		}
		if current == nil {
			return nil, &ParseError{Snippet: line, Reason: "continuation line before any rule declaration"}
		}
		current.bodyLines = append(current.bodyLines, trimmed)
	}
	if current != nil {
		raw = append(raw, *current)
	}

	out := make([]ruleBlock, 0, len(raw))
	for _, r := range raw {
		body := strings.TrimSpace(strings.Join(r.bodyLines, " "))
		if body == "" {
			return nil, &ParseError{Rule: r.name, Reason: "empty expression for rule"}
		}
		out = append(out, ruleBlock{name: r.name, body: body})
	}
	return out, nil
}

func validateRefs(ruleName string, e *Expr, table *RuleTable) error {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case ExprRef:
		if !table.Has(e.RefName) {
			return &ParseError{Rule: ruleName, Snippet: e.RefName, Reason: "reference to unknown rule"}
		}
	case ExprSequence, ExprChoice:
		for _, item := range e.Items {
			if err := validateRefs(ruleName, item, table); err != nil {
				return err
			}
		}
	case ExprRepeat:
		if err := validateRefs(ruleName, e.Repeat, table); err != nil {
			return err
		}
	}
	return nil
}
