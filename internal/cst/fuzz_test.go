package cst

import (
	"testing"

	"github.com/coolbeans/amendlex/internal/grammar"
)

// FuzzParseInstructionFromLines asserts the parser never panics and that
// any parse it does produce stays inside the joined input buffer.
func FuzzParseInstructionFromLines(f *testing.F) {
	table, err := grammar.Default()
	if err != nil {
		f.Fatalf("grammar.Default: %v", err)
	}

	f.Add(`This section is amended by striking "old" and inserting "new".`)
	f.Add(`Section 5(e)(6) of the Food and Nutrition Act is amended by striking "x".`)
	f.Add(`Subsection (a) is amended by adding at the end the following: "(1) New item.".`)
	f.Add("Section ")
	f.Add("")
	f.Add("\"unterminated quote")

	f.Fuzz(func(t *testing.T, line string) {
		parsed := ParseInstructionFromLines(table, []string{line}, 0, nil)
		if parsed == nil {
			return
		}
		if parsed.ParseOffset < 0 || parsed.ParseOffset > len(line) {
			t.Fatalf("ParseOffset %d out of range for input of length %d", parsed.ParseOffset, len(line))
		}
		if parsed.ParseOffset+len(parsed.MatchedText) > len(line) {
			t.Fatalf("matched text [%d,+%d) exceeds input length %d", parsed.ParseOffset, len(parsed.MatchedText), len(line))
		}
		if parsed.AST == nil {
			t.Fatal("non-nil parse with nil AST")
		}
	})
}
