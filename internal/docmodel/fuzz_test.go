package docmodel

import "testing"

// FuzzBuild asserts the document model invariants hold for arbitrary
// Markdown input: the builder never panics, the offset map is monotone
// and lands exactly on len(plainText), and structural node ranges nest.
func FuzzBuild(f *testing.F) {
	f.Add("(a) First.\n\n(b) Second.\n")
	f.Add("> (1) Quoted paragraph.\n")
	f.Add("# Heading\n\nBody **bold** _em_ `code` [l](http://x) ~~gone~~.\n")
	f.Add("| a | b |\n|---|---|\n| 1 | 2 |\n")
	f.Add("")
	f.Add("(a)(1)(A) compound marker chain\n")

	f.Fuzz(func(t *testing.T, source string) {
		m, err := Build(source)
		if err != nil {
			return
		}

		if len(m.SourceToPlainOffsets) != len(source)+1 {
			t.Fatalf("offset map length = %d, want %d", len(m.SourceToPlainOffsets), len(source)+1)
		}
		prev := 0
		for i, off := range m.SourceToPlainOffsets {
			if off < prev {
				t.Fatalf("offset map not monotone at %d", i)
			}
			if off > len(m.PlainText) {
				t.Fatalf("offset map exceeds plain text at %d", i)
			}
			prev = off
		}
		if m.SourceToPlainOffsets[len(source)] != len(m.PlainText) {
			t.Fatalf("final offset %d != plain length %d", m.SourceToPlainOffsets[len(source)], len(m.PlainText))
		}

		for id, n := range m.NodesByID {
			if n.Start < 0 || n.End > len(m.PlainText) || n.Start > n.End {
				t.Fatalf("node %s range [%d,%d) out of bounds", id, n.Start, n.End)
			}
			for _, cid := range n.ChildIDs {
				c := m.NodesByID[cid]
				if c == nil {
					t.Fatalf("node %s references missing child %s", id, cid)
				}
				if c.Start < n.Start || c.End > n.End {
					t.Fatalf("child %s [%d,%d) escapes parent %s [%d,%d)", cid, c.Start, c.End, id, n.Start, n.End)
				}
			}
		}

		for _, s := range m.Spans {
			if s.Start < 0 || s.End > len(m.PlainText) || s.Start > s.End {
				t.Fatalf("span %+v out of bounds", s)
			}
		}
	})
}
