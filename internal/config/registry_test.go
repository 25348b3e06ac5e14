package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/coolbeans/amendlex/internal/grammar"
)

func writeGrammar(t *testing.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(source), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestRegistry_LoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeGrammar(t, dir, "instruction.bnf", grammar.DefaultSource)
	writeGrammar(t, dir, "variant.bnf", `start ::= "x"`)
	writeGrammar(t, dir, "ignored.yaml", "not: grammar")

	r, err := NewGrammarRegistryWithDirectory(dir)
	if err != nil {
		t.Fatalf("NewGrammarRegistryWithDirectory: %v", err)
	}
	names := r.List()
	if len(names) != 2 {
		t.Fatalf("names = %v, want [instruction variant]", names)
	}
	table, ok := r.Get("instruction")
	if !ok || !table.Has("instruction") {
		t.Fatalf("instruction grammar missing or incomplete")
	}
	if _, ok := r.Get("ignored"); ok {
		t.Fatal("non-.bnf file was registered")
	}
}

func TestRegistry_LoadDirectoryMissingIsEmpty(t *testing.T) {
	r, err := NewGrammarRegistryWithDirectory(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("missing directory should not error: %v", err)
	}
	if len(r.List()) != 0 {
		t.Fatalf("names = %v, want none", r.List())
	}
}

func TestRegistry_LoadDirectoryReportsBadGrammar(t *testing.T) {
	dir := t.TempDir()
	writeGrammar(t, dir, "bad.bnf", `a ::= missing_rule`)
	if _, err := NewGrammarRegistryWithDirectory(dir); err == nil {
		t.Fatal("want load error for a grammar with a dangling reference")
	}
}

func TestRegistry_Reload(t *testing.T) {
	dir := t.TempDir()
	path := writeGrammar(t, dir, "g.bnf", `start ::= "a"`)

	r, err := NewGrammarRegistryWithDirectory(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := os.WriteFile(path, []byte(`start ::= "a" "b"`), 0644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	table, ok := r.Get("g")
	if !ok {
		t.Fatal("grammar lost on reload")
	}
	if start := table.Lookup("start"); start.Kind != grammar.ExprSequence {
		t.Fatalf("reloaded rule = %+v, want the updated two-item sequence", start)
	}
}

func TestRegistry_ReloadWithoutDirectory(t *testing.T) {
	if err := NewGrammarRegistry().Reload(); err == nil {
		t.Fatal("want error when no directory was configured")
	}
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "amendlex.yaml")
	if err := os.WriteFile(path, []byte("grammarDir: ./grammars\ndefaultGrammar: variant\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if p.GrammarDir != "./grammars" || p.DefaultGrammar != "variant" {
		t.Fatalf("profile = %+v", p)
	}
}

func TestLoadProfile_DefaultGrammarName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "amendlex.yaml")
	if err := os.WriteFile(path, []byte("grammarDir: ./grammars\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if p.DefaultGrammar != "instruction" {
		t.Fatalf("default grammar = %q, want instruction", p.DefaultGrammar)
	}
}

func TestLoadProfile_MissingFile(t *testing.T) {
	if _, err := LoadProfile(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Fatal("want error for a missing profile")
	}
}
