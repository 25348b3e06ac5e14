// Package config holds amendlex's declarative configuration: a
// hot-reloading registry of named grammar sources, and the YAML CLI
// profile the cobra surface loads flags and defaults from.
//
// The registry keeps one *grammar.RuleTable per named `.bnf` file in a
// directory, rebuilt whenever fsnotify reports that file changed on
// disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/fsnotify.v1"

	"github.com/coolbeans/amendlex/internal/grammar"
)

// GrammarRegistry manages a collection of named grammar rule tables,
// each loaded from its own `.bnf` source file.
type GrammarRegistry struct {
	mu       sync.RWMutex
	tables   map[string]*grammar.RuleTable
	dir      string
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	onChange func(event, name string)
}

// NewGrammarRegistry creates an empty registry.
func NewGrammarRegistry() *GrammarRegistry {
	return &GrammarRegistry{tables: make(map[string]*grammar.RuleTable)}
}

// NewGrammarRegistryWithDirectory creates a registry and loads every
// `.bnf` file in dir.
func NewGrammarRegistryWithDirectory(dir string) (*GrammarRegistry, error) {
	r := NewGrammarRegistry()
	if err := r.LoadDirectory(dir); err != nil {
		return nil, err
	}
	return r, nil
}

// Get returns the rule table registered under name.
func (r *GrammarRegistry) Get(name string) (*grammar.RuleTable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[name]
	return t, ok
}

// List returns every registered grammar name.
func (r *GrammarRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tables))
	for n := range r.tables {
		names = append(names, n)
	}
	return names
}

// LoadDirectory loads every `.bnf` file in dir, registering each under
// its base name with the extension stripped.
func (r *GrammarRegistry) LoadDirectory(dir string) error {
	r.dir = dir

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checking directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var loadErrors []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".bnf") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := r.LoadFile(path); err != nil {
			loadErrors = append(loadErrors, fmt.Sprintf("%s: %v", entry.Name(), err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("errors loading grammars: %s", strings.Join(loadErrors, "; "))
	}
	return nil
}

// LoadFile loads and registers a single `.bnf` grammar file.
func (r *GrammarRegistry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	table, err := grammar.Load(string(data))
	if err != nil {
		return fmt.Errorf("loading grammar %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), ".bnf")
	r.mu.Lock()
	r.tables[name] = table
	r.mu.Unlock()
	return nil
}

// Reload clears the registry and reloads every grammar from the
// configured directory.
func (r *GrammarRegistry) Reload() error {
	if r.dir == "" {
		return fmt.Errorf("no directory configured for reload")
	}
	r.mu.Lock()
	r.tables = make(map[string]*grammar.RuleTable)
	r.mu.Unlock()
	return r.LoadDirectory(r.dir)
}

// SetOnChange sets a callback invoked after each hot-reload event.
func (r *GrammarRegistry) SetOnChange(fn func(event, name string)) {
	r.onChange = fn
}

// Watch starts watching the registry's directory for `.bnf` changes.
func (r *GrammarRegistry) Watch() error {
	if r.dir == "" {
		return fmt.Errorf("no directory configured for watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	r.watcher = watcher
	r.stopChan = make(chan struct{})
	go r.watchLoop()

	if err := watcher.Add(r.dir); err != nil {
		r.watcher.Close()
		return fmt.Errorf("watching directory %s: %w", r.dir, err)
	}
	return nil
}

func (r *GrammarRegistry) watchLoop() {
	for {
		select {
		case <-r.stopChan:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".bnf") {
				continue
			}
			switch {
			case event.Op&fsnotify.Create == fsnotify.Create, event.Op&fsnotify.Write == fsnotify.Write:
				r.handleFileChange(event.Name)
			case event.Op&fsnotify.Remove == fsnotify.Remove, event.Op&fsnotify.Rename == fsnotify.Rename:
				r.handleFileRemove(event.Name)
			}
		case _, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (r *GrammarRegistry) handleFileChange(path string) {
	if err := r.LoadFile(path); err != nil {
		return
	}
	if r.onChange != nil {
		name := strings.TrimSuffix(filepath.Base(path), ".bnf")
		r.onChange("modify", name)
	}
}

func (r *GrammarRegistry) handleFileRemove(path string) {
	name := strings.TrimSuffix(filepath.Base(path), ".bnf")
	r.mu.Lock()
	delete(r.tables, name)
	r.mu.Unlock()
	if r.onChange != nil {
		r.onChange("remove", name)
	}
}

// StopWatch stops the filesystem watcher, if one was started.
func (r *GrammarRegistry) StopWatch() {
	if r.stopChan != nil {
		close(r.stopChan)
	}
	if r.watcher != nil {
		r.watcher.Close()
	}
}
