package config

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/chazu/garnet/bytecode"
	"github.com/chazu/garnet/insn"
)

// Resolver loads the bytecode files named in [load] on first use.
type Resolver struct {
	config *Config

	mu     sync.Mutex
	loaded map[string]*insn.Sequence
}

// NewResolver creates a resolver for the files of c.
func NewResolver(c *Config) *Resolver {
	return &Resolver{
		config: c,
		loaded: make(map[string]*insn.Sequence),
	}
}

// Resolve returns the sequence of the logical filename. Every call returns
// a fresh cursor over the decoded instructions.
func (r *Resolver) Resolve(filename string) (*insn.Sequence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if seq, ok := r.loaded[filename]; ok {
		return seq.Clone(), nil
	}

	file, ok := r.config.Load.Files[filename]
	if !ok {
		return nil, fmt.Errorf("%w: %s", insn.ErrFileNotFound, filename)
	}
	path := r.config.Path(file)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", filename, err)
	}
	defer f.Close()

	seq, err := bytecode.Load(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s from %s: %w", filename, path, err)
	}
	r.loaded[filename] = seq
	return seq.Clone(), nil
}

// Files returns the logical filenames the resolver knows about, sorted.
func (r *Resolver) Files() []string {
	names := make([]string, 0, len(r.config.Load.Files))
	for name := range r.config.Load.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
