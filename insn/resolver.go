package insn

import (
	"errors"
	"fmt"
)

// ErrFileNotFound is returned by resolvers that have no sequence for a
// logical filename.
var ErrFileNotFound = errors.New("file not found")

// Resolver supplies the instruction sequence of a file named by load_file.
type Resolver interface {
	Resolve(filename string) (*Sequence, error)
}

// Files is a Resolver backed by a map of logical filenames.
type Files map[string]*Sequence

func (f Files) Resolve(filename string) (*Sequence, error) {
	seq, ok := f[filename]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, filename)
	}
	return seq, nil
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(filename string) (*Sequence, error)

func (fn ResolverFunc) Resolve(filename string) (*Sequence, error) { return fn(filename) }
