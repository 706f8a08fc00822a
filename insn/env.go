package insn

import "fmt"

// EnvKind classifies a lexical scope.
type EnvKind uint8

const (
	EnvTop EnvKind = iota
	EnvMethod
	EnvBlock
	EnvClass
)

func (k EnvKind) String() string {
	switch k {
	case EnvTop:
		return "top"
	case EnvMethod:
		return "method"
	case EnvBlock:
		return "block"
	case EnvClass:
		return "class"
	}
	return fmt.Sprintf("EnvKind(%d)", uint8(k))
}

// Var is a declared local variable.
type Var struct {
	Name  string
	Index int
}

// Env describes one lexical scope: its variables, whether lookups pass
// straight through it (Hoist), and its enclosing scope.
type Env struct {
	Kind  EnvKind
	Vars  map[string]Var
	Hoist bool
	Outer *Env

	slots int
}

// NewEnv creates an empty scope of the given kind inside outer.
func NewEnv(kind EnvKind, outer *Env) *Env {
	return &Env{Kind: kind, Vars: make(map[string]Var), Outer: outer}
}

// NewHoistEnv creates a pass-through scope. Variables declared in it land in
// the nearest enclosing scope that is not hoisting.
func NewHoistEnv(outer *Env) *Env {
	e := NewEnv(EnvBlock, outer)
	e.Hoist = true
	return e
}

// Owner returns the scope that holds storage for e: e itself, or the first
// non-hoisting scope outside it.
func (e *Env) Owner() *Env {
	for e.Hoist && e.Outer != nil {
		e = e.Outer
	}
	return e
}

// Declare returns the variable name in the owning scope, adding it with the
// next free slot index if needed.
func (e *Env) Declare(name string) Var {
	e = e.Owner()
	if v, ok := e.Vars[name]; ok {
		return v
	}
	if e.Vars == nil {
		e.Vars = make(map[string]Var)
	}
	v := Var{Name: name, Index: e.slots}
	e.slots++
	e.Vars[name] = v
	return v
}

// Slots returns the number of variables stored in e.
func (e *Env) Slots() int { return e.slots }

// FindVar resolves name starting at env. Hoisting scopes are skipped without
// counting a hop. Only block scopes continue the search outward; each such
// step adds one to depth. With localOnly the search stops after the first
// owning scope.
func FindVar(env *Env, name string, localOnly bool) (depth int, v Var, err error) {
	for env != nil {
		env = env.Owner()
		if v, ok := env.Vars[name]; ok {
			return depth, v, nil
		}
		if localOnly || env.Kind != EnvBlock || env.Outer == nil {
			break
		}
		env = env.Outer
		depth++
	}
	return 0, Var{}, fmt.Errorf("%w %s", ErrUnknownVariable, name)
}
