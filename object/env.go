package object

import (
	"fmt"
	"strings"
)

// Env is the execution context of one call: the method or block being run,
// its indexed local variables, the lexically enclosing context (for
// blocks) and the calling context (for backtraces).
type Env struct {
	rt     *Runtime
	caller *Env
	outer  *Env
	vars   []Value
	file   string
	line   int
	method *Method
	block  *Proc
	label  string
}

func (e *Env) Runtime() *Runtime { return e.rt }
func (e *Env) Block() *Proc      { return e.block }
func (e *Env) Method() *Method   { return e.method }
func (e *Env) Outer() *Env       { return e.outer }
func (e *Env) File() string      { return e.file }
func (e *Env) Line() int         { return e.line }

func (e *Env) SetFile(file string) { e.file = file }
func (e *Env) SetLine(line int)    { e.line = line }

// Intern returns the symbol for name.
func (e *Env) Intern(name string) Symbol { return Symbol(name) }

// VarGet reads local slot index of the context depth hops outward.
func (e *Env) VarGet(depth, index int) Value {
	env := e.hop(depth)
	if index < len(env.vars) && env.vars[index] != nil {
		return env.vars[index]
	}
	return Nil
}

// VarSet writes local slot index of the context depth hops outward.
func (e *Env) VarSet(depth, index int, v Value) {
	env := e.hop(depth)
	for len(env.vars) <= index {
		env.vars = append(env.vars, Nil)
	}
	env.vars[index] = v
}

func (e *Env) hop(depth int) *Env {
	env := e
	for ; depth > 0 && env.outer != nil; depth-- {
		env = env.outer
	}
	return env
}

// child creates the context for calling m.
func (e *Env) child(m *Method, block *Proc) *Env {
	return &Env{rt: e.rt, caller: e, file: e.file, line: e.line, method: m, block: block}
}

// Child creates a nested top-level-like context, used for class bodies and
// file bodies.
func (e *Env) Child(label string) *Env {
	return &Env{rt: e.rt, caller: e, file: e.file, line: e.line, label: label}
}

// Backtrace lists the call sites from e outward.
func (e *Env) Backtrace() []string {
	var out []string
	for env := e; env != nil; env = env.caller {
		out = append(out, fmt.Sprintf("%s:%d:in '%s'", env.file, env.line, env.frameLabel()))
	}
	return out
}

func (e *Env) frameLabel() string {
	switch {
	case e.label != "":
		return e.label
	case e.method != nil && e.outer != nil:
		return "block in " + e.method.Name
	case e.method != nil:
		return e.method.Name
	case e.outer != nil:
		return "block in <main>"
	}
	return "<main>"
}

// ---------------------------------------------------------------------------
// Raising
// ---------------------------------------------------------------------------

// Raise builds an exception of class c with a formatted message, filling in
// the backtrace from e.
func (e *Env) Raise(c *Class, format string, args ...any) error {
	exc := NewException(c, fmt.Sprintf(format, args...))
	exc.Backtrace = e.Backtrace()
	return exc
}

// RaiseValue raises v like Kernel#raise: an exception instance, an
// exception class, or a message for RuntimeError.
func (e *Env) RaiseValue(v Value, message Value) error {
	switch v := v.(type) {
	case *Exception:
		if v.Backtrace == nil {
			v.Backtrace = e.Backtrace()
		}
		return v
	case *Class:
		if !v.IsSubclassOf(e.rt.Exception) {
			return e.Raise(e.rt.TypeError, "exception class/object expected")
		}
		args := []Value{}
		if message != nil {
			args = append(args, message)
		}
		obj, err := e.Send(v, "new", args, nil)
		if err != nil {
			return err
		}
		return e.RaiseValue(obj, nil)
	case *String:
		return e.Raise(e.rt.RuntimeError, "%s", v.value)
	}
	return e.Raise(e.rt.TypeError, "exception class/object expected")
}

// BreakOut raises the LocalJumpError that carries a break out of a block.
func (e *Env) BreakOut(point int, v Value) error {
	exc := NewException(e.rt.LocalJumpError, "break from proc-closure")
	exc.BreakPoint = point
	exc.ExitValue = v
	exc.Backtrace = e.Backtrace()
	return exc
}

// MatchException reports whether exc is an instance of the class (or any
// class in the array) classes. Breaks never match.
func (e *Env) MatchException(exc *Exception, classes Value) (Value, error) {
	if exc == nil || exc.BreakPoint != 0 {
		return False, nil
	}
	var list []Value
	switch c := classes.(type) {
	case *Array:
		list = c.Elems
	default:
		list = []Value{c}
	}
	for _, c := range list {
		cls, ok := c.(*Class)
		if !ok {
			return nil, e.Raise(e.rt.TypeError, "class or module required for rescue clause")
		}
		if exc.IsA(cls) {
			return True, nil
		}
	}
	return False, nil
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// Send calls name on recv from a context where private methods are visible.
func (e *Env) Send(recv Value, name Symbol, args []Value, block *Proc) (Value, error) {
	return e.send(recv, string(name), args, block, true)
}

// PublicSend calls name on recv with an explicit receiver.
func (e *Env) PublicSend(recv Value, name Symbol, args []Value, block *Proc) (Value, error) {
	return e.send(recv, string(name), args, block, false)
}

func (e *Env) send(recv Value, name string, args []Value, block *Proc, private bool) (Value, error) {
	cls := e.rt.dispatchClass(recv)
	m := cls.FindMethod(name)
	if m == nil {
		return nil, e.noMethod(recv, name, private)
	}
	if m.Private && !private {
		desc, _ := e.describe(recv)
		return nil, e.Raise(e.rt.NoMethodError, "private method '%s' called for %s", name, desc)
	}
	return e.Invoke(m, recv, args, block)
}

// Invoke calls m with recv as self.
func (e *Env) Invoke(m *Method, recv Value, args []Value, block *Proc) (Value, error) {
	if m.Arity >= 0 && len(args) != m.Arity {
		return nil, e.Raise(e.rt.ArgumentError, "wrong number of arguments (given %d, expected %d)", len(args), m.Arity)
	}
	return m.Fn(e.child(m, block), recv, args, block)
}

func (e *Env) noMethod(recv Value, name string, private bool) error {
	desc, _ := e.describe(recv)
	if private && len(name) > 0 && recv == e.rt.Main {
		return e.Raise(e.rt.NameError, "undefined local variable or method '%s' for %s", name, desc)
	}
	return e.Raise(e.rt.NoMethodError, "undefined method '%s' for %s", name, desc)
}

func (e *Env) describe(v Value) (string, error) {
	switch v := v.(type) {
	case nilValue:
		return "nil", nil
	case Boolean:
		if v {
			return "true", nil
		}
		return "false", nil
	case *Class:
		kind := "class"
		if v.module {
			kind = "module"
		}
		return kind + " " + v.Name(), nil
	}
	if v == e.rt.Main {
		return "main:Object", nil
	}
	return "an instance of " + e.rt.ClassOf(v).Name(), nil
}

// RespondTo reports whether recv has a public method name.
func (e *Env) RespondTo(recv Value, name string, includePrivate bool) bool {
	m := e.rt.dispatchClass(recv).FindMethod(name)
	return m != nil && (includePrivate || !m.Private)
}

// Super calls the next implementation of the current method.
func (e *Env) Super(self Value, args []Value, block *Proc) (Value, error) {
	m := e.method
	if m == nil {
		return nil, e.Raise(e.rt.RuntimeError, "super called outside of method")
	}
	next := e.rt.dispatchClass(self).superMethod(m.Owner, m.Name)
	if next == nil {
		desc, _ := e.describe(self)
		return nil, e.Raise(e.rt.NoMethodError, "super: no superclass method '%s' for %s", m.Name, desc)
	}
	return e.Invoke(next, self, args, block)
}

// Yield calls the current block.
func (e *Env) Yield(args []Value) (Value, error) {
	if e.block == nil {
		return nil, e.Raise(e.rt.LocalJumpError, "no block given (yield)")
	}
	return e.block.Call(e, args...)
}

// NewBlock closes fn over e.
func (e *Env) NewBlock(self Value, fn MethodFn, arity int) *Proc {
	return &Proc{Fn: fn, Self: self, Arity: arity, env: e}
}

// Call runs the proc from the calling context caller.
func (p *Proc) Call(caller *Env, args ...Value) (Value, error) {
	if p.Lambda && p.Arity >= 0 && len(args) != p.Arity {
		return nil, caller.Raise(caller.rt.ArgumentError, "wrong number of arguments (given %d, expected %d)", len(args), p.Arity)
	}
	env := &Env{rt: caller.rt, caller: caller, outer: p.env, file: caller.file, line: caller.line}
	if p.env != nil {
		env.method = p.env.method
		env.block = p.env.block
	}
	return p.Fn(env, p.Self, args, nil)
}

// ToBlock converts a value passed with & into a block.
func (e *Env) ToBlock(v Value) (*Proc, error) {
	switch v := v.(type) {
	case nil, nilValue:
		return nil, nil
	case *Proc:
		return v, nil
	case Symbol:
		return symbolProc(v), nil
	}
	desc, _ := e.describe(v)
	return nil, e.Raise(e.rt.TypeError, "wrong argument type %s (expected Proc)", desc)
}

func symbolProc(name Symbol) *Proc {
	return &Proc{Arity: -1, Fn: func(env *Env, _ Value, args []Value, blk *Proc) (Value, error) {
		if len(args) == 0 {
			return nil, env.Raise(env.rt.ArgumentError, "no receiver given")
		}
		return env.PublicSend(args[0], name, args[1:], blk)
	}}
}

// BlockValue returns the block as a value, or nil.
func BlockValue(p *Proc) Value {
	if p == nil {
		return Nil
	}
	return p
}

// ToLambda marks a block as a lambda.
func (e *Env) ToLambda(v Value) (Value, error) {
	p, ok := v.(*Proc)
	if !ok {
		return nil, e.Raise(e.rt.TypeError, "expected a block")
	}
	l := *p
	l.Lambda = true
	return &l, nil
}

// ---------------------------------------------------------------------------
// Arguments
// ---------------------------------------------------------------------------

// Arg returns argument i or nil.
func Arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Nil
}

// Args returns all arguments as an array. For blocks expecting at least
// two parameters, a single array argument is spread.
func Args(args []Value, forBlock bool, minCount int) *Array {
	if forBlock && minCount > 1 && len(args) == 1 {
		if a, ok := args[0].(*Array); ok {
			return NewArray(a.Elems...)
		}
	}
	return NewArray(args...)
}

// SplatArgs converts an args array from the stack into an argument list.
func SplatArgs(v Value) []Value {
	if a, ok := v.(*Array); ok {
		out := make([]Value, len(a.Elems))
		copy(out, a.Elems)
		return out
	}
	if IsNil(v) {
		return nil
	}
	return []Value{v}
}

// KeywordArgs returns a copy of the keyword hash passed as the last
// argument, or an empty hash.
func KeywordArgs(args []Value) *Hash {
	if n := len(args); n > 0 {
		if h, ok := args[n-1].(*Hash); ok && h.keywords {
			return h.Dup()
		}
	}
	return NewHash()
}

// MarkKeywords flags the final argument as a keyword hash.
func MarkKeywords(args []Value) []Value {
	if n := len(args); n > 0 {
		if h, ok := args[n-1].(*Hash); ok {
			k := h.Dup()
			k.keywords = true
			args[n-1] = k
		}
	}
	return args
}

func positional(args []Value) int {
	if n := len(args); n > 0 {
		if h, ok := args[n-1].(*Hash); ok && h.keywords {
			return n - 1
		}
	}
	return len(args)
}

// CheckArgs raises ArgumentError unless the positional argument count is
// within [min, max]; max < 0 is unbounded.
func (e *Env) CheckArgs(args []Value, min, max int) error {
	n := positional(args)
	if n >= min && (max < 0 || n <= max) {
		return nil
	}
	expected := fmt.Sprintf("%d", min)
	switch {
	case max < 0:
		expected += "+"
	case max != min:
		expected = fmt.Sprintf("%d..%d", min, max)
	}
	return e.Raise(e.rt.ArgumentError, "wrong number of arguments (given %d, expected %s)", n, expected)
}

// CheckRequiredKeywords raises ArgumentError listing the names missing
// from kwargs.
func (e *Env) CheckRequiredKeywords(kwargs Value, names ...string) error {
	h, ok := kwargs.(*Hash)
	if !ok {
		h = NewHash()
	}
	var missing []string
	for _, name := range names {
		if _, ok := h.Get(Symbol(name)); !ok {
			missing = append(missing, ":"+name)
		}
	}
	switch len(missing) {
	case 0:
		return nil
	case 1:
		return e.Raise(e.rt.ArgumentError, "missing keyword: %s", missing[0])
	}
	return e.Raise(e.rt.ArgumentError, "missing keywords: %s", strings.Join(missing, ", "))
}

// CheckExtraKeywords raises ArgumentError if kwargs is not empty.
func (e *Env) CheckExtraKeywords(kwargs Value) error {
	h, ok := kwargs.(*Hash)
	if !ok || h.Len() == 0 {
		return nil
	}
	var names []string
	for _, k := range h.keys {
		s, _ := e.Inspect(k)
		names = append(names, s)
	}
	if len(names) == 1 {
		return e.Raise(e.rt.ArgumentError, "unknown keyword: %s", names[0])
	}
	return e.Raise(e.rt.ArgumentError, "unknown keywords: %s", strings.Join(names, ", "))
}
