package object

import (
	"io"
	"os"
)

// Runtime owns the class hierarchy and the process-wide state of one
// program. Execution contexts running against the same Runtime must not
// run concurrently.
type Runtime struct {
	BasicObjectClass *Class
	ObjectClass      *Class
	ModuleClass      *Class
	ClassClass       *Class
	KernelModule     *Class
	ComparableModule *Class
	NilClass         *Class
	TrueClass        *Class
	FalseClass       *Class
	NumericClass     *Class
	IntegerClass     *Class
	FloatClass       *Class
	StringClass      *Class
	SymbolClass      *Class
	ArrayClass       *Class
	HashClass        *Class
	RangeClass       *Class
	ProcClass        *Class
	RationalClass    *Class
	ComplexClass     *Class
	RegexpClass      *Class
	MatchDataClass   *Class

	Exception           *Class
	ScriptError         *Class
	NotImplementedError *Class
	StandardError       *Class
	RuntimeError        *Class
	FrozenError         *Class
	ArgumentError       *Class
	NameError           *Class
	NoMethodError       *Class
	TypeError           *Class
	ZeroDivisionError   *Class
	LocalJumpError      *Class
	IndexError          *Class
	KeyError            *Class
	StopIteration       *Class

	// Main is self at the top level.
	Main *Object
	// Stdout receives Kernel output.
	Stdout io.Writer

	globals       map[string]Value
	globalAliases map[string]string
	loaded        map[string]bool
	interned      []*String
	lastMatch     Value
	objectIDs     map[Value]int64
	nextID        int64
}

// NewRuntime boots a runtime writing program output to stdout.
func NewRuntime(stdout io.Writer) *Runtime {
	if stdout == nil {
		stdout = os.Stdout
	}
	rt := &Runtime{
		Stdout:        stdout,
		globals:       make(map[string]Value),
		globalAliases: make(map[string]string),
		loaded:        make(map[string]bool),
		lastMatch:     Nil,
		objectIDs:     make(map[Value]int64),
		nextID:        8,
	}
	rt.boot()
	return rt
}

func (rt *Runtime) boot() {
	rt.BasicObjectClass = newClass("BasicObject", nil, false)
	rt.ObjectClass = newClass("Object", rt.BasicObjectClass, false)
	rt.ModuleClass = newClass("Module", rt.ObjectClass, false)
	rt.ClassClass = newClass("Class", rt.ModuleClass, false)
	for _, c := range []*Class{rt.BasicObjectClass, rt.ObjectClass, rt.ModuleClass, rt.ClassClass} {
		rt.ObjectClass.SetConst(c.name, c)
	}
	rt.KernelModule = rt.defineModule("Kernel")
	rt.ObjectClass.Include(rt.KernelModule)
	rt.ComparableModule = rt.defineModule("Comparable")

	rt.NilClass = rt.defineClass("NilClass", rt.ObjectClass)
	rt.TrueClass = rt.defineClass("TrueClass", rt.ObjectClass)
	rt.FalseClass = rt.defineClass("FalseClass", rt.ObjectClass)
	rt.NumericClass = rt.defineClass("Numeric", rt.ObjectClass)
	rt.NumericClass.Include(rt.ComparableModule)
	rt.IntegerClass = rt.defineClass("Integer", rt.NumericClass)
	rt.FloatClass = rt.defineClass("Float", rt.NumericClass)
	rt.RationalClass = rt.defineClass("Rational", rt.NumericClass)
	rt.ComplexClass = rt.defineClass("Complex", rt.NumericClass)
	rt.StringClass = rt.defineClass("String", rt.ObjectClass)
	rt.StringClass.Include(rt.ComparableModule)
	rt.SymbolClass = rt.defineClass("Symbol", rt.ObjectClass)
	rt.ArrayClass = rt.defineClass("Array", rt.ObjectClass)
	rt.HashClass = rt.defineClass("Hash", rt.ObjectClass)
	rt.RangeClass = rt.defineClass("Range", rt.ObjectClass)
	rt.ProcClass = rt.defineClass("Proc", rt.ObjectClass)
	rt.RegexpClass = rt.defineClass("Regexp", rt.ObjectClass)
	rt.MatchDataClass = rt.defineClass("MatchData", rt.ObjectClass)

	rt.Main = &Object{class: rt.ObjectClass, ivars: map[string]Value{}}

	rt.bootExceptions()
	rt.bootKernel()
	rt.bootModule()
	rt.bootComparable()
	rt.bootNil()
	rt.bootNumeric()
	rt.bootString()
	rt.bootSymbol()
	rt.bootArray()
	rt.bootHash()
	rt.bootRange()
	rt.bootProc()
	rt.bootRegexp()

	rt.globals["$,"] = Nil
	rt.globals["$/"] = NewFrozenString("\n", "UTF-8")
}

func (rt *Runtime) defineClass(name string, super *Class) *Class {
	c := newClass(name, super, false)
	rt.ObjectClass.SetConst(name, c)
	return c
}

func (rt *Runtime) defineModule(name string) *Class {
	c := newClass(name, nil, true)
	rt.ObjectClass.SetConst(name, c)
	return c
}

// NewClass creates an anonymous class.
func (rt *Runtime) NewClass(super *Class) *Class {
	if super == nil {
		super = rt.ObjectClass
	}
	return newClass("", super, false)
}

// NewModule creates an anonymous module.
func (rt *Runtime) NewModule() *Class {
	return newClass("", nil, true)
}

// ClassOf returns the class of v, ignoring singleton classes.
func (rt *Runtime) ClassOf(v Value) *Class {
	switch v := v.(type) {
	case nilValue, nil:
		return rt.NilClass
	case Boolean:
		if v {
			return rt.TrueClass
		}
		return rt.FalseClass
	case Integer:
		return rt.IntegerClass
	case Float:
		return rt.FloatClass
	case Symbol:
		return rt.SymbolClass
	case Complex:
		return rt.ComplexClass
	case *String:
		return rt.StringClass
	case *Array:
		return rt.ArrayClass
	case *Hash:
		return rt.HashClass
	case *Range:
		return rt.RangeClass
	case *Rational:
		return rt.RationalClass
	case *Regexp:
		return rt.RegexpClass
	case *MatchData:
		return rt.MatchDataClass
	case *Object:
		return v.class
	case *Class:
		if v.module {
			return rt.ModuleClass
		}
		return rt.ClassClass
	case *Proc:
		return rt.ProcClass
	case *Exception:
		return v.class
	}
	return rt.ObjectClass
}

// dispatchClass returns the class where method lookup for v starts.
func (rt *Runtime) dispatchClass(v Value) *Class {
	switch v := v.(type) {
	case *Object:
		if v.singleton != nil {
			return v.singleton
		}
	case *Class:
		return rt.singletonOf(v)
	}
	return rt.ClassOf(v)
}

// singletonOf returns (creating on demand) the singleton class of a class
// or module. A class's singleton inherits from its superclass's singleton.
func (rt *Runtime) singletonOf(c *Class) *Class {
	if c.singleton != nil {
		return c.singleton
	}
	var super *Class
	switch {
	case c.attached != nil:
		super = rt.ClassClass
	case c.module:
		super = rt.ModuleClass
	case c.super != nil:
		super = rt.singletonOf(c.super)
	default:
		super = rt.ClassClass
	}
	meta := newClass("", super, false)
	meta.attached = c
	c.singleton = meta
	return meta
}

// Global returns a global variable, or nil.
func (rt *Runtime) Global(name string) Value {
	if alias, ok := rt.globalAliases[name]; ok {
		name = alias
	}
	if v, ok := rt.globals[name]; ok {
		return v
	}
	return Nil
}

// SetGlobal assigns a global variable.
func (rt *Runtime) SetGlobal(name string, v Value) {
	if alias, ok := rt.globalAliases[name]; ok {
		name = alias
	}
	rt.globals[name] = v
}

// SetInternedStrings registers the pool of literal strings of a compiled
// program. It must be called before any entry is allocated so the pool is
// reachable while it is being filled.
func (rt *Runtime) SetInternedStrings(pool []*String) {
	rt.interned = pool
}

// InternedStrings returns the registered literal pool.
func (rt *Runtime) InternedStrings() []*String { return rt.interned }

// Loaded reports whether a file body has run.
func (rt *Runtime) Loaded(name string) bool { return rt.loaded[name] }

// ObjectID returns a stable identifier for v.
func (rt *Runtime) ObjectID(v Value) int64 {
	switch v := v.(type) {
	case Integer:
		return int64(v)*2 + 1
	case nilValue:
		return 8
	case Boolean:
		if v {
			return 20
		}
		return 0
	}
	if id, ok := rt.objectIDs[v]; ok {
		return id
	}
	rt.nextID += 8
	rt.objectIDs[v] = rt.nextID
	return rt.nextID
}

// TopEnv returns the execution context for a program's top level.
func (rt *Runtime) TopEnv(file string) *Env {
	return &Env{rt: rt, file: file, line: 1}
}

// Main runs a compiled program's entry point against a fresh runtime,
// reporting an uncaught exception on stderr and exiting non-zero.
func Main(file string, eval MethodFn) {
	rt := NewRuntime(os.Stdout)
	rt.SetGlobal("$0", NewString(file))
	env := rt.TopEnv(file)
	if _, err := eval(env, rt.Main, nil, nil); err != nil {
		ReportError(os.Stderr, err)
		os.Exit(1)
	}
}
