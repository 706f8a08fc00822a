package object

import (
	"bytes"
	"errors"
	"os/exec"
	"strings"
)

// methodOwner returns the class that def inside self defines into.
func (e *Env) methodOwner(self Value) *Class {
	if c, ok := self.(*Class); ok {
		return c
	}
	return e.rt.ClassOf(self)
}

// DefineMethod defines name on the class self refers to and returns the
// method name as a symbol. Definitions at the top level are private.
func (e *Env) DefineMethod(self Value, name Symbol, fn MethodFn, arity int) (Value, error) {
	owner := e.methodOwner(self)
	m := owner.Define(string(name), -1, fn)
	if self == e.rt.Main {
		m.Private = true
	}
	return name, nil
}

// UndefineMethod blocks name on the class self refers to.
func (e *Env) UndefineMethod(self Value, name Symbol) error {
	owner := e.methodOwner(self)
	if owner.FindMethod(string(name)) == nil {
		return e.Raise(e.rt.NameError, "undefined method '%s' for class '%s'", name, owner.Name())
	}
	owner.Undefine(string(name))
	return nil
}

// AliasMethod copies old to newName on the class self refers to.
func (e *Env) AliasMethod(self Value, newName, oldName Value) error {
	owner := e.methodOwner(self)
	n, err := e.symbolArg(newName)
	if err != nil {
		return err
	}
	o, err := e.symbolArg(oldName)
	if err != nil {
		return err
	}
	m := owner.FindMethod(string(o))
	if m == nil {
		return e.Raise(e.rt.NameError, "undefined method '%s' for class '%s'", o, owner.Name())
	}
	alias := *m
	alias.Name = string(n)
	alias.Owner = owner
	owner.methods[string(n)] = &alias
	return nil
}

func (e *Env) symbolArg(v Value) (Symbol, error) {
	switch v := v.(type) {
	case Symbol:
		return v, nil
	case *String:
		return Symbol(v.value), nil
	}
	s, _ := e.Inspect(v)
	return "", e.Raise(e.rt.TypeError, "%s is not a symbol nor a string", s)
}

// MethodDefined returns "method" if recv responds to name, otherwise nil.
func (e *Env) MethodDefined(recv Value, name Symbol, receiverIsSelf bool) Value {
	if e.RespondTo(recv, string(name), receiverIsSelf) {
		return NewString("method")
	}
	return Nil
}

func (e *Env) namespace(ns Value) *Class {
	if c, ok := ns.(*Class); ok {
		return c
	}
	return e.rt.ObjectClass
}

// DefineClass opens class name in namespace ns, creating it with super
// (nil means Object) if it does not exist.
func (e *Env) DefineClass(ns, super Value, name Symbol, isPrivate bool) (*Class, error) {
	parent := e.namespace(ns)
	var superclass *Class
	if !IsNil(super) {
		c, ok := super.(*Class)
		if !ok || c.module {
			desc, _ := e.describe(super)
			return nil, e.Raise(e.rt.TypeError, "superclass must be an instance of Class (given %s)", desc)
		}
		superclass = c
	}
	if existing, ok := parent.Const(string(name)); ok {
		c, ok := existing.(*Class)
		if !ok || c.module {
			return nil, e.Raise(e.rt.TypeError, "%s is not a class", name)
		}
		if superclass != nil && c.super != superclass {
			return nil, e.Raise(e.rt.TypeError, "superclass mismatch for class %s", name)
		}
		return c, nil
	}
	if superclass == nil {
		superclass = e.rt.ObjectClass
	}
	c := newClass("", superclass, false)
	parent.SetConst(string(name), c)
	return c, nil
}

// DefineModule opens module name in namespace ns.
func (e *Env) DefineModule(ns Value, name Symbol) (*Class, error) {
	parent := e.namespace(ns)
	if existing, ok := parent.Const(string(name)); ok {
		c, ok := existing.(*Class)
		if !ok || !c.module {
			return nil, e.Raise(e.rt.TypeError, "%s is not a module", name)
		}
		return c, nil
	}
	c := newClass("", nil, true)
	parent.SetConst(string(name), c)
	return c, nil
}

// EvalClassBody runs body with self bound to c.
func (e *Env) EvalClassBody(c *Class, body MethodFn) (Value, error) {
	label := "<class:" + c.Name() + ">"
	if c.module {
		label = "<module:" + c.Name() + ">"
	}
	if c.attached != nil {
		label = "singleton class"
	}
	return body(e.Child(label), c, nil, nil)
}

// SingletonClass returns the singleton class of v.
func (e *Env) SingletonClass(v Value) (*Class, error) {
	switch v := v.(type) {
	case *Class:
		return e.rt.singletonOf(v), nil
	case *Object:
		if v.singleton == nil {
			meta := newClass("", v.class, false)
			meta.attached = v
			v.singleton = meta
		}
		return v.singleton, nil
	}
	return nil, e.Raise(e.rt.TypeError, "can't define singleton")
}

// ---------------------------------------------------------------------------
// Constants
// ---------------------------------------------------------------------------

// ConstFind looks name up in namespace ns and its ancestors. Unless strict,
// the search falls back to Object and its ancestors.
func (e *Env) ConstFind(ns Value, name Symbol, strict bool) (Value, error) {
	start := e.namespace(ns)
	search := []*Class{start}
	for l := start.lexical; l != nil; l = l.lexical {
		if !strict {
			search = append(search, l)
		}
	}
	if !strict {
		search = append(search, e.rt.ObjectClass)
	}
	for _, c := range search {
		for _, a := range c.Ancestors() {
			if v, ok := a.consts[string(name)]; ok {
				return v, nil
			}
			if fn, ok := a.autoloads[string(name)]; ok {
				delete(a.autoloads, string(name))
				if _, err := fn(e.Child("<autoload>"), a, nil, nil); err != nil {
					return nil, err
				}
				if v, ok := a.consts[string(name)]; ok {
					return v, nil
				}
			}
		}
	}
	if start == e.rt.ObjectClass {
		return nil, e.Raise(e.rt.NameError, "uninitialized constant %s", name)
	}
	return nil, e.Raise(e.rt.NameError, "uninitialized constant %s::%s", start.Name(), name)
}

// ConstSet defines name in namespace ns.
func (e *Env) ConstSet(ns Value, name Symbol, v Value) error {
	e.namespace(ns).SetConst(string(name), v)
	return nil
}

// Autoload registers body to run the first time name is looked up in the
// namespace of self.
func (e *Env) Autoload(self Value, name Symbol, body MethodFn) {
	c := e.namespace(self)
	if c.autoloads == nil {
		c.autoloads = make(map[string]MethodFn)
	}
	c.autoloads[string(name)] = body
}

// ---------------------------------------------------------------------------
// Instance, class and global variables
// ---------------------------------------------------------------------------

func ivarTable(v Value) map[string]Value {
	switch v := v.(type) {
	case *Object:
		return v.ivars
	case *Class:
		return v.ivars
	case *Exception:
		return v.ivars
	}
	return nil
}

// IvarGet reads an instance variable of self, or nil.
func (e *Env) IvarGet(self Value, name string) Value {
	if t := ivarTable(self); t != nil {
		if v, ok := t[name]; ok {
			return v
		}
	}
	return Nil
}

// IvarSet writes an instance variable of self.
func (e *Env) IvarSet(self Value, name string, v Value) error {
	t := ivarTable(self)
	if t == nil {
		desc, _ := e.describe(self)
		return e.Raise(e.rt.FrozenError, "can't modify frozen %s", desc)
	}
	if o, ok := self.(*Object); ok && o.frozen {
		desc, _ := e.Inspect(self)
		return e.Raise(e.rt.FrozenError, "can't modify frozen %s: %s", o.class.Name(), desc)
	}
	t[name] = v
	return nil
}

// IvarDefined returns "instance-variable" if set, otherwise nil.
func (e *Env) IvarDefined(self Value, name string) Value {
	if t := ivarTable(self); t != nil {
		if _, ok := t[name]; ok {
			return NewString("instance-variable")
		}
	}
	return Nil
}

func (e *Env) cvarOwner(self Value) *Class {
	c := e.methodOwner(self)
	if c.attached != nil {
		if a, ok := c.attached.(*Class); ok {
			return a
		}
	}
	return c
}

// CvarGet reads a class variable visible from self.
func (e *Env) CvarGet(self Value, name string) (Value, error) {
	owner := e.cvarOwner(self)
	for _, c := range owner.Ancestors() {
		if v, ok := c.cvars[name]; ok {
			return v, nil
		}
	}
	return nil, e.Raise(e.rt.NameError, "uninitialized class variable %s in %s", name, owner.Name())
}

// CvarSet writes a class variable, updating an inherited one if present.
func (e *Env) CvarSet(self Value, name string, v Value) error {
	owner := e.cvarOwner(self)
	for _, c := range owner.Ancestors() {
		if _, ok := c.cvars[name]; ok {
			c.cvars[name] = v
			return nil
		}
	}
	owner.cvars[name] = v
	return nil
}

func (e *Env) GlobalGet(name string) Value { return e.rt.Global(name) }
func (e *Env) GlobalSet(name string, v Value) error {
	e.rt.SetGlobal(name, v)
	return nil
}

// GlobalDefined returns "global-variable" if name is set, otherwise nil.
func (e *Env) GlobalDefined(name string) Value {
	if alias, ok := e.rt.globalAliases[name]; ok {
		name = alias
	}
	if _, ok := e.rt.globals[name]; ok {
		return NewString("global-variable")
	}
	return Nil
}

// GlobalAlias makes newName refer to old.
func (e *Env) GlobalAlias(newName, old string) {
	if alias, ok := e.rt.globalAliases[old]; ok {
		old = alias
	}
	e.rt.globalAliases[newName] = old
}

// LastMatch returns the last successful regexp match, or nil.
func (e *Env) LastMatch() Value { return e.rt.lastMatch }

// ---------------------------------------------------------------------------
// Files and processes
// ---------------------------------------------------------------------------

// LoadFile runs body as the top level of file name. With requireOnce an
// already loaded file is skipped and false is returned.
func (e *Env) LoadFile(name string, requireOnce bool, body MethodFn) (Value, error) {
	if requireOnce && e.rt.loaded[name] {
		return False, nil
	}
	e.rt.loaded[name] = true
	env := e.Child("<top (required)>")
	env.file = name
	env.line = 1
	if _, err := body(env, e.rt.Main, nil, nil); err != nil {
		return nil, err
	}
	return True, nil
}

// Shell runs cmd with /bin/sh, sets $? and returns the captured output.
func (e *Env) Shell(cmd Value) (Value, error) {
	s, err := e.ToS(cmd)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	c := exec.Command("/bin/sh", "-c", s)
	c.Stdout = &out
	status := 0
	if err := c.Run(); err != nil {
		var exit *exec.ExitError
		if !errors.As(err, &exit) {
			return nil, e.Raise(e.rt.RuntimeError, "%s", strings.TrimSpace(err.Error()))
		}
		status = exit.ExitCode()
	}
	e.rt.SetGlobal("$?", Integer(status))
	return NewString(out.String()), nil
}
