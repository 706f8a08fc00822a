package object

import "sort"

// Method is a method table entry.
type Method struct {
	Name    string
	Fn      MethodFn
	Arity   int
	Owner   *Class
	Private bool

	undefined bool
}

// Class is a class or a module.
type Class struct {
	name     string
	super    *Class
	module   bool
	lexical  *Class
	methods  map[string]*Method
	consts   map[string]Value
	cvars    map[string]Value
	includes []*Class
	ivars    map[string]Value

	singleton *Class
	attached  Value // set on singleton classes
	autoloads map[string]MethodFn
}

func newClass(name string, super *Class, module bool) *Class {
	return &Class{
		name:    name,
		super:   super,
		module:  module,
		methods: make(map[string]*Method),
		consts:  make(map[string]Value),
		cvars:   make(map[string]Value),
		ivars:   make(map[string]Value),
	}
}

// Name returns the fully qualified name, or "" for anonymous classes.
func (c *Class) Name() string { return c.name }

// Superclass returns the parent class, or nil.
func (c *Class) Superclass() *Class { return c.super }

func (c *Class) IsModule() bool    { return c.module }
func (c *Class) IsSingleton() bool { return c.attached != nil }

// Ancestors returns the method resolution order: each class followed by the
// modules it includes, most recent first.
func (c *Class) Ancestors() []*Class {
	var out []*Class
	seen := map[*Class]bool{}
	for cls := c; cls != nil; cls = cls.super {
		if !seen[cls] {
			seen[cls] = true
			out = append(out, cls)
		}
		for i := len(cls.includes) - 1; i >= 0; i-- {
			m := cls.includes[i]
			for _, a := range m.Ancestors() {
				if !seen[a] {
					seen[a] = true
					out = append(out, a)
				}
			}
		}
	}
	return out
}

// IsSubclassOf reports whether c is other or inherits from or includes it.
func (c *Class) IsSubclassOf(other *Class) bool {
	for _, a := range c.Ancestors() {
		if a == other {
			return true
		}
	}
	return false
}

// FindMethod looks name up along the ancestors. Undefined entries stop the
// search.
func (c *Class) FindMethod(name string) *Method {
	for _, cls := range c.Ancestors() {
		if m, ok := cls.methods[name]; ok {
			if m.undefined {
				return nil
			}
			return m
		}
	}
	return nil
}

// superMethod finds the next definition of name after owner in c's
// ancestors.
func (c *Class) superMethod(owner *Class, name string) *Method {
	past := false
	for _, cls := range c.Ancestors() {
		if !past {
			past = cls == owner
			continue
		}
		if m, ok := cls.methods[name]; ok {
			if m.undefined {
				return nil
			}
			return m
		}
	}
	return nil
}

// Define adds or replaces a method.
func (c *Class) Define(name string, arity int, fn MethodFn) *Method {
	m := &Method{Name: name, Fn: fn, Arity: arity, Owner: c}
	c.methods[name] = m
	return m
}

// Undefine blocks lookup of name through c.
func (c *Class) Undefine(name string) {
	c.methods[name] = &Method{Name: name, Owner: c, undefined: true}
}

// Include mixes module m into c.
func (c *Class) Include(m *Class) {
	for _, inc := range c.includes {
		if inc == m {
			return
		}
	}
	c.includes = append(c.includes, m)
}

// InstanceMethods returns the sorted public method names defined on c, and
// on its ancestors when inherited is true.
func (c *Class) InstanceMethods(inherited bool) []string {
	seen := map[string]bool{}
	var names []string
	classes := []*Class{c}
	if inherited {
		classes = c.Ancestors()
	}
	for _, cls := range classes {
		for name, m := range cls.methods {
			if seen[name] {
				continue
			}
			seen[name] = true
			if !m.undefined && !m.Private {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Const returns a constant defined directly on c.
func (c *Class) Const(name string) (Value, bool) {
	v, ok := c.consts[name]
	return v, ok
}

// SetConst defines a constant directly on c. Anonymous classes take the
// constant's name.
func (c *Class) SetConst(name string, v Value) {
	c.consts[name] = v
	if cls, ok := v.(*Class); ok && cls.name == "" {
		cls.name = qualify(c, name)
		cls.lexical = c
	}
}

func qualify(ns *Class, name string) string {
	if ns == nil || ns.name == "" || ns.name == "Object" {
		return name
	}
	return ns.name + "::" + name
}
