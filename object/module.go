package object

import "strings"

func (rt *Runtime) bootModule() {
	rt.BasicObjectClass.Define("initialize", -1, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return Nil, nil
	}).Private = true

	m := rt.ModuleClass
	name := func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		c := self.(*Class)
		if c.attached != nil {
			s, err := env.Inspect(c.attached)
			if err != nil {
				return nil, err
			}
			return NewString("#<Class:" + s + ">"), nil
		}
		if c.name == "" {
			if c.module {
				return NewString("#<Module>"), nil
			}
			return NewString("#<Class>"), nil
		}
		return NewString(c.name), nil
	}
	m.Define("to_s", 0, name)
	m.Define("inspect", 0, name)
	m.Define("name", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		c := self.(*Class)
		if c.name == "" {
			return Nil, nil
		}
		return NewString(c.name), nil
	})
	m.Define("===", 1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		return Bool(env.rt.dispatchClass(args[0]).IsSubclassOf(self.(*Class))), nil
	})
	m.Define("==", 1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		return Bool(Identical(self, args[0])), nil
	})
	m.Define("<", 1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		other, ok := args[0].(*Class)
		if !ok {
			return nil, env.Raise(env.rt.TypeError, "compared with non class/module")
		}
		c := self.(*Class)
		return Bool(c != other && c.IsSubclassOf(other)), nil
	})
	m.Define("ancestors", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		out := NewArray()
		for _, a := range self.(*Class).Ancestors() {
			out.Elems = append(out.Elems, a)
		}
		return out, nil
	})
	m.Define("instance_methods", -1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		inherited := len(args) == 0 || Truthy(args[0])
		out := NewArray()
		for _, n := range self.(*Class).InstanceMethods(inherited) {
			out.Elems = append(out.Elems, Symbol(n))
		}
		return out, nil
	})
	m.Define("method_defined?", 1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		n, err := env.symbolArg(args[0])
		if err != nil {
			return nil, err
		}
		meth := self.(*Class).FindMethod(string(n))
		return Bool(meth != nil && !meth.Private), nil
	})
	m.Define("include", -1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		c := self.(*Class)
		for _, a := range args {
			mod, ok := a.(*Class)
			if !ok || !mod.module {
				desc, _ := env.describe(a)
				return nil, env.Raise(env.rt.TypeError, "wrong argument type %s (expected Module)", desc)
			}
			c.Include(mod)
		}
		return c, nil
	})
	m.Define("const_get", 1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		n, err := env.symbolArg(args[0])
		if err != nil {
			return nil, err
		}
		return env.ConstFind(self, n, false)
	})
	m.Define("const_set", 2, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		n, err := env.symbolArg(args[0])
		if err != nil {
			return nil, err
		}
		return args[1], env.ConstSet(self, n, args[1])
	})
	m.Define("define_method", 1, func(env *Env, self Value, args []Value, blk *Proc) (Value, error) {
		n, err := env.symbolArg(args[0])
		if err != nil {
			return nil, err
		}
		if err := env.needBlock(blk); err != nil {
			return nil, err
		}
		body := *blk
		self.(*Class).Define(string(n), -1, func(env *Env, self Value, args []Value, inner *Proc) (Value, error) {
			bound := body
			bound.Self = self
			return bound.Call(env, args...)
		})
		return n, nil
	})
	m.Define("alias_method", 2, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		if err := env.AliasMethod(self, args[0], args[1]); err != nil {
			return nil, err
		}
		return args[0], nil
	})
	visibility := func(private bool) MethodFn {
		return func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
			c := self.(*Class)
			for _, a := range args {
				n, err := env.symbolArg(a)
				if err != nil {
					return nil, err
				}
				meth := c.FindMethod(string(n))
				if meth == nil {
					return nil, env.Raise(env.rt.NameError, "undefined method '%s' for class '%s'", n, c.Name())
				}
				copied := *meth
				copied.Owner = c
				copied.Private = private
				c.methods[string(n)] = &copied
			}
			return Nil, nil
		}
	}
	m.Define("private", -1, visibility(true))
	m.Define("public", -1, visibility(false))
	m.Define("module_function", -1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		c := self.(*Class)
		meta := env.rt.singletonOf(c)
		for _, a := range args {
			n, err := env.symbolArg(a)
			if err != nil {
				return nil, err
			}
			if meth := c.FindMethod(string(n)); meth != nil {
				copied := *meth
				copied.Owner = meta
				meta.methods[string(n)] = &copied
			}
		}
		return Nil, nil
	})
	attr := func(reader, writer bool) MethodFn {
		return func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
			c := self.(*Class)
			out := NewArray()
			for _, a := range args {
				n, err := env.symbolArg(a)
				if err != nil {
					return nil, err
				}
				ivar := "@" + strings.TrimPrefix(string(n), "@")
				if reader {
					c.Define(string(n), 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
						return env.IvarGet(self, ivar), nil
					})
					out.Elems = append(out.Elems, n)
				}
				if writer {
					c.Define(string(n)+"=", 1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
						if err := env.IvarSet(self, ivar, args[0]); err != nil {
							return nil, err
						}
						return args[0], nil
					})
					out.Elems = append(out.Elems, n+"=")
				}
			}
			return out, nil
		}
	}
	m.Define("attr_reader", -1, attr(true, false))
	m.Define("attr_writer", -1, attr(false, true))
	m.Define("attr_accessor", -1, attr(true, true))

	c := rt.ClassClass
	c.Define("new", -1, func(env *Env, self Value, args []Value, blk *Proc) (Value, error) {
		obj, err := env.Allocate(self.(*Class))
		if err != nil {
			return nil, err
		}
		if _, err := env.Send(obj, "initialize", args, blk); err != nil {
			return nil, err
		}
		return obj, nil
	})
	c.Define("allocate", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return env.Allocate(self.(*Class))
	})
	c.Define("superclass", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		if s := self.(*Class).super; s != nil {
			return s, nil
		}
		return Nil, nil
	})
	rt.singletonOf(rt.ClassClass).Define("new", -1, func(env *Env, self Value, args []Value, blk *Proc) (Value, error) {
		super := env.rt.ObjectClass
		if len(args) > 0 {
			s, ok := args[0].(*Class)
			if !ok {
				return nil, env.Raise(env.rt.TypeError, "superclass must be a Class")
			}
			super = s
		}
		cls := env.rt.NewClass(super)
		if blk != nil {
			if _, err := env.EvalClassBody(cls, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
				body := *blk
				body.Self = self
				return body.Call(env, self)
			}); err != nil {
				return nil, err
			}
		}
		return cls, nil
	})
}

// Allocate creates an uninitialized instance of c.
func (e *Env) Allocate(c *Class) (Value, error) {
	if c.module {
		return nil, e.Raise(e.rt.NoMethodError, "undefined method 'new' for module %s", c.Name())
	}
	if c.attached != nil {
		return nil, e.Raise(e.rt.TypeError, "can't create instance of singleton class")
	}
	if c.IsSubclassOf(e.rt.Exception) {
		return NewException(c, ""), nil
	}
	for _, builtin := range []*Class{e.rt.IntegerClass, e.rt.FloatClass, e.rt.SymbolClass, e.rt.NilClass, e.rt.TrueClass, e.rt.FalseClass} {
		if c.IsSubclassOf(builtin) {
			return nil, e.Raise(e.rt.NoMethodError, "undefined method 'new' for class %s", c.Name())
		}
	}
	return &Object{class: c, ivars: map[string]Value{}}, nil
}
