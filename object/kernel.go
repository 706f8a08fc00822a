package object

import (
	"fmt"
	"sort"
	"strings"
)

func (rt *Runtime) bootKernel() {
	k := rt.KernelModule

	k.Define("puts", -1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		var sb strings.Builder
		if len(args) == 0 {
			sb.WriteString("\n")
		}
		for _, a := range args {
			if err := env.putsLine(&sb, a); err != nil {
				return nil, err
			}
		}
		fmt.Fprint(env.rt.Stdout, sb.String())
		return Nil, nil
	})
	k.Define("print", -1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		for _, a := range args {
			s, err := env.ToS(a)
			if err != nil {
				return nil, err
			}
			fmt.Fprint(env.rt.Stdout, s)
		}
		return Nil, nil
	})
	k.Define("p", -1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		for _, a := range args {
			s, err := env.Inspect(a)
			if err != nil {
				return nil, err
			}
			fmt.Fprintln(env.rt.Stdout, s)
		}
		switch len(args) {
		case 0:
			return Nil, nil
		case 1:
			return args[0], nil
		}
		return NewArray(args...), nil
	})
	k.Define("raise", -1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		// the backtrace starts at the call site, not inside raise
		if env.caller != nil {
			env = env.caller
		}
		switch len(args) {
		case 0:
			return nil, env.Raise(env.rt.RuntimeError, "unhandled exception")
		case 1:
			return nil, env.RaiseValue(args[0], nil)
		}
		return nil, env.RaiseValue(args[0], args[1])
	})
	k.Define("block_given?", 0, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		// The caller's block, not the one passed to block_given? itself.
		if env.caller != nil {
			return Bool(env.caller.block != nil), nil
		}
		return False, nil
	})
	k.Define("lambda", 0, func(env *Env, self Value, args []Value, blk *Proc) (Value, error) {
		if blk == nil {
			return nil, env.Raise(env.rt.ArgumentError, "tried to create Proc object without a block")
		}
		return env.ToLambda(blk)
	})
	k.Define("proc", 0, func(env *Env, self Value, args []Value, blk *Proc) (Value, error) {
		if blk == nil {
			return nil, env.Raise(env.rt.ArgumentError, "tried to create Proc object without a block")
		}
		return blk, nil
	})
	k.Define("loop", 0, func(env *Env, self Value, args []Value, blk *Proc) (Value, error) {
		if err := env.needBlock(blk); err != nil {
			return nil, err
		}
		for {
			if _, err := blk.Call(env); err != nil {
				if exc, rerr := Rescue(err); rerr == nil && exc.IsA(env.rt.StopIteration) {
					return Nil, nil
				}
				return nil, err
			}
		}
	})

	o := rt.ObjectClass
	o.Define("inspect", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		obj, ok := self.(*Object)
		if !ok || self == env.rt.Main {
			return env.Send(self, "to_s", nil, nil)
		}
		if len(obj.ivars) == 0 {
			return NewString(fmt.Sprintf("#<%s>", obj.class.Name())), nil
		}
		var parts []string
		for _, name := range sortedKeys(obj.ivars) {
			s, err := env.Inspect(obj.ivars[name])
			if err != nil {
				return nil, err
			}
			parts = append(parts, name+"="+s)
		}
		return NewString(fmt.Sprintf("#<%s %s>", obj.class.Name(), strings.Join(parts, ", "))), nil
	})
	o.Define("to_s", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return NewString(defaultToS(env.rt, self)), nil
	})
	o.Define("class", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return env.rt.ClassOf(self), nil
	})
	o.Define("singleton_class", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return env.SingletonClass(self)
	})
	identical := func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		return Bool(Identical(self, args[0])), nil
	}
	o.Define("==", 1, identical)
	o.Define("equal?", 1, identical)
	o.Define("eql?", 1, identical)
	o.Define("===", 1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		return env.Send(self, "==", args, nil)
	})
	o.Define("!=", 1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		eq, err := env.Send(self, "==", args, nil)
		if err != nil {
			return nil, err
		}
		return Not(eq), nil
	})
	o.Define("!", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return Not(self), nil
	})
	o.Define("=~", 1, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return Nil, nil
	})
	o.Define("nil?", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return Bool(IsNil(self)), nil
	})
	isA := func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		c, ok := args[0].(*Class)
		if !ok {
			return nil, env.Raise(env.rt.TypeError, "class or module required")
		}
		return Bool(env.rt.dispatchClass(self).IsSubclassOf(c)), nil
	}
	o.Define("is_a?", 1, isA)
	o.Define("kind_of?", 1, isA)
	o.Define("instance_of?", 1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		return Bool(env.rt.ClassOf(self) == args[0]), nil
	})
	o.Define("respond_to?", -1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		if len(args) == 0 {
			return nil, env.Raise(env.rt.ArgumentError, "wrong number of arguments (given 0, expected 1..2)")
		}
		name, err := env.symbolArg(args[0])
		if err != nil {
			return nil, err
		}
		return Bool(env.RespondTo(self, string(name), len(args) > 1 && Truthy(args[1]))), nil
	})
	send := func(env *Env, self Value, args []Value, blk *Proc) (Value, error) {
		if len(args) == 0 {
			return nil, env.Raise(env.rt.ArgumentError, "no method name given")
		}
		name, err := env.symbolArg(args[0])
		if err != nil {
			return nil, err
		}
		return env.Send(self, name, args[1:], blk)
	}
	o.Define("send", -1, send)
	o.Define("__send__", -1, send)
	o.Define("public_send", -1, func(env *Env, self Value, args []Value, blk *Proc) (Value, error) {
		if len(args) == 0 {
			return nil, env.Raise(env.rt.ArgumentError, "no method name given")
		}
		name, err := env.symbolArg(args[0])
		if err != nil {
			return nil, err
		}
		return env.PublicSend(self, name, args[1:], blk)
	})
	o.Define("freeze", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return Freeze(self), nil
	})
	o.Define("frozen?", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return Bool(IsFrozen(self)), nil
	})
	o.Define("object_id", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return Integer(env.rt.ObjectID(self)), nil
	})
	o.Define("hash", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return Integer(env.rt.ObjectID(self)), nil
	})
	o.Define("dup", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return env.DupObject(self)
	})
	o.Define("tap", 0, func(env *Env, self Value, _ []Value, blk *Proc) (Value, error) {
		if err := env.needBlock(blk); err != nil {
			return nil, err
		}
		if _, err := blk.Call(env, self); err != nil {
			return nil, err
		}
		return self, nil
	})
	o.Define("then", 0, func(env *Env, self Value, _ []Value, blk *Proc) (Value, error) {
		if err := env.needBlock(blk); err != nil {
			return nil, err
		}
		return blk.Call(env, self)
	})
	o.Define("instance_variable_get", 1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		name, err := env.symbolArg(args[0])
		if err != nil {
			return nil, err
		}
		return env.IvarGet(self, string(name)), nil
	})
	o.Define("instance_variable_set", 2, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		name, err := env.symbolArg(args[0])
		if err != nil {
			return nil, err
		}
		if err := env.IvarSet(self, string(name), args[1]); err != nil {
			return nil, err
		}
		return args[1], nil
	})
	o.Define("instance_variables", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		t := ivarTable(self)
		out := NewArray()
		for _, name := range sortedKeys(t) {
			out.Elems = append(out.Elems, Symbol(name))
		}
		return out, nil
	})
	for _, name := range []string{"puts", "print", "p", "raise", "lambda", "proc", "loop", "block_given?"} {
		k.methods[name].Private = true
	}
}

// Identical reports object identity (value equality for immediates).
func Identical(a, b Value) bool { return a == b }

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e *Env) needBlock(blk *Proc) error {
	if blk == nil {
		return e.Raise(e.rt.LocalJumpError, "no block given (yield)")
	}
	return nil
}

func (e *Env) putsLine(sb *strings.Builder, v Value) error {
	if a, ok := v.(*Array); ok {
		if len(a.Elems) == 0 {
			sb.WriteString("\n")
		}
		for _, el := range a.Elems {
			if err := e.putsLine(sb, el); err != nil {
				return err
			}
		}
		return nil
	}
	s, err := e.ToS(v)
	if err != nil {
		return err
	}
	sb.WriteString(s)
	if !strings.HasSuffix(s, "\n") {
		sb.WriteString("\n")
	}
	return nil
}

func (rt *Runtime) bootNil() {
	n := rt.NilClass
	n.Define("to_s", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return NewFrozenString("", "US-ASCII"), nil
	})
	n.Define("inspect", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return NewString("nil"), nil
	})
	n.Define("to_a", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return NewArray(), nil
	})
	n.Define("to_i", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return Integer(0), nil
	})
	n.Define("&", 1, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return False, nil
	})
	n.Define("|", 1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		return Bool(Truthy(args[0])), nil
	})

	for _, c := range []*Class{rt.TrueClass, rt.FalseClass} {
		c.Define("to_s", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
			return NewString(fmt.Sprint(bool(self.(Boolean)))), nil
		})
		c.Define("inspect", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
			return NewString(fmt.Sprint(bool(self.(Boolean)))), nil
		})
		c.Define("&", 1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
			return Bool(Truthy(self) && Truthy(args[0])), nil
		})
		c.Define("|", 1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
			return Bool(Truthy(self) || Truthy(args[0])), nil
		})
		c.Define("^", 1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
			return Bool(Truthy(self) != Truthy(args[0])), nil
		})
	}
}

func (rt *Runtime) bootComparable() {
	c := rt.ComparableModule
	cmp := func(env *Env, self, other Value) (int, error) {
		res, err := env.Send(self, "<=>", []Value{other}, nil)
		if err != nil {
			return 0, err
		}
		n, ok := res.(Integer)
		if !ok {
			a, _ := env.Inspect(other)
			return 0, env.Raise(env.rt.ArgumentError, "comparison of %s with %s failed", env.rt.ClassOf(self).Name(), a)
		}
		return int(n), nil
	}
	op := func(name string, test func(int) bool) {
		c.Define(name, 1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
			n, err := cmp(env, self, args[0])
			if err != nil {
				return nil, err
			}
			return Bool(test(n)), nil
		})
	}
	op("<", func(n int) bool { return n < 0 })
	op("<=", func(n int) bool { return n <= 0 })
	op(">", func(n int) bool { return n > 0 })
	op(">=", func(n int) bool { return n >= 0 })
	op("==", func(n int) bool { return n == 0 })
	c.Define("between?", 2, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		lo, err := cmp(env, self, args[0])
		if err != nil {
			return nil, err
		}
		hi, err := cmp(env, self, args[1])
		if err != nil {
			return nil, err
		}
		return Bool(lo >= 0 && hi <= 0), nil
	})
}
