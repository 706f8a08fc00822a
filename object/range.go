package object

import "fmt"

// rangeInts returns the integers covered by r.
func (e *Env) rangeInts(r *Range) ([]Value, error) {
	lo, ok1 := r.Begin.(Integer)
	hi, ok2 := r.End.(Integer)
	if !ok1 || !ok2 {
		return nil, e.Raise(e.rt.TypeError, "can't iterate from %s", e.rt.ClassOf(r.Begin).Name())
	}
	if r.Exclusive {
		hi--
	}
	var out []Value
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out, nil
}

func (e *Env) rangeCover(r *Range, v Value) (bool, error) {
	lo, err := e.compare(r.Begin, v)
	if err != nil || lo > 0 {
		return false, err
	}
	if IsNil(r.End) {
		return true, nil
	}
	hi, err := e.compare(v, r.End)
	if err != nil {
		return false, err
	}
	if r.Exclusive {
		return hi < 0, nil
	}
	return hi <= 0, nil
}

func (rt *Runtime) bootRange() {
	r := rt.RangeClass
	self := func(v Value) *Range { return v.(*Range) }

	rt.singletonOf(r).Define("new", -1, func(env *Env, _ Value, args []Value, _ *Proc) (Value, error) {
		if err := env.CheckArgs(args, 2, 3); err != nil {
			return nil, err
		}
		return NewRange(args[0], args[1], len(args) > 2 && Truthy(args[2])), nil
	})

	render := func(inspect bool) MethodFn {
		return func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
			conv := env.ToS
			if inspect {
				conv = env.Inspect
			}
			rng := self(v)
			lo, err := conv(rng.Begin)
			if err != nil {
				return nil, err
			}
			hi := ""
			if !IsNil(rng.End) {
				if hi, err = conv(rng.End); err != nil {
					return nil, err
				}
			}
			dots := ".."
			if rng.Exclusive {
				dots = "..."
			}
			return NewString(lo + dots + hi), nil
		}
	}
	r.Define("inspect", 0, render(true))
	r.Define("to_s", 0, render(false))
	r.Define("begin", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) { return self(v).Begin, nil })
	r.Define("first", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) { return self(v).Begin, nil })
	r.Define("end", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) { return self(v).End, nil })
	r.Define("last", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) { return self(v).End, nil })
	r.Define("exclude_end?", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return Bool(self(v).Exclusive), nil
	})
	r.Define("==", 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		o, ok := args[0].(*Range)
		if !ok || o.Exclusive != self(v).Exclusive {
			return False, nil
		}
		eq, err := env.equal(self(v).Begin, o.Begin)
		if err != nil || !eq {
			return False, err
		}
		eq, err = env.equal(self(v).End, o.End)
		return Bool(eq), err
	})
	cover := func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		ok, err := env.rangeCover(self(v), args[0])
		if err != nil {
			if _, rerr := Rescue(err); rerr == nil {
				return False, nil
			}
			return nil, err
		}
		return Bool(ok), nil
	}
	r.Define("include?", 1, cover)
	r.Define("member?", 1, cover)
	r.Define("cover?", 1, cover)
	r.Define("===", 1, cover)
	r.Define("to_a", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		elems, err := env.rangeInts(self(v))
		if err != nil {
			return nil, err
		}
		return &Array{Elems: elems}, nil
	})
	r.Define("size", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		elems, err := env.rangeInts(self(v))
		if err != nil {
			return Nil, nil
		}
		return Integer(len(elems)), nil
	})
	r.Define("each", 0, func(env *Env, v Value, _ []Value, blk *Proc) (Value, error) {
		if err := env.needBlock(blk); err != nil {
			return nil, err
		}
		elems, err := env.rangeInts(self(v))
		if err != nil {
			return nil, err
		}
		return v, env.each(elems, blk, nil)
	})
	r.Define("map", 0, func(env *Env, v Value, _ []Value, blk *Proc) (Value, error) {
		elems, err := env.rangeInts(self(v))
		if err != nil {
			return nil, err
		}
		return env.Send(&Array{Elems: elems}, "map", nil, blk)
	})
	r.Define("sum", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		elems, err := env.rangeInts(self(v))
		if err != nil {
			return nil, err
		}
		var total Integer
		for _, el := range elems {
			total += el.(Integer)
		}
		return total, nil
	})
}

func (rt *Runtime) bootProc() {
	p := rt.ProcClass
	self := func(v Value) *Proc { return v.(*Proc) }

	rt.singletonOf(p).Define("new", 0, func(env *Env, _ Value, _ []Value, blk *Proc) (Value, error) {
		if blk == nil {
			return nil, env.Raise(env.rt.ArgumentError, "tried to create Proc object without a block")
		}
		return blk, nil
	})

	call := func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		return self(v).Call(env, args...)
	}
	p.Define("call", -1, call)
	p.Define("()", -1, call)
	p.Define("yield", -1, call)
	p.Define("[]", -1, call)
	p.Define("===", -1, call)
	p.Define("to_proc", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) { return v, nil })
	p.Define("arity", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return Integer(self(v).Arity), nil
	})
	p.Define("lambda?", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return Bool(self(v).Lambda), nil
	})
	p.Define("inspect", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		kind := ""
		if self(v).Lambda {
			kind = " (lambda)"
		}
		return NewString(fmt.Sprintf("#<Proc:0x%016x%s>", env.rt.ObjectID(v), kind)), nil
	})
}
