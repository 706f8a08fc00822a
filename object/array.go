package object

import (
	"sort"
	"strings"
)

func (e *Env) equal(a, b Value) (bool, error) {
	if Identical(a, b) {
		return true, nil
	}
	res, err := e.Send(a, "==", []Value{b}, nil)
	if err != nil {
		return false, err
	}
	return Truthy(res), nil
}

func (e *Env) compare(a, b Value) (int, error) {
	res, err := e.Send(a, "<=>", []Value{b}, nil)
	if err != nil {
		return 0, err
	}
	n, ok := res.(Integer)
	if !ok {
		sb, _ := e.Inspect(b)
		return 0, e.Raise(e.rt.ArgumentError, "comparison of %s with %s failed", e.rt.ClassOf(a).Name(), sb)
	}
	return int(n), nil
}

func (e *Env) index(v Value) (int, error) {
	n, ok := v.(Integer)
	if !ok {
		return 0, e.typeError(v, "Integer")
	}
	return int(n), nil
}

// each calls blk for every element, stopping at the first error.
func (e *Env) each(elems []Value, blk *Proc, fn func(i int, res Value) error) error {
	for i := 0; i < len(elems); i++ {
		res, err := blk.Call(e, elems[i])
		if err != nil {
			return err
		}
		if fn != nil {
			if err := fn(i, res); err != nil {
				return err
			}
		}
	}
	return nil
}

func (rt *Runtime) bootArray() {
	a := rt.ArrayClass
	self := func(v Value) *Array { return v.(*Array) }

	rt.singletonOf(a).Define("new", -1, func(env *Env, _ Value, args []Value, blk *Proc) (Value, error) {
		if err := env.CheckArgs(args, 0, 2); err != nil {
			return nil, err
		}
		out := NewArray()
		if len(args) == 0 {
			return out, nil
		}
		n, err := env.index(args[0])
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, env.Raise(env.rt.ArgumentError, "negative array size")
		}
		for i := 0; i < n; i++ {
			v := Arg(args, 1)
			if blk != nil {
				if v, err = blk.Call(env, Integer(i)); err != nil {
					return nil, err
				}
			}
			out.Elems = append(out.Elems, v)
		}
		return out, nil
	})

	inspect := func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		s, err := env.inspectJoin(self(v).Elems, ", ")
		if err != nil {
			return nil, err
		}
		return NewString("[" + s + "]"), nil
	}
	a.Define("inspect", 0, inspect)
	a.Define("to_s", 0, inspect)
	a.Define("to_a", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) { return v, nil })
	size := func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return Integer(len(self(v).Elems)), nil
	}
	a.Define("size", 0, size)
	a.Define("length", 0, size)
	a.Define("empty?", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return Bool(len(self(v).Elems) == 0), nil
	})
	a.Define("==", 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		o, ok := args[0].(*Array)
		if !ok || len(o.Elems) != len(self(v).Elems) {
			return False, nil
		}
		for i, el := range self(v).Elems {
			eq, err := env.equal(el, o.Elems[i])
			if err != nil || !eq {
				return False, err
			}
		}
		return True, nil
	})
	a.Define("hash", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		var h int64 = 7
		for _, el := range self(v).Elems {
			n, err := env.Send(el, "hash", nil, nil)
			if err != nil {
				return nil, err
			}
			if i, ok := n.(Integer); ok {
				h = h*31 + int64(i)
			}
		}
		return Integer(h), nil
	})
	a.Define("[]", -1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		if err := env.CheckArgs(args, 1, 2); err != nil {
			return nil, err
		}
		ary := self(v)
		if r, ok := args[0].(*Range); ok {
			lo, hi, err := env.rangeBounds(r, len(ary.Elems))
			if err != nil {
				return nil, err
			}
			if lo > len(ary.Elems) {
				return Nil, nil
			}
			return NewArray(ary.Elems[lo:hi]...), nil
		}
		i, err := env.index(args[0])
		if err != nil {
			return nil, err
		}
		if len(args) == 1 {
			return ary.At(i), nil
		}
		n, err := env.index(args[1])
		if err != nil {
			return nil, err
		}
		if i < 0 {
			i += len(ary.Elems)
		}
		if i < 0 || i > len(ary.Elems) || n < 0 {
			return Nil, nil
		}
		end := min(i+n, len(ary.Elems))
		return NewArray(ary.Elems[i:end]...), nil
	})
	a.Define("[]=", 2, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		ary := self(v)
		if err := env.checkFrozen(ary); err != nil {
			return nil, err
		}
		i, err := env.index(args[0])
		if err != nil {
			return nil, err
		}
		if i < 0 {
			i += len(ary.Elems)
			if i < 0 {
				return nil, env.Raise(env.rt.IndexError, "index %d too small for array", i-len(ary.Elems))
			}
		}
		for len(ary.Elems) <= i {
			ary.Elems = append(ary.Elems, Nil)
		}
		ary.Elems[i] = args[1]
		return args[1], nil
	})
	push := func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		for _, x := range args {
			if _, err := env.ArrayPush(v, x); err != nil {
				return nil, err
			}
		}
		return v, nil
	}
	a.Define("<<", 1, push)
	a.Define("push", -1, push)
	a.Define("append", -1, push)
	a.Define("pop", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		if err := env.checkFrozen(v); err != nil {
			return nil, err
		}
		return env.ArrayPop(v, Nil)
	})
	a.Define("shift", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		if err := env.checkFrozen(v); err != nil {
			return nil, err
		}
		return env.ArrayShift(v, Nil)
	})
	a.Define("unshift", -1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		ary := self(v)
		if err := env.checkFrozen(ary); err != nil {
			return nil, err
		}
		ary.Elems = append(append([]Value(nil), args...), ary.Elems...)
		return ary, nil
	})
	a.Define("concat", -1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		if err := env.checkFrozen(v); err != nil {
			return nil, err
		}
		return env.ArrayConcat(v, args...)
	})
	a.Define("first", -1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		ary := self(v)
		if len(args) == 0 {
			return ary.At(0), nil
		}
		n, err := env.index(args[0])
		if err != nil {
			return nil, err
		}
		return NewArray(ary.Elems[:min(max(n, 0), len(ary.Elems))]...), nil
	})
	a.Define("last", -1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		ary := self(v)
		if len(args) == 0 {
			return ary.At(-1), nil
		}
		n, err := env.index(args[0])
		if err != nil {
			return nil, err
		}
		n = min(max(n, 0), len(ary.Elems))
		return NewArray(ary.Elems[len(ary.Elems)-n:]...), nil
	})
	a.Define("include?", 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		for _, el := range self(v).Elems {
			eq, err := env.equal(el, args[0])
			if err != nil {
				return nil, err
			}
			if eq {
				return True, nil
			}
		}
		return False, nil
	})
	a.Define("index", 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		for i, el := range self(v).Elems {
			eq, err := env.equal(el, args[0])
			if err != nil {
				return nil, err
			}
			if eq {
				return Integer(i), nil
			}
		}
		return Nil, nil
	})
	a.Define("join", -1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		sep := ""
		if len(args) > 0 && !IsNil(args[0]) {
			s, err := env.ToS(args[0])
			if err != nil {
				return nil, err
			}
			sep = s
		}
		parts := make([]string, len(self(v).Elems))
		for i, el := range self(v).Elems {
			if inner, ok := el.(*Array); ok {
				joined, err := env.Send(inner, "join", args, nil)
				if err != nil {
					return nil, err
				}
				el = joined
			}
			s, err := env.ToS(el)
			if err != nil {
				return nil, err
			}
			parts[i] = s
		}
		return NewString(strings.Join(parts, sep)), nil
	})
	a.Define("+", 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		o, err := env.array(args[0])
		if err != nil {
			return nil, err
		}
		return NewArray(append(append([]Value(nil), self(v).Elems...), o.Elems...)...), nil
	})
	a.Define("-", 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		o, err := env.array(args[0])
		if err != nil {
			return nil, err
		}
		drop := make(map[hashKey]bool, len(o.Elems))
		for _, el := range o.Elems {
			drop[keyOf(el)] = true
		}
		out := NewArray()
		for _, el := range self(v).Elems {
			if !drop[keyOf(el)] {
				out.Elems = append(out.Elems, el)
			}
		}
		return out, nil
	})
	a.Define("*", 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		if sep, ok := args[0].(*String); ok {
			return env.Send(v, "join", []Value{sep}, nil)
		}
		n, err := env.index(args[0])
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, env.Raise(env.rt.ArgumentError, "negative argument")
		}
		out := NewArray()
		for i := 0; i < n; i++ {
			out.Elems = append(out.Elems, self(v).Elems...)
		}
		return out, nil
	})
	a.Define("reverse", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		src := self(v).Elems
		out := make([]Value, len(src))
		for i, el := range src {
			out[len(src)-1-i] = el
		}
		return &Array{Elems: out}, nil
	})
	a.Define("compact", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		out := NewArray()
		for _, el := range self(v).Elems {
			if !IsNil(el) {
				out.Elems = append(out.Elems, el)
			}
		}
		return out, nil
	})
	a.Define("uniq", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		seen := map[hashKey]bool{}
		out := NewArray()
		for _, el := range self(v).Elems {
			if k := keyOf(el); !seen[k] {
				seen[k] = true
				out.Elems = append(out.Elems, el)
			}
		}
		return out, nil
	})
	a.Define("flatten", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		var flat func(dst, src []Value) []Value
		flat = func(dst, src []Value) []Value {
			for _, el := range src {
				if inner, ok := el.(*Array); ok {
					dst = flat(dst, inner.Elems)
				} else {
					dst = append(dst, el)
				}
			}
			return dst
		}
		return &Array{Elems: flat(nil, self(v).Elems)}, nil
	})
	a.Define("sort", 0, func(env *Env, v Value, _ []Value, blk *Proc) (Value, error) {
		out := NewArray(self(v).Elems...)
		var failure error
		sort.SliceStable(out.Elems, func(i, j int) bool {
			if failure != nil {
				return false
			}
			var n int
			if blk != nil {
				res, err := blk.Call(env, out.Elems[i], out.Elems[j])
				if err != nil {
					failure = err
					return false
				}
				c, ok := res.(Integer)
				if !ok {
					failure = env.typeError(res, "Integer")
					return false
				}
				n = int(c)
			} else {
				c, err := env.compare(out.Elems[i], out.Elems[j])
				if err != nil {
					failure = err
					return false
				}
				n = c
			}
			return n < 0
		})
		if failure != nil {
			return nil, failure
		}
		return out, nil
	})
	extreme := func(want int) MethodFn {
		return func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
			elems := self(v).Elems
			if len(elems) == 0 {
				return Nil, nil
			}
			best := elems[0]
			for _, el := range elems[1:] {
				c, err := env.compare(el, best)
				if err != nil {
					return nil, err
				}
				if c*want > 0 {
					best = el
				}
			}
			return best, nil
		}
	}
	a.Define("min", 0, extreme(-1))
	a.Define("max", 0, extreme(1))
	a.Define("sum", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		var acc Value = Integer(0)
		for _, el := range self(v).Elems {
			res, err := env.Send(acc, "+", []Value{el}, nil)
			if err != nil {
				return nil, err
			}
			acc = res
		}
		return acc, nil
	})
	a.Define("dup", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return NewArray(self(v).Elems...), nil
	})

	a.Define("each", 0, func(env *Env, v Value, _ []Value, blk *Proc) (Value, error) {
		if err := env.needBlock(blk); err != nil {
			return nil, err
		}
		return v, env.each(self(v).Elems, blk, nil)
	})
	a.Define("each_with_index", 0, func(env *Env, v Value, _ []Value, blk *Proc) (Value, error) {
		if err := env.needBlock(blk); err != nil {
			return nil, err
		}
		for i := 0; i < len(self(v).Elems); i++ {
			if _, err := blk.Call(env, self(v).Elems[i], Integer(i)); err != nil {
				return nil, err
			}
		}
		return v, nil
	})
	mapFn := func(env *Env, v Value, _ []Value, blk *Proc) (Value, error) {
		if err := env.needBlock(blk); err != nil {
			return nil, err
		}
		out := NewArray()
		err := env.each(self(v).Elems, blk, func(_ int, res Value) error {
			out.Elems = append(out.Elems, res)
			return nil
		})
		return out, err
	}
	a.Define("map", 0, mapFn)
	a.Define("collect", 0, mapFn)
	filter := func(keep bool) MethodFn {
		return func(env *Env, v Value, _ []Value, blk *Proc) (Value, error) {
			if err := env.needBlock(blk); err != nil {
				return nil, err
			}
			elems := self(v).Elems
			out := NewArray()
			err := env.each(elems, blk, func(i int, res Value) error {
				if Truthy(res) == keep {
					out.Elems = append(out.Elems, elems[i])
				}
				return nil
			})
			return out, err
		}
	}
	a.Define("select", 0, filter(true))
	a.Define("filter", 0, filter(true))
	a.Define("reject", 0, filter(false))
	a.Define("find", 0, func(env *Env, v Value, _ []Value, blk *Proc) (Value, error) {
		if err := env.needBlock(blk); err != nil {
			return nil, err
		}
		for _, el := range self(v).Elems {
			res, err := blk.Call(env, el)
			if err != nil {
				return nil, err
			}
			if Truthy(res) {
				return el, nil
			}
		}
		return Nil, nil
	})
	a.Define("any?", 0, func(env *Env, v Value, _ []Value, blk *Proc) (Value, error) {
		for _, el := range self(v).Elems {
			res := el
			if blk != nil {
				var err error
				if res, err = blk.Call(env, el); err != nil {
					return nil, err
				}
			}
			if Truthy(res) {
				return True, nil
			}
		}
		return False, nil
	})
	a.Define("all?", 0, func(env *Env, v Value, _ []Value, blk *Proc) (Value, error) {
		for _, el := range self(v).Elems {
			res := el
			if blk != nil {
				var err error
				if res, err = blk.Call(env, el); err != nil {
					return nil, err
				}
			}
			if !Truthy(res) {
				return False, nil
			}
		}
		return True, nil
	})
	a.Define("inject", -1, func(env *Env, v Value, args []Value, blk *Proc) (Value, error) {
		if err := env.needBlock(blk); err != nil {
			return nil, err
		}
		elems := self(v).Elems
		var acc Value = Nil
		if len(args) > 0 {
			acc = args[0]
		} else if len(elems) > 0 {
			acc, elems = elems[0], elems[1:]
		}
		for _, el := range elems {
			res, err := blk.Call(env, acc, el)
			if err != nil {
				return nil, err
			}
			acc = res
		}
		return acc, nil
	})
}

// rangeBounds resolves r against a sequence of length n into [lo, hi).
func (e *Env) rangeBounds(r *Range, n int) (int, int, error) {
	lo, err := e.index(r.Begin)
	if err != nil {
		return 0, 0, err
	}
	hi := n - 1
	if !IsNil(r.End) {
		if hi, err = e.index(r.End); err != nil {
			return 0, 0, err
		}
	}
	if lo < 0 {
		lo += n
	}
	if hi < 0 {
		hi += n
	}
	if !r.Exclusive || IsNil(r.End) {
		hi++
	}
	if lo < 0 {
		return n + 1, n + 1, nil
	}
	hi = min(hi, n)
	if hi < lo {
		hi = lo
	}
	return lo, hi, nil
}
