package object

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
)

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

func ipow(base, exp int64) int64 {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

// toFloat widens a numeric argument.
func toFloat(v Value) (float64, bool) {
	switch v := v.(type) {
	case Integer:
		return float64(v), true
	case Float:
		return float64(v), true
	case *Rational:
		f, _ := v.r.Float64()
		return f, true
	}
	return 0, false
}

func (e *Env) coerceError(self, other Value) error {
	if IsNil(other) {
		return e.Raise(e.rt.TypeError, "nil can't be coerced into %s", e.rt.ClassOf(self).Name())
	}
	return e.Raise(e.rt.TypeError, "%s can't be coerced into %s", e.rt.ClassOf(other).Name(), e.rt.ClassOf(self).Name())
}

func compareFloats(a, b float64) Value {
	switch {
	case a < b:
		return Integer(-1)
	case a > b:
		return Integer(1)
	case a == b:
		return Integer(0)
	}
	return Nil
}

func (rt *Runtime) bootNumeric() {
	i := rt.IntegerClass
	arith := func(name string, ints func(env *Env, a, b int64) (Value, error), floats func(a, b float64) Value) {
		i.Define(name, 1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
			a := int64(self.(Integer))
			switch b := args[0].(type) {
			case Integer:
				return ints(env, a, int64(b))
			case Float:
				return floats(float64(a), float64(b)), nil
			}
			return nil, env.coerceError(self, args[0])
		})
		rt.FloatClass.Define(name, 1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
			b, ok := toFloat(args[0])
			if !ok {
				return nil, env.coerceError(self, args[0])
			}
			return floats(float64(self.(Float)), b), nil
		})
	}
	arith("+", func(_ *Env, a, b int64) (Value, error) { return Integer(a + b), nil },
		func(a, b float64) Value { return Float(a + b) })
	arith("-", func(_ *Env, a, b int64) (Value, error) { return Integer(a - b), nil },
		func(a, b float64) Value { return Float(a - b) })
	arith("*", func(_ *Env, a, b int64) (Value, error) { return Integer(a * b), nil },
		func(a, b float64) Value { return Float(a * b) })
	arith("/", func(env *Env, a, b int64) (Value, error) {
		if b == 0 {
			return nil, env.Raise(env.rt.ZeroDivisionError, "divided by 0")
		}
		return Integer(floorDiv(a, b)), nil
	}, func(a, b float64) Value { return Float(a / b) })
	arith("%", func(env *Env, a, b int64) (Value, error) {
		if b == 0 {
			return nil, env.Raise(env.rt.ZeroDivisionError, "divided by 0")
		}
		return Integer(floorMod(a, b)), nil
	}, func(a, b float64) Value { return Float(math.Mod(a, b)) })
	arith("**", func(env *Env, a, b int64) (Value, error) {
		if b < 0 {
			return Float(math.Pow(float64(a), float64(b))), nil
		}
		return Integer(ipow(a, b)), nil
	}, func(a, b float64) Value { return Float(math.Pow(a, b)) })
	arith("<=>", func(_ *Env, a, b int64) (Value, error) {
		return compareFloats(float64(a), float64(b)), nil
	}, compareFloats)

	compare := func(name string, test func(c int) bool) {
		fn := func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
			a, _ := toFloat(self)
			b, ok := toFloat(args[0])
			if !ok {
				s, _ := env.Inspect(args[0])
				return nil, env.Raise(env.rt.ArgumentError, "comparison of %s with %s failed", env.rt.ClassOf(self).Name(), s)
			}
			if ai, ok := self.(Integer); ok {
				if bi, ok := args[0].(Integer); ok {
					return Bool(test(cmpInt(int64(ai), int64(bi)))), nil
				}
			}
			c, ok := compareFloats(a, b).(Integer)
			if !ok {
				return False, nil
			}
			return Bool(test(int(c))), nil
		}
		i.Define(name, 1, fn)
		rt.FloatClass.Define(name, 1, fn)
	}
	compare("<", func(c int) bool { return c < 0 })
	compare("<=", func(c int) bool { return c <= 0 })
	compare(">", func(c int) bool { return c > 0 })
	compare(">=", func(c int) bool { return c >= 0 })

	eq := func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		if ai, ok := self.(Integer); ok {
			if bi, ok := args[0].(Integer); ok {
				return Bool(ai == bi), nil
			}
		}
		a, _ := toFloat(self)
		b, ok := toFloat(args[0])
		return Bool(ok && a == b), nil
	}
	i.Define("==", 1, eq)
	i.Define("===", 1, eq)
	rt.FloatClass.Define("==", 1, eq)
	rt.FloatClass.Define("===", 1, eq)
	i.Define("eql?", 1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		return Bool(self == args[0]), nil
	})

	i.Define("-@", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return -self.(Integer), nil
	})
	i.Define("to_s", -1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		base := 10
		if len(args) > 0 {
			if b, ok := args[0].(Integer); ok {
				base = int(b)
			}
		}
		return NewString(strconv.FormatInt(int64(self.(Integer)), base)), nil
	})
	i.Define("inspect", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return NewString(strconv.FormatInt(int64(self.(Integer)), 10)), nil
	})
	i.Define("to_i", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) { return self, nil })
	i.Define("to_f", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return Float(self.(Integer)), nil
	})
	i.Define("hash", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) { return self, nil })
	i.Define("zero?", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return Bool(self.(Integer) == 0), nil
	})
	i.Define("even?", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return Bool(self.(Integer)%2 == 0), nil
	})
	i.Define("odd?", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return Bool(self.(Integer)%2 != 0), nil
	})
	i.Define("succ", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return self.(Integer) + 1, nil
	})
	i.Define("pred", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return self.(Integer) - 1, nil
	})
	i.Define("abs", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		if n := self.(Integer); n < 0 {
			return -n, nil
		}
		return self, nil
	})
	i.Define("times", 0, func(env *Env, self Value, _ []Value, blk *Proc) (Value, error) {
		if err := env.needBlock(blk); err != nil {
			return nil, err
		}
		for n := Integer(0); n < self.(Integer); n++ {
			if _, err := blk.Call(env, n); err != nil {
				return nil, err
			}
		}
		return self, nil
	})
	i.Define("upto", 1, func(env *Env, self Value, args []Value, blk *Proc) (Value, error) {
		if err := env.needBlock(blk); err != nil {
			return nil, err
		}
		limit, ok := args[0].(Integer)
		if !ok {
			return nil, env.coerceError(self, args[0])
		}
		for n := self.(Integer); n <= limit; n++ {
			if _, err := blk.Call(env, n); err != nil {
				return nil, err
			}
		}
		return self, nil
	})
	for _, op := range []string{"&", "|", "^", "<<", ">>"} {
		op := op
		i.Define(op, 1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
			b, ok := args[0].(Integer)
			if !ok {
				return nil, env.coerceError(self, args[0])
			}
			a := self.(Integer)
			switch op {
			case "&":
				return a & b, nil
			case "|":
				return a | b, nil
			case "^":
				return a ^ b, nil
			case "<<":
				return a << uint(b), nil
			}
			return a >> uint(b), nil
		})
	}

	f := rt.FloatClass
	fstr := func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return NewString(FormatFloat(float64(self.(Float)))), nil
	}
	f.Define("to_s", 0, fstr)
	f.Define("inspect", 0, fstr)
	f.Define("to_f", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) { return self, nil })
	f.Define("to_i", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return Integer(math.Trunc(float64(self.(Float)))), nil
	})
	f.Define("-@", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return -self.(Float), nil
	})
	round := func(name string, fn func(float64) float64) {
		f.Define(name, 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
			return Integer(fn(float64(self.(Float)))), nil
		})
	}
	round("floor", math.Floor)
	round("ceil", math.Ceil)
	round("round", math.Round)
	f.Define("nan?", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return Bool(math.IsNaN(float64(self.(Float)))), nil
	})

	r := rt.RationalClass
	r.Define("to_s", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		q := self.(*Rational).r
		return NewString(q.Num().String() + "/" + q.Denom().String()), nil
	})
	r.Define("inspect", 0, func(env *Env, self Value, args []Value, blk *Proc) (Value, error) {
		q := self.(*Rational).r
		return NewString("(" + q.Num().String() + "/" + q.Denom().String() + ")"), nil
	})
	r.Define("to_r", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) { return self, nil })
	r.Define("+", 1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		var other *big.Rat
		switch b := args[0].(type) {
		case *Rational:
			other = b.r
		case Integer:
			other = new(big.Rat).SetInt64(int64(b))
		default:
			return nil, env.coerceError(self, args[0])
		}
		return &Rational{r: new(big.Rat).Add(self.(*Rational).r, other)}, nil
	})
	r.Define("==", 1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		switch b := args[0].(type) {
		case *Rational:
			return Bool(self.(*Rational).r.Cmp(b.r) == 0), nil
		case Integer:
			return Bool(self.(*Rational).r.Cmp(new(big.Rat).SetInt64(int64(b))) == 0), nil
		}
		return False, nil
	})

	cx := rt.ComplexClass
	cstr := func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		c := complex128(self.(Complex))
		sign := "+"
		im := imag(c)
		if im < 0 || (im == 0 && math.Signbit(im)) {
			sign = "-"
			im = -im
		}
		return NewString(fmt.Sprintf("%s%s%si", FormatFloat(real(c)), sign, FormatFloat(im))), nil
	}
	cx.Define("to_s", 0, cstr)
	cx.Define("inspect", 0, func(env *Env, self Value, args []Value, blk *Proc) (Value, error) {
		s, err := cstr(env, self, args, blk)
		if err != nil {
			return nil, err
		}
		return NewString("(" + s.(*String).value + ")"), nil
	})
	cx.Define("real", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return Float(real(complex128(self.(Complex)))), nil
	})
	cx.Define("imaginary", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return Float(imag(complex128(self.(Complex)))), nil
	})
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
