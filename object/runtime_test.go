package object

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnv(t *testing.T) (*Env, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	rt := NewRuntime(&out)
	return rt.TopEnv("test.rb"), &out
}

func send(t *testing.T, env *Env, recv Value, name string, args ...Value) Value {
	t.Helper()
	v, err := env.Send(recv, Symbol(name), args, nil)
	require.NoError(t, err)
	return v
}

func inspect(t *testing.T, env *Env, v Value) string {
	t.Helper()
	s, err := env.Inspect(v)
	require.NoError(t, err)
	return s
}

func TestIntegerArithmetic(t *testing.T) {
	env, _ := newTestEnv(t)

	assert.Equal(t, Integer(5), send(t, env, Integer(2), "+", Integer(3)))
	assert.Equal(t, Integer(-4), send(t, env, Integer(-7), "/", Integer(2)))
	assert.Equal(t, Integer(1), send(t, env, Integer(-7), "%", Integer(2)))
	assert.Equal(t, Integer(1024), send(t, env, Integer(2), "**", Integer(10)))
	assert.Equal(t, Float(2.5), send(t, env, Integer(5), "/", Float(2)))
	assert.Equal(t, True, send(t, env, Integer(3), "<", Float(3.5)))

	_, err := env.Send(Integer(1), "/", []Value{Integer(0)}, nil)
	exc, rerr := Rescue(err)
	require.NoError(t, rerr)
	assert.Equal(t, "ZeroDivisionError", exc.Class().Name())
	assert.Equal(t, "divided by 0", exc.Message)
}

func TestFormatFloat(t *testing.T) {
	tests := map[float64]string{
		1:       "1.0",
		2.5:     "2.5",
		-0.125:  "-0.125",
		1e20:    "1.0e+20",
		1.5e-7:  "1.5e-07",
		1234567: "1234567.0",
	}
	for f, want := range tests {
		assert.Equal(t, want, FormatFloat(f), "FormatFloat(%v)", f)
	}
}

func TestInspect(t *testing.T) {
	env, _ := newTestEnv(t)

	tests := []struct {
		value Value
		want  string
	}{
		{Nil, "nil"},
		{True, "true"},
		{Integer(42), "42"},
		{Float(3), "3.0"},
		{NewString("a\"b\n"), `"a\"b\n"`},
		{Symbol("foo"), ":foo"},
		{Symbol("foo bar"), `:"foo bar"`},
		{Symbol("empty?"), ":empty?"},
		{NewArray(Integer(1), NewString("x"), Nil), `[1, "x", nil]`},
		{NewHash(Symbol("a"), Integer(1), NewString("b"), Integer(2)), `{a: 1, "b" => 2}`},
		{NewRange(Integer(1), Integer(3), true), "1...3"},
		{NewRational(6, 4), "(3/2)"},
		{env.rt.Main, "main"},
		{env.rt.StringClass, "String"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inspect(t, env, tt.value))
	}
}

func TestHashPreservesInsertionOrder(t *testing.T) {
	h := NewHash()
	h.Put(Symbol("b"), Integer(1))
	h.Put(Symbol("a"), Integer(2))
	h.Put(Symbol("b"), Integer(3))
	assert.Equal(t, []Value{Symbol("b"), Symbol("a")}, h.Keys())
	assert.Equal(t, []Value{Integer(3), Integer(2)}, h.Values())

	v, ok := h.Delete(Symbol("b"))
	require.True(t, ok)
	assert.Equal(t, Integer(3), v)
	got, ok := h.Get(Symbol("a"))
	require.True(t, ok)
	assert.Equal(t, Integer(2), got)
}

func TestHashStringKeysAreFrozenCopies(t *testing.T) {
	key := NewString("k")
	h := NewHash(key, Integer(1))
	stored := h.Keys()[0].(*String)
	assert.NotSame(t, key, stored)
	assert.True(t, stored.Frozen())
	assert.False(t, key.Frozen())
}

func TestExceptionHierarchy(t *testing.T) {
	env, _ := newTestEnv(t)
	rt := env.Runtime()

	err := env.Raise(rt.KeyError, "key not found: :x")
	exc, rerr := Rescue(err)
	require.NoError(t, rerr)

	for _, c := range []*Class{rt.KeyError, rt.IndexError, rt.StandardError, rt.Exception} {
		m, err := env.MatchException(exc, c)
		require.NoError(t, err)
		assert.Equal(t, True, m, c.Name())
	}
	m, err := env.MatchException(exc, NewArray(rt.TypeError, rt.ArgumentError))
	require.NoError(t, err)
	assert.Equal(t, False, m)

	brk := env.BreakOut(7, Integer(1))
	bexc, _ := Rescue(brk)
	m, err = env.MatchException(bexc, rt.Exception)
	require.NoError(t, err)
	assert.Equal(t, False, m)
	assert.Equal(t, True, MatchBreakPoint(bexc, 7))
	assert.Equal(t, False, MatchBreakPoint(bexc, 8))
}

func TestRaiseValue(t *testing.T) {
	env, _ := newTestEnv(t)
	rt := env.Runtime()

	exc, _ := Rescue(env.RaiseValue(NewString("boom"), nil))
	assert.Equal(t, rt.RuntimeError, exc.Class())
	assert.Equal(t, "boom", exc.Message)

	exc, _ = Rescue(env.RaiseValue(rt.ArgumentError, NewString("bad")))
	assert.Equal(t, rt.ArgumentError, exc.Class())
	assert.Equal(t, "bad", exc.Message)
	assert.Equal(t, "test.rb:1:in '<main>': bad (ArgumentError)", exc.FullMessage())
}

func TestTopLevelMethodsArePrivate(t *testing.T) {
	env, _ := newTestEnv(t)
	rt := env.Runtime()

	_, err := env.DefineMethod(rt.Main, "greet", func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		return NewString("hi"), nil
	}, 0)
	require.NoError(t, err)

	v := send(t, env, rt.Main, "greet")
	assert.Equal(t, "hi", v.(*String).String())

	_, err = env.PublicSend(Integer(1), "greet", nil, nil)
	exc, _ := Rescue(err)
	require.NotNil(t, exc)
	assert.Equal(t, rt.NoMethodError, exc.Class())
	assert.Equal(t, "private method 'greet' called for an instance of Integer", exc.Message)

	_, err = env.Send(rt.Main, "missing", nil, nil)
	exc, _ = Rescue(err)
	require.NotNil(t, exc)
	assert.Equal(t, rt.NameError, exc.Class())
}

func TestClassesAndSuper(t *testing.T) {
	env, _ := newTestEnv(t)
	rt := env.Runtime()

	base, err := env.DefineClass(Nil, Nil, "Base", false)
	require.NoError(t, err)
	base.Define("name", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return NewString("base"), nil
	})
	child, err := env.DefineClass(Nil, base, "Child", false)
	require.NoError(t, err)
	child.Define("name", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		up, err := env.Super(self, nil, nil)
		if err != nil {
			return nil, err
		}
		return NewString("child<" + up.(*String).String() + ">"), nil
	})

	obj := send(t, env, child, "new")
	assert.Equal(t, "child<base>", send(t, env, obj, "name").(*String).String())
	assert.Equal(t, "Child", child.Name())
	assert.Equal(t, True, send(t, env, obj, "is_a?", base))

	_, err = env.DefineClass(Nil, rt.StringClass, "Child", false)
	exc, _ := Rescue(err)
	require.NotNil(t, exc)
	assert.Equal(t, "superclass mismatch for class Child", exc.Message)

	mod, err := env.DefineModule(child, "Inner")
	require.NoError(t, err)
	assert.Equal(t, "Child::Inner", mod.Name())
}

func TestConstFindAutoload(t *testing.T) {
	env, _ := newTestEnv(t)
	rt := env.Runtime()

	runs := 0
	env.Autoload(rt.ObjectClass, "Lazy", func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		runs++
		return Nil, env.ConstSet(self, "Lazy", Integer(9))
	})
	for range 2 {
		v, err := env.ConstFind(rt.ObjectClass, "Lazy", false)
		require.NoError(t, err)
		assert.Equal(t, Integer(9), v)
	}
	assert.Equal(t, 1, runs)

	_, err := env.ConstFind(rt.ObjectClass, "Nope", false)
	exc, _ := Rescue(err)
	require.NotNil(t, exc)
	assert.Equal(t, "uninitialized constant Nope", exc.Message)
}

func TestLoadFileRequireOnce(t *testing.T) {
	env, _ := newTestEnv(t)
	runs := 0
	body := func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		runs++
		assert.Equal(t, "lib.rb", env.File())
		return Nil, nil
	}

	v, err := env.LoadFile("lib.rb", true, body)
	require.NoError(t, err)
	assert.Equal(t, True, v)
	v, err = env.LoadFile("lib.rb", true, body)
	require.NoError(t, err)
	assert.Equal(t, False, v)
	_, err = env.LoadFile("lib.rb", false, body)
	require.NoError(t, err)
	assert.Equal(t, 2, runs)
}

func TestBlocksAndVariables(t *testing.T) {
	env, out := newTestEnv(t)

	env.VarSet(0, 0, Integer(0))
	blk := env.NewBlock(env.rt.Main, func(benv *Env, self Value, args []Value, _ *Proc) (Value, error) {
		sum := benv.VarGet(1, 0).(Integer) + args[0].(Integer)
		benv.VarSet(1, 0, sum)
		return sum, nil
	}, 1)

	_, err := env.Send(NewArray(Integer(1), Integer(2), Integer(3)), "each", nil, blk)
	require.NoError(t, err)
	assert.Equal(t, Integer(6), env.VarGet(0, 0))

	mapped, err := env.Send(NewRange(Integer(1), Integer(3), false), "map", nil, blk)
	require.NoError(t, err)
	assert.Equal(t, "[7, 9, 12]", inspect(t, env, mapped))

	send(t, env, env.rt.Main, "puts", NewString("a"), NewArray(Integer(1), Integer(2)))
	assert.Equal(t, "a\n1\n2\n", out.String())
}

func TestLambdaArity(t *testing.T) {
	env, _ := newTestEnv(t)
	blk := env.NewBlock(Nil, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		return Integer(len(args)), nil
	}, 2)

	v, err := blk.Call(env, Integer(1))
	require.NoError(t, err)
	assert.Equal(t, Integer(1), v)

	l, err := env.ToLambda(blk)
	require.NoError(t, err)
	_, err = l.(*Proc).Call(env, Integer(1))
	exc, _ := Rescue(err)
	require.NotNil(t, exc)
	assert.Equal(t, "wrong number of arguments (given 1, expected 2)", exc.Message)
}

func TestKeywordChecks(t *testing.T) {
	env, _ := newTestEnv(t)
	args := MarkKeywords([]Value{Integer(1), NewHash(Symbol("a"), Integer(1))})

	require.NoError(t, env.CheckArgs(args, 1, 1))
	kw := KeywordArgs(args)
	err := env.CheckRequiredKeywords(kw, "a", "b", "c")
	exc, _ := Rescue(err)
	require.NotNil(t, exc)
	assert.Equal(t, "missing keywords: :b, :c", exc.Message)

	err = env.CheckExtraKeywords(kw)
	exc, _ = Rescue(err)
	require.NotNil(t, exc)
	assert.Equal(t, "unknown keyword: :a", exc.Message)
}

func TestFrozenStrings(t *testing.T) {
	env, _ := newTestEnv(t)
	s := NewFrozenString("lit", "UTF-8")
	_, err := env.StringAppend(s, NewString("x"))
	exc, _ := Rescue(err)
	require.NotNil(t, exc)
	assert.Equal(t, env.rt.FrozenError, exc.Class())

	d := send(t, env, s, "dup").(*String)
	_, err = env.StringAppend(d, Integer(1))
	require.NoError(t, err)
	assert.Equal(t, "lit1", d.String())
}

func TestRegexpMatch(t *testing.T) {
	env, _ := newTestEnv(t)
	re, err := env.NewRegexp(`b(.)`, RegexpIgnoreCase)
	require.NoError(t, err)

	assert.Equal(t, Integer(1), send(t, env, re, "=~", NewString("aBc")))
	md := env.LastMatch()
	assert.Equal(t, "c", send(t, env, md, "[]", Integer(1)).(*String).String())
	assert.Equal(t, "/b(.)/i", inspect(t, env, re))

	assert.Equal(t, Nil, send(t, env, re, "=~", NewString("xyz")))
	assert.Equal(t, Nil, env.LastMatch())
}
