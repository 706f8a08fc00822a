package object

import (
	"math"
	"strings"
)

// Hash is an insertion-ordered map.
type Hash struct {
	keys     []Value
	values   []Value
	index    map[hashKey]int
	frozen   bool
	keywords bool

	Default Value
}

type hashKey struct {
	kind byte
	i    int64
	s    string
	p    Value
}

func keyOf(v Value) hashKey {
	switch v := v.(type) {
	case Integer:
		return hashKey{kind: 'i', i: int64(v)}
	case Float:
		if f := float64(v); f == math.Trunc(f) {
			return hashKey{kind: 'f', i: int64(f), s: "f"}
		}
		return hashKey{kind: 'f', i: int64(math.Float64bits(float64(v)))}
	case Symbol:
		return hashKey{kind: 'y', s: string(v)}
	case *String:
		return hashKey{kind: 's', s: v.value}
	case nilValue:
		return hashKey{kind: 'n'}
	case Boolean:
		if v {
			return hashKey{kind: 't'}
		}
		return hashKey{kind: 'b'}
	case *Array:
		var s []byte
		for _, e := range v.Elems {
			k := keyOf(e)
			s = append(s, k.kind)
			s = append(s, k.s...)
			s = append(s, byte(k.i), byte(k.i>>8), byte(k.i>>16), byte(k.i>>24), 0)
		}
		return hashKey{kind: 'a', s: string(s)}
	}
	return hashKey{kind: 'o', p: v}
}

// NewHash builds a hash from alternating keys and values.
func NewHash(kvs ...Value) *Hash {
	h := &Hash{index: make(map[hashKey]int), Default: Nil}
	for i := 0; i+1 < len(kvs); i += 2 {
		h.Put(kvs[i], kvs[i+1])
	}
	return h
}

func (h *Hash) Len() int { return len(h.keys) }

// Keys returns the keys in insertion order.
func (h *Hash) Keys() []Value { return append([]Value(nil), h.keys...) }

// Values returns the values in insertion order.
func (h *Hash) Values() []Value { return append([]Value(nil), h.values...) }

// Get returns the value stored at k.
func (h *Hash) Get(k Value) (Value, bool) {
	if i, ok := h.index[keyOf(k)]; ok {
		return h.values[i], true
	}
	return nil, false
}

// Put stores v at k, keeping the original position of an existing key.
// String keys are copied and frozen.
func (h *Hash) Put(k, v Value) {
	key := keyOf(k)
	if i, ok := h.index[key]; ok {
		h.values[i] = v
		return
	}
	if s, ok := k.(*String); ok && !s.frozen {
		c := s.Dup()
		c.frozen = true
		k = c
	}
	h.index[key] = len(h.keys)
	h.keys = append(h.keys, k)
	h.values = append(h.values, v)
}

// Delete removes k and returns its value.
func (h *Hash) Delete(k Value) (Value, bool) {
	key := keyOf(k)
	i, ok := h.index[key]
	if !ok {
		return nil, false
	}
	v := h.values[i]
	h.keys = append(h.keys[:i], h.keys[i+1:]...)
	h.values = append(h.values[:i], h.values[i+1:]...)
	delete(h.index, key)
	for j := i; j < len(h.keys); j++ {
		h.index[keyOf(h.keys[j])] = j
	}
	return v, true
}

// Dup returns a shallow copy.
func (h *Hash) Dup() *Hash {
	c := NewHash()
	for i, k := range h.keys {
		c.Put(k, h.values[i])
	}
	c.Default = h.Default
	return c
}

// Each calls fn for each pair in order until fn returns an error.
func (h *Hash) Each(fn func(k, v Value) error) error {
	for i := 0; i < len(h.keys); i++ {
		if err := fn(h.keys[i], h.values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (rt *Runtime) bootHash() {
	h := rt.HashClass
	self := func(v Value) *Hash { return v.(*Hash) }

	rt.singletonOf(h).Define("new", -1, func(env *Env, _ Value, args []Value, _ *Proc) (Value, error) {
		out := NewHash()
		if len(args) > 0 {
			out.Default = args[0]
		}
		return out, nil
	})

	inspect := func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		hash := self(v)
		if hash.Len() == 0 {
			return NewString("{}"), nil
		}
		parts := make([]string, 0, hash.Len())
		for i, k := range hash.keys {
			val, err := env.Inspect(hash.values[i])
			if err != nil {
				return nil, err
			}
			if sym, ok := k.(Symbol); ok && isPlainSymbol(string(sym)) {
				parts = append(parts, string(sym)+": "+val)
				continue
			}
			key, err := env.Inspect(k)
			if err != nil {
				return nil, err
			}
			parts = append(parts, key+" => "+val)
		}
		return NewString("{" + strings.Join(parts, ", ") + "}"), nil
	}
	h.Define("inspect", 0, inspect)
	h.Define("to_s", 0, inspect)
	h.Define("to_h", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) { return v, nil })
	h.Define("[]", 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		if val, ok := self(v).Get(args[0]); ok {
			return val, nil
		}
		return self(v).Default, nil
	})
	store := func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		if _, err := env.HashPut(v, args[0], args[1]); err != nil {
			return nil, err
		}
		return args[1], nil
	}
	h.Define("[]=", 2, store)
	h.Define("store", 2, store)
	h.Define("fetch", -1, func(env *Env, v Value, args []Value, blk *Proc) (Value, error) {
		if err := env.CheckArgs(args, 1, 2); err != nil {
			return nil, err
		}
		if val, ok := self(v).Get(args[0]); ok {
			return val, nil
		}
		switch {
		case blk != nil:
			return blk.Call(env, args[0])
		case len(args) == 2:
			return args[1], nil
		}
		key, _ := env.Inspect(args[0])
		return nil, env.Raise(env.rt.KeyError, "key not found: %s", key)
	})
	has := func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		_, ok := self(v).Get(args[0])
		return Bool(ok), nil
	}
	h.Define("key?", 1, has)
	h.Define("has_key?", 1, has)
	h.Define("include?", 1, has)
	h.Define("member?", 1, has)
	h.Define("keys", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return &Array{Elems: self(v).Keys()}, nil
	})
	h.Define("values", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return &Array{Elems: self(v).Values()}, nil
	})
	size := func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return Integer(self(v).Len()), nil
	}
	h.Define("size", 0, size)
	h.Define("length", 0, size)
	h.Define("empty?", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return Bool(self(v).Len() == 0), nil
	})
	h.Define("delete", 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		if err := env.checkFrozen(v); err != nil {
			return nil, err
		}
		if val, ok := self(v).Delete(args[0]); ok {
			return val, nil
		}
		return Nil, nil
	})
	h.Define("merge", -1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		out := self(v).Dup()
		for _, o := range args {
			if _, err := env.HashMerge(out, o); err != nil {
				return nil, err
			}
		}
		return out, nil
	})
	h.Define("update", -1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		if err := env.checkFrozen(v); err != nil {
			return nil, err
		}
		for _, o := range args {
			if _, err := env.HashMerge(v, o); err != nil {
				return nil, err
			}
		}
		return v, nil
	})
	h.Define("to_a", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		out := NewArray()
		_ = self(v).Each(func(k, val Value) error {
			out.Elems = append(out.Elems, NewArray(k, val))
			return nil
		})
		return out, nil
	})
	h.Define("==", 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		o, ok := args[0].(*Hash)
		if !ok || o.Len() != self(v).Len() {
			return False, nil
		}
		for i, k := range self(v).keys {
			other, ok := o.Get(k)
			if !ok {
				return False, nil
			}
			eq, err := env.equal(self(v).values[i], other)
			if err != nil || !eq {
				return False, err
			}
		}
		return True, nil
	})
	h.Define("dup", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return self(v).Dup(), nil
	})
	each := func(env *Env, v Value, _ []Value, blk *Proc) (Value, error) {
		if err := env.needBlock(blk); err != nil {
			return nil, err
		}
		return v, self(v).Each(func(k, val Value) error {
			_, err := blk.Call(env, NewArray(k, val))
			return err
		})
	}
	h.Define("each", 0, each)
	h.Define("each_pair", 0, each)
	h.Define("map", 0, func(env *Env, v Value, _ []Value, blk *Proc) (Value, error) {
		if err := env.needBlock(blk); err != nil {
			return nil, err
		}
		out := NewArray()
		err := self(v).Each(func(k, val Value) error {
			res, err := blk.Call(env, NewArray(k, val))
			if err != nil {
				return err
			}
			out.Elems = append(out.Elems, res)
			return nil
		})
		return out, err
	})
	h.Define("select", 0, func(env *Env, v Value, _ []Value, blk *Proc) (Value, error) {
		if err := env.needBlock(blk); err != nil {
			return nil, err
		}
		out := NewHash()
		err := self(v).Each(func(k, val Value) error {
			res, err := blk.Call(env, NewArray(k, val))
			if err != nil {
				return err
			}
			if Truthy(res) {
				out.Put(k, val)
			}
			return nil
		})
		return out, err
	})
}
