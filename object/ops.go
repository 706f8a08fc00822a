package object

import (
	"regexp"
	"strings"
)

// Operations backing the stack instructions. Each returns a Ruby-level
// exception when its operand has the wrong type.

func (e *Env) typeError(v Value, expected string) error {
	return e.Raise(e.rt.TypeError, "no implicit conversion of %s into %s", e.rt.ClassOf(v).Name(), expected)
}

func (e *Env) array(v Value) (*Array, error) {
	a, ok := v.(*Array)
	if !ok {
		return nil, e.typeError(v, "Array")
	}
	return a, nil
}

func (e *Env) checkFrozen(v Value) error {
	frozen := false
	switch v := v.(type) {
	case *String:
		frozen = v.frozen
	case *Array:
		frozen = v.frozen
	case *Hash:
		frozen = v.frozen
	}
	if frozen {
		s, _ := e.Inspect(v)
		return e.Raise(e.rt.FrozenError, "can't modify frozen %s: %s", e.rt.ClassOf(v).Name(), s)
	}
	return nil
}

// ArrayPush appends v to a and returns a.
func (e *Env) ArrayPush(a, v Value) (Value, error) {
	ary, err := e.array(a)
	if err != nil {
		return nil, err
	}
	if err := e.checkFrozen(ary); err != nil {
		return nil, err
	}
	ary.Elems = append(ary.Elems, v)
	return ary, nil
}

// ArrayPop removes and returns the last element, or def when empty.
func (e *Env) ArrayPop(a, def Value) (Value, error) {
	ary, err := e.array(a)
	if err != nil {
		return nil, err
	}
	if len(ary.Elems) == 0 {
		return def, nil
	}
	v := ary.Elems[len(ary.Elems)-1]
	ary.Elems = ary.Elems[:len(ary.Elems)-1]
	return v, nil
}

// ArrayShift removes and returns the first element, or def when empty.
func (e *Env) ArrayShift(a, def Value) (Value, error) {
	ary, err := e.array(a)
	if err != nil {
		return nil, err
	}
	if len(ary.Elems) == 0 {
		return def, nil
	}
	v := ary.Elems[0]
	ary.Elems = append([]Value(nil), ary.Elems[1:]...)
	return v, nil
}

// ArrayConcat splices each value into a: arrays are flattened one level,
// other values go through to_a when they respond to it.
func (e *Env) ArrayConcat(a Value, vals ...Value) (Value, error) {
	ary, err := e.array(a)
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		conv, err := e.ToArray(v)
		if err != nil {
			return nil, err
		}
		ary.Elems = append(ary.Elems, conv.(*Array).Elems...)
	}
	return ary, nil
}

// ArrayWrap converts v to an array: nil becomes [], arrays pass through,
// anything else is wrapped.
func ArrayWrap(v Value) Value {
	switch v := v.(type) {
	case nilValue:
		return NewArray()
	case *Array:
		return v
	}
	return NewArray(v)
}

// ToArray converts v with to_a semantics.
func (e *Env) ToArray(v Value) (Value, error) {
	switch v := v.(type) {
	case *Array:
		return v, nil
	case nilValue:
		return NewArray(), nil
	}
	if e.RespondTo(v, "to_a", true) {
		res, err := e.Send(v, "to_a", nil, nil)
		if err != nil {
			return nil, err
		}
		if a, ok := res.(*Array); ok {
			return a, nil
		}
		return nil, e.typeError(res, "Array")
	}
	return NewArray(v), nil
}

func (e *Env) hash(v Value) (*Hash, error) {
	h, ok := v.(*Hash)
	if !ok {
		return nil, e.typeError(v, "Hash")
	}
	return h, nil
}

// HashPut stores v at k in h and returns h.
func (e *Env) HashPut(h, k, v Value) (Value, error) {
	hash, err := e.hash(h)
	if err != nil {
		return nil, err
	}
	if err := e.checkFrozen(hash); err != nil {
		return nil, err
	}
	hash.Put(k, v)
	return hash, nil
}

// HashMerge copies the pairs of other into h and returns h.
func (e *Env) HashMerge(h, other Value) (Value, error) {
	hash, err := e.hash(h)
	if err != nil {
		return nil, err
	}
	o, err := e.hash(other)
	if err != nil {
		return nil, err
	}
	for i, k := range o.keys {
		hash.Put(k, o.values[i])
	}
	return hash, nil
}

// HashDelete removes key from h and returns its value, or def.
func (e *Env) HashDelete(h Value, key Symbol, def Value) (Value, error) {
	hash, err := e.hash(h)
	if err != nil {
		return nil, err
	}
	if v, ok := hash.Delete(key); ok {
		return v, nil
	}
	return def, nil
}

// CaseEqual evaluates pattern === v.
func (e *Env) CaseEqual(pattern, v Value) (Value, error) {
	return e.Send(pattern, "===", []Value{v}, nil)
}

// Not evaluates !v.
func Not(v Value) Value { return Bool(!Truthy(v)) }

// StringAppend appends the string form of v to s and returns s.
func (e *Env) StringAppend(s, v Value) (Value, error) {
	str, ok := s.(*String)
	if !ok {
		return nil, e.typeError(s, "String")
	}
	if err := e.checkFrozen(str); err != nil {
		return nil, err
	}
	tail, err := e.ToS(v)
	if err != nil {
		return nil, err
	}
	str.value += tail
	return str, nil
}

// NewRegexp compiles source with Ruby option bits.
func (e *Env) NewRegexp(source string, options int) (Value, error) {
	var flags strings.Builder
	if options&RegexpIgnoreCase != 0 {
		flags.WriteString("i")
	}
	if options&RegexpMultiline != 0 {
		flags.WriteString("s")
	}
	pattern := source
	if options&RegexpExtended != 0 {
		pattern = stripExtended(pattern)
	}
	if flags.Len() > 0 {
		pattern = "(?" + flags.String() + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, e.Raise(e.rt.ArgumentError, "invalid regexp /%s/: %v", source, err)
	}
	return &Regexp{Source: source, Options: options, re: re}, nil
}

func stripExtended(src string) string {
	var sb strings.Builder
	for _, line := range strings.Split(src, "\n") {
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		sb.WriteString(strings.Join(strings.Fields(line), ""))
	}
	return sb.String()
}

// StringToRegexp compiles the string v.
func (e *Env) StringToRegexp(v Value, options int) (Value, error) {
	s, err := e.ToS(v)
	if err != nil {
		return nil, err
	}
	return e.NewRegexp(s, options)
}

// DupObject returns a shallow copy of v.
func (e *Env) DupObject(v Value) (Value, error) {
	switch v := v.(type) {
	case *String:
		return v.Dup(), nil
	case *Array:
		return NewArray(v.Elems...), nil
	case *Hash:
		return v.Dup(), nil
	case *Object:
		c := &Object{class: v.class, ivars: make(map[string]Value, len(v.ivars))}
		for k, iv := range v.ivars {
			c.ivars[k] = iv
		}
		return c, nil
	}
	return v, nil
}

// Freeze marks v immutable and returns it.
func Freeze(v Value) Value {
	switch v := v.(type) {
	case *String:
		v.frozen = true
	case *Array:
		v.frozen = true
	case *Hash:
		v.frozen = true
	case *Object:
		v.frozen = true
	}
	return v
}

// IsFrozen reports whether v is immutable.
func IsFrozen(v Value) bool {
	switch v := v.(type) {
	case *String:
		return v.frozen
	case *Array:
		return v.frozen
	case *Hash:
		return v.frozen
	case *Object:
		return v.frozen
	}
	return true
}
