// Package object is the runtime object model targeted by both execution
// paths: the interpreter calls into it directly, generated Go programs
// import it.
//
// Every callable follows one calling convention, MethodFn. Helper entry
// points for raising, constant lookup, variable storage and interning hang
// off Env, the per-call execution context.
package object

import (
	"math/big"
	"regexp"
)

// Value is any runtime value. The set of implementations is closed.
type Value interface {
	objectValue()
}

// MethodFn is the calling convention for methods, blocks, class bodies and
// file bodies.
type MethodFn func(env *Env, self Value, args []Value, block *Proc) (Value, error)

type nilValue struct{}

// Boolean is true or false.
type Boolean bool

var (
	Nil   Value = nilValue{}
	True  Value = Boolean(true)
	False Value = Boolean(false)
)

// Bool converts a Go bool.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Truthy reports whether v counts as true in a condition.
func Truthy(v Value) bool {
	switch v {
	case nil, Nil, False:
		return false
	}
	return true
}

// IsNil reports whether v is nil.
func IsNil(v Value) bool {
	return v == nil || v == Nil
}

type (
	Integer int64
	Float   float64
	Symbol  string
	Complex complex128
)

// Intern returns the symbol for name.
func Intern(name string) Symbol { return Symbol(name) }

func (s Symbol) String() string { return string(s) }

// String is a mutable byte string with an encoding name.
type String struct {
	value    string
	encoding string
	frozen   bool
}

// NewString returns a mutable UTF-8 string.
func NewString(s string) *String {
	return &String{value: s, encoding: "UTF-8"}
}

// NewStringWithEncoding returns a mutable string in enc.
func NewStringWithEncoding(s, enc string) *String {
	if enc == "" {
		enc = "UTF-8"
	}
	return &String{value: s, encoding: enc}
}

// NewFrozenString returns an immutable string in enc.
func NewFrozenString(s, enc string) *String {
	str := NewStringWithEncoding(s, enc)
	str.frozen = true
	return str
}

func (s *String) String() string   { return s.value }
func (s *String) Encoding() string { return s.encoding }
func (s *String) Frozen() bool     { return s.frozen }
func (s *String) Freeze()          { s.frozen = true }

// Dup returns an unfrozen copy.
func (s *String) Dup() *String {
	return &String{value: s.value, encoding: s.encoding}
}

// Array is an ordered list of values.
type Array struct {
	Elems  []Value
	frozen bool
}

// NewArray copies vals into a new array.
func NewArray(vals ...Value) *Array {
	elems := make([]Value, len(vals))
	copy(elems, vals)
	return &Array{Elems: elems}
}

func (a *Array) Len() int { return len(a.Elems) }

// At returns element i, counting from the end when negative, or nil.
func (a *Array) At(i int) Value {
	if i < 0 {
		i += len(a.Elems)
	}
	if i < 0 || i >= len(a.Elems) {
		return Nil
	}
	return a.Elems[i]
}

// Range is begin..end or begin...end.
type Range struct {
	Begin, End Value
	Exclusive  bool
}

func NewRange(begin, end Value, exclusive bool) *Range {
	return &Range{Begin: begin, End: end, Exclusive: exclusive}
}

// Rational is an exact fraction.
type Rational struct {
	r *big.Rat
}

func NewRational(num, den int64) *Rational {
	if den == 0 {
		den = 1
	}
	return &Rational{r: big.NewRat(num, den)}
}

func (r *Rational) Rat() *big.Rat { return new(big.Rat).Set(r.r) }

// Regexp option bits.
const (
	RegexpIgnoreCase = 1
	RegexpExtended   = 2
	RegexpMultiline  = 4
)

// Regexp is a compiled regular expression.
type Regexp struct {
	Source  string
	Options int
	re      *regexp.Regexp
}

// MatchData is the result of a successful match.
type MatchData struct {
	regexp *Regexp
	str    string
	groups []int
}

// Object is an instance of a user-defined class.
type Object struct {
	class     *Class
	ivars     map[string]Value
	singleton *Class
	frozen    bool
}

// Proc is a block, a proc or a lambda: a function plus the context it
// closed over.
type Proc struct {
	Fn     MethodFn
	Self   Value
	Arity  int
	Lambda bool
	env    *Env
}

func (nilValue) objectValue()   {}
func (Boolean) objectValue()    {}
func (Integer) objectValue()    {}
func (Float) objectValue()      {}
func (Symbol) objectValue()     {}
func (Complex) objectValue()    {}
func (*String) objectValue()    {}
func (*Array) objectValue()     {}
func (*Hash) objectValue()      {}
func (*Range) objectValue()     {}
func (*Rational) objectValue()  {}
func (*Regexp) objectValue()    {}
func (*MatchData) objectValue() {}
func (*Object) objectValue()    {}
func (*Class) objectValue()     {}
func (*Proc) objectValue()      {}
func (*Exception) objectValue() {}
