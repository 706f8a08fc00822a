package object

import (
	"strconv"
	"strings"
)

func (e *Env) str(v Value) (*String, error) {
	s, ok := v.(*String)
	if !ok {
		return nil, e.typeError(v, "String")
	}
	return s, nil
}

func (rt *Runtime) bootString() {
	s := rt.StringClass
	self := func(v Value) *String { return v.(*String) }

	rt.singletonOf(s).Define("new", -1, func(env *Env, _ Value, args []Value, _ *Proc) (Value, error) {
		if len(args) == 0 {
			return NewString(""), nil
		}
		src, err := env.str(args[0])
		if err != nil {
			return nil, err
		}
		return src.Dup(), nil
	})

	s.Define("to_s", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) { return v, nil })
	s.Define("to_str", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) { return v, nil })
	s.Define("inspect", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return NewString(InspectString(self(v).value)), nil
	})
	s.Define("to_sym", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return Symbol(self(v).value), nil
	})
	s.Define("to_i", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		str := strings.TrimSpace(self(v).value)
		end := 0
		for end < len(str) && (str[end] >= '0' && str[end] <= '9' || (end == 0 && (str[end] == '-' || str[end] == '+'))) {
			end++
		}
		n, _ := strconv.ParseInt(str[:end], 10, 64)
		return Integer(n), nil
	})
	s.Define("to_f", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		f, _ := strconv.ParseFloat(strings.TrimSpace(self(v).value), 64)
		return Float(f), nil
	})
	length := func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return Integer(len([]rune(self(v).value))), nil
	}
	s.Define("length", 0, length)
	s.Define("size", 0, length)
	s.Define("bytesize", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return Integer(len(self(v).value)), nil
	})
	s.Define("encoding", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return NewString(self(v).encoding), nil
	})
	s.Define("force_encoding", 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		name, err := env.ToS(args[0])
		if err != nil {
			return nil, err
		}
		self(v).encoding = name
		return v, nil
	})
	eq := func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		o, ok := args[0].(*String)
		return Bool(ok && o.value == self(v).value), nil
	}
	s.Define("==", 1, eq)
	s.Define("===", 1, eq)
	s.Define("eql?", 1, eq)
	s.Define("<=>", 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		o, ok := args[0].(*String)
		if !ok {
			return Nil, nil
		}
		return Integer(strings.Compare(self(v).value, o.value)), nil
	})
	s.Define("hash", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		var h int64 = 5381
		for _, b := range []byte(self(v).value) {
			h = h*33 + int64(b)
		}
		return Integer(h), nil
	})
	s.Define("+", 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		o, err := env.str(args[0])
		if err != nil {
			return nil, err
		}
		return NewStringWithEncoding(self(v).value+o.value, self(v).encoding), nil
	})
	s.Define("*", 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		n, ok := args[0].(Integer)
		if !ok || n < 0 {
			return nil, env.Raise(env.rt.ArgumentError, "negative argument")
		}
		return NewStringWithEncoding(strings.Repeat(self(v).value, int(n)), self(v).encoding), nil
	})
	appendFn := func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		return env.StringAppend(v, args[0])
	}
	s.Define("<<", 1, appendFn)
	s.Define("concat", 1, appendFn)
	transform := func(name string, fn func(string) string) {
		s.Define(name, 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
			return NewStringWithEncoding(fn(self(v).value), self(v).encoding), nil
		})
	}
	transform("upcase", strings.ToUpper)
	transform("downcase", strings.ToLower)
	transform("strip", strings.TrimSpace)
	transform("chomp", func(s string) string { return strings.TrimSuffix(strings.TrimSuffix(s, "\n"), "\r") })
	transform("capitalize", func(s string) string {
		if s == "" {
			return s
		}
		r := []rune(strings.ToLower(s))
		return strings.ToUpper(string(r[0])) + string(r[1:])
	})
	transform("reverse", func(s string) string {
		r := []rune(s)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return string(r)
	})
	s.Define("empty?", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return Bool(self(v).value == ""), nil
	})
	predicate := func(name string, fn func(a, b string) bool) {
		s.Define(name, 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
			o, err := env.str(args[0])
			if err != nil {
				return nil, err
			}
			return Bool(fn(self(v).value, o.value)), nil
		})
	}
	predicate("include?", strings.Contains)
	predicate("start_with?", strings.HasPrefix)
	predicate("end_with?", strings.HasSuffix)
	s.Define("split", -1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		var parts []string
		if len(args) == 0 {
			parts = strings.Fields(self(v).value)
		} else {
			sep, err := env.str(args[0])
			if err != nil {
				return nil, err
			}
			parts = strings.Split(self(v).value, sep.value)
		}
		out := NewArray()
		for _, p := range parts {
			out.Elems = append(out.Elems, NewString(p))
		}
		return out, nil
	})
	s.Define("[]", 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		r := []rune(self(v).value)
		idx, ok := args[0].(Integer)
		if !ok {
			return nil, env.typeError(args[0], "Integer")
		}
		i := int(idx)
		if i < 0 {
			i += len(r)
		}
		if i < 0 || i >= len(r) {
			return Nil, nil
		}
		return NewString(string(r[i])), nil
	})
	s.Define("=~", 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		re, ok := args[0].(*Regexp)
		if !ok {
			return nil, env.Raise(env.rt.TypeError, "wrong argument type (expected Regexp)")
		}
		return env.match(re, self(v).value)
	})
	s.Define("freeze", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		self(v).frozen = true
		return v, nil
	})
	s.Define("dup", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return self(v).Dup(), nil
	})
}

func (rt *Runtime) bootSymbol() {
	y := rt.SymbolClass
	y.Define("to_s", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return NewString(string(v.(Symbol))), nil
	})
	y.Define("name", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return NewFrozenString(string(v.(Symbol)), "UTF-8"), nil
	})
	y.Define("to_sym", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) { return v, nil })
	y.Define("inspect", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return NewString(InspectSymbol(v.(Symbol))), nil
	})
	y.Define("to_proc", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return symbolProc(v.(Symbol)), nil
	})
	y.Define("length", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return Integer(len([]rune(string(v.(Symbol))))), nil
	})
	y.Define("<=>", 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		o, ok := args[0].(Symbol)
		if !ok {
			return Nil, nil
		}
		return Integer(strings.Compare(string(v.(Symbol)), string(o))), nil
	})
}

func (e *Env) match(re *Regexp, s string) (Value, error) {
	loc := re.re.FindStringSubmatchIndex(s)
	if loc == nil {
		e.rt.lastMatch = Nil
		return Nil, nil
	}
	e.rt.lastMatch = &MatchData{regexp: re, str: s, groups: loc}
	return Integer(len([]rune(s[:loc[0]]))), nil
}

func (rt *Runtime) bootRegexp() {
	r := rt.RegexpClass
	r.Define("source", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		return NewString(v.(*Regexp).Source), nil
	})
	inspect := func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		re := v.(*Regexp)
		var flags strings.Builder
		if re.Options&RegexpMultiline != 0 {
			flags.WriteByte('m')
		}
		if re.Options&RegexpIgnoreCase != 0 {
			flags.WriteByte('i')
		}
		if re.Options&RegexpExtended != 0 {
			flags.WriteByte('x')
		}
		return NewString("/" + re.Source + "/" + flags.String()), nil
	}
	r.Define("inspect", 0, inspect)
	r.Define("to_s", 0, inspect)
	r.Define("=~", 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		if IsNil(args[0]) {
			return Nil, nil
		}
		s, err := env.str(args[0])
		if err != nil {
			return nil, err
		}
		return env.match(v.(*Regexp), s.value)
	})
	r.Define("match?", 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		s, err := env.str(args[0])
		if err != nil {
			return nil, err
		}
		return Bool(v.(*Regexp).re.MatchString(s.value)), nil
	})
	r.Define("===", 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		s, ok := args[0].(*String)
		if !ok {
			return False, nil
		}
		res, err := env.match(v.(*Regexp), s.value)
		if err != nil {
			return nil, err
		}
		return Bool(!IsNil(res)), nil
	})

	m := rt.MatchDataClass
	m.Define("[]", 1, func(env *Env, v Value, args []Value, _ *Proc) (Value, error) {
		md := v.(*MatchData)
		i, ok := args[0].(Integer)
		if !ok || int(i)*2+1 >= len(md.groups) || md.groups[i*2] < 0 {
			return Nil, nil
		}
		return NewString(md.str[md.groups[i*2]:md.groups[i*2+1]]), nil
	})
	m.Define("to_s", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		md := v.(*MatchData)
		return NewString(md.str[md.groups[0]:md.groups[1]]), nil
	})
	m.Define("pre_match", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		md := v.(*MatchData)
		return NewString(md.str[:md.groups[0]]), nil
	})
	m.Define("post_match", 0, func(env *Env, v Value, _ []Value, _ *Proc) (Value, error) {
		md := v.(*MatchData)
		return NewString(md.str[md.groups[1]:]), nil
	})
}
