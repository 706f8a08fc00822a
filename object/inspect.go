package object

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ToS returns the string form of v through its to_s method.
func (e *Env) ToS(v Value) (string, error) {
	if s, ok := v.(*String); ok {
		return s.value, nil
	}
	res, err := e.Send(v, "to_s", nil, nil)
	if err != nil {
		return "", err
	}
	if s, ok := res.(*String); ok {
		return s.value, nil
	}
	return defaultToS(e.rt, v), nil
}

// Inspect returns the inspect form of v through its inspect method.
func (e *Env) Inspect(v Value) (string, error) {
	res, err := e.Send(v, "inspect", nil, nil)
	if err != nil {
		return "", err
	}
	if s, ok := res.(*String); ok {
		return s.value, nil
	}
	return defaultToS(e.rt, v), nil
}

func defaultToS(rt *Runtime, v Value) string {
	if v == rt.Main {
		return "main"
	}
	return fmt.Sprintf("#<%s>", rt.ClassOf(v).Name())
}

// FormatFloat renders f the way Float#to_s does.
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		if !strings.Contains(mant, ".") {
			mant += ".0"
		}
		sign := exp[0]
		digits := strings.TrimLeft(exp[1:], "0")
		for len(digits) < 2 {
			digits = "0" + digits
		}
		return fmt.Sprintf("%se%c%s", mant, sign, digits)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// InspectString quotes s with Ruby escapes.
func InspectString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case '\x1b':
			sb.WriteString(`\e`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&sb, `\x%02X`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// InspectSymbol renders :name, quoting names that need it.
func InspectSymbol(s Symbol) string {
	name := string(s)
	if isPlainSymbol(name) {
		return ":" + name
	}
	return ":" + InspectString(name)
}

func isPlainSymbol(name string) bool {
	if name == "" {
		return false
	}
	switch name {
	case "+", "-", "*", "/", "%", "**", "==", "!=", "<", ">", "<=", ">=", "<=>",
		"===", "[]", "[]=", "<<", ">>", "!", "=~", "&", "|", "^", "~", "+@", "-@", "call":
		return true
	}
	for i, r := range name {
		ok := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 0x7f ||
			(i > 0 && r >= '0' && r <= '9') ||
			(i == 0 && (r == '@' || r == '$')) ||
			(i == len(name)-1 && (r == '?' || r == '!' || r == '='))
		if !ok {
			return false
		}
	}
	return true
}

func (e *Env) inspectJoin(vals []Value, sep string) (string, error) {
	parts := make([]string, len(vals))
	for i, v := range vals {
		s, err := e.Inspect(v)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, sep), nil
}
