package object

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Exception is a raised (or raisable) exception object. It implements
// error so it can travel through MethodFn returns.
type Exception struct {
	class     *Class
	ivars     map[string]Value
	Message   string
	Backtrace []string

	// BreakPoint identifies the break_out site for LocalJumpErrors raised
	// by break; zero otherwise.
	BreakPoint int
	// ExitValue is the value carried by a break.
	ExitValue Value
}

// NewException builds an exception of class c.
func NewException(c *Class, message string) *Exception {
	return &Exception{class: c, ivars: map[string]Value{}, Message: message, ExitValue: Nil}
}

func (e *Exception) Class() *Class { return e.class }

func (e *Exception) Error() string {
	return fmt.Sprintf("%s (%s)", e.message(), e.class.Name())
}

func (e *Exception) message() string {
	if e.Message == "" {
		return e.class.Name()
	}
	return e.Message
}

// IsA reports whether e is an instance of c or one of its subclasses.
func (e *Exception) IsA(c *Class) bool {
	return e.class.IsSubclassOf(c)
}

// Rescue converts err into the exception it carries. Errors that are not
// exceptions (internal failures) come back unchanged as the second result.
func Rescue(err error) (*Exception, error) {
	var exc *Exception
	if errors.As(err, &exc) {
		return exc, nil
	}
	return nil, err
}

// MatchBreakPoint reports whether v is the break raised at point.
func MatchBreakPoint(v Value, point int) Value {
	exc, ok := v.(*Exception)
	return Bool(ok && exc.BreakPoint != 0 && exc.BreakPoint == point)
}

// FullMessage formats e the way an uncaught exception is reported.
func (e *Exception) FullMessage() string {
	var sb strings.Builder
	loc := "-e:1:in '<main>'"
	if len(e.Backtrace) > 0 {
		loc = e.Backtrace[0]
	}
	fmt.Fprintf(&sb, "%s: %s (%s)", loc, e.message(), e.class.Name())
	for _, frame := range tail(e.Backtrace) {
		fmt.Fprintf(&sb, "\n\tfrom %s", frame)
	}
	return sb.String()
}

func tail(s []string) []string {
	if len(s) < 2 {
		return nil
	}
	return s[1:]
}

// ReportError writes the uncaught-error report for err to w.
func ReportError(w io.Writer, err error) {
	if exc, rerr := Rescue(err); rerr == nil {
		fmt.Fprintln(w, exc.FullMessage())
		return
	}
	fmt.Fprintln(w, err)
}

func (rt *Runtime) bootExceptions() {
	def := func(name string, super *Class) *Class {
		c := rt.defineClass(name, super)
		return c
	}
	rt.Exception = def("Exception", rt.ObjectClass)
	rt.ScriptError = def("ScriptError", rt.Exception)
	rt.NotImplementedError = def("NotImplementedError", rt.ScriptError)
	rt.StandardError = def("StandardError", rt.Exception)
	rt.RuntimeError = def("RuntimeError", rt.StandardError)
	rt.FrozenError = def("FrozenError", rt.RuntimeError)
	rt.ArgumentError = def("ArgumentError", rt.StandardError)
	rt.NameError = def("NameError", rt.StandardError)
	rt.NoMethodError = def("NoMethodError", rt.NameError)
	rt.TypeError = def("TypeError", rt.StandardError)
	rt.ZeroDivisionError = def("ZeroDivisionError", rt.StandardError)
	rt.LocalJumpError = def("LocalJumpError", rt.StandardError)
	rt.IndexError = def("IndexError", rt.StandardError)
	rt.KeyError = def("KeyError", rt.IndexError)
	rt.StopIteration = def("StopIteration", rt.IndexError)

	c := rt.Exception
	c.Define("initialize", -1, func(env *Env, self Value, args []Value, _ *Proc) (Value, error) {
		e := self.(*Exception)
		if len(args) > 0 && !IsNil(args[0]) {
			s, err := env.ToS(args[0])
			if err != nil {
				return nil, err
			}
			e.Message = s
		}
		return Nil, nil
	})
	msg := func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return NewString(self.(*Exception).message()), nil
	}
	c.Define("message", 0, msg)
	c.Define("to_s", 0, msg)
	c.Define("inspect", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		e := self.(*Exception)
		if e.Message == "" {
			return NewString(e.class.Name()), nil
		}
		return NewString(fmt.Sprintf("#<%s: %s>", e.class.Name(), e.Message)), nil
	})
	c.Define("backtrace", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		e := self.(*Exception)
		if e.Backtrace == nil {
			return Nil, nil
		}
		out := make([]Value, len(e.Backtrace))
		for i, f := range e.Backtrace {
			out[i] = NewString(f)
		}
		return NewArray(out...), nil
	})
	c.Define("full_message", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return NewString(self.(*Exception).FullMessage()), nil
	})
	rt.LocalJumpError.Define("exit_value", 0, func(env *Env, self Value, _ []Value, _ *Proc) (Value, error) {
		return self.(*Exception).ExitValue, nil
	})
}
