package vm

import (
	"github.com/chazu/garnet/insn"
	"github.com/chazu/garnet/object"
)

// ---------------------------------------------------------------------------
// Control signals
// ---------------------------------------------------------------------------

type signal uint8

const (
	sigNormal signal = iota
	sigReturn
	sigBreak
	sigContinue
	sigNext
	sigRedo
	sigRetry
	sigRaise
)

var signalNames = [...]string{"normal", "return", "break", "continue", "next", "redo", "retry", "raise"}

func (s signal) String() string { return signalNames[s] }

// control is the outcome of executing one instruction or one region.
type control struct {
	sig   signal
	value object.Value
	err   error
}

var normal = control{sig: sigNormal}

func raise(err error) control { return control{sig: sigRaise, err: err} }

// ---------------------------------------------------------------------------
// Frames
// ---------------------------------------------------------------------------

// frame is the execution state of one method, block, class or file body.
// Each frame owns its value stack; callees never see the caller's entries.
type frame struct {
	env     *object.Env
	self    object.Value
	args    []object.Value
	scope   *insn.Env
	stack   []object.Value
	rescued []*object.Exception
}

func (v *VM) newFrame(env *object.Env, self object.Value, args []object.Value, scope *insn.Env) *frame {
	return &frame{env: env, self: self, args: args, scope: scope}
}

func (f *frame) push(val object.Value) {
	f.stack = append(f.stack, val)
}

func (f *frame) pop(in insn.Instruction) object.Value {
	n := len(f.stack)
	if n == 0 {
		internal(in, "%w", insn.ErrStackUnderflow)
	}
	val := f.stack[n-1]
	f.stack = f.stack[:n-1]
	return val
}

func (f *frame) peek(in insn.Instruction) object.Value {
	if len(f.stack) == 0 {
		internal(in, "%w", insn.ErrStackUnderflow)
	}
	return f.stack[len(f.stack)-1]
}

// popN removes the top n values and returns them bottom first.
func (f *frame) popN(in insn.Instruction, n int) []object.Value {
	if n > len(f.stack) {
		internal(in, "%w: need %d values, have %d", insn.ErrStackUnderflow, n, len(f.stack))
	}
	vals := make([]object.Value, n)
	copy(vals, f.stack[len(f.stack)-n:])
	f.stack = f.stack[:len(f.stack)-n]
	return vals
}

// truncate drops values above depth n. Regions only ever shrink the stack
// back to a depth they recorded.
func (f *frame) truncate(n int) {
	if n < len(f.stack) {
		f.stack = f.stack[:max(n, 0)]
	}
}

// pushResult pushes the outcome of a runtime call. A failed call leaves nil
// in the result slot and raises.
func (f *frame) pushResult(val object.Value, err error) control {
	if err != nil {
		f.push(object.Nil)
		return raise(err)
	}
	f.push(val)
	return normal
}

func check(err error) control {
	if err != nil {
		return raise(err)
	}
	return normal
}

// scopeFor returns the scope descriptor in runs in: the one attached by
// the producer, or the frame's own.
func (f *frame) scopeFor(in insn.Instruction) *insn.Env {
	if e := in.Meta().Env; e != nil {
		return e
	}
	return f.scope
}

// rescuedException returns the exception being handled by the innermost
// catch region.
func (f *frame) rescuedException(in insn.Instruction) *object.Exception {
	if len(f.rescued) == 0 {
		internal(in, "%w: no exception is being rescued", insn.ErrMalformedProgram)
	}
	return f.rescued[len(f.rescued)-1]
}

// result converts the signal that ended a body into the body's return
// value. Loop and retry signals cannot escape a body.
func (f *frame) result(ctl control, in insn.Instruction) (object.Value, error) {
	switch ctl.sig {
	case sigNormal:
		if len(f.stack) == 0 {
			return object.Nil, nil
		}
		return f.stack[len(f.stack)-1], nil
	case sigReturn, sigNext:
		return ctl.value, nil
	case sigRaise:
		return nil, ctl.err
	}
	internal(in, "%w: %s outside of its region", insn.ErrMalformedProgram, ctl.sig)
	return nil, nil
}
