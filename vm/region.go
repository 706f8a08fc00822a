package vm

import (
	"github.com/chazu/garnet/insn"
	"github.com/chazu/garnet/object"
)

// ---------------------------------------------------------------------------
// Control regions
// ---------------------------------------------------------------------------

// keepOne leaves exactly one value above base: the top of the stack, or nil
// when the region pushed nothing.
func (f *frame) keepOne(base int) control {
	result := object.Nil
	if len(f.stack) > base {
		result = f.stack[len(f.stack)-1]
	}
	f.truncate(base)
	f.push(result)
	return normal
}

// execIf runs one arm on the frame's stack. The arm's top value becomes the
// result, nil when the stack is empty; the values under it are kept only
// as deep as the shallower of the two arms would leave them.
func (v *VM) execIf(f *frame, seq *insn.Sequence, in *insn.If) control {
	cond := f.pop(in)
	then := v.fetch(in, seq, insn.OpElse, "if")
	els := v.fetch(in, seq, insn.OpEnd, "if")

	keep := len(f.stack) + v.armDepth(in, then, els)
	arm := els
	if object.Truthy(cond) {
		arm = then
	}
	if ctl := v.run(f, arm); ctl.sig != sigNormal {
		return ctl
	}
	result := object.Nil
	if len(f.stack) > 0 {
		result = f.pop(in)
	}
	f.truncate(keep)
	f.push(result)
	return normal
}

// armDepth returns how many values below its result an if keeps, relative
// to the depth after its condition was popped.
func (v *VM) armDepth(in *insn.If, then, els *insn.Sequence) int {
	if d, ok := v.arms[in]; ok {
		return d
	}
	d := min(insn.NetStackEffect(then), insn.NetStackEffect(els)) - 1
	v.arms[in] = d
	return d
}

func (v *VM) execWhile(f *frame, seq *insn.Sequence, in *insn.While) control {
	cond := v.fetch(in, seq, insn.OpWhileBody, "while")
	body := v.fetch(in, seq, insn.OpEnd, "while")

	base := len(f.stack)
	result := object.Nil
	skipCond := !in.Pre
loop:
	for {
		if !skipCond {
			if ctl := v.run(f, cond); ctl.sig != sigNormal {
				return ctl
			}
			c := f.pop(in)
			f.truncate(base)
			if !object.Truthy(c) {
				break
			}
		}
		skipCond = false

		ctl := v.run(f, body)
		f.truncate(base)
		switch ctl.sig {
		case sigNormal, sigContinue, sigNext:
		case sigRedo:
			skipCond = true
		case sigBreak:
			result = ctl.value
			break loop
		default:
			return ctl
		}
	}
	f.push(result)
	return normal
}

// execTry runs the protected region and, when it raises a Ruby exception,
// the handler with that exception as the rescued one. retry in the handler
// restarts the protected region. Internal errors are never handled.
func (v *VM) execTry(f *frame, seq *insn.Sequence, in *insn.Try) control {
	body := v.fetch(in, seq, insn.OpCatch, "try")
	handler := v.fetch(in, seq, insn.OpEnd, "try")

	base := len(f.stack)
	for {
		ctl := v.run(f, body)
		switch ctl.sig {
		case sigNormal:
			return f.keepOne(base)
		case sigRaise:
		default:
			return ctl
		}

		exc, err := object.Rescue(ctl.err)
		if err != nil {
			return raise(err)
		}
		f.truncate(base)
		f.rescued = append(f.rescued, exc)
		ctl = v.run(f, handler)
		f.rescued = f.rescued[:len(f.rescued)-1]

		switch ctl.sig {
		case sigNormal:
			return f.keepOne(base)
		case sigRetry:
			f.truncate(base)
			if v.trace {
				v.log.Debugf("retry %s", exc.Class().Name())
			}
			continue
		}
		return ctl
	}
}

// isDefined pushes Type when the body produces a non-nil value without
// raising, the body's value itself when Type is empty, and nil otherwise.
func (v *VM) isDefined(f *frame, seq *insn.Sequence, in *insn.IsDefined) control {
	body := v.fetch(in, seq, insn.OpEnd, "is_defined")

	base := len(f.stack)
	ctl := v.run(f, body)
	val := object.Nil
	switch ctl.sig {
	case sigNormal:
		if len(f.stack) > base {
			val = f.stack[len(f.stack)-1]
		}
	case sigRaise:
		if _, err := object.Rescue(ctl.err); err != nil {
			return raise(err)
		}
	default:
		return ctl
	}
	f.truncate(base)
	switch {
	case object.IsNil(val):
		f.push(object.Nil)
	case in.Type == "":
		f.push(val)
	default:
		f.push(object.NewFrozenString(in.Type, insn.DefaultEncoding))
	}
	return normal
}

// ---------------------------------------------------------------------------
// Definitions
// ---------------------------------------------------------------------------

// function wraps a body as a MethodFn. Every call gets its own frame and
// its own cursor over the body.
func (v *VM) function(body *insn.Sequence, scope *insn.Env) object.MethodFn {
	return func(env *object.Env, self object.Value, args []object.Value, _ *object.Proc) (object.Value, error) {
		f := v.newFrame(env, self, args, scope)
		return f.result(v.run(f, body.Clone()), nil)
	}
}

func (v *VM) defineMethod(f *frame, seq *insn.Sequence, in *insn.DefineMethod) control {
	body := v.fetch(in, seq, insn.OpEnd, "define_method")
	fn := v.function(body, insn.NewEnv(insn.EnvMethod, f.scopeFor(in)))
	return f.pushResult(f.env.DefineMethod(f.self, object.Intern(in.Name), fn, in.Arity))
}

// defineBlock closes the body over the current context. redo restarts the
// body with the same arguments.
func (v *VM) defineBlock(f *frame, seq *insn.Sequence, in *insn.DefineBlock) control {
	body := v.fetch(in, seq, insn.OpEnd, "define_block")
	scope := insn.NewEnv(insn.EnvBlock, f.scopeFor(in))
	fn := func(env *object.Env, self object.Value, args []object.Value, _ *object.Proc) (object.Value, error) {
		bf := v.newFrame(env, self, args, scope)
		cursor := body.Clone()
		for {
			ctl := v.run(bf, cursor)
			if ctl.sig != sigRedo {
				return bf.result(ctl, nil)
			}
			bf.truncate(0)
		}
	}
	f.push(f.env.NewBlock(f.self, fn, in.Arity))
	return normal
}

func (v *VM) defineClass(f *frame, seq *insn.Sequence, in *insn.DefineClass) control {
	body := v.fetch(in, seq, insn.OpEnd, "define_class")
	super := f.pop(in)
	ns := f.pop(in)
	c, err := f.env.DefineClass(ns, super, object.Intern(in.Name), in.IsPrivate)
	if err != nil {
		return f.pushResult(nil, err)
	}
	fn := v.function(body, insn.NewEnv(insn.EnvClass, f.scopeFor(in)))
	return f.pushResult(f.env.EvalClassBody(c, fn))
}

func (v *VM) defineModule(f *frame, seq *insn.Sequence, in *insn.DefineModule) control {
	body := v.fetch(in, seq, insn.OpEnd, "define_module")
	m, err := f.env.DefineModule(f.pop(in), object.Intern(in.Name))
	if err != nil {
		return f.pushResult(nil, err)
	}
	fn := v.function(body, insn.NewEnv(insn.EnvClass, f.scopeFor(in)))
	return f.pushResult(f.env.EvalClassBody(m, fn))
}

func (v *VM) withSingleton(f *frame, seq *insn.Sequence, in *insn.WithSingleton) control {
	body := v.fetch(in, seq, insn.OpEnd, "with_singleton")
	c, err := f.env.SingletonClass(f.pop(in))
	if err != nil {
		return f.pushResult(nil, err)
	}
	fn := v.function(body, insn.NewEnv(insn.EnvClass, f.scopeFor(in)))
	return f.pushResult(f.env.EvalClassBody(c, fn))
}

func (v *VM) autoloadConst(f *frame, seq *insn.Sequence, in *insn.AutoloadConst) control {
	body := v.fetch(in, seq, insn.OpEnd, "autoload_const")
	f.env.Autoload(f.self, object.Intern(in.Name), v.function(body, insn.NewEnv(insn.EnvTop, nil)))
	return normal
}

// loadFile resolves the file's sequence only when it is actually run, so
// a skipped require never touches the resolver.
func (v *VM) loadFile(f *frame, in *insn.LoadFile) control {
	fn := func(env *object.Env, self object.Value, _ []object.Value, _ *object.Proc) (object.Value, error) {
		seq, err := v.files.Resolve(in.Filename)
		if err != nil {
			internal(in, "load_file %s: %w", in.Filename, err)
		}
		v.log.Debugf("loading %s", in.Filename)
		lf := v.newFrame(env, self, nil, insn.NewEnv(insn.EnvTop, nil))
		return lf.result(v.run(lf, seq.Clone()), nil)
	}
	return f.pushResult(f.env.LoadFile(in.Filename, in.RequireOnce, fn))
}
