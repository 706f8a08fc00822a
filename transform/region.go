package transform

import (
	"fmt"
	"strconv"

	"github.com/chazu/garnet/insn"
)

// ---------------------------------------------------------------------------
// Control regions
// ---------------------------------------------------------------------------

// inline generates body as a region of the current function and returns
// the region's transform.
func (t *Transform) inline(body *insn.Sequence, setup func(*Transform)) *Transform {
	child := t.WithSameScope(body)
	if setup != nil {
		setup(child)
	}
	child.generate()
	return child
}

// emitLines appends the lines of a generated region.
func (t *Transform) emitLines(child *Transform) {
	t.lines = append(t.lines, child.lines...)
}

// genIf generates both arms from copies of the pending stack and joins
// them with NormalizeStack.
func (t *Transform) genIf(in *insn.If) {
	cond := t.Pop(in)
	then := t.FetchBlock(in, insn.OpElse, "if")
	els := t.FetchBlock(in, insn.OpEnd, "if")

	base := len(t.stack)
	result := t.Temp("if_result", "object.Value")
	thenT := t.inline(then, nil)
	elseT := t.inline(els, nil)
	t.NormalizeStack(in, base, result, thenT, elseT)

	t.Exec("if object.Truthy(" + cond + ") {")
	t.emitLines(thenT)
	t.Exec("} else {")
	t.emitLines(elseT)
	t.Exec("}")
	t.forgetPosition()
}

// genWhile generates a labeled for loop. The skip flag bypasses the
// condition for redo and for the first pass of a post-condition loop.
func (t *Transform) genWhile(in *insn.While) {
	cond := t.FetchBlock(in, insn.OpWhileBody, "while")
	body := t.FetchBlock(in, insn.OpEnd, "while")

	l := &loop{
		kind:   loopWhile,
		label:  &label{name: t.data.Temp("while")},
		result: t.Temp("while_result", "object.Value"),
		skip:   t.Temp("skip_cond", "bool"),
	}
	enter := func(c *Transform) { c.loops = append(append([]*loop(nil), t.loops...), l) }
	condT := t.inline(cond, enter)
	bodyT := t.inline(body, enter)

	t.Exec(l.result + " = object.Nil")
	t.Exec(fmt.Sprintf("%s = %t", l.skip, !in.Pre))
	// the condition always breaks out of the loop, so the label is used
	exit := l.label.ref()
	t.Exec(l.label.prefix())
	t.Exec("for {")
	t.Exec("if !" + l.skip + " {")
	t.emitLines(condT)
	t.Exec("if !object.Truthy(" + condT.top() + ") {")
	t.Exec("break " + exit)
	t.Exec("}")
	t.Exec("}")
	t.Exec(l.skip + " = false")
	t.emitLines(bodyT)
	t.Exec("}")

	t.Push(l.result)
	t.forgetPosition()
}

// genTry generates the protected region as a one-shot loop the raise target
// breaks out of, and the handler after it. Both sit in a loop that retry
// restarts. Internal errors are passed on unhandled.
func (t *Transform) genTry(in *insn.Try) {
	body := t.FetchBlock(in, insn.OpCatch, "try")
	handler := t.FetchBlock(in, insn.OpEnd, "try")

	base := len(t.stack)
	result := t.Temp("try_result", "object.Value")
	caught := t.Temp("raised", "error")
	rescued := t.Temp("rescued", "*object.Exception")
	tryLabel := &label{name: t.data.Temp("try")}
	retryLabel := &label{name: t.data.Temp("retry")}

	bodyT := t.inline(body, func(c *Transform) {
		c.raise = &raiseTarget{label: tryLabel, err: caught}
	})
	handlerT := t.inline(handler, func(c *Transform) {
		c.rescued = append(append([]string(nil), t.rescued...), rescued)
		c.retries = append(append([]*label(nil), t.retries...), retryLabel)
	})

	t.Exec(retryLabel.prefix())
	t.Exec("for {")
	t.Exec(caught + " = nil")
	t.Exec(tryLabel.prefix())
	t.Exec("for {")
	t.emitLines(bodyT)
	t.Exec(result + " = " + bodyT.topAbove(base))
	t.Exec("break")
	t.Exec("}")
	t.Exec("if " + caught + " != nil {")
	t.Exec(fmt.Sprintf("if %s, err = object.Rescue(%s); err != nil {", rescued, caught))
	t.Exec(t.raiseStmt())
	t.Exec("}")
	t.emitLines(handlerT)
	t.Exec(result + " = " + handlerT.topAbove(base))
	t.Exec("}")
	t.Exec("break")
	t.Exec("}")

	t.Push(result)
	t.forgetPosition()
}

// isDefined pushes the type description when the body produces a non-nil
// value without raising, the body's value itself when Type is empty, and
// nil otherwise.
func (t *Transform) isDefined(in *insn.IsDefined) {
	body := t.FetchBlock(in, insn.OpEnd, "is_defined")

	base := len(t.stack)
	result := t.Temp("defined", "object.Value")
	caught := t.Temp("raised", "error")
	region := &label{name: t.data.Temp("is_defined")}

	bodyT := t.inline(body, func(c *Transform) {
		c.raise = &raiseTarget{label: region, err: caught}
	})

	t.Exec(caught + " = nil")
	t.Exec(result + " = object.Nil")
	t.Exec(region.prefix())
	t.Exec("for {")
	t.emitLines(bodyT)
	t.Exec(result + " = " + bodyT.topAbove(base))
	t.Exec("break")
	t.Exec("}")
	t.Exec("if " + caught + " != nil {")
	t.Exec(fmt.Sprintf("if _, err = object.Rescue(%s); err != nil {", caught))
	t.Exec(t.raiseStmt())
	t.Exec("}")
	t.Exec(result + " = object.Nil")
	t.Exec("}")
	if in.Type != "" {
		t.Exec("if !object.IsNil(" + result + ") {")
		t.Exec(result + " = " + t.data.InternString(in.Type, insn.DefaultEncoding))
		t.Exec("}")
	}

	t.Push(result)
	t.forgetPosition()
}

// ---------------------------------------------------------------------------
// Definitions
// ---------------------------------------------------------------------------

func (t *Transform) defineMethod(in *insn.DefineMethod) {
	body := t.FetchBlock(in, insn.OpEnd, "define_method")
	fn := t.defineFunction("define_method_"+in.Name, body, KindMethod, insn.NewEnv(insn.EnvMethod, t.scopeFor(in)))
	t.ExecAndPush("method", fmt.Sprintf("env.DefineMethod(self, %s, %s, %d)", t.data.Intern(in.Name), fn, in.Arity))
}

// defineBlock closes the body over the current context. redo restarts the
// body with the same arguments.
func (t *Transform) defineBlock(in *insn.DefineBlock) {
	body := t.FetchBlock(in, insn.OpEnd, "define_block")
	fn := t.defineFunction("block", body, KindBlock, insn.NewEnv(insn.EnvBlock, t.scopeFor(in)))
	t.Memoize("proc", fmt.Sprintf("env.NewBlock(self, %s, %d)", fn, in.Arity))
}

// classBody evaluates body with self bound to the class held in c.
func (t *Transform) classBody(in insn.Instruction, name, c string, body *insn.Sequence) {
	fn := t.defineFunction(name, body, KindClass, insn.NewEnv(insn.EnvClass, t.scopeFor(in)))
	t.ExecAndPush("class_body", fmt.Sprintf("env.EvalClassBody(%s, %s)", c, fn))
}

func (t *Transform) defineClass(in *insn.DefineClass) {
	body := t.FetchBlock(in, insn.OpEnd, "define_class")
	super := t.Pop(in)
	ns := t.Pop(in)
	c := t.Temp("class_"+in.Name, "*object.Class")
	t.assign(c, fmt.Sprintf("env.DefineClass(%s, %s, %s, %t)", ns, super, t.data.Intern(in.Name), in.IsPrivate))
	t.classBody(in, "class_"+in.Name, c, body)
}

func (t *Transform) defineModule(in *insn.DefineModule) {
	body := t.FetchBlock(in, insn.OpEnd, "define_module")
	c := t.Temp("module_"+in.Name, "*object.Class")
	t.assign(c, fmt.Sprintf("env.DefineModule(%s, %s)", t.Pop(in), t.data.Intern(in.Name)))
	t.classBody(in, "module_"+in.Name, c, body)
}

func (t *Transform) withSingleton(in *insn.WithSingleton) {
	body := t.FetchBlock(in, insn.OpEnd, "with_singleton")
	c := t.Temp("singleton", "*object.Class")
	t.assign(c, "env.SingletonClass("+t.Pop(in)+")")
	t.classBody(in, "singleton", c, body)
}

func (t *Transform) autoloadConst(in *insn.AutoloadConst) {
	body := t.FetchBlock(in, insn.OpEnd, "autoload_const")
	fn := t.defineFunction("autoload_"+in.Name, body, KindTop, insn.NewEnv(insn.EnvTop, nil))
	t.Exec(fmt.Sprintf("env.Autoload(self, %s, %s)", t.data.Intern(in.Name), fn))
}

// loadFile compiles a file's sequence the first time its logical name is
// seen; later loads of the same file call the same function.
func (t *Transform) loadFile(in *insn.LoadFile) {
	fn, ok := t.data.CompiledFiles[in.Filename]
	if ok {
		t.data.log.Debugf("reusing %s for %s", fn, in.Filename)
	} else {
		seq, err := t.data.files.Resolve(in.Filename)
		if err != nil {
			internal(in, "load_file %s: %w", in.Filename, err)
		}
		fn = t.data.Temp("loadFile_" + in.Filename)
		t.data.CompiledFiles[in.Filename] = fn
		child := t.WithNewScope(seq.Clone(), KindFile, insn.NewEnv(insn.EnvTop, nil))
		t.data.Top(fn, child.function(fn, false, nil))
	}
	t.ExecAndPush("loaded", fmt.Sprintf("env.LoadFile(%s, %t, %s)", strconv.Quote(in.Filename), in.RequireOnce, fn))
}
