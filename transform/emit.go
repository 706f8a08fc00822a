package transform

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/garnet/insn"
)

// exec generates one instruction. The seq cursor is positioned just past
// in so region openers can fetch their bodies.
func (t *Transform) exec(in insn.Instruction) {
	d := t.data

	switch in := in.(type) {
	// --- Literals ---
	case *insn.PushNil:
		t.Push("object.Nil")
	case *insn.PushTrue:
		t.Push("object.True")
	case *insn.PushFalse:
		t.Push("object.False")
	case *insn.PushSelf:
		t.Push("self")
	case *insn.PushObjectClass:
		t.Push("env.Runtime().ObjectClass")
	case *insn.PushLastMatch:
		t.Memoize("last_match", "env.LastMatch()")
	case *insn.PushInt:
		t.Push(fmt.Sprintf("object.Integer(%d)", in.Value))
	case *insn.PushFloat:
		t.Push("object.Float(" + t.float(in.Value) + ")")
	case *insn.PushRational:
		t.Memoize("rational", fmt.Sprintf("object.NewRational(%d, %d)", in.Numerator, in.Denominator))
	case *insn.CreateComplex:
		t.Push(fmt.Sprintf("object.Complex(complex(%s, %s))", t.float(in.Real), t.float(in.Imag)))
	case *insn.PushSymbol:
		t.Push(d.Intern(in.Name))
	case *insn.PushString:
		lit := d.InternString(in.Value, in.Encoding)
		if in.Frozen {
			t.Push(lit)
		} else {
			t.Memoize("str", lit+".Dup()")
		}
	case *insn.PushRegexp:
		t.ExecAndPush("regexp", fmt.Sprintf("env.NewRegexp(%s, %d)", strconv.Quote(in.Source), in.Options))
	case *insn.InlineCode:
		t.Exec(in.Code)
		t.Push("object.Nil")

	// --- Stack shaping ---
	case *insn.Pop:
		t.Pop(in)
	case *insn.Dup:
		t.Push(t.Peek(in))
	case *insn.DupRel:
		at := len(t.stack) - 1 - in.Offset
		if at < 0 || in.Offset < 0 {
			internal(in, "%w: dup_rel %d with %d values", insn.ErrStackUnderflow, in.Offset, len(t.stack))
		}
		t.Push(t.stack[at])
	case *insn.MoveRel:
		val := t.Pop(in)
		at := len(t.stack) - in.Offset
		if at < 0 || in.Offset < 0 {
			internal(in, "%w: move_rel %d with %d values", insn.ErrStackUnderflow, in.Offset, len(t.stack)+1)
		}
		t.stack = append(t.stack, "")
		copy(t.stack[at+1:], t.stack[at:])
		t.stack[at] = val
	case *insn.Swap:
		b, a := t.Pop(in), t.Pop(in)
		t.Push(b)
		t.Push(a)
	case *insn.DupObject:
		t.ExecAndPush("dup", "env.DupObject("+t.Pop(in)+")")

	// --- Operators ---
	case *insn.IsNil:
		t.Memoize("is_nil", "object.Bool(object.IsNil("+t.Pop(in)+"))")
	case *insn.Not:
		t.Memoize("not", "object.Not("+t.Pop(in)+")")
	case *insn.CaseEqual:
		val := t.Pop(in)
		pattern := t.Pop(in)
		t.ExecAndPush("case_equal", fmt.Sprintf("env.CaseEqual(%s, %s)", pattern, val))
	case *insn.CreateRange:
		end := t.Pop(in)
		begin := t.Pop(in)
		t.Memoize("range", fmt.Sprintf("object.NewRange(%s, %s, %t)", begin, end, in.ExcludeEnd))
	case *insn.Shell:
		t.ExecAndPush("shell", "env.Shell("+t.Pop(in)+")")
	case *insn.SingletonClass:
		t.ExecAndPush("singleton", "env.SingletonClass("+t.Pop(in)+")")
	case *insn.StringAppend:
		val := t.Pop(in)
		t.ExecAndPush("str", fmt.Sprintf("env.StringAppend(%s, %s)", t.Pop(in), val))
	case *insn.StringToRegexp:
		t.ExecAndPush("regexp", fmt.Sprintf("env.StringToRegexp(%s, %d)", t.Pop(in), in.Options))

	// --- Arrays and hashes ---
	case *insn.CreateArray:
		t.Memoize("array", "object.NewArray("+strings.Join(t.popN(in, in.Count), ", ")+")")
	case *insn.CreateHash:
		t.Memoize("hash", "object.NewHash("+strings.Join(t.popN(in, in.Count*2), ", ")+")")
	case *insn.ArrayConcat:
		vals := t.popN(in, in.Count)
		t.ExecAndPush("array", "env.ArrayConcat("+strings.Join(append([]string{t.Pop(in)}, vals...), ", ")+")")
	case *insn.ArrayPush:
		val := t.Pop(in)
		t.ExecAndPush("array", fmt.Sprintf("env.ArrayPush(%s, %s)", t.Pop(in), val))
	case *insn.ArrayPop:
		t.ExecAndPush("elem", fmt.Sprintf("env.ArrayPop(%s, object.Nil)", t.Peek(in)))
	case *insn.ArrayPopWithDefault:
		def := t.Pop(in)
		t.ExecAndPush("elem", fmt.Sprintf("env.ArrayPop(%s, %s)", t.Peek(in), def))
	case *insn.ArrayShift:
		t.ExecAndPush("elem", fmt.Sprintf("env.ArrayShift(%s, object.Nil)", t.Peek(in)))
	case *insn.ArrayShiftWithDefault:
		def := t.Pop(in)
		t.ExecAndPush("elem", fmt.Sprintf("env.ArrayShift(%s, %s)", t.Peek(in), def))
	case *insn.ArrayWrap:
		t.Memoize("array", "object.ArrayWrap("+t.Pop(in)+")")
	case *insn.ToArray:
		t.ExecAndPush("array", "env.ToArray("+t.Pop(in)+")")
	case *insn.HashDelete:
		t.ExecAndPush("value", fmt.Sprintf("env.HashDelete(%s, %s, object.Nil)", t.Peek(in), d.Intern(in.Key)))
	case *insn.HashDeleteWithDefault:
		def := t.Pop(in)
		t.ExecAndPush("value", fmt.Sprintf("env.HashDelete(%s, %s, %s)", t.Peek(in), d.Intern(in.Key), def))
	case *insn.HashMerge:
		other := t.Pop(in)
		t.ExecAndPush("hash", fmt.Sprintf("env.HashMerge(%s, %s)", t.Pop(in), other))
	case *insn.HashPut:
		val := t.Pop(in)
		key := t.Pop(in)
		t.ExecAndPush("hash", fmt.Sprintf("env.HashPut(%s, %s, %s)", t.Pop(in), key, val))

	// --- Variables and constants ---
	case *insn.VariableDeclare:
		t.scopeFor(in).Declare(in.Name)
	case *insn.VariableGet:
		depth, slot, err := t.FindVar(in, in.Name, false)
		if err != nil {
			internal(in, "%w", err)
		}
		t.Memoize("var_"+in.Name, fmt.Sprintf("env.VarGet(%d, %d)", depth, slot.Index))
	case *insn.VariableSet:
		scope := t.scopeFor(in)
		depth, slot, err := insn.FindVar(scope, in.Name, in.LocalOnly)
		if err != nil {
			depth, slot = 0, scope.Declare(in.Name)
		}
		t.Exec(fmt.Sprintf("env.VarSet(%d, %d, %s)", depth, slot.Index, t.Pop(in)))
	case *insn.InstanceVariableGet:
		t.Memoize("ivar", fmt.Sprintf("env.IvarGet(self, %s)", strconv.Quote(in.Name)))
	case *insn.InstanceVariableSet:
		t.check(fmt.Sprintf("env.IvarSet(self, %s, %s)", strconv.Quote(in.Name), t.Pop(in)))
	case *insn.InstanceVariableDefined:
		t.Memoize("defined", fmt.Sprintf("env.IvarDefined(self, %s)", strconv.Quote(in.Name)))
	case *insn.ClassVariableGet:
		t.ExecAndPush("cvar", fmt.Sprintf("env.CvarGet(self, %s)", strconv.Quote(in.Name)))
	case *insn.ClassVariableSet:
		t.check(fmt.Sprintf("env.CvarSet(self, %s, %s)", strconv.Quote(in.Name), t.Pop(in)))
	case *insn.GlobalVariableGet:
		t.Memoize("gvar", fmt.Sprintf("env.GlobalGet(%s)", strconv.Quote(in.Name)))
	case *insn.GlobalVariableSet:
		t.check(fmt.Sprintf("env.GlobalSet(%s, %s)", strconv.Quote(in.Name), t.Pop(in)))
	case *insn.GlobalVariableDefined:
		t.Memoize("defined", fmt.Sprintf("env.GlobalDefined(%s)", strconv.Quote(in.Name)))
	case *insn.AliasGlobal:
		t.Exec(fmt.Sprintf("env.GlobalAlias(%s, %s)", strconv.Quote(in.New), strconv.Quote(in.Old)))
	case *insn.ConstFind:
		t.ExecAndPush("const_"+in.Name, fmt.Sprintf("env.ConstFind(%s, %s, %t)", t.Pop(in), d.Intern(in.Name), in.Strict))
	case *insn.ConstSet:
		ns := t.Pop(in)
		t.check(fmt.Sprintf("env.ConstSet(%s, %s, %s)", ns, d.Intern(in.Name), t.Pop(in)))

	// --- Arguments ---
	case *insn.PushArg:
		t.Push(fmt.Sprintf("object.Arg(args, %d)", in.Index))
	case *insn.PushArgc:
		t.Push(fmt.Sprintf("object.Integer(%d)", in.Count))
	case *insn.PushArgs:
		t.Memoize("args", fmt.Sprintf("object.Args(args, %t, %d)", in.ForBlock, in.MinCount))
	case *insn.PushBlock:
		t.Memoize("block", "object.BlockValue(env.Block())")
	case *insn.PopKeywordArgs:
		t.Memoize("kwargs", "object.KeywordArgs(args)")
	case *insn.CheckArgs:
		t.check(fmt.Sprintf("env.CheckArgs(args, %d, %d)", in.Min, in.Max))
	case *insn.CheckRequiredKeywords:
		call := "env.CheckRequiredKeywords(" + t.Peek(in)
		for _, k := range in.Keywords {
			call += ", " + strconv.Quote(k)
		}
		t.check(call + ")")
	case *insn.CheckExtraKeywords:
		t.check("env.CheckExtraKeywords(" + t.Peek(in) + ")")
	case *insn.CreateLambda:
		t.ExecAndPush("lambda", "env.ToLambda("+t.Pop(in)+")")

	// --- Calls ---
	case *insn.Send:
		t.send(in)
	case *insn.Super:
		t.super(in)
	case *insn.Yield:
		args := t.callArgs(in, in.ArgCount, in.ArgsArrayOnStack, in.HasKeywordHash)
		t.ExecAndPush("yield", "env.Yield("+args+")")
	case *insn.MethodDefined:
		t.Memoize("defined", fmt.Sprintf("env.MethodDefined(%s, %s, %t)", t.Pop(in), d.Intern(in.Message), in.ReceiverIsSelf))

	// --- Definitions ---
	case *insn.DefineMethod:
		t.defineMethod(in)
	case *insn.DefineBlock:
		t.defineBlock(in)
	case *insn.DefineClass:
		t.defineClass(in)
	case *insn.DefineModule:
		t.defineModule(in)
	case *insn.WithSingleton:
		t.withSingleton(in)
	case *insn.AutoloadConst:
		t.autoloadConst(in)
	case *insn.UndefineMethod:
		t.check(fmt.Sprintf("env.UndefineMethod(self, %s)", d.Intern(in.Name)))
	case *insn.AliasMethod:
		newName := t.Pop(in)
		t.check(fmt.Sprintf("env.AliasMethod(self, %s, %s)", newName, t.Pop(in)))
	case *insn.LoadFile:
		t.loadFile(in)

	// --- Control flow ---
	case *insn.If:
		t.genIf(in)
	case *insn.While:
		t.genWhile(in)
	case *insn.Try:
		t.genTry(in)
	case *insn.IsDefined:
		t.isDefined(in)
	case *insn.Break:
		val := t.Pop(in)
		l := t.innermost(in, loopWhile)
		t.Exec(fmt.Sprintf("%s = %s", l.result, val))
		t.Exec("break " + l.label.ref())
		t.Push("object.Nil")
	case *insn.Next:
		val := t.Pop(in)
		if l := t.enclosingWhile(); l != nil {
			t.Exec("continue " + l.label.ref())
		} else {
			t.Exec("return " + val + ", nil")
		}
		t.Push("object.Nil")
	case *insn.Return:
		t.Exec("return " + t.Pop(in) + ", nil")
		t.Push("object.Nil")
	case *insn.Continue:
		t.Exec("continue " + t.innermost(in, loopWhile).label.ref())
		t.Push("object.Nil")
	case *insn.Redo:
		if len(t.loops) == 0 {
			internal(in, "%w: redo outside of a loop or block", insn.ErrMalformedProgram)
		}
		l := t.loops[len(t.loops)-1]
		if l.kind == loopWhile {
			t.Exec(l.skip + " = true")
		}
		t.Exec("continue " + l.label.ref())
		t.Push("object.Nil")
	case *insn.Retry:
		if len(t.retries) == 0 {
			internal(in, "%w: retry outside of a rescue handler", insn.ErrMalformedProgram)
		}
		t.Exec("continue " + t.retries[len(t.retries)-1].ref())
		t.Push("object.Nil")
	case *insn.BreakOut:
		val := t.Pop(in)
		t.Exec(fmt.Sprintf("err = env.BreakOut(%d, %s)", in.Point, val))
		t.Exec(t.raiseStmt())
		t.Push("object.Nil")
	case *insn.PushRescued:
		t.Push(t.rescuedException(in))
	case *insn.MatchException:
		t.ExecAndPush("match", fmt.Sprintf("env.MatchException(%s, %s)", t.rescuedException(in), t.Pop(in)))
	case *insn.MatchBreakPoint:
		t.Memoize("match", fmt.Sprintf("object.MatchBreakPoint(%s, %d)", t.Pop(in), in.Point))

	case *insn.Else, *insn.Catch, *insn.WhileBody, *insn.End:
		internal(in, "%w: unexpected %s", insn.ErrMalformedProgram, in.Op())

	default:
		internal(in, "%w: no code generation for %s", insn.ErrMalformedProgram, in.Op())
	}
}

// float returns a Go expression for f.
func (t *Transform) float(f float64) string {
	switch {
	case math.IsInf(f, 1):
		t.data.Import("math")
		return "math.Inf(1)"
	case math.IsInf(f, -1):
		t.data.Import("math")
		return "math.Inf(-1)"
	case math.IsNaN(f):
		t.data.Import("math")
		return "math.NaN()"
	case f == 0 && math.Signbit(f):
		t.data.Import("math")
		return "math.Copysign(0, -1)"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func (t *Transform) innermost(in insn.Instruction, kind loopKind) *loop {
	for i := len(t.loops) - 1; i >= 0; i-- {
		if t.loops[i].kind == kind {
			return t.loops[i]
		}
	}
	internal(in, "%w: %s outside of a loop", insn.ErrMalformedProgram, in.Op())
	return nil
}

// enclosingWhile returns the innermost loop when it is a while.
func (t *Transform) enclosingWhile() *loop {
	if len(t.loops) == 0 || t.loops[len(t.loops)-1].kind != loopWhile {
		return nil
	}
	return t.loops[len(t.loops)-1]
}

func (t *Transform) rescuedException(in insn.Instruction) string {
	if len(t.rescued) == 0 {
		internal(in, "%w: no exception is being rescued", insn.ErrMalformedProgram)
	}
	return t.rescued[len(t.rescued)-1]
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// callArgs pops a call's arguments and returns the []object.Value
// expression passing them.
func (t *Transform) callArgs(in insn.Instruction, argc int, argsArray, keywords bool) string {
	var args string
	switch {
	case argsArray:
		args = "object.SplatArgs(" + t.Pop(in) + ")"
	case argc == 0:
		args = "nil"
	default:
		args = "[]object.Value{" + strings.Join(t.popN(in, argc), ", ") + "}"
	}
	if keywords {
		args = "object.MarkKeywords(" + args + ")"
	}
	return args
}

// block pops a block argument and converts it to a *object.Proc.
func (t *Transform) block(in insn.Instruction) string {
	blk := t.Temp("blk", "*object.Proc")
	t.assign(blk, "env.ToBlock("+t.Pop(in)+")")
	return blk
}

func (t *Transform) send(in *insn.Send) {
	blk := "nil"
	if in.WithBlock {
		blk = t.block(in)
	}
	args := t.callArgs(in, in.ArgCount, in.ArgsArrayOnStack, in.HasKeywordHash)
	recv, method := "self", "env.Send"
	if !in.ReceiverIsSelf {
		recv, method = t.Pop(in), "env.PublicSend"
	}
	t.ExecAndPush("send_"+in.Message, fmt.Sprintf("%s(%s, %s, %s, %s)", method, recv, t.data.Intern(in.Message), args, blk))
}

// super passes the function's own block when the call site gives none.
func (t *Transform) super(in *insn.Super) {
	blk := "env.Block()"
	if in.WithBlock {
		blk = t.block(in)
	}
	args := t.callArgs(in, in.ArgCount, in.ArgsArrayOnStack, in.HasKeywordHash)
	t.ExecAndPush("super", fmt.Sprintf("env.Super(self, %s, %s)", args, blk))
}
