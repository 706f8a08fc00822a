package vm

import (
	"github.com/chazu/garnet/insn"
	"github.com/chazu/garnet/object"
)

// exec executes one instruction in frame f. seq is positioned just past
// in so region openers can fetch their bodies.
func (v *VM) exec(f *frame, seq *insn.Sequence, in insn.Instruction) control {
	env := f.env

	switch in := in.(type) {
	// --- Literals ---
	case *insn.PushNil:
		f.push(object.Nil)
	case *insn.PushTrue:
		f.push(object.True)
	case *insn.PushFalse:
		f.push(object.False)
	case *insn.PushSelf:
		f.push(f.self)
	case *insn.PushObjectClass:
		f.push(v.rt.ObjectClass)
	case *insn.PushLastMatch:
		f.push(env.LastMatch())
	case *insn.PushInt:
		f.push(object.Integer(in.Value))
	case *insn.PushFloat:
		f.push(object.Float(in.Value))
	case *insn.PushRational:
		f.push(object.NewRational(in.Numerator, in.Denominator))
	case *insn.CreateComplex:
		f.push(object.Complex(complex(in.Real, in.Imag)))
	case *insn.PushSymbol:
		f.push(object.Intern(in.Name))
	case *insn.PushString:
		f.push(v.stringLiteral(in))
	case *insn.PushRegexp:
		return f.pushResult(env.NewRegexp(in.Source, in.Options))
	case *insn.InlineCode:
		f.push(object.Nil)
		return raise(env.Raise(v.rt.NotImplementedError, "inline code can only be compiled, not interpreted"))

	// --- Stack shaping ---
	case *insn.Pop:
		f.pop(in)
	case *insn.Dup:
		f.push(f.peek(in))
	case *insn.DupRel:
		at := len(f.stack) - 1 - in.Offset
		if at < 0 || in.Offset < 0 {
			internal(in, "%w: dup_rel %d with %d values", insn.ErrStackUnderflow, in.Offset, len(f.stack))
		}
		f.push(f.stack[at])
	case *insn.MoveRel:
		val := f.pop(in)
		at := len(f.stack) - in.Offset
		if at < 0 || in.Offset < 0 {
			internal(in, "%w: move_rel %d with %d values", insn.ErrStackUnderflow, in.Offset, len(f.stack)+1)
		}
		f.stack = append(f.stack, nil)
		copy(f.stack[at+1:], f.stack[at:])
		f.stack[at] = val
	case *insn.Swap:
		b, a := f.pop(in), f.pop(in)
		f.push(b)
		f.push(a)
	case *insn.DupObject:
		return f.pushResult(env.DupObject(f.pop(in)))

	// --- Operators ---
	case *insn.IsNil:
		f.push(object.Bool(object.IsNil(f.pop(in))))
	case *insn.Not:
		f.push(object.Not(f.pop(in)))
	case *insn.CaseEqual:
		val := f.pop(in)
		pattern := f.pop(in)
		return f.pushResult(env.CaseEqual(pattern, val))
	case *insn.CreateRange:
		end := f.pop(in)
		begin := f.pop(in)
		f.push(object.NewRange(begin, end, in.ExcludeEnd))
	case *insn.Shell:
		return f.pushResult(env.Shell(f.pop(in)))
	case *insn.SingletonClass:
		c, err := env.SingletonClass(f.pop(in))
		if err != nil {
			return f.pushResult(nil, err)
		}
		f.push(c)
	case *insn.StringAppend:
		val := f.pop(in)
		return f.pushResult(env.StringAppend(f.pop(in), val))
	case *insn.StringToRegexp:
		return f.pushResult(env.StringToRegexp(f.pop(in), in.Options))

	// --- Arrays and hashes ---
	case *insn.CreateArray:
		f.push(object.NewArray(f.popN(in, in.Count)...))
	case *insn.CreateHash:
		f.push(object.NewHash(f.popN(in, in.Count*2)...))
	case *insn.ArrayConcat:
		vals := f.popN(in, in.Count)
		return f.pushResult(env.ArrayConcat(f.pop(in), vals...))
	case *insn.ArrayPush:
		val := f.pop(in)
		return f.pushResult(env.ArrayPush(f.pop(in), val))
	case *insn.ArrayPop:
		return f.pushResult(env.ArrayPop(f.peek(in), object.Nil))
	case *insn.ArrayPopWithDefault:
		def := f.pop(in)
		return f.pushResult(env.ArrayPop(f.peek(in), def))
	case *insn.ArrayShift:
		return f.pushResult(env.ArrayShift(f.peek(in), object.Nil))
	case *insn.ArrayShiftWithDefault:
		def := f.pop(in)
		return f.pushResult(env.ArrayShift(f.peek(in), def))
	case *insn.ArrayWrap:
		f.push(object.ArrayWrap(f.pop(in)))
	case *insn.ToArray:
		return f.pushResult(env.ToArray(f.pop(in)))
	case *insn.HashDelete:
		return f.pushResult(env.HashDelete(f.peek(in), object.Intern(in.Key), object.Nil))
	case *insn.HashDeleteWithDefault:
		def := f.pop(in)
		return f.pushResult(env.HashDelete(f.peek(in), object.Intern(in.Key), def))
	case *insn.HashMerge:
		other := f.pop(in)
		return f.pushResult(env.HashMerge(f.pop(in), other))
	case *insn.HashPut:
		val := f.pop(in)
		key := f.pop(in)
		return f.pushResult(env.HashPut(f.pop(in), key, val))

	// --- Variables and constants ---
	case *insn.VariableDeclare:
		f.scopeFor(in).Declare(in.Name)
	case *insn.VariableGet:
		depth, slot, err := insn.FindVar(f.scopeFor(in), in.Name, false)
		if err != nil {
			internal(in, "%w", err)
		}
		f.push(env.VarGet(depth, slot.Index))
	case *insn.VariableSet:
		scope := f.scopeFor(in)
		depth, slot, err := insn.FindVar(scope, in.Name, in.LocalOnly)
		if err != nil {
			depth, slot = 0, scope.Declare(in.Name)
		}
		env.VarSet(depth, slot.Index, f.pop(in))
	case *insn.InstanceVariableGet:
		f.push(env.IvarGet(f.self, in.Name))
	case *insn.InstanceVariableSet:
		return check(env.IvarSet(f.self, in.Name, f.pop(in)))
	case *insn.InstanceVariableDefined:
		f.push(env.IvarDefined(f.self, in.Name))
	case *insn.ClassVariableGet:
		return f.pushResult(env.CvarGet(f.self, in.Name))
	case *insn.ClassVariableSet:
		return check(env.CvarSet(f.self, in.Name, f.pop(in)))
	case *insn.GlobalVariableGet:
		f.push(env.GlobalGet(in.Name))
	case *insn.GlobalVariableSet:
		return check(env.GlobalSet(in.Name, f.pop(in)))
	case *insn.GlobalVariableDefined:
		f.push(env.GlobalDefined(in.Name))
	case *insn.AliasGlobal:
		env.GlobalAlias(in.New, in.Old)
	case *insn.ConstFind:
		return f.pushResult(env.ConstFind(f.pop(in), object.Intern(in.Name), in.Strict))
	case *insn.ConstSet:
		ns := f.pop(in)
		return check(env.ConstSet(ns, object.Intern(in.Name), f.pop(in)))

	// --- Arguments ---
	case *insn.PushArg:
		f.push(object.Arg(f.args, in.Index))
	case *insn.PushArgc:
		f.push(object.Integer(in.Count))
	case *insn.PushArgs:
		f.push(object.Args(f.args, in.ForBlock, in.MinCount))
	case *insn.PushBlock:
		f.push(object.BlockValue(env.Block()))
	case *insn.PopKeywordArgs:
		f.push(object.KeywordArgs(f.args))
	case *insn.CheckArgs:
		return check(env.CheckArgs(f.args, in.Min, in.Max))
	case *insn.CheckRequiredKeywords:
		return check(env.CheckRequiredKeywords(f.peek(in), in.Keywords...))
	case *insn.CheckExtraKeywords:
		return check(env.CheckExtraKeywords(f.peek(in)))
	case *insn.CreateLambda:
		return f.pushResult(env.ToLambda(f.pop(in)))

	// --- Calls ---
	case *insn.Send:
		return v.send(f, in)
	case *insn.Super:
		return v.super(f, in)
	case *insn.Yield:
		args := v.callArgs(f, in, in.ArgCount, in.ArgsArrayOnStack, in.HasKeywordHash)
		return f.pushResult(env.Yield(args))
	case *insn.MethodDefined:
		f.push(env.MethodDefined(f.pop(in), object.Intern(in.Message), in.ReceiverIsSelf))

	// --- Definitions ---
	case *insn.DefineMethod:
		return v.defineMethod(f, seq, in)
	case *insn.DefineBlock:
		return v.defineBlock(f, seq, in)
	case *insn.DefineClass:
		return v.defineClass(f, seq, in)
	case *insn.DefineModule:
		return v.defineModule(f, seq, in)
	case *insn.WithSingleton:
		return v.withSingleton(f, seq, in)
	case *insn.AutoloadConst:
		return v.autoloadConst(f, seq, in)
	case *insn.UndefineMethod:
		return check(env.UndefineMethod(f.self, object.Intern(in.Name)))
	case *insn.AliasMethod:
		newName := f.pop(in)
		return check(env.AliasMethod(f.self, newName, f.pop(in)))
	case *insn.LoadFile:
		return v.loadFile(f, in)

	// --- Control flow ---
	case *insn.If:
		return v.execIf(f, seq, in)
	case *insn.While:
		return v.execWhile(f, seq, in)
	case *insn.Try:
		return v.execTry(f, seq, in)
	case *insn.IsDefined:
		return v.isDefined(f, seq, in)
	case *insn.Break:
		return f.exit(in, sigBreak)
	case *insn.Next:
		return f.exit(in, sigNext)
	case *insn.Return:
		return f.exit(in, sigReturn)
	case *insn.Continue:
		f.push(object.Nil)
		return control{sig: sigContinue}
	case *insn.Redo:
		f.push(object.Nil)
		return control{sig: sigRedo}
	case *insn.Retry:
		f.push(object.Nil)
		return control{sig: sigRetry}
	case *insn.BreakOut:
		val := f.pop(in)
		f.push(object.Nil)
		return raise(env.BreakOut(in.Point, val))
	case *insn.PushRescued:
		f.push(f.rescuedException(in))
	case *insn.MatchException:
		return f.pushResult(env.MatchException(f.rescuedException(in), f.pop(in)))
	case *insn.MatchBreakPoint:
		f.push(object.MatchBreakPoint(f.pop(in), in.Point))

	case *insn.Else, *insn.Catch, *insn.WhileBody, *insn.End:
		internal(in, "%w: unexpected %s", insn.ErrMalformedProgram, in.Op())

	default:
		internal(in, "%w: no interpreter support for %s", insn.ErrMalformedProgram, in.Op())
	}
	return normal
}

// exit pops the value carried by break, next or return and leaves nil in
// its place.
func (f *frame) exit(in insn.Instruction, sig signal) control {
	val := f.pop(in)
	f.push(object.Nil)
	return control{sig: sig, value: val}
}

// stringLiteral returns the string a push_string produces. Frozen
// literals are allocated once per instruction.
func (v *VM) stringLiteral(in *insn.PushString) object.Value {
	enc := in.Encoding
	if enc == "" {
		enc = insn.DefaultEncoding
	}
	if !in.Frozen {
		return object.NewStringWithEncoding(in.Value, enc)
	}
	if s, ok := v.literals[in]; ok {
		return s
	}
	s := object.NewFrozenString(in.Value, enc)
	v.literals[in] = s
	return s
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// callArgs pops a call's arguments: argc values, or one array spread into
// the argument list.
func (v *VM) callArgs(f *frame, in insn.Instruction, argc int, argsArray, keywords bool) []object.Value {
	var args []object.Value
	if argsArray {
		args = object.SplatArgs(f.pop(in))
	} else {
		args = f.popN(in, argc)
	}
	if keywords {
		args = object.MarkKeywords(args)
	}
	return args
}

func (v *VM) block(f *frame, in insn.Instruction) (*object.Proc, error) {
	return f.env.ToBlock(f.pop(in))
}

func (v *VM) send(f *frame, in *insn.Send) control {
	var blk *object.Proc
	var blkErr error
	if in.WithBlock {
		blk, blkErr = v.block(f, in)
	}
	args := v.callArgs(f, in, in.ArgCount, in.ArgsArrayOnStack, in.HasKeywordHash)
	recv := f.self
	if !in.ReceiverIsSelf {
		recv = f.pop(in)
	}
	if blkErr != nil {
		return f.pushResult(nil, blkErr)
	}
	name := object.Intern(in.Message)
	if in.ReceiverIsSelf {
		return f.pushResult(f.env.Send(recv, name, args, blk))
	}
	return f.pushResult(f.env.PublicSend(recv, name, args, blk))
}

// super passes the frame's own block when the call site gives none.
func (v *VM) super(f *frame, in *insn.Super) control {
	blk := f.env.Block()
	var blkErr error
	if in.WithBlock {
		blk, blkErr = v.block(f, in)
	}
	args := v.callArgs(f, in, in.ArgCount, in.ArgsArrayOnStack, in.HasKeywordHash)
	if blkErr != nil {
		return f.pushResult(nil, blkErr)
	}
	return f.pushResult(f.env.Super(f.self, args, blk))
}
