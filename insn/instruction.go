// Package insn defines the instruction set shared by the interpreter, the Go
// code generator and the bytecode codec.
//
// Instructions are plain data. Each opcode has one struct type carrying its
// payload; the backends dispatch on the concrete type. Source locations and
// the enclosing scope descriptor live in Meta, which the lowering stage fills
// in after construction.
package insn

// Meta is per-instruction metadata attached by the producer.
type Meta struct {
	File string
	Line int
	Env  *Env
}

// Instruction is one operation in an instruction sequence.
type Instruction interface {
	Op() Opcode
	String() string
	Meta() *Meta
}

type base struct {
	meta Meta
}

func (b *base) Meta() *Meta { return &b.meta }

// SetMeta attaches location and scope metadata to in and returns it.
func SetMeta(in Instruction, file string, line int, env *Env) Instruction {
	m := in.Meta()
	m.File = file
	m.Line = line
	m.Env = env
	return in
}

// At attaches a source location to in and returns it.
func At(in Instruction, file string, line int) Instruction {
	m := in.Meta()
	m.File = file
	m.Line = line
	return in
}

// Labeled is implemented by the region delimiters (else, catch, while_body, end).
type Labeled interface {
	Instruction
	BlockLabel() string
}

// StackEffect returns the number of values in consumes from and pushes onto
// the value stack. Region openers report the effect of the whole construct.
func StackEffect(in Instruction) (pop, push int) {
	info := GetOpcodeInfo(in.Op())
	pop, push = info.StackPop, info.StackPush
	switch in := in.(type) {
	case *ArrayConcat:
		pop = in.Count + 1
	case *CreateArray:
		pop = in.Count
	case *CreateHash:
		pop = in.Count * 2
	case *Send:
		pop = callArity(in.ArgCount, in.ArgsArrayOnStack, in.WithBlock)
		if !in.ReceiverIsSelf {
			pop++
		}
	case *Super:
		pop = callArity(in.ArgCount, in.ArgsArrayOnStack, in.WithBlock)
	case *Yield:
		pop = callArity(in.ArgCount, in.ArgsArrayOnStack, false)
	}
	return pop, push
}

func callArity(argc int, argsArray, withBlock bool) int {
	n := argc
	if argsArray {
		n = 1
	}
	if withBlock {
		n++
	}
	return n
}
