package insn

import (
	"errors"
	"fmt"
)

var (
	ErrUnmatchedBlock   = errors.New("no matching block terminator")
	ErrUnexpectedLabel  = errors.New("block terminator has unexpected label")
	ErrUnknownVariable  = errors.New("unknown variable")
	ErrStackUnderflow   = errors.New("ran out of stack")
	ErrMalformedProgram = errors.New("malformed instruction stream")
)

// InternalError reports a structural defect in an instruction stream. It is
// never rescued by user code.
type InternalError struct {
	Instruction Instruction // may be nil
	File        string
	Line        int
	Err         error
}

func (e *InternalError) Error() string {
	loc := ""
	if e.File != "" {
		loc = fmt.Sprintf("%s:%d: ", e.File, e.Line)
	}
	if e.Instruction != nil {
		return fmt.Sprintf("%sinternal error at %s: %v", loc, e.Instruction, e.Err)
	}
	return fmt.Sprintf("%sinternal error: %v", loc, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

// Errorf builds an InternalError for in.
func Errorf(in Instruction, format string, args ...any) *InternalError {
	e := &InternalError{Instruction: in, Err: fmt.Errorf(format, args...)}
	if in != nil {
		e.File, e.Line = in.Meta().File, in.Meta().Line
	}
	return e
}

// Sequence is an ordered list of instructions with an instruction pointer.
// The list is never modified; Clone gives independent cursors over it.
type Sequence struct {
	instructions []Instruction
	ip           int
}

// NewSequence wraps instructions in a sequence positioned at the start.
func NewSequence(instructions ...Instruction) *Sequence {
	return &Sequence{instructions: instructions}
}

// Clone returns a cursor over the same instructions, rewound.
func (s *Sequence) Clone() *Sequence {
	return &Sequence{instructions: s.instructions}
}

func (s *Sequence) Len() int                    { return len(s.instructions) }
func (s *Sequence) IP() int                     { return s.ip }
func (s *Sequence) Done() bool                  { return s.ip >= len(s.instructions) }
func (s *Sequence) Rewind()                     { s.ip = 0 }
func (s *Sequence) At(i int) Instruction        { return s.instructions[i] }
func (s *Sequence) Instructions() []Instruction { return s.instructions }

// Current returns the instruction at the pointer without advancing, or nil
// at the end.
func (s *Sequence) Current() Instruction {
	if s.Done() {
		return nil
	}
	return s.instructions[s.ip]
}

// Advance moves the pointer past the current instruction.
func (s *Sequence) Advance() {
	if !s.Done() {
		s.ip++
	}
}

// Walk calls fn for each instruction from the pointer on. The pointer is
// already past the instruction when fn runs, so fn may call FetchBlock to
// consume the region that follows it. Walk stops when fn returns false.
func (s *Sequence) Walk(fn func(Instruction) bool) {
	for !s.Done() {
		in := s.instructions[s.ip]
		s.ip++
		if !fn(in) {
			return
		}
	}
}

// FetchBlock consumes instructions up to the next until-instruction at the
// current nesting depth and returns them as a new sequence. The terminator
// is consumed but not included. Nested regions are skipped: every opcode
// with a body deepens the nesting and every end closes one level.
//
// When label is not empty the terminator must carry the same label.
func (s *Sequence) FetchBlock(until Opcode, label string) (*Sequence, error) {
	start := s.ip
	depth := 0
	for i := start; i < len(s.instructions); i++ {
		in := s.instructions[i]
		op := in.Op()
		if depth == 0 && op == until {
			if label != "" {
				if l, ok := in.(Labeled); ok && l.BlockLabel() != "" && l.BlockLabel() != label {
					return nil, Errorf(in, "%w: expected %q, got %q", ErrUnexpectedLabel, label, l.BlockLabel())
				}
			}
			s.ip = i + 1
			return &Sequence{instructions: s.instructions[start:i:i]}, nil
		}
		switch {
		case op.HasBody():
			depth++
		case op == OpEnd:
			depth--
			if depth < 0 {
				return nil, Errorf(in, "%w: found end while looking for %s", ErrUnmatchedBlock, until)
			}
		}
	}
	var at Instruction
	if start > 0 {
		at = s.instructions[start-1]
	}
	return nil, Errorf(at, "%w: %s not found", ErrUnmatchedBlock, until)
}

// NetStackEffect returns how many values running s leaves on the stack,
// computed from the declared effects of its top-level instructions. A
// region counts as the construct that opens it, except for if: its arms
// share the enclosing stack, the top of the chosen arm becomes the result
// and the values below are kept only as deep as the shallower arm leaves
// them, so an if contributes min(then, else) - 1.
func NetStackEffect(s *Sequence) int {
	net := 0
	for i := 0; i < len(s.instructions); i++ {
		in := s.instructions[i]
		op := in.Op()
		if !op.HasBody() {
			pop, push := StackEffect(in)
			net += push - pop
			continue
		}
		c := &Sequence{instructions: s.instructions, ip: i + 1}
		if op == OpIf {
			then, err1 := c.FetchBlock(OpElse, "")
			els, err2 := c.FetchBlock(OpEnd, "")
			if err1 != nil || err2 != nil {
				return net
			}
			net += min(NetStackEffect(then), NetStackEffect(els)) - 1
		} else {
			if _, err := c.FetchBlock(OpEnd, ""); err != nil {
				return net
			}
			pop, push := StackEffect(in)
			net += push - pop
		}
		i = c.ip - 1
	}
	return net
}
