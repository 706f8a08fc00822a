package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/chazu/garnet/insn"
)

// Writer serializes instruction sequences to an io.Writer.
type Writer struct {
	w io.Writer
}

// NewWriter creates a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write encodes seq as one complete bytecode file.
func (w *Writer) Write(seq *insn.Sequence) error {
	data, err := Encode(seq)
	if err != nil {
		return err
	}
	_, err = w.w.Write(data)
	return err
}

// Encode returns the bytecode file for seq.
func Encode(seq *insn.Sequence) ([]byte, error) {
	e := &encoder{ro: NewRoData()}
	for i, in := range seq.Instructions() {
		if err := e.instruction(in); err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
	}

	sections := 1
	if e.ro.Len() > 0 {
		sections = 2
	}
	out := make([]byte, 0, headerSize+1+sections*sectionEntrySize+8+e.ro.Len()+len(e.code))
	out = append(out, Magic[:]...)
	out = append(out, VersionMajor, VersionMinor, byte(sections))

	pos := headerSize + 1 + sections*sectionEntrySize
	if e.ro.Len() > 0 {
		out = appendSection(out, SectionRoData, pos)
		pos += 4 + e.ro.Len()
	}
	out = appendSection(out, SectionCode, pos)

	if e.ro.Len() > 0 {
		out = binary.BigEndian.AppendUint32(out, uint32(e.ro.Len()))
		out = append(out, e.ro.Bytes()...)
	}
	out = binary.BigEndian.AppendUint32(out, uint32(len(e.code)))
	out = append(out, e.code...)

	log.Debugf("encoded %d instructions (%d code bytes, %d rodata bytes)", seq.Len(), len(e.code), e.ro.Len())
	return out, nil
}

func appendSection(out []byte, typ byte, offset int) []byte {
	out = append(out, typ)
	return binary.BigEndian.AppendUint32(out, uint32(offset))
}

// ---------------------------------------------------------------------------
// Instruction payloads
// ---------------------------------------------------------------------------

type encoder struct {
	code []byte
	ro   *RoData
}

func (e *encoder) putByte(b byte)     { e.code = append(e.code, b) }
func (e *encoder) putBER(n int)       { e.code = AppendBER(e.code, uint64(n)) }
func (e *encoder) putInt(n int64)     { e.code = AppendInt(e.code, n) }
func (e *encoder) putSymbol(s string) { e.putBER(e.ro.AddSymbol(s)) }
func (e *encoder) putString(s string) { e.putBER(e.ro.AddString(s, insn.DefaultEncoding)) }

func (e *encoder) putBool(b bool) {
	if b {
		e.putByte(1)
	} else {
		e.putByte(0)
	}
}

func (e *encoder) putFloat(f float64) {
	e.code = binary.BigEndian.AppendUint64(e.code, math.Float64bits(f))
}

func (e *encoder) putCount(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative count %d", ErrUnencodable, n)
	}
	e.putBER(n)
	return nil
}

func callFlags(self, block, argsArray, keywords bool) byte {
	var f byte
	if self {
		f |= flagReceiverIsSelf
	}
	if block {
		f |= flagWithBlock
	}
	if argsArray {
		f |= flagArgsArrayOnStack
	}
	if keywords {
		f |= flagHasKeywordHash
	}
	return f
}

func (e *encoder) instruction(in insn.Instruction) error {
	if !in.Op().Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownOpcode, in.Op())
	}
	e.putByte(byte(in.Op()))

	switch in := in.(type) {
	case *insn.AliasGlobal:
		e.putSymbol(in.New)
		e.putSymbol(in.Old)
	case *insn.AutoloadConst:
		e.putSymbol(in.Name)
		e.putString(in.Path)
	case *insn.ArrayConcat:
		return e.putCount(in.Count)
	case *insn.BreakOut:
		return e.putCount(in.Point)
	case *insn.MatchBreakPoint:
		return e.putCount(in.Point)
	case *insn.Catch:
		e.putString(in.Label)
	case *insn.Else:
		e.putString(in.Label)
	case *insn.End:
		e.putString(in.Label)
	case *insn.WhileBody:
		e.putString(in.Label)
	case *insn.CheckArgs:
		e.putInt(int64(in.Min))
		e.putInt(int64(in.Max))
	case *insn.CheckRequiredKeywords:
		e.putBER(len(in.Keywords))
		for _, k := range in.Keywords {
			e.putSymbol(k)
		}
	case *insn.ClassVariableGet:
		e.putSymbol(in.Name)
	case *insn.ClassVariableSet:
		e.putSymbol(in.Name)
	case *insn.ConstFind:
		e.putSymbol(in.Name)
		e.putBool(in.Strict)
	case *insn.ConstSet:
		e.putSymbol(in.Name)
	case *insn.CreateArray:
		return e.putCount(in.Count)
	case *insn.CreateHash:
		return e.putCount(in.Count)
	case *insn.CreateComplex:
		e.putFloat(in.Real)
		e.putFloat(in.Imag)
	case *insn.CreateRange:
		e.putBool(in.ExcludeEnd)
	case *insn.DefineBlock:
		e.putInt(int64(in.Arity))
	case *insn.DefineClass:
		e.putSymbol(in.Name)
		e.putBool(in.IsPrivate)
	case *insn.DefineMethod:
		e.putSymbol(in.Name)
		e.putInt(int64(in.Arity))
	case *insn.DefineModule:
		e.putSymbol(in.Name)
	case *insn.DupRel:
		return e.putCount(in.Offset)
	case *insn.MoveRel:
		return e.putCount(in.Offset)
	case *insn.GlobalVariableDefined:
		e.putSymbol(in.Name)
	case *insn.GlobalVariableGet:
		e.putSymbol(in.Name)
	case *insn.GlobalVariableSet:
		e.putSymbol(in.Name)
	case *insn.HashDelete:
		e.putSymbol(in.Key)
	case *insn.HashDeleteWithDefault:
		e.putSymbol(in.Key)
	case *insn.InlineCode:
		e.putString(in.Code)
	case *insn.InstanceVariableDefined:
		e.putSymbol(in.Name)
	case *insn.InstanceVariableGet:
		e.putSymbol(in.Name)
	case *insn.InstanceVariableSet:
		e.putSymbol(in.Name)
	case *insn.IsDefined:
		e.putString(in.Type)
	case *insn.LoadFile:
		e.putString(in.Filename)
		e.putBool(in.RequireOnce)
	case *insn.MethodDefined:
		e.putSymbol(in.Message)
		e.putBool(in.ReceiverIsSelf)
	case *insn.PushArg:
		if err := e.putCount(in.Index); err != nil {
			return err
		}
		e.putBool(in.NilDefault)
	case *insn.PushArgc:
		return e.putCount(in.Count)
	case *insn.PushArgs:
		e.putBool(in.ForBlock)
		return e.putCount(in.MinCount)
	case *insn.PushFloat:
		e.putFloat(in.Value)
	case *insn.PushInt:
		e.putInt(in.Value)
	case *insn.PushRational:
		e.putInt(in.Numerator)
		e.putInt(in.Denominator)
	case *insn.PushRegexp:
		e.putString(in.Source)
		return e.putCount(in.Options)
	case *insn.PushString:
		enc := in.Encoding
		if enc == "" {
			enc = insn.DefaultEncoding
		}
		e.putBER(e.ro.AddString(in.Value, enc))
		e.putBER(e.ro.AddEncoding(enc))
		e.putBool(in.Frozen)
	case *insn.PushSymbol:
		e.putSymbol(in.Name)
	case *insn.Send:
		e.putSymbol(in.Message)
		if err := e.putCount(in.ArgCount); err != nil {
			return err
		}
		e.putByte(callFlags(in.ReceiverIsSelf, in.WithBlock, in.ArgsArrayOnStack, in.HasKeywordHash))
	case *insn.Super:
		if err := e.putCount(in.ArgCount); err != nil {
			return err
		}
		e.putByte(callFlags(false, in.WithBlock, in.ArgsArrayOnStack, in.HasKeywordHash))
	case *insn.Yield:
		if err := e.putCount(in.ArgCount); err != nil {
			return err
		}
		e.putByte(callFlags(false, false, in.ArgsArrayOnStack, in.HasKeywordHash))
	case *insn.StringToRegexp:
		return e.putCount(in.Options)
	case *insn.UndefineMethod:
		e.putSymbol(in.Name)
	case *insn.VariableDeclare:
		e.putSymbol(in.Name)
	case *insn.VariableGet:
		e.putSymbol(in.Name)
	case *insn.VariableSet:
		e.putSymbol(in.Name)
		e.putBool(in.LocalOnly)
	case *insn.While:
		e.putBool(in.Pre)
	}
	return nil
}
