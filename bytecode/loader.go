package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/chazu/garnet/insn"
)

// Load reads a complete bytecode file from r.
func Load(r io.Reader) (*insn.Sequence, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read bytecode: %w", err)
	}
	return Decode(data)
}

// Decode parses a bytecode file.
func Decode(data []byte) (*insn.Sequence, error) {
	if len(data) < headerSize+1 {
		return nil, fmt.Errorf("%w: header", ErrUnexpectedEOF)
	}
	if [4]byte(data[:4]) != Magic {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidMagic, data[:4])
	}
	if data[4] != VersionMajor || data[5] != VersionMinor {
		return nil, fmt.Errorf("%w: expected %d.%d, got %d.%d", ErrVersionMismatch, VersionMajor, VersionMinor, data[4], data[5])
	}

	count := int(data[headerSize])
	table := headerSize + 1
	if len(data) < table+count*sectionEntrySize {
		return nil, fmt.Errorf("%w: section table", ErrUnexpectedEOF)
	}
	codeAt, roAt := -1, -1
	for i := 0; i < count; i++ {
		entry := data[table+i*sectionEntrySize:]
		offset := int(binary.BigEndian.Uint32(entry[1:5]))
		switch entry[0] {
		case SectionCode:
			codeAt = offset
		case SectionRoData:
			roAt = offset
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnknownSection, entry[0])
		}
	}
	if codeAt < 0 {
		return nil, ErrMissingCodeTable
	}

	d := &decoder{}
	if roAt >= 0 {
		body, err := sized(data, roAt)
		if err != nil {
			return nil, fmt.Errorf("rodata: %w", err)
		}
		if d.ro, err = LoadRoData(body); err != nil {
			return nil, err
		}
	}
	// the code size is a placeholder; instructions run to the end of input
	if codeAt+4 > len(data) {
		return nil, fmt.Errorf("code: %w", ErrUnexpectedEOF)
	}
	d.data = data[codeAt+4:]

	var instructions []insn.Instruction
	for d.pos < len(d.data) {
		at := d.pos
		in := d.instruction()
		if d.err != nil {
			return nil, fmt.Errorf("instruction %d at code offset %d: %w", len(instructions), at, d.err)
		}
		instructions = append(instructions, in)
	}
	log.Debugf("decoded %d instructions", len(instructions))
	return insn.NewSequence(instructions...), nil
}

// sized returns the body of a section that starts with a 4-byte length.
func sized(data []byte, at int) ([]byte, error) {
	if at+4 > len(data) {
		return nil, ErrUnexpectedEOF
	}
	n := int(binary.BigEndian.Uint32(data[at:]))
	if at+4+n > len(data) {
		return nil, ErrUnexpectedEOF
	}
	return data[at+4 : at+4+n], nil
}

// ---------------------------------------------------------------------------
// Instruction payloads
// ---------------------------------------------------------------------------

// decoder reads payload fields. The first failure sticks; later reads
// return zero values.
type decoder struct {
	data []byte
	pos  int
	ro   *RoData
	err  error
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *decoder) getByte() byte {
	if d.err != nil {
		return 0
	}
	if d.pos >= len(d.data) {
		d.fail(ErrUnexpectedEOF)
		return 0
	}
	b := d.data[d.pos]
	d.pos++
	return b
}

func (d *decoder) getBool() bool { return d.getByte() == 1 }

func (d *decoder) getBER() int {
	if d.err != nil {
		return 0
	}
	v, n, ok := ReadBER(d.data[d.pos:])
	d.pos += n
	if !ok || v > math.MaxInt32 {
		d.fail(ErrUnexpectedEOF)
		return 0
	}
	return int(v)
}

func (d *decoder) getInt() int64 {
	if d.err != nil {
		return 0
	}
	v, n, ok := ReadInt(d.data[d.pos:])
	d.pos += n
	if !ok {
		d.fail(ErrUnexpectedEOF)
	}
	return v
}

func (d *decoder) getFloat() float64 {
	if d.err != nil {
		return 0
	}
	if d.pos+8 > len(d.data) {
		d.fail(ErrUnexpectedEOF)
		return 0
	}
	bits := binary.BigEndian.Uint64(d.data[d.pos:])
	d.pos += 8
	return math.Float64frombits(bits)
}

// getRo reads a rodata offset and returns the entry it names.
func (d *decoder) getRo() string {
	off := d.getBER()
	if d.err != nil {
		return ""
	}
	if d.ro == nil {
		d.fail(ErrMissingRoData)
		return ""
	}
	s, err := d.ro.At(off)
	if err != nil {
		d.fail(err)
	}
	return s
}

func (d *decoder) instruction() insn.Instruction {
	tag := d.getByte()
	op, ok := insn.Lookup(tag)
	if !ok {
		d.fail(fmt.Errorf("%w: %d", ErrUnknownOpcode, tag))
		return nil
	}

	switch op {
	case insn.OpAliasGlobal:
		return &insn.AliasGlobal{New: d.getRo(), Old: d.getRo()}
	case insn.OpAliasMethod:
		return &insn.AliasMethod{}
	case insn.OpArrayConcat:
		return &insn.ArrayConcat{Count: d.getBER()}
	case insn.OpArrayPop:
		return &insn.ArrayPop{}
	case insn.OpArrayPopWithDefault:
		return &insn.ArrayPopWithDefault{}
	case insn.OpArrayPush:
		return &insn.ArrayPush{}
	case insn.OpArrayShift:
		return &insn.ArrayShift{}
	case insn.OpArrayShiftWithDefault:
		return &insn.ArrayShiftWithDefault{}
	case insn.OpArrayWrap:
		return &insn.ArrayWrap{}
	case insn.OpAutoloadConst:
		return &insn.AutoloadConst{Name: d.getRo(), Path: d.getRo()}
	case insn.OpBreak:
		return &insn.Break{}
	case insn.OpBreakOut:
		return &insn.BreakOut{Point: d.getBER()}
	case insn.OpCaseEqual:
		return &insn.CaseEqual{}
	case insn.OpCatch:
		return &insn.Catch{Label: d.getRo()}
	case insn.OpCheckArgs:
		return &insn.CheckArgs{Min: int(d.getInt()), Max: int(d.getInt())}
	case insn.OpCheckExtraKeywords:
		return &insn.CheckExtraKeywords{}
	case insn.OpCheckRequiredKeywords:
		n := d.getBER()
		var keywords []string
		for i := 0; i < n && d.err == nil; i++ {
			keywords = append(keywords, d.getRo())
		}
		return &insn.CheckRequiredKeywords{Keywords: keywords}
	case insn.OpClassVariableGet:
		return &insn.ClassVariableGet{Name: d.getRo()}
	case insn.OpClassVariableSet:
		return &insn.ClassVariableSet{Name: d.getRo()}
	case insn.OpConstFind:
		return &insn.ConstFind{Name: d.getRo(), Strict: d.getBool()}
	case insn.OpConstSet:
		return &insn.ConstSet{Name: d.getRo()}
	case insn.OpContinue:
		return &insn.Continue{}
	case insn.OpCreateArray:
		return &insn.CreateArray{Count: d.getBER()}
	case insn.OpCreateComplex:
		return &insn.CreateComplex{Real: d.getFloat(), Imag: d.getFloat()}
	case insn.OpCreateHash:
		return &insn.CreateHash{Count: d.getBER()}
	case insn.OpCreateLambda:
		return &insn.CreateLambda{}
	case insn.OpCreateRange:
		return &insn.CreateRange{ExcludeEnd: d.getBool()}
	case insn.OpDefineBlock:
		return &insn.DefineBlock{Arity: int(d.getInt())}
	case insn.OpDefineClass:
		return &insn.DefineClass{Name: d.getRo(), IsPrivate: d.getBool()}
	case insn.OpDefineMethod:
		return &insn.DefineMethod{Name: d.getRo(), Arity: int(d.getInt())}
	case insn.OpDefineModule:
		return &insn.DefineModule{Name: d.getRo()}
	case insn.OpDup:
		return &insn.Dup{}
	case insn.OpDupObject:
		return &insn.DupObject{}
	case insn.OpDupRel:
		return &insn.DupRel{Offset: d.getBER()}
	case insn.OpElse:
		return &insn.Else{Label: d.getRo()}
	case insn.OpEnd:
		return &insn.End{Label: d.getRo()}
	case insn.OpGlobalVariableDefined:
		return &insn.GlobalVariableDefined{Name: d.getRo()}
	case insn.OpGlobalVariableGet:
		return &insn.GlobalVariableGet{Name: d.getRo()}
	case insn.OpGlobalVariableSet:
		return &insn.GlobalVariableSet{Name: d.getRo()}
	case insn.OpHashDelete:
		return &insn.HashDelete{Key: d.getRo()}
	case insn.OpHashDeleteWithDefault:
		return &insn.HashDeleteWithDefault{Key: d.getRo()}
	case insn.OpHashMerge:
		return &insn.HashMerge{}
	case insn.OpHashPut:
		return &insn.HashPut{}
	case insn.OpIf:
		return &insn.If{}
	case insn.OpInlineCode:
		return &insn.InlineCode{Code: d.getRo()}
	case insn.OpInstanceVariableDefined:
		return &insn.InstanceVariableDefined{Name: d.getRo()}
	case insn.OpInstanceVariableGet:
		return &insn.InstanceVariableGet{Name: d.getRo()}
	case insn.OpInstanceVariableSet:
		return &insn.InstanceVariableSet{Name: d.getRo()}
	case insn.OpIsDefined:
		return &insn.IsDefined{Type: d.getRo()}
	case insn.OpIsNil:
		return &insn.IsNil{}
	case insn.OpLoadFile:
		return &insn.LoadFile{Filename: d.getRo(), RequireOnce: d.getBool()}
	case insn.OpMatchBreakPoint:
		return &insn.MatchBreakPoint{Point: d.getBER()}
	case insn.OpMatchException:
		return &insn.MatchException{}
	case insn.OpMethodDefined:
		return &insn.MethodDefined{Message: d.getRo(), ReceiverIsSelf: d.getBool()}
	case insn.OpMoveRel:
		return &insn.MoveRel{Offset: d.getBER()}
	case insn.OpNext:
		return &insn.Next{}
	case insn.OpNot:
		return &insn.Not{}
	case insn.OpPop:
		return &insn.Pop{}
	case insn.OpPopKeywordArgs:
		return &insn.PopKeywordArgs{}
	case insn.OpPushArg:
		return &insn.PushArg{Index: d.getBER(), NilDefault: d.getBool()}
	case insn.OpPushArgc:
		return &insn.PushArgc{Count: d.getBER()}
	case insn.OpPushArgs:
		return &insn.PushArgs{ForBlock: d.getBool(), MinCount: d.getBER()}
	case insn.OpPushBlock:
		return &insn.PushBlock{}
	case insn.OpPushFalse:
		return &insn.PushFalse{}
	case insn.OpPushFloat:
		return &insn.PushFloat{Value: d.getFloat()}
	case insn.OpPushInt:
		return &insn.PushInt{Value: d.getInt()}
	case insn.OpPushLastMatch:
		return &insn.PushLastMatch{}
	case insn.OpPushNil:
		return &insn.PushNil{}
	case insn.OpPushObjectClass:
		return &insn.PushObjectClass{}
	case insn.OpPushRational:
		return &insn.PushRational{Numerator: d.getInt(), Denominator: d.getInt()}
	case insn.OpPushRegexp:
		return &insn.PushRegexp{Source: d.getRo(), Options: d.getBER()}
	case insn.OpPushRescued:
		return &insn.PushRescued{}
	case insn.OpPushSelf:
		return &insn.PushSelf{}
	case insn.OpPushString:
		return &insn.PushString{Value: d.getRo(), Encoding: d.getRo(), Frozen: d.getBool()}
	case insn.OpPushSymbol:
		return &insn.PushSymbol{Name: d.getRo()}
	case insn.OpPushTrue:
		return &insn.PushTrue{}
	case insn.OpRedo:
		return &insn.Redo{}
	case insn.OpRetry:
		return &insn.Retry{}
	case insn.OpReturn:
		return &insn.Return{}
	case insn.OpSend:
		in := &insn.Send{Message: d.getRo(), ArgCount: d.getBER()}
		flags := d.getByte()
		in.ReceiverIsSelf = flags&flagReceiverIsSelf != 0
		in.WithBlock = flags&flagWithBlock != 0
		in.ArgsArrayOnStack = flags&flagArgsArrayOnStack != 0
		in.HasKeywordHash = flags&flagHasKeywordHash != 0
		return in
	case insn.OpShell:
		return &insn.Shell{}
	case insn.OpSingletonClass:
		return &insn.SingletonClass{}
	case insn.OpStringAppend:
		return &insn.StringAppend{}
	case insn.OpStringToRegexp:
		return &insn.StringToRegexp{Options: d.getBER()}
	case insn.OpSuper:
		in := &insn.Super{ArgCount: d.getBER()}
		flags := d.getByte()
		in.WithBlock = flags&flagWithBlock != 0
		in.ArgsArrayOnStack = flags&flagArgsArrayOnStack != 0
		in.HasKeywordHash = flags&flagHasKeywordHash != 0
		return in
	case insn.OpSwap:
		return &insn.Swap{}
	case insn.OpToArray:
		return &insn.ToArray{}
	case insn.OpTry:
		return &insn.Try{}
	case insn.OpUndefineMethod:
		return &insn.UndefineMethod{Name: d.getRo()}
	case insn.OpVariableDeclare:
		return &insn.VariableDeclare{Name: d.getRo()}
	case insn.OpVariableGet:
		return &insn.VariableGet{Name: d.getRo()}
	case insn.OpVariableSet:
		return &insn.VariableSet{Name: d.getRo(), LocalOnly: d.getBool()}
	case insn.OpWhileBody:
		return &insn.WhileBody{Label: d.getRo()}
	case insn.OpWhile:
		return &insn.While{Pre: d.getBool()}
	case insn.OpWithSingleton:
		return &insn.WithSingleton{}
	case insn.OpYield:
		in := &insn.Yield{ArgCount: d.getBER()}
		flags := d.getByte()
		in.ArgsArrayOnStack = flags&flagArgsArrayOnStack != 0
		in.HasKeywordHash = flags&flagHasKeywordHash != 0
		return in
	}
	d.fail(fmt.Errorf("%w: %s", ErrUnknownOpcode, op))
	return nil
}
