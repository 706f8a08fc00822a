package insn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpcodeTableComplete(t *testing.T) {
	seen := map[string]bool{}
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		require.NotEmpty(t, info.Name, "opcode %d has no name", op)
		require.False(t, seen[info.Name], "duplicate name %s", info.Name)
		seen[info.Name] = true
		back, ok := ByName(info.Name)
		require.True(t, ok)
		require.Equal(t, op, back)
	}
	assert.Equal(t, 96, OpcodeCount())
	assert.Equal(t, "alias_global", OpAliasGlobal.String())
	assert.Equal(t, "yield", OpYield.String())
	assert.Equal(t, Opcode(65), OpPushInt)
	assert.Equal(t, Opcode(79), OpSend)

	_, ok := Lookup(byte(OpcodeCount()))
	assert.False(t, ok)
	assert.Contains(t, Opcode(200).String(), "unknown")
}

func TestFetchBlockNested(t *testing.T) {
	// if
	//   if
	//     if  push 1 else push 2 end
	//   else push 3 end
	// else push 4 end
	innermost := []Instruction{&If{}, &PushInt{Value: 1}, &Else{Label: "if"}, &PushInt{Value: 2}, &End{Label: "if"}}
	middle := append([]Instruction{&If{}}, innermost...)
	middle = append(middle, &Else{Label: "if"}, &PushInt{Value: 3}, &End{Label: "if"})
	outer := append([]Instruction{&If{}}, middle...)
	outer = append(outer, &Else{Label: "if"}, &PushInt{Value: 4}, &End{Label: "if"})

	t.Run("from outside", func(t *testing.T) {
		seq := NewSequence(outer...)
		seq.Advance() // past the outer if
		then, err := seq.FetchBlock(OpElse, "if")
		require.NoError(t, err)
		require.Equal(t, len(middle), then.Len())
		els, err := seq.FetchBlock(OpEnd, "if")
		require.NoError(t, err)
		require.Equal(t, 1, els.Len())
		assert.Equal(t, int64(4), els.At(0).(*PushInt).Value)
		assert.True(t, seq.Done())
	})

	t.Run("from inside", func(t *testing.T) {
		seq := NewSequence(outer...)
		seq.Advance()
		seq.Advance()
		seq.Advance() // past the innermost if
		then, err := seq.FetchBlock(OpElse, "if")
		require.NoError(t, err)
		require.Equal(t, 1, then.Len())
		assert.Equal(t, int64(1), then.At(0).(*PushInt).Value)
		els, err := seq.FetchBlock(OpEnd, "if")
		require.NoError(t, err)
		assert.Equal(t, int64(2), els.At(0).(*PushInt).Value)
	})

	t.Run("walk with fetch", func(t *testing.T) {
		seq := NewSequence(outer...)
		var visited []Opcode
		seq.Walk(func(in Instruction) bool {
			visited = append(visited, in.Op())
			if in.Op() == OpIf {
				_, err := seq.FetchBlock(OpElse, "if")
				require.NoError(t, err)
				_, err = seq.FetchBlock(OpEnd, "if")
				require.NoError(t, err)
			}
			return true
		})
		assert.Equal(t, []Opcode{OpIf}, visited)
	})
}

func TestFetchBlockMixedKinds(t *testing.T) {
	seq := NewSequence(
		&While{Pre: true},
		&PushTrue{},
		&WhileBody{Label: "while"},
		&Try{},
		&DefineBlock{},
		&PushNil{},
		&End{Label: "define_block"},
		&Catch{Label: "try"},
		&PushNil{},
		&End{Label: "try"},
		&End{Label: "while"},
		&PushNil{},
	)
	seq.Advance()
	cond, err := seq.FetchBlock(OpWhileBody, "while")
	require.NoError(t, err)
	assert.Equal(t, 1, cond.Len())
	body, err := seq.FetchBlock(OpEnd, "while")
	require.NoError(t, err)
	assert.Equal(t, 7, body.Len())
	assert.Equal(t, OpPushNil, seq.Current().Op())
}

func TestFetchBlockErrors(t *testing.T) {
	t.Run("missing terminator", func(t *testing.T) {
		seq := NewSequence(&If{}, &PushNil{}, &Else{}, &PushNil{})
		seq.Advance()
		_, err := seq.FetchBlock(OpElse, "if")
		require.NoError(t, err)
		_, err = seq.FetchBlock(OpEnd, "if")
		require.ErrorIs(t, err, ErrUnmatchedBlock)
		var ie *InternalError
		require.True(t, errors.As(err, &ie))
	})

	t.Run("end before else", func(t *testing.T) {
		seq := NewSequence(&If{}, &PushNil{}, &End{})
		seq.Advance()
		_, err := seq.FetchBlock(OpElse, "if")
		require.ErrorIs(t, err, ErrUnmatchedBlock)
	})

	t.Run("label mismatch", func(t *testing.T) {
		seq := NewSequence(&Try{}, &PushNil{}, &Catch{Label: "try"}, &PushNil{}, &End{Label: "while"})
		seq.Advance()
		_, err := seq.FetchBlock(OpCatch, "try")
		require.NoError(t, err)
		_, err = seq.FetchBlock(OpEnd, "try")
		require.ErrorIs(t, err, ErrUnexpectedLabel)
	})
}

func TestFindVar(t *testing.T) {
	method := NewEnv(EnvMethod, nil)
	x := method.Declare("x")
	method.Declare("y")

	block := NewEnv(EnvBlock, method)
	shadow := block.Declare("y")

	t.Run("one hop to method", func(t *testing.T) {
		depth, v, err := FindVar(block, "x", false)
		require.NoError(t, err)
		assert.Equal(t, 1, depth)
		assert.Equal(t, x, v)
	})

	t.Run("shadowed local", func(t *testing.T) {
		depth, v, err := FindVar(block, "y", false)
		require.NoError(t, err)
		assert.Equal(t, 0, depth)
		assert.Equal(t, shadow, v)
	})

	t.Run("local only", func(t *testing.T) {
		_, _, err := FindVar(block, "x", true)
		require.ErrorIs(t, err, ErrUnknownVariable)
	})

	t.Run("method does not see outer", func(t *testing.T) {
		top := NewEnv(EnvTop, nil)
		top.Declare("z")
		m := NewEnv(EnvMethod, top)
		_, _, err := FindVar(m, "z", false)
		require.ErrorIs(t, err, ErrUnknownVariable)
	})

	t.Run("hoisting scope is transparent", func(t *testing.T) {
		hoist := NewHoistEnv(block)
		v := hoist.Declare("w")
		assert.Contains(t, block.Vars, "w")
		depth, found, err := FindVar(hoist, "w", false)
		require.NoError(t, err)
		assert.Equal(t, 0, depth)
		assert.Equal(t, v, found)

		depth, _, err = FindVar(hoist, "x", false)
		require.NoError(t, err)
		assert.Equal(t, 1, depth)
	})

	t.Run("nested blocks", func(t *testing.T) {
		inner := NewEnv(EnvBlock, block)
		depth, v, err := FindVar(inner, "x", false)
		require.NoError(t, err)
		assert.Equal(t, 2, depth)
		assert.Equal(t, 0, v.Index)
	})
}

func TestStackEffect(t *testing.T) {
	tests := []struct {
		in        Instruction
		pop, push int
	}{
		{&PushInt{Value: 1}, 0, 1},
		{&Dup{}, 1, 2},
		{&DupRel{Offset: 2}, 0, 1},
		{&CreateArray{Count: 3}, 3, 1},
		{&CreateHash{Count: 2}, 4, 1},
		{&ArrayConcat{Count: 2}, 3, 1},
		{&ArrayPop{}, 1, 2},
		{&Send{Message: "+", ArgCount: 1}, 2, 1},
		{&Send{Message: "puts", ArgCount: 2, ReceiverIsSelf: true}, 2, 1},
		{&Send{Message: "each", WithBlock: true}, 2, 1},
		{&Send{Message: "f", ArgsArrayOnStack: true, ReceiverIsSelf: true}, 1, 1},
		{&Super{ArgCount: 2, WithBlock: true}, 3, 1},
		{&Yield{ArgCount: 1}, 1, 1},
		{&If{}, 1, 1},
		{&DefineClass{Name: "Foo"}, 2, 1},
		{&ConstSet{Name: "X"}, 2, 0},
		{&VariableSet{Name: "x"}, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			pop, push := StackEffect(tt.in)
			assert.Equal(t, tt.pop, pop)
			assert.Equal(t, tt.push, push)
		})
	}
}

func TestDisassemble(t *testing.T) {
	seq := NewSequence(
		At(&PushInt{Value: 2}, "t.rb", 1),
		&If{},
		&PushString{Value: "hi", Frozen: true},
		&Else{Label: "if"},
		&Send{Message: "puts", ReceiverIsSelf: true, WithBlock: true},
		&End{Label: "if"},
	)
	lines := DisassembleToLines(seq)
	require.Len(t, lines, 6)
	assert.Equal(t, "0000  push_int 2  ; t.rb:1", lines[0])
	assert.Equal(t, "0001  if", lines[1])
	assert.Equal(t, `0002    push_string "hi", 2, UTF-8 (frozen)`, lines[2])
	assert.Equal(t, "0003  else if", lines[3])
	assert.Equal(t, "0004    send :puts to self with block (argc 0)", lines[4])
	assert.Equal(t, "0005  end if", lines[5])

	listing := DisassembleWithName(seq, "main")
	assert.Contains(t, listing, "; === main ===")
}

func TestNetStackEffect(t *testing.T) {
	tests := []struct {
		name string
		seq  []Instruction
		want int
	}{
		{"empty", nil, 0},
		{"literals", []Instruction{&PushInt{Value: 1}, &PushInt{Value: 2}, &Pop{}}, 1},
		{"call", []Instruction{&PushSelf{}, &PushInt{Value: 1}, &Send{Message: "p", ArgCount: 1}}, 1},
		{"if with values in both arms", []Instruction{
			&PushTrue{}, &If{}, &PushInt{Value: 1}, &Else{Label: "if"}, &PushInt{Value: 2}, &End{Label: "if"},
		}, 1},
		{"or idiom consumes the duplicate", []Instruction{
			&PushInt{Value: 1}, &Dup{}, &If{}, &Else{Label: "if"}, &Pop{}, &PushInt{Value: 2}, &End{Label: "if"},
		}, 1},
		{"while counts as one value", []Instruction{
			&While{Pre: true}, &PushFalse{}, &WhileBody{Label: "while"}, &PushNil{}, &Pop{}, &End{Label: "while"},
		}, 1},
		{"nested definition", []Instruction{
			&DefineMethod{Name: "f"}, &PushInt{Value: 1}, &PushInt{Value: 2}, &End{Label: "define_method"}, &Pop{},
		}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NetStackEffect(NewSequence(tt.seq...)))
		})
	}
}
