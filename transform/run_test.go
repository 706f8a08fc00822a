package transform

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/garnet/insn"
)

// runProgram builds the generated program with the go toolchain and
// returns its standard output.
func runProgram(t *testing.T, unit *Unit) string {
	t.Helper()
	if testing.Short() {
		t.Skip("building generated programs runs the go toolchain")
	}
	gobin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not available")
	}

	// inside the module so the object package resolves
	dir, err := os.MkdirTemp("testdata", "run")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(path, []byte(unit.Source), 0o644))

	cmd := exec.Command(gobin, "run", "./"+filepath.ToSlash(path))
	var stderr []byte
	out, err := cmd.Output()
	if ee, ok := err.(*exec.ExitError); ok {
		stderr = ee.Stderr
	}
	require.NoError(t, err, "%s\n%s", stderr, unit.Source)
	return string(out)
}

func constant(name string) []insn.Instruction {
	return []insn.Instruction{&insn.PushObjectClass{}, &insn.ConstFind{Name: name}}
}

func TestRunArithmetic(t *testing.T) {
	unit := compile(t, Options{},
		&insn.PushInt{Value: 2},
		&insn.PushInt{Value: 3},
		&insn.Send{Message: "+", ArgCount: 1},
		sendSelf("puts", 1),
	)
	assert.Equal(t, "5\n", runProgram(t, unit))
}

func TestRunRescueOrdering(t *testing.T) {
	// begin
	//   raise <error>
	// rescue RuntimeError then "runtime"
	// rescue StandardError then "standard"
	// end
	program := func(raise ...insn.Instruction) []insn.Instruction {
		return slices.Concat(
			[]insn.Instruction{&insn.Try{}},
			raise,
			[]insn.Instruction{&insn.Catch{Label: "try"}},
			constant("RuntimeError"),
			[]insn.Instruction{&insn.MatchException{}, &insn.If{}, &insn.PushString{Value: "runtime"}, &insn.Else{Label: "if"}},
			constant("StandardError"),
			[]insn.Instruction{&insn.MatchException{}, &insn.If{}, &insn.PushString{Value: "standard"}, &insn.Else{Label: "if"}},
			[]insn.Instruction{&insn.PushRescued{}, sendSelf("raise", 1)},
			[]insn.Instruction{&insn.End{Label: "if"}, &insn.End{Label: "if"}, &insn.End{Label: "try"}},
			[]insn.Instruction{sendSelf("puts", 1)},
		)
	}

	runtime := compile(t, Options{}, program(&insn.PushString{Value: "boom"}, sendSelf("raise", 1))...)
	assert.Equal(t, "runtime\n", runProgram(t, runtime))

	argument := compile(t, Options{}, program(slices.Concat(
		constant("ArgumentError"),
		[]insn.Instruction{&insn.PushString{Value: "bad"}, sendSelf("raise", 2)},
	)...)...)
	assert.Equal(t, "standard\n", runProgram(t, argument))
}

func TestRunIfKeepsArmValues(t *testing.T) {
	arms := func(cond insn.Instruction) *Unit {
		return compile(t, Options{StrictBranchArity: true},
			cond,
			&insn.If{},
			&insn.PushInt{Value: 1}, &insn.PushInt{Value: 2},
			&insn.Else{Label: "if"},
			&insn.PushInt{Value: 3}, &insn.PushInt{Value: 4},
			&insn.End{Label: "if"},
			&insn.CreateArray{Count: 2},
			sendSelf("p", 1),
		)
	}
	assert.Equal(t, "[1, 2]\n", runProgram(t, arms(&insn.PushTrue{})))
	assert.Equal(t, "[3, 4]\n", runProgram(t, arms(&insn.PushFalse{})))
}

func TestStackEffectConformance(t *testing.T) {
	tests := []struct {
		name   string
		inputs int
		ins    []insn.Instruction
	}{
		{"dup", 1, []insn.Instruction{&insn.Dup{}}},
		{"dup_rel", 2, []insn.Instruction{&insn.DupRel{Offset: 1}}},
		{"move_rel", 2, []insn.Instruction{&insn.MoveRel{Offset: 1}}},
		{"swap", 2, []insn.Instruction{&insn.Swap{}}},
		{"pop", 1, []insn.Instruction{&insn.Pop{}}},
		{"create_array", 3, []insn.Instruction{&insn.CreateArray{Count: 3}}},
		{"create_hash", 2, []insn.Instruction{&insn.CreateHash{Count: 1}}},
		{"array_push", 2, []insn.Instruction{&insn.ArrayPush{}}},
		{"array_pop", 1, []insn.Instruction{&insn.ArrayPop{}}},
		{"array_shift_with_default", 2, []insn.Instruction{&insn.ArrayShiftWithDefault{}}},
		{"array_concat", 3, []insn.Instruction{&insn.ArrayConcat{Count: 2}}},
		{"array_wrap", 1, []insn.Instruction{&insn.ArrayWrap{}}},
		{"hash_put", 3, []insn.Instruction{&insn.HashPut{}}},
		{"hash_delete", 1, []insn.Instruction{&insn.HashDelete{Key: "k"}}},
		{"create_range", 2, []insn.Instruction{&insn.CreateRange{}}},
		{"case_equal", 2, []insn.Instruction{&insn.CaseEqual{}}},
		{"is_nil", 1, []insn.Instruction{&insn.IsNil{}}},
		{"not", 1, []insn.Instruction{&insn.Not{}}},
		{"push_symbol", 0, []insn.Instruction{&insn.PushSymbol{Name: "a"}}},
		{"create_complex", 0, []insn.Instruction{&insn.CreateComplex{Real: 1, Imag: 2}}},
		{"global_variable_set", 1, []insn.Instruction{&insn.GlobalVariableSet{Name: "$x"}}},
		{"const_set", 2, []insn.Instruction{&insn.ConstSet{Name: "X"}}},
		{"send", 2, []insn.Instruction{&insn.Send{Message: "+", ArgCount: 1}}},
		{"send to self", 1, []insn.Instruction{&insn.Send{Message: "nope", ArgCount: 1, ReceiverIsSelf: true}}},
		{"send with args array", 2, []insn.Instruction{&insn.Send{Message: "+", ArgsArrayOnStack: true}}},
		{"method_defined", 1, []insn.Instruction{&insn.MethodDefined{Message: "puts", ReceiverIsSelf: true}}},
		{"inline_code", 0, []insn.Instruction{&insn.InlineCode{Code: "_ = 0"}}},

		// regions
		{"if with two values per arm", 0, []insn.Instruction{
			&insn.PushTrue{}, &insn.If{},
			&insn.PushInt{Value: 1}, &insn.PushInt{Value: 2},
			&insn.Else{Label: "if"},
			&insn.PushInt{Value: 3}, &insn.PushInt{Value: 4},
			&insn.End{Label: "if"},
		}},
		{"if with uneven arms", 1, []insn.Instruction{
			&insn.PushTrue{}, &insn.If{},
			&insn.PushInt{Value: 1}, &insn.PushInt{Value: 2},
			&insn.Else{Label: "if"},
			&insn.PushInt{Value: 3},
			&insn.End{Label: "if"},
		}},
		{"if arms consuming the stack", 2, []insn.Instruction{
			&insn.PushTrue{}, &insn.If{},
			&insn.Pop{},
			&insn.Else{Label: "if"},
			&insn.Pop{},
			&insn.End{Label: "if"},
		}},
		{"or", 0, []insn.Instruction{
			&insn.PushInt{Value: 1}, &insn.Dup{}, &insn.If{},
			&insn.Else{Label: "if"},
			&insn.Pop{}, &insn.PushInt{Value: 2},
			&insn.End{Label: "if"},
		}},
		{"nested if", 0, []insn.Instruction{
			&insn.PushTrue{}, &insn.If{},
			&insn.PushInt{Value: 1},
			&insn.PushFalse{}, &insn.If{},
			&insn.PushInt{Value: 2}, &insn.PushInt{Value: 3},
			&insn.Else{Label: "if"},
			&insn.PushInt{Value: 4}, &insn.PushInt{Value: 5},
			&insn.End{Label: "if"},
			&insn.Else{Label: "if"},
			&insn.PushInt{Value: 6}, &insn.PushInt{Value: 7}, &insn.PushInt{Value: 8},
			&insn.End{Label: "if"},
		}},
		{"try", 1, []insn.Instruction{
			&insn.Try{},
			&insn.PushInt{Value: 1}, &insn.PushInt{Value: 2},
			&insn.Catch{Label: "try"},
			&insn.End{Label: "try"},
		}},
		{"while", 0, []insn.Instruction{
			&insn.While{Pre: true},
			&insn.PushFalse{},
			&insn.WhileBody{Label: "while"},
			&insn.PushInt{Value: 1},
			&insn.End{Label: "while"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := insn.NewSequence(tt.ins...)
			tr := New(seq, NewData(nil, Options{}))
			for i := range tt.inputs {
				tr.Push(fmt.Sprintf("in%d", i))
			}
			_, err := tr.Generate()
			require.NoError(t, err)
			assert.Equal(t, tt.inputs+insn.NetStackEffect(seq), len(tr.stack))
		})
	}
}
