package transform

import (
	"errors"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/garnet/insn"
)

func compile(t *testing.T, opts Options, ins ...insn.Instruction) *Unit {
	t.Helper()
	unit, err := Compile(insn.NewSequence(ins...), "main.rb", nil, opts)
	require.NoError(t, err)
	return unit
}

func compileErr(t *testing.T, opts Options, ins ...insn.Instruction) error {
	t.Helper()
	_, err := Compile(insn.NewSequence(ins...), "main.rb", nil, opts)
	require.Error(t, err)
	return err
}

func sendSelf(name string, argc int) *insn.Send {
	return &insn.Send{Message: name, ArgCount: argc, ReceiverIsSelf: true}
}

// typeCheck checks src against the object package loaded from source.
func typeCheck(t *testing.T, src string) {
	t.Helper()
	if testing.Short() {
		t.Skip("type checking loads packages from source")
	}
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "main.go", src, 0)
	require.NoError(t, err)

	imp := importer.ForCompiler(fset, "source", nil)
	if _, err := imp.Import("github.com/chazu/garnet/object"); err != nil {
		t.Skipf("object package not importable from source: %v", err)
	}
	conf := types.Config{Importer: imp}
	_, err = conf.Check("main", fset, []*ast.File{f}, nil)
	require.NoError(t, err, src)
}

func TestTempNames(t *testing.T) {
	d := NewData(nil, Options{VarPrefix: "u_"})
	assert.Equal(t, "u_send__1", d.Temp("send_+"))
	assert.Equal(t, "u_var_x2", d.Temp("var_x"))
	assert.Equal(t, "u_class_Foo__Bar3", d.Temp("class_Foo::Bar"))
}

func TestPools(t *testing.T) {
	d := NewData(nil, Options{})
	assert.Equal(t, "symbols[0]", d.Intern("foo"))
	assert.Equal(t, "symbols[1]", d.Intern("bar"))
	assert.Equal(t, "symbols[0]", d.Intern("foo"))

	assert.Equal(t, "literals[0]", d.InternString("x", ""))
	assert.Equal(t, "literals[0]", d.InternString("x", insn.DefaultEncoding))
	assert.Equal(t, "literals[1]", d.InternString("x", "ASCII-8BIT"))
}

func TestTopKeepsInsertionOrder(t *testing.T) {
	d := NewData(nil, Options{})
	d.Top("b", "func b() {}")
	d.Top("a", "func a() {}")
	d.Top("b", "func b() { println() }")
	require.Len(t, d.top, 2)
	assert.Equal(t, "b", d.top[0].name)
	assert.Equal(t, "func b() { println() }", d.top[0].code)
	assert.Equal(t, "a", d.top[1].name)
}

func TestFloatLiterals(t *testing.T) {
	d := NewData(nil, Options{})
	tr := New(insn.NewSequence(), d)
	assert.Equal(t, "1.0", tr.float(1))
	assert.Equal(t, "-2.5", tr.float(-2.5))
	assert.Equal(t, "1e+21", tr.float(1e21))
	assert.False(t, d.imports["math"])
	assert.Equal(t, "math.Inf(-1)", tr.float(negInf()))
	assert.True(t, d.imports["math"])
}

func negInf() float64 {
	zero := 0.0
	return -1 / zero
}

func TestArithmeticProgram(t *testing.T) {
	unit := compile(t, Options{},
		&insn.PushInt{Value: 2},
		&insn.PushInt{Value: 3},
		&insn.Send{Message: "+", ArgCount: 1},
	)
	src := unit.Source
	assert.True(t, strings.HasPrefix(src, "// Code generated by garnet from main.rb. DO NOT EDIT.\n"))
	assert.Contains(t, src, "package main")
	assert.Contains(t, src, `"github.com/chazu/garnet/object"`)
	assert.Contains(t, src, `symbols[0] = env.Intern("+")`)
	assert.Contains(t, src, "env.PublicSend(object.Integer(2), symbols[0], []object.Value{object.Integer(3)}, nil)")
	assert.Contains(t, src, `object.Main("main.rb", eval)`)
	assert.Equal(t, 1, unit.Symbols)
	assert.Equal(t, 0, unit.Strings)
	typeCheck(t, src)
}

func TestPureValuesAreElided(t *testing.T) {
	unit := compile(t, Options{Raw: true},
		&insn.PushInt{Value: 7},
		&insn.Pop{},
		&insn.PushNil{},
		&insn.Pop{},
		&insn.PushSelf{},
	)
	assert.NotContains(t, unit.Source, "object.Integer(7)")
	assert.Contains(t, unit.Source, "return self, nil")
}

func TestRawOutputParses(t *testing.T) {
	unit := compile(t, Options{Raw: true},
		&insn.PushString{Value: "hi", Frozen: true},
		sendSelf("puts", 1),
	)
	_, err := parser.ParseFile(token.NewFileSet(), "main.go", unit.Source, 0)
	require.NoError(t, err)
}

func TestStringLiterals(t *testing.T) {
	unit := compile(t, Options{},
		&insn.PushString{Value: "a\"b", Frozen: true},
		&insn.PushString{Value: "a\"b", Frozen: true},
		&insn.PushString{Value: "a\"b"},
		&insn.CreateArray{Count: 3},
	)
	src := unit.Source
	assert.Equal(t, 1, unit.Strings, "identical literals share one pool entry")
	assert.Contains(t, src, `literals[0] = object.NewStringWithEncoding("a\"b", "UTF-8")`)
	assert.Contains(t, src, "literals[0].Freeze()")
	assert.Contains(t, src, "literals[0].Dup()")

	registered := strings.Index(src, "env.Runtime().SetInternedStrings(literals[:])")
	allocated := strings.Index(src, "literals[0] = object.NewStringWithEncoding")
	require.True(t, registered >= 0 && allocated >= 0)
	assert.Less(t, registered, allocated, "pool is registered before any literal is built")
	typeCheck(t, src)
}

func TestVarPrefix(t *testing.T) {
	unit := compile(t, Options{VarPrefix: "unit1_"},
		&insn.PushSymbol{Name: "a"},
		&insn.PushString{Value: "s", Frozen: true},
		&insn.CreateArray{Count: 2},
	)
	assert.Contains(t, unit.Source, "unit1_symbols[0]")
	assert.Contains(t, unit.Source, "unit1_literals[0]")
	assert.Contains(t, unit.Source, `object.Main("main.rb", unit1_eval)`)
	assert.Regexp(t, `unit1_array\d+ = object.NewArray\(unit1_symbols\[0\], unit1_literals\[0\]\)`, unit.Source)
}

func TestLinePositions(t *testing.T) {
	unit := compile(t, Options{},
		insn.At(&insn.PushInt{Value: 1}, "main.rb", 1),
		insn.At(&insn.PushInt{Value: 2}, "main.rb", 1),
		insn.At(&insn.Send{Message: "+", ArgCount: 1}, "main.rb", 2),
	)
	src := unit.Source
	assert.Equal(t, 1, strings.Count(src, `env.SetFile("main.rb")`))
	assert.Equal(t, 1, strings.Count(src, "env.SetLine(1)"))
	assert.Equal(t, 1, strings.Count(src, "env.SetLine(2)"))
}

func TestMethodsAndClasses(t *testing.T) {
	ins := []insn.Instruction{
		&insn.PushObjectClass{},
		&insn.PushNil{},
		&insn.DefineClass{Name: "Dog"},
		&insn.DefineMethod{Name: "speak", Arity: 1},
		&insn.CheckArgs{Min: 1, Max: 1},
		&insn.PushArg{Index: 0},
		&insn.VariableSet{Name: "sound"},
		&insn.VariableGet{Name: "sound"},
		&insn.Return{},
		&insn.End{Label: "define_method"},
		&insn.End{Label: "define_class"},
		&insn.Pop{},
		&insn.PushObjectClass{},
		&insn.ConstFind{Name: "Dog"},
		&insn.Send{Message: "new"},
		&insn.PushString{Value: "woof"},
		&insn.Send{Message: "speak", ArgCount: 1},
	}
	unit := compile(t, Options{}, ins...)
	src := unit.Source

	assert.Regexp(t, `func class_Dog\d+\(env \*object.Env, self object.Value, args \[\]object.Value, block \*object.Proc\) \(object.Value, error\)`, src)
	assert.Regexp(t, `func define_method_speak\d+\(`, src)
	assert.Regexp(t, `env.DefineMethod\(self, symbols\[\d\], define_method_speak\d+, 1\)`, src)
	assert.Regexp(t, `env.EvalClassBody\(class_Dog\d+, class_Dog\d+\)`, src)
	assert.Contains(t, src, "env.CheckArgs(args, 1, 1)")
	assert.Contains(t, src, "env.VarSet(0, 0, object.Arg(args, 0))")
	typeCheck(t, src)
}

func TestBlocksAndYield(t *testing.T) {
	unit := compile(t, Options{},
		&insn.PushInt{Value: 1},
		&insn.VariableSet{Name: "x"},
		&insn.DefineBlock{Arity: 1},
		&insn.VariableGet{Name: "x"},
		&insn.PushArg{Index: 0},
		&insn.Send{Message: "+", ArgCount: 1},
		&insn.End{Label: "define_block"},
		&insn.Send{Message: "call_me", ReceiverIsSelf: true, WithBlock: true},
		&insn.DefineMethod{Name: "call_me"},
		&insn.PushInt{Value: 41},
		&insn.Yield{ArgCount: 1},
		&insn.End{Label: "define_method"},
	)
	src := unit.Source
	assert.Contains(t, src, "env.VarGet(1, 0)", "the block reads x one scope out")
	assert.Regexp(t, `env.NewBlock\(self, block\d+, 1\)`, src)
	assert.Regexp(t, `blk\d+, err = env.ToBlock\(proc\d+\)`, src)
	assert.Contains(t, src, "env.Yield([]object.Value{object.Integer(41)})")
	typeCheck(t, src)
}

func TestBlockRedoLoops(t *testing.T) {
	unit := compile(t, Options{},
		&insn.DefineBlock{},
		&insn.PushNil{},
		&insn.Redo{},
		&insn.End{Label: "define_block"},
	)
	assert.Regexp(t, `continue redo\d+`, unit.Source)
	assert.Regexp(t, `(?m)^redo\d+:$`, unit.Source)
	typeCheck(t, unit.Source)

	plain := compile(t, Options{},
		&insn.DefineBlock{},
		&insn.PushNil{},
		&insn.End{Label: "define_block"},
	)
	assert.NotRegexp(t, `redo\d+:`, plain.Source, "unused labels are not emitted")
}

func TestIf(t *testing.T) {
	unit := compile(t, Options{StrictBranchArity: true},
		&insn.PushTrue{},
		&insn.If{},
		&insn.PushInt{Value: 1},
		&insn.Else{Label: "if"},
		&insn.PushInt{Value: 2},
		&insn.End{Label: "if"},
		&insn.CreateArray{Count: 1},
	)
	src := unit.Source
	assert.Contains(t, src, "if object.Truthy(object.True) {")
	assert.Regexp(t, `if_result\d+ = object.Integer\(1\)`, src)
	assert.Regexp(t, `if_result\d+ = object.Integer\(2\)`, src)
	assert.Regexp(t, `object.NewArray\(if_result\d+\)`, src)
	typeCheck(t, src)
}

func TestIfBranchArity(t *testing.T) {
	mismatched := []insn.Instruction{
		&insn.PushInt{Value: 0},
		&insn.PushTrue{},
		&insn.If{},
		&insn.PushInt{Value: 1},
		&insn.PushInt{Value: 2},
		&insn.Else{Label: "if"},
		&insn.PushInt{Value: 3},
		&insn.End{Label: "if"},
		&insn.CreateArray{Count: 2},
	}

	err := compileErr(t, Options{StrictBranchArity: true}, mismatched...)
	var ie *insn.InternalError
	require.True(t, errors.As(err, &ie))
	assert.ErrorIs(t, err, insn.ErrMalformedProgram)

	// leniently the shallower arm wins: [0, if-result]
	unit := compile(t, Options{}, mismatched...)
	assert.Regexp(t, `object.NewArray\(object.Integer\(0\), if_result\d+\)`, unit.Source)
}

func TestWhile(t *testing.T) {
	unit := compile(t, Options{},
		&insn.PushInt{Value: 0},
		&insn.VariableSet{Name: "i"},
		&insn.While{Pre: true},
		&insn.VariableGet{Name: "i"},
		&insn.PushInt{Value: 3},
		&insn.Send{Message: "<", ArgCount: 1},
		&insn.WhileBody{Label: "while"},
		&insn.VariableGet{Name: "i"},
		&insn.PushInt{Value: 1},
		&insn.Send{Message: "+", ArgCount: 1},
		&insn.VariableSet{Name: "i"},
		&insn.PushNil{},
		&insn.Next{},
		&insn.End{Label: "while"},
	)
	src := unit.Source
	assert.Regexp(t, `(?m)^\s*while\d+:$`, src)
	assert.Regexp(t, `skip_cond\d+ = false`, src)
	assert.Regexp(t, `break while\d+`, src)
	assert.Regexp(t, `continue while\d+`, src, "next continues the loop")
	typeCheck(t, src)
}

func TestWhileBreakAndRedo(t *testing.T) {
	unit := compile(t, Options{},
		&insn.While{},
		&insn.PushTrue{},
		&insn.WhileBody{Label: "while"},
		&insn.PushTrue{},
		&insn.If{},
		&insn.PushInt{Value: 30},
		&insn.Break{},
		&insn.Else{Label: "if"},
		&insn.PushNil{},
		&insn.Redo{},
		&insn.End{Label: "if"},
		&insn.End{Label: "while"},
	)
	src := unit.Source
	assert.Regexp(t, `skip_cond\d+ = true`, src, "post-condition loops skip the first check")
	assert.Regexp(t, `while_result\d+ = object.Integer\(30\)`, src)
	assert.Regexp(t, `skip_cond\d+ = true\s+continue while\d+`, src)
	typeCheck(t, src)
}

func TestEmptyRegionsYieldNil(t *testing.T) {
	// the value under the region is not its result
	unit := compile(t, Options{},
		&insn.PushInt{Value: 7},
		&insn.Try{}, &insn.Catch{Label: "try"}, &insn.End{Label: "try"},
		&insn.CreateArray{Count: 2},
	)
	assert.Regexp(t, `try_result\d+ = object.Nil`, unit.Source)
	assert.Regexp(t, `object.NewArray\(object.Integer\(7\), try_result\d+\)`, unit.Source)
	assert.NotRegexp(t, `try_result\d+ = object.Integer\(7\)`, unit.Source)
}

func TestTryAndRetry(t *testing.T) {
	unit := compile(t, Options{},
		&insn.Try{},
		sendSelf("risky", 0),
		&insn.Catch{Label: "try"},
		&insn.PushObjectClass{},
		&insn.ConstFind{Name: "StandardError"},
		&insn.MatchException{},
		&insn.If{},
		&insn.PushNil{},
		&insn.Retry{},
		&insn.Else{Label: "if"},
		&insn.PushRescued{},
		&insn.PushNil{},
		&insn.Send{Message: "raise", ArgCount: 2, ReceiverIsSelf: true},
		&insn.End{Label: "if"},
		&insn.End{Label: "try"},
	)
	src := unit.Source
	assert.Regexp(t, `raised\d+ = err\s+break try\d+`, src)
	assert.Regexp(t, `rescued\d+, err = object.Rescue\(raised\d+\)`, src)
	assert.Regexp(t, `env.MatchException\(rescued\d+, const_StandardError\d+\)`, src)
	assert.Regexp(t, `continue retry\d+`, src)
	typeCheck(t, src)
}

func TestIsDefined(t *testing.T) {
	unit := compile(t, Options{},
		&insn.IsDefined{Type: "constant"},
		&insn.PushObjectClass{},
		&insn.ConstFind{Name: "Missing"},
		&insn.End{Label: "is_defined"},
	)
	src := unit.Source
	assert.Regexp(t, `break is_defined\d+`, src)
	assert.Regexp(t, `if _, err = object.Rescue\(raised\d+\); err != nil`, src)
	assert.Contains(t, src, `object.NewStringWithEncoding("constant", "UTF-8")`)
	typeCheck(t, src)
}

func TestLoadFileCompilesOnce(t *testing.T) {
	files := insn.Files{
		"lib/util.rb": insn.NewSequence(&insn.PushInt{Value: 1}),
	}
	unit, err := Compile(insn.NewSequence(
		&insn.LoadFile{Filename: "lib/util.rb", RequireOnce: true},
		&insn.Pop{},
		&insn.LoadFile{Filename: "lib/util.rb", RequireOnce: true},
	), "main.rb", files, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"lib/util.rb"}, unit.Files)
	assert.Equal(t, 1, strings.Count(unit.Source, "func loadFile_lib_util_rb"), "the file is generated once")
	assert.Equal(t, 2, strings.Count(unit.Source, `env.LoadFile("lib/util.rb", true, loadFile_lib_util_rb`))
	typeCheck(t, unit.Source)
}

func TestInternalErrors(t *testing.T) {
	tests := []struct {
		name string
		ins  []insn.Instruction
		want error
	}{
		{"pop on empty stack", []insn.Instruction{&insn.Pop{}}, insn.ErrStackUnderflow},
		{"break outside loop", []insn.Instruction{&insn.PushNil{}, &insn.Break{}}, insn.ErrMalformedProgram},
		{"retry outside handler", []insn.Instruction{&insn.Retry{}}, insn.ErrMalformedProgram},
		{"redo in method body", []insn.Instruction{&insn.DefineMethod{Name: "m"}, &insn.Redo{}, &insn.End{}}, insn.ErrMalformedProgram},
		{"unknown variable", []insn.Instruction{&insn.VariableGet{Name: "nope"}}, insn.ErrUnknownVariable},
		{"unterminated if", []insn.Instruction{&insn.PushTrue{}, &insn.If{}, &insn.PushNil{}}, insn.ErrUnmatchedBlock},
		{"stray end", []insn.Instruction{&insn.End{}}, insn.ErrMalformedProgram},
		{"push_rescued outside handler", []insn.Instruction{&insn.PushRescued{}}, insn.ErrMalformedProgram},
		{"missing file", []insn.Instruction{&insn.LoadFile{Filename: "gone.rb"}}, insn.ErrFileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := compileErr(t, Options{}, tt.ins...)
			var ie *insn.InternalError
			assert.True(t, errors.As(err, &ie), "got %T", err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGenerateBodyLines(t *testing.T) {
	d := NewData(nil, Options{})
	lines, err := New(insn.NewSequence(
		&insn.PushInt{Value: 5},
		&insn.GlobalVariableSet{Name: "$x"},
	), d).Generate()
	require.NoError(t, err)
	assert.Equal(t, []string{
		`if err = env.GlobalSet("$x", object.Integer(5)); err != nil {`,
		"return nil, err",
		"}",
	}, lines)

	_, err = New(insn.NewSequence(&insn.Swap{}), d).Generate()
	assert.ErrorIs(t, err, insn.ErrStackUnderflow)
}

func TestGoldenProgram(t *testing.T) {
	unit := compile(t, Options{},
		insn.At(&insn.PushString{Value: "hello", Frozen: true}, "hello.rb", 1),
		insn.At(sendSelf("puts", 1), "hello.rb", 1),
	)
	golden := filepath.Join("testdata", "hello.go.golden")
	updateGolden(t, golden, unit.Source)
	compareGolden(t, golden, unit.Source)
}

func updateGolden(t *testing.T, path, content string) {
	t.Helper()
	if os.Getenv("UPDATE_GOLDEN") == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating testdata dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("updating golden file: %v", err)
	}
}

func compareGolden(t *testing.T, path, got string) {
	t.Helper()
	expected, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		t.Fatalf("golden file %s does not exist; run with UPDATE_GOLDEN=1 to create it", path)
	}
	require.NoError(t, err)
	assert.Equal(t, string(expected), got, "output differs from golden file %s; run with UPDATE_GOLDEN=1 to update", path)
}
