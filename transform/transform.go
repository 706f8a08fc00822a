// Package transform translates instruction sequences into Go source.
//
// Each body (the program's top level, a method, a block, a class body, a
// loaded file) becomes one Go function with the object.MethodFn signature.
// A Transform walks one sequence keeping a symbolic stack of Go expressions:
// pure values stay expressions until something consumes them, everything
// with a side effect is assigned to a temporary the moment its instruction
// runs, so evaluation order matches the interpreter. Errors returned by
// runtime calls go to the current raise target: the function's return, or
// the handler of the innermost try region.
package transform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/garnet/insn"
)

var log = commonlog.GetLogger("garnet.transform")

// Options controls code generation.
type Options struct {
	// VarPrefix namespaces every generated top-level identifier.
	VarPrefix string

	// StrictBranchArity makes an if whose arms leave different stack depths
	// an internal error instead of a warning.
	StrictBranchArity bool

	// Raw skips formatting of the generated program.
	Raw bool
}

// ---------------------------------------------------------------------------
// Data: state shared by all scopes of one program
// ---------------------------------------------------------------------------

type literal struct {
	value    string
	encoding string
}

type topDecl struct {
	name string
	code string
}

// Data is the state shared by every Transform of one generation pass.
type Data struct {
	opts  Options
	files insn.Resolver
	log   commonlog.Logger

	symbols  []string
	symbolAt map[string]int
	strings  []literal
	stringAt map[literal]int
	top      []topDecl
	topAt    map[string]int
	imports  map[string]bool
	temps    int

	// CompiledFiles maps logical filenames to the functions generated for
	// them.
	CompiledFiles map[string]string
}

// NewData creates the shared state for one program. files resolves the
// targets of load_file.
func NewData(files insn.Resolver, opts Options) *Data {
	if files == nil {
		files = insn.Files{}
	}
	return &Data{
		opts:          opts,
		files:         files,
		log:           log,
		symbolAt:      make(map[string]int),
		stringAt:      make(map[literal]int),
		topAt:         make(map[string]int),
		imports:       map[string]bool{objectImport: true},
		CompiledFiles: make(map[string]string),
	}
}

const objectImport = "github.com/chazu/garnet/object"

var unsafeIdent = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Temp returns a fresh identifier derived from name.
func (d *Data) Temp(name string) string {
	d.temps++
	return d.opts.VarPrefix + unsafeIdent.ReplaceAllString(name, "_") + strconv.Itoa(d.temps)
}

// Intern returns the expression for the symbol name.
func (d *Data) Intern(name string) string {
	i, ok := d.symbolAt[name]
	if !ok {
		i = len(d.symbols)
		d.symbols = append(d.symbols, name)
		d.symbolAt[name] = i
	}
	return fmt.Sprintf("%ssymbols[%d]", d.opts.VarPrefix, i)
}

// InternString returns the expression for the frozen literal s. Literals
// are pooled by content and encoding.
func (d *Data) InternString(s, encoding string) string {
	if encoding == "" {
		encoding = insn.DefaultEncoding
	}
	key := literal{s, encoding}
	i, ok := d.stringAt[key]
	if !ok {
		i = len(d.strings)
		d.strings = append(d.strings, key)
		d.stringAt[key] = i
	}
	return fmt.Sprintf("%sliterals[%d]", d.opts.VarPrefix, i)
}

// Top adds a top-level declaration. Declarations are emitted in the order
// they were first added; adding a name again replaces its code in place.
func (d *Data) Top(name, code string) {
	if i, ok := d.topAt[name]; ok {
		d.top[i].code = code
		return
	}
	d.topAt[name] = len(d.top)
	d.top = append(d.top, topDecl{name, code})
}

// Import records a package the generated program needs.
func (d *Data) Import(path string) { d.imports[path] = true }

// ---------------------------------------------------------------------------
// Transform: one scope
// ---------------------------------------------------------------------------

// Kind is the kind of Go function a scope is generated into.
type Kind uint8

const (
	KindTop Kind = iota
	KindMethod
	KindBlock
	KindClass
	KindFile
)

var kindNames = [...]string{"top", "method", "block", "class", "file"}

func (k Kind) String() string { return kindNames[k] }

type decl struct {
	name string
	typ  string
}

// function is the state of the Go function being generated. Scopes that
// share a function share its declarations.
type function struct {
	decls []decl
}

// label is a Go statement label, written out only when something jumps to
// it.
type label struct {
	name string
	used bool
}

func (l *label) ref() string {
	l.used = true
	return l.name
}

func (l *label) prefix() string {
	if l.used {
		return l.name + ":"
	}
	return ""
}

type loopKind uint8

const (
	loopWhile loopKind = iota
	loopRedo
)

// loop is an enclosing Go loop that break, next, continue or redo can
// target.
type loop struct {
	kind   loopKind
	label  *label
	result string
	skip   string
}

// raiseTarget is where a failed runtime call goes inside a try or
// is_defined region: the error is stored and the region is left.
type raiseTarget struct {
	label *label
	err   string
}

// Transform generates the code of one instruction sequence.
type Transform struct {
	data  *Data
	seq   *insn.Sequence
	kind  Kind
	scope *insn.Env
	fn    *function

	stack []string
	lines []string

	file string
	line int

	loops   []*loop
	retries []*label
	raise   *raiseTarget
	rescued []string
}

// New creates the transform for the top level of a program.
func New(seq *insn.Sequence, data *Data) *Transform {
	return &Transform{
		data:  data,
		seq:   seq,
		kind:  KindTop,
		scope: insn.NewEnv(insn.EnvTop, nil),
		fn:    &function{},
	}
}

// WithNewScope creates the transform for a body that becomes its own Go
// function: fresh stack, no enclosing loops, errors returned.
func (t *Transform) WithNewScope(seq *insn.Sequence, kind Kind, scope *insn.Env) *Transform {
	t.data.log.Debugf("entering %s scope", kind)
	return &Transform{
		data:  t.data,
		seq:   seq,
		kind:  kind,
		scope: scope,
		fn:    &function{},
	}
}

// WithSameScope creates the transform for a region generated inline: it
// shares the function and starts from a copy of the pending stack. Regions
// may run repeatedly, so they emit their first position unconditionally.
func (t *Transform) WithSameScope(seq *insn.Sequence) *Transform {
	return &Transform{
		data:    t.data,
		seq:     seq,
		kind:    t.kind,
		scope:   t.scope,
		fn:      t.fn,
		stack:   append([]string(nil), t.stack...),
		loops:   t.loops,
		retries: t.retries,
		raise:   t.raise,
		rescued: t.rescued,
	}
}

// Data returns the shared program state.
func (t *Transform) Data() *Data { return t.data }

// Push puts expr on the symbolic stack.
func (t *Transform) Push(expr string) { t.stack = append(t.stack, expr) }

// Pop removes the top expression.
func (t *Transform) Pop(in insn.Instruction) string {
	if len(t.stack) == 0 {
		internal(in, "%w", insn.ErrStackUnderflow)
	}
	expr := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	return expr
}

// popN removes n expressions and returns them bottom first.
func (t *Transform) popN(in insn.Instruction, n int) []string {
	if n > len(t.stack) {
		internal(in, "%w: need %d values, have %d", insn.ErrStackUnderflow, n, len(t.stack))
	}
	vals := append([]string(nil), t.stack[len(t.stack)-n:]...)
	t.stack = t.stack[:len(t.stack)-n]
	return vals
}

// Peek returns the top expression without removing it.
func (t *Transform) Peek(in insn.Instruction) string {
	if len(t.stack) == 0 {
		internal(in, "%w", insn.ErrStackUnderflow)
	}
	return t.stack[len(t.stack)-1]
}

// top returns the expression a function body produces.
func (t *Transform) top() string { return t.topAbove(0) }

// topAbove returns the expression a region entered at depth base produces:
// its top value, or nil when it left nothing above base.
func (t *Transform) topAbove(base int) string {
	if len(t.stack) <= base {
		return "object.Nil"
	}
	return t.stack[len(t.stack)-1]
}

// Exec emits a statement.
func (t *Transform) Exec(code string) { t.lines = append(t.lines, code) }

// Temp declares a function-local variable of type typ.
func (t *Transform) Temp(name, typ string) string {
	v := t.data.Temp(name)
	t.fn.decls = append(t.fn.decls, decl{v, typ})
	return v
}

// Memoize assigns expr to a new temporary and pushes the temporary.
func (t *Transform) Memoize(name, expr string) string {
	v := t.Temp(name, "object.Value")
	t.Exec(v + " = " + expr)
	t.Push(v)
	return v
}

// ExecAndPush emits a fallible call returning (value, error) and pushes its
// value.
func (t *Transform) ExecAndPush(name, call string) string {
	v := t.Temp(name, "object.Value")
	t.assign(v, call)
	t.Push(v)
	return v
}

// assign emits `v, err = call` followed by the error check.
func (t *Transform) assign(v, call string) {
	t.Exec(v + ", err = " + call)
	t.checkErr()
}

// check emits a fallible call returning only an error.
func (t *Transform) check(call string) {
	t.Exec("if err = " + call + "; err != nil {")
	t.Exec(t.raiseStmt())
	t.Exec("}")
}

func (t *Transform) checkErr() {
	t.Exec("if err != nil {")
	t.Exec(t.raiseStmt())
	t.Exec("}")
}

// raiseStmt returns the statement that propagates err.
func (t *Transform) raiseStmt() string {
	if t.raise == nil {
		return "return nil, err"
	}
	return fmt.Sprintf("%s = err\nbreak %s", t.raise.err, t.raise.label.ref())
}

// NormalizeStack joins the arms of a branch entered at depth base. Each
// arm assigns its top value (nil when its stack is empty) to result. The
// values below it are kept only as deep as the shallowest arm leaves them;
// kept slots an arm pushed or replaced are bound to merge temporaries the
// arms assign. The pending stack becomes the kept slots plus result.
func (t *Transform) NormalizeStack(in insn.Instruction, base int, result string, arms ...*Transform) {
	keep := -1
	sizes := make([]int, len(arms))
	for i, arm := range arms {
		sizes[i] = max(len(arm.stack)-1, 0)
		if keep < 0 || sizes[i] < keep {
			keep = sizes[i]
		}
	}
	for _, n := range sizes[1:] {
		if n == sizes[0] {
			continue
		}
		if t.data.opts.StrictBranchArity {
			internal(in, "%w: if arms leave %v values below their results", insn.ErrMalformedProgram, sizes)
		}
		t.data.log.Warningf("%s:%d: if arms leave %v values below their results; keeping %d", in.Meta().File, in.Meta().Line, sizes, keep)
		break
	}

	merged := make([]string, keep)
	for slot := range merged {
		expr := arms[0].stack[slot]
		shared := slot < base && t.stack[slot] == expr
		for _, arm := range arms[1:] {
			shared = shared && arm.stack[slot] == expr
		}
		if shared {
			merged[slot] = expr
			continue
		}
		v := t.Temp("if_merge", "object.Value")
		for _, arm := range arms {
			arm.Exec(v + " = " + arm.stack[slot])
		}
		merged[slot] = v
	}
	for _, arm := range arms {
		arm.Exec(result + " = " + arm.top())
	}
	t.stack = append(merged, result)
}

// FindVar resolves a local variable from the scope in runs in.
func (t *Transform) FindVar(in insn.Instruction, name string, localOnly bool) (int, insn.Var, error) {
	return insn.FindVar(t.scopeFor(in), name, localOnly)
}

// FetchBlock carves the body of the region opened by in out of the
// sequence.
func (t *Transform) FetchBlock(in insn.Instruction, until insn.Opcode, label string) *insn.Sequence {
	body, err := t.seq.FetchBlock(until, label)
	if err != nil {
		if ie, ok := err.(*insn.InternalError); ok {
			panic(ie)
		}
		internal(in, "%w", err)
	}
	return body
}

func (t *Transform) scopeFor(in insn.Instruction) *insn.Env {
	if e := in.Meta().Env; e != nil {
		return e
	}
	return t.scope
}

// SetFile emits a file change when it differs from the current one.
func (t *Transform) SetFile(file string) {
	if file != "" && file != t.file {
		t.file = file
		t.Exec("env.SetFile(" + strconv.Quote(file) + ")")
	}
}

// SetLine emits a line change when it differs from the current one.
func (t *Transform) SetLine(line int) {
	if line > 0 && line != t.line {
		t.line = line
		t.Exec(fmt.Sprintf("env.SetLine(%d)", line))
	}
}

// forgetPosition makes the next instruction with a position emit it again.
// Regions generated inline may or may not have run.
func (t *Transform) forgetPosition() {
	t.file = ""
	t.line = 0
}

// Generate walks the sequence and returns the statements of its body.
// Structural defects come back as *insn.InternalError.
func (t *Transform) Generate() (lines []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*insn.InternalError)
			if !ok {
				panic(r)
			}
			lines, err = nil, ie
		}
	}()
	t.generate()
	return t.lines, nil
}

func (t *Transform) generate() {
	t.seq.Rewind()
	t.seq.Walk(func(in insn.Instruction) bool {
		if m := in.Meta(); m.Line > 0 {
			t.SetFile(m.File)
			t.SetLine(m.Line)
		}
		t.exec(in)
		return true
	})
}

func internal(in insn.Instruction, format string, args ...any) {
	panic(insn.Errorf(in, format, args...))
}

// ---------------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------------

const signature = "(env *object.Env, self object.Value, args []object.Value, block *object.Proc) (object.Value, error)"

// function generates t's sequence as the top-level Go function name. The
// prelude, computed once the body is generated, runs before the body; with
// redo the body is wrapped in a loop that redo restarts.
func (t *Transform) function(name string, redo bool, prelude func() []string) string {
	var redoLabel *label
	if redo {
		redoLabel = &label{name: t.data.Temp("redo")}
		t.loops = []*loop{{kind: loopRedo, label: redoLabel}}
	}
	t.generate()
	result := t.top()

	var sb strings.Builder
	fmt.Fprintf(&sb, "func %s%s {\n", name, signature)
	sb.WriteString("var err error\n")
	uses := []string{"err"}
	for _, d := range t.fn.decls {
		fmt.Fprintf(&sb, "var %s %s\n", d.name, d.typ)
		uses = append(uses, d.name)
	}
	fmt.Fprintf(&sb, "%s = %s\n", strings.TrimSuffix(strings.Repeat("_, ", len(uses)), ", "), strings.Join(uses, ", "))
	if prelude != nil {
		for _, l := range prelude() {
			sb.WriteString(l + "\n")
		}
	}
	loopBody := redoLabel != nil && redoLabel.used
	if loopBody {
		fmt.Fprintf(&sb, "%s\nfor {\n", redoLabel.prefix())
	}
	for _, l := range t.lines {
		sb.WriteString(l + "\n")
	}
	fmt.Fprintf(&sb, "return %s, nil\n", result)
	if loopBody {
		sb.WriteString("}\n")
	}
	sb.WriteString("}\n")
	return sb.String()
}

// defineFunction generates body as a new top-level function and returns its
// name.
func (t *Transform) defineFunction(name string, body *insn.Sequence, kind Kind, scope *insn.Env) string {
	fnName := t.data.Temp(name)
	child := t.WithNewScope(body, kind, scope)
	t.data.Top(fnName, child.function(fnName, kind == KindBlock, nil))
	return fnName
}
