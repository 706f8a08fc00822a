package insn

import (
	"fmt"
	"strconv"
	"strings"
)

func flagged(s string, flags ...string) string {
	var sb strings.Builder
	sb.WriteString(s)
	for _, f := range flags {
		if f != "" {
			sb.WriteString(" ")
			sb.WriteString(f)
		}
	}
	return sb.String()
}

func flag(on bool, text string) string {
	if on {
		return text
	}
	return ""
}

// ---------------------------------------------------------------------------
// Aliases and definitions
// ---------------------------------------------------------------------------

// AliasGlobal makes global New refer to global Old.
type AliasGlobal struct {
	base
	New, Old string
}

func (*AliasGlobal) Op() Opcode { return OpAliasGlobal }
func (i *AliasGlobal) String() string {
	return fmt.Sprintf("alias_global %s %s", i.New, i.Old)
}

// AliasMethod pops the old and new method names (new on top) and defines
// the alias on the current method owner.
type AliasMethod struct{ base }

func (*AliasMethod) Op() Opcode     { return OpAliasMethod }
func (*AliasMethod) String() string { return "alias_method" }

// AutoloadConst registers a constant whose body runs on first lookup.
type AutoloadConst struct {
	base
	Name string
	Path string
}

func (*AutoloadConst) Op() Opcode { return OpAutoloadConst }
func (i *AutoloadConst) String() string {
	return fmt.Sprintf("autoload_const %s %s", i.Name, i.Path)
}

// DefineBlock opens a block body and pushes the resulting block.
type DefineBlock struct {
	base
	Arity int
}

func (*DefineBlock) Op() Opcode { return OpDefineBlock }
func (i *DefineBlock) String() string {
	return fmt.Sprintf("define_block (arity %d)", i.Arity)
}

// DefineClass pops the namespace and the superclass (superclass on top),
// opens or reopens the class and runs its body with self bound to it.
type DefineClass struct {
	base
	Name      string
	IsPrivate bool
}

func (*DefineClass) Op() Opcode { return OpDefineClass }
func (i *DefineClass) String() string {
	return flagged("define_class "+i.Name, flag(i.IsPrivate, "(private)"))
}

// DefineMethod defines a method on the current owner and pushes its name.
type DefineMethod struct {
	base
	Name  string
	Arity int
}

func (*DefineMethod) Op() Opcode { return OpDefineMethod }
func (i *DefineMethod) String() string {
	return fmt.Sprintf("define_method %s (arity %d)", i.Name, i.Arity)
}

// DefineModule pops the namespace and opens or reopens the module.
type DefineModule struct {
	base
	Name string
}

func (*DefineModule) Op() Opcode       { return OpDefineModule }
func (i *DefineModule) String() string { return "define_module " + i.Name }

// UndefineMethod undefines a method on the current owner.
type UndefineMethod struct {
	base
	Name string
}

func (*UndefineMethod) Op() Opcode       { return OpUndefineMethod }
func (i *UndefineMethod) String() string { return "undefine_method " + i.Name }

// WithSingleton pops an object and runs the body with self bound to its
// singleton class.
type WithSingleton struct{ base }

func (*WithSingleton) Op() Opcode     { return OpWithSingleton }
func (*WithSingleton) String() string { return "with_singleton" }

// ---------------------------------------------------------------------------
// Arrays and hashes
// ---------------------------------------------------------------------------

// ArrayConcat pops Count values and splices them into the array below.
type ArrayConcat struct {
	base
	Count int
}

func (*ArrayConcat) Op() Opcode       { return OpArrayConcat }
func (i *ArrayConcat) String() string { return fmt.Sprintf("array_concat %d", i.Count) }

// ArrayPop leaves the array in place and pushes its last element.
type ArrayPop struct{ base }

func (*ArrayPop) Op() Opcode     { return OpArrayPop }
func (*ArrayPop) String() string { return "array_pop" }

// ArrayPopWithDefault pops a default and pushes the array's last element,
// or the default when the array is empty.
type ArrayPopWithDefault struct{ base }

func (*ArrayPopWithDefault) Op() Opcode     { return OpArrayPopWithDefault }
func (*ArrayPopWithDefault) String() string { return "array_pop_with_default" }

// ArrayPush appends the top value to the array below it.
type ArrayPush struct{ base }

func (*ArrayPush) Op() Opcode     { return OpArrayPush }
func (*ArrayPush) String() string { return "array_push" }

// ArrayShift leaves the array in place and pushes its first element.
type ArrayShift struct{ base }

func (*ArrayShift) Op() Opcode     { return OpArrayShift }
func (*ArrayShift) String() string { return "array_shift" }

type ArrayShiftWithDefault struct{ base }

func (*ArrayShiftWithDefault) Op() Opcode     { return OpArrayShiftWithDefault }
func (*ArrayShiftWithDefault) String() string { return "array_shift_with_default" }

// ArrayWrap converts the top value to an array (nil becomes empty).
type ArrayWrap struct{ base }

func (*ArrayWrap) Op() Opcode     { return OpArrayWrap }
func (*ArrayWrap) String() string { return "array_wrap" }

// CreateArray pops Count values into a new array.
type CreateArray struct {
	base
	Count int
}

func (*CreateArray) Op() Opcode       { return OpCreateArray }
func (i *CreateArray) String() string { return fmt.Sprintf("create_array %d", i.Count) }

// CreateHash pops Count key/value pairs into a new hash.
type CreateHash struct {
	base
	Count int
}

func (*CreateHash) Op() Opcode       { return OpCreateHash }
func (i *CreateHash) String() string { return fmt.Sprintf("create_hash %d", i.Count) }

// HashDelete leaves the hash in place and pushes the value removed at Key.
type HashDelete struct {
	base
	Key string
}

func (*HashDelete) Op() Opcode       { return OpHashDelete }
func (i *HashDelete) String() string { return "hash_delete :" + i.Key }

type HashDeleteWithDefault struct {
	base
	Key string
}

func (*HashDeleteWithDefault) Op() Opcode { return OpHashDeleteWithDefault }
func (i *HashDeleteWithDefault) String() string {
	return "hash_delete_with_default :" + i.Key
}

// HashMerge merges the top hash into the one below it.
type HashMerge struct{ base }

func (*HashMerge) Op() Opcode     { return OpHashMerge }
func (*HashMerge) String() string { return "hash_merge" }

// HashPut pops a key and value and stores them in the hash below.
type HashPut struct{ base }

func (*HashPut) Op() Opcode     { return OpHashPut }
func (*HashPut) String() string { return "hash_put" }

// ToArray converts the top value with to_a semantics.
type ToArray struct{ base }

func (*ToArray) Op() Opcode     { return OpToArray }
func (*ToArray) String() string { return "to_array" }

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

// If pops a condition and runs one of two regions separated by else.
type If struct{ base }

func (*If) Op() Opcode     { return OpIf }
func (*If) String() string { return "if" }

// Else separates the arms of an if.
type Else struct {
	base
	Label string
}

func (*Else) Op() Opcode           { return OpElse }
func (i *Else) String() string     { return flagged("else", i.Label) }
func (i *Else) BlockLabel() string { return i.Label }

// End closes the innermost open region.
type End struct {
	base
	Label string
}

func (*End) Op() Opcode           { return OpEnd }
func (i *End) String() string     { return flagged("end", i.Label) }
func (i *End) BlockLabel() string { return i.Label }

// While runs a condition region and a body region (after while_body) until
// the condition is falsy. When Pre is false the body runs once first.
type While struct {
	base
	Pre bool
}

func (*While) Op() Opcode { return OpWhile }
func (i *While) String() string {
	return flagged("while", flag(!i.Pre, "(post)"))
}

// WhileBody separates a while condition from its body.
type WhileBody struct {
	base
	Label string
}

func (*WhileBody) Op() Opcode           { return OpWhileBody }
func (i *WhileBody) String() string     { return flagged("while_body", i.Label) }
func (i *WhileBody) BlockLabel() string { return i.Label }

// Break exits the innermost while with the popped value.
type Break struct{ base }

func (*Break) Op() Opcode     { return OpBreak }
func (*Break) String() string { return "break" }

// BreakOut raises a break that is caught where Point is matched.
type BreakOut struct {
	base
	Point int
}

func (*BreakOut) Op() Opcode       { return OpBreakOut }
func (i *BreakOut) String() string { return fmt.Sprintf("break_out %d", i.Point) }

// Continue starts the next iteration of the innermost while.
type Continue struct{ base }

func (*Continue) Op() Opcode     { return OpContinue }
func (*Continue) String() string { return "continue" }

// Next returns the popped value from the current block.
type Next struct{ base }

func (*Next) Op() Opcode     { return OpNext }
func (*Next) String() string { return "next" }

// Redo reruns the current loop body without checking the condition.
type Redo struct{ base }

func (*Redo) Op() Opcode     { return OpRedo }
func (*Redo) String() string { return "redo" }

// Retry reruns the enclosing try region from its start.
type Retry struct{ base }

func (*Retry) Op() Opcode     { return OpRetry }
func (*Retry) String() string { return "retry" }

// Return returns the popped value from the current method or block.
type Return struct{ base }

func (*Return) Op() Opcode     { return OpReturn }
func (*Return) String() string { return "return" }

// Try runs a protected region; a raised exception transfers control to the
// region after catch.
type Try struct{ base }

func (*Try) Op() Opcode     { return OpTry }
func (*Try) String() string { return "try" }

// Catch separates a try region from its handler.
type Catch struct {
	base
	Label string
}

func (*Catch) Op() Opcode           { return OpCatch }
func (i *Catch) String() string     { return flagged("catch", i.Label) }
func (i *Catch) BlockLabel() string { return i.Label }

// PushRescued pushes the exception being handled.
type PushRescued struct{ base }

func (*PushRescued) Op() Opcode     { return OpPushRescued }
func (*PushRescued) String() string { return "push_rescued" }

// MatchException pops a class or array of classes and pushes whether the
// exception being handled is an instance of any of them.
type MatchException struct{ base }

func (*MatchException) Op() Opcode     { return OpMatchException }
func (*MatchException) String() string { return "match_exception" }

// MatchBreakPoint pops an exception and pushes whether it is the break
// raised at Point.
type MatchBreakPoint struct {
	base
	Point int
}

func (*MatchBreakPoint) Op() Opcode { return OpMatchBreakPoint }
func (i *MatchBreakPoint) String() string {
	return fmt.Sprintf("match_break_point %d", i.Point)
}

// IsDefined runs its body and pushes Type, or nil if the body raised.
type IsDefined struct {
	base
	Type string
}

func (*IsDefined) Op() Opcode       { return OpIsDefined }
func (i *IsDefined) String() string { return "is_defined " + i.Type }

// ---------------------------------------------------------------------------
// Calls and arguments
// ---------------------------------------------------------------------------

// Send calls Message on a receiver.
//
// Stack, bottom to top: receiver (omitted when ReceiverIsSelf), ArgCount
// arguments (or one array when ArgsArrayOnStack), block when WithBlock.
type Send struct {
	base
	Message          string
	ArgCount         int
	ReceiverIsSelf   bool
	WithBlock        bool
	ArgsArrayOnStack bool
	HasKeywordHash   bool
}

func (*Send) Op() Opcode { return OpSend }
func (i *Send) String() string {
	return flagged(
		fmt.Sprintf("send :%s", i.Message),
		flag(i.ReceiverIsSelf, "to self"),
		flag(i.WithBlock, "with block"),
		flag(i.ArgsArrayOnStack, "(args array on stack)"),
		flag(!i.ArgsArrayOnStack, fmt.Sprintf("(argc %d)", i.ArgCount)),
		flag(i.HasKeywordHash, "(keyword hash)"),
	)
}

// Super calls the current method's implementation in the superclass.
type Super struct {
	base
	ArgCount         int
	ArgsArrayOnStack bool
	WithBlock        bool
	HasKeywordHash   bool
}

func (*Super) Op() Opcode { return OpSuper }
func (i *Super) String() string {
	return flagged(
		"super",
		flag(i.WithBlock, "with block"),
		flag(i.ArgsArrayOnStack, "(args array on stack)"),
		flag(!i.ArgsArrayOnStack, fmt.Sprintf("(argc %d)", i.ArgCount)),
		flag(i.HasKeywordHash, "(keyword hash)"),
	)
}

// Yield calls the current block.
type Yield struct {
	base
	ArgCount         int
	ArgsArrayOnStack bool
	HasKeywordHash   bool
}

func (*Yield) Op() Opcode { return OpYield }
func (i *Yield) String() string {
	return flagged(
		"yield",
		flag(i.ArgsArrayOnStack, "(args array on stack)"),
		flag(!i.ArgsArrayOnStack, fmt.Sprintf("(argc %d)", i.ArgCount)),
		flag(i.HasKeywordHash, "(keyword hash)"),
	)
}

// CheckArgs raises ArgumentError when the frame's argument count is outside
// [Min, Max]. Max < 0 means unbounded.
type CheckArgs struct {
	base
	Min, Max int
}

func (*CheckArgs) Op() Opcode { return OpCheckArgs }
func (i *CheckArgs) String() string {
	if i.Max < 0 {
		return fmt.Sprintf("check_args %d..", i.Min)
	}
	return fmt.Sprintf("check_args %d..%d", i.Min, i.Max)
}

// CheckExtraKeywords raises ArgumentError if the keyword hash on top of the
// stack still has entries.
type CheckExtraKeywords struct{ base }

func (*CheckExtraKeywords) Op() Opcode     { return OpCheckExtraKeywords }
func (*CheckExtraKeywords) String() string { return "check_extra_keywords" }

// CheckRequiredKeywords raises ArgumentError if any of Keywords is missing
// from the keyword hash on top of the stack.
type CheckRequiredKeywords struct {
	base
	Keywords []string
}

func (*CheckRequiredKeywords) Op() Opcode { return OpCheckRequiredKeywords }
func (i *CheckRequiredKeywords) String() string {
	return "check_required_keywords " + strings.Join(i.Keywords, ", ")
}

// PopKeywordArgs pushes the keyword hash passed to the frame.
type PopKeywordArgs struct{ base }

func (*PopKeywordArgs) Op() Opcode     { return OpPopKeywordArgs }
func (*PopKeywordArgs) String() string { return "pop_keyword_args" }

// PushArg pushes argument Index of the frame.
type PushArg struct {
	base
	Index      int
	NilDefault bool
}

func (*PushArg) Op() Opcode { return OpPushArg }
func (i *PushArg) String() string {
	return flagged(fmt.Sprintf("push_arg %d", i.Index), flag(i.NilDefault, "(nil default)"))
}

// PushArgc pushes a literal argument count.
type PushArgc struct {
	base
	Count int
}

func (*PushArgc) Op() Opcode       { return OpPushArgc }
func (i *PushArgc) String() string { return fmt.Sprintf("push_argc %d", i.Count) }

// PushArgs pushes all frame arguments as an array. Blocks called with a
// single array spread it when they expect at least MinCount > 1 arguments.
type PushArgs struct {
	base
	ForBlock bool
	MinCount int
}

func (*PushArgs) Op() Opcode { return OpPushArgs }
func (i *PushArgs) String() string {
	return flagged("push_args", flag(i.ForBlock, fmt.Sprintf("(for block, min %d)", i.MinCount)))
}

// PushBlock pushes the frame's block, or nil.
type PushBlock struct{ base }

func (*PushBlock) Op() Opcode     { return OpPushBlock }
func (*PushBlock) String() string { return "push_block" }

// CreateLambda converts the block on top of the stack to a lambda.
type CreateLambda struct{ base }

func (*CreateLambda) Op() Opcode     { return OpCreateLambda }
func (*CreateLambda) String() string { return "create_lambda" }

// MethodDefined pops a receiver and pushes "method" when it responds to
// Message, otherwise nil.
type MethodDefined struct {
	base
	Message        string
	ReceiverIsSelf bool
}

func (*MethodDefined) Op() Opcode { return OpMethodDefined }
func (i *MethodDefined) String() string {
	return flagged("method_defined :"+i.Message, flag(i.ReceiverIsSelf, "(self)"))
}

// ---------------------------------------------------------------------------
// Literals
// ---------------------------------------------------------------------------

type PushFalse struct{ base }

func (*PushFalse) Op() Opcode     { return OpPushFalse }
func (*PushFalse) String() string { return "push_false" }

type PushTrue struct{ base }

func (*PushTrue) Op() Opcode     { return OpPushTrue }
func (*PushTrue) String() string { return "push_true" }

type PushNil struct{ base }

func (*PushNil) Op() Opcode     { return OpPushNil }
func (*PushNil) String() string { return "push_nil" }

type PushSelf struct{ base }

func (*PushSelf) Op() Opcode     { return OpPushSelf }
func (*PushSelf) String() string { return "push_self" }

type PushObjectClass struct{ base }

func (*PushObjectClass) Op() Opcode     { return OpPushObjectClass }
func (*PushObjectClass) String() string { return "push_object_class" }

type PushLastMatch struct{ base }

func (*PushLastMatch) Op() Opcode     { return OpPushLastMatch }
func (*PushLastMatch) String() string { return "push_last_match" }

type PushInt struct {
	base
	Value int64
}

func (*PushInt) Op() Opcode       { return OpPushInt }
func (i *PushInt) String() string { return "push_int " + strconv.FormatInt(i.Value, 10) }

type PushFloat struct {
	base
	Value float64
}

func (*PushFloat) Op() Opcode { return OpPushFloat }
func (i *PushFloat) String() string {
	return "push_float " + strconv.FormatFloat(i.Value, 'g', -1, 64)
}

// PushRational pushes Numerator/Denominator.
type PushRational struct {
	base
	Numerator, Denominator int64
}

func (*PushRational) Op() Opcode { return OpPushRational }
func (i *PushRational) String() string {
	return fmt.Sprintf("push_rational %d/%d", i.Numerator, i.Denominator)
}

// CreateComplex pushes Real+Imag i.
type CreateComplex struct {
	base
	Real, Imag float64
}

func (*CreateComplex) Op() Opcode { return OpCreateComplex }
func (i *CreateComplex) String() string {
	return fmt.Sprintf("create_complex (%g+%gi)", i.Real, i.Imag)
}

// PushRegexp pushes a regexp literal. Options use the Regexp flag bits.
type PushRegexp struct {
	base
	Source  string
	Options int
}

func (*PushRegexp) Op() Opcode { return OpPushRegexp }
func (i *PushRegexp) String() string {
	return fmt.Sprintf("push_regexp /%s/ (%d)", i.Source, i.Options)
}

// PushString pushes a string literal. Frozen literals are shared; others
// are copied on each execution.
type PushString struct {
	base
	Value    string
	Encoding string
	Frozen   bool
}

func (*PushString) Op() Opcode { return OpPushString }
func (i *PushString) String() string {
	enc := i.Encoding
	if enc == "" {
		enc = DefaultEncoding
	}
	return flagged(
		fmt.Sprintf("push_string %s, %d, %s", strconv.Quote(i.Value), len(i.Value), enc),
		flag(i.Frozen, "(frozen)"),
	)
}

// DefaultEncoding is assumed for string literals without an encoding.
const DefaultEncoding = "UTF-8"

type PushSymbol struct {
	base
	Name string
}

func (*PushSymbol) Op() Opcode       { return OpPushSymbol }
func (i *PushSymbol) String() string { return "push_symbol :" + i.Name }

// InlineCode carries a raw Go fragment for the code generator.
type InlineCode struct {
	base
	Code string
}

func (*InlineCode) Op() Opcode       { return OpInlineCode }
func (i *InlineCode) String() string { return "inline_code " + strconv.Quote(i.Code) }

// ---------------------------------------------------------------------------
// Stack shaping and operators
// ---------------------------------------------------------------------------

type Dup struct{ base }

func (*Dup) Op() Opcode     { return OpDup }
func (*Dup) String() string { return "dup" }

// DupObject replaces the top value with a shallow copy.
type DupObject struct{ base }

func (*DupObject) Op() Opcode     { return OpDupObject }
func (*DupObject) String() string { return "dup_object" }

// DupRel pushes a copy of the value Offset slots below the top.
type DupRel struct {
	base
	Offset int
}

func (*DupRel) Op() Opcode       { return OpDupRel }
func (i *DupRel) String() string { return fmt.Sprintf("dup_rel %d", i.Offset) }

// MoveRel moves the top value Offset slots down the stack.
type MoveRel struct {
	base
	Offset int
}

func (*MoveRel) Op() Opcode       { return OpMoveRel }
func (i *MoveRel) String() string { return fmt.Sprintf("move_rel %d", i.Offset) }

type Pop struct{ base }

func (*Pop) Op() Opcode     { return OpPop }
func (*Pop) String() string { return "pop" }

type Swap struct{ base }

func (*Swap) Op() Opcode     { return OpSwap }
func (*Swap) String() string { return "swap" }

// CaseEqual pops a value and a pattern and pushes pattern === value.
type CaseEqual struct{ base }

func (*CaseEqual) Op() Opcode     { return OpCaseEqual }
func (*CaseEqual) String() string { return "case_equal" }

type IsNil struct{ base }

func (*IsNil) Op() Opcode     { return OpIsNil }
func (*IsNil) String() string { return "is_nil" }

type Not struct{ base }

func (*Not) Op() Opcode     { return OpNot }
func (*Not) String() string { return "not" }

// CreateRange pops begin and end.
type CreateRange struct {
	base
	ExcludeEnd bool
}

func (*CreateRange) Op() Opcode { return OpCreateRange }
func (i *CreateRange) String() string {
	return flagged("create_range", flag(i.ExcludeEnd, "(exclude end)"))
}

// Shell runs the popped command string and pushes its output.
type Shell struct{ base }

func (*Shell) Op() Opcode     { return OpShell }
func (*Shell) String() string { return "shell" }

type SingletonClass struct{ base }

func (*SingletonClass) Op() Opcode     { return OpSingletonClass }
func (*SingletonClass) String() string { return "singleton_class" }

// StringAppend appends the to_s of the top value to the string below it.
type StringAppend struct{ base }

func (*StringAppend) Op() Opcode     { return OpStringAppend }
func (*StringAppend) String() string { return "string_append" }

type StringToRegexp struct {
	base
	Options int
}

func (*StringToRegexp) Op() Opcode { return OpStringToRegexp }
func (i *StringToRegexp) String() string {
	return fmt.Sprintf("string_to_regexp (%d)", i.Options)
}

// ---------------------------------------------------------------------------
// Variables and constants
// ---------------------------------------------------------------------------

// ConstFind pops a namespace and pushes the constant Name found in it.
// A strict lookup does not fall back to Object.
type ConstFind struct {
	base
	Name   string
	Strict bool
}

func (*ConstFind) Op() Opcode { return OpConstFind }
func (i *ConstFind) String() string {
	return flagged("const_find :"+i.Name, flag(i.Strict, "(strict)"))
}

// ConstSet pops a namespace and a value (namespace on top).
type ConstSet struct {
	base
	Name string
}

func (*ConstSet) Op() Opcode       { return OpConstSet }
func (i *ConstSet) String() string { return "const_set :" + i.Name }

type ClassVariableGet struct {
	base
	Name string
}

func (*ClassVariableGet) Op() Opcode       { return OpClassVariableGet }
func (i *ClassVariableGet) String() string { return "class_variable_get " + i.Name }

type ClassVariableSet struct {
	base
	Name string
}

func (*ClassVariableSet) Op() Opcode       { return OpClassVariableSet }
func (i *ClassVariableSet) String() string { return "class_variable_set " + i.Name }

type GlobalVariableDefined struct {
	base
	Name string
}

func (*GlobalVariableDefined) Op() Opcode { return OpGlobalVariableDefined }
func (i *GlobalVariableDefined) String() string {
	return "global_variable_defined " + i.Name
}

type GlobalVariableGet struct {
	base
	Name string
}

func (*GlobalVariableGet) Op() Opcode       { return OpGlobalVariableGet }
func (i *GlobalVariableGet) String() string { return "global_variable_get " + i.Name }

type GlobalVariableSet struct {
	base
	Name string
}

func (*GlobalVariableSet) Op() Opcode       { return OpGlobalVariableSet }
func (i *GlobalVariableSet) String() string { return "global_variable_set " + i.Name }

type InstanceVariableDefined struct {
	base
	Name string
}

func (*InstanceVariableDefined) Op() Opcode { return OpInstanceVariableDefined }
func (i *InstanceVariableDefined) String() string {
	return "instance_variable_defined " + i.Name
}

type InstanceVariableGet struct {
	base
	Name string
}

func (*InstanceVariableGet) Op() Opcode       { return OpInstanceVariableGet }
func (i *InstanceVariableGet) String() string { return "instance_variable_get " + i.Name }

type InstanceVariableSet struct {
	base
	Name string
}

func (*InstanceVariableSet) Op() Opcode       { return OpInstanceVariableSet }
func (i *InstanceVariableSet) String() string { return "instance_variable_set " + i.Name }

// VariableDeclare declares a local in the current scope without assigning.
type VariableDeclare struct {
	base
	Name string
}

func (*VariableDeclare) Op() Opcode       { return OpVariableDeclare }
func (i *VariableDeclare) String() string { return "variable_declare " + i.Name }

type VariableGet struct {
	base
	Name string
}

func (*VariableGet) Op() Opcode       { return OpVariableGet }
func (i *VariableGet) String() string { return "variable_get " + i.Name }

// VariableSet assigns the popped value. LocalOnly restricts the lookup to
// the current scope (block parameters shadow outer variables).
type VariableSet struct {
	base
	Name      string
	LocalOnly bool
}

func (*VariableSet) Op() Opcode { return OpVariableSet }
func (i *VariableSet) String() string {
	return flagged("variable_set "+i.Name, flag(i.LocalOnly, "(local)"))
}

// LoadFile runs the body of another compilation unit and pushes whether it
// was loaded. With RequireOnce an already loaded file is skipped.
type LoadFile struct {
	base
	Filename    string
	RequireOnce bool
}

func (*LoadFile) Op() Opcode { return OpLoadFile }
func (i *LoadFile) String() string {
	return flagged("load_file "+i.Filename, flag(i.RequireOnce, "(require_once)"))
}
