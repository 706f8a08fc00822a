package insn

import "fmt"

// Opcode identifies an instruction type. Values are dense and assigned in
// declaration order; the same number is the bytecode tag, the dispatch key
// of both backends and the index into the disassembly name table.
type Opcode byte

const (
	OpAliasGlobal Opcode = iota
	OpAliasMethod
	OpArrayConcat
	OpArrayPop
	OpArrayPopWithDefault
	OpArrayPush
	OpArrayShift
	OpArrayShiftWithDefault
	OpArrayWrap
	OpAutoloadConst
	OpBreak
	OpBreakOut
	OpCaseEqual
	OpCatch
	OpCheckArgs
	OpCheckExtraKeywords
	OpCheckRequiredKeywords
	OpClassVariableGet
	OpClassVariableSet
	OpConstFind
	OpConstSet
	OpContinue
	OpCreateArray
	OpCreateComplex
	OpCreateHash
	OpCreateLambda
	OpCreateRange
	OpDefineBlock
	OpDefineClass
	OpDefineMethod
	OpDefineModule
	OpDup
	OpDupObject
	OpDupRel
	OpElse
	OpEnd
	OpGlobalVariableDefined
	OpGlobalVariableGet
	OpGlobalVariableSet
	OpHashDelete
	OpHashDeleteWithDefault
	OpHashMerge
	OpHashPut
	OpIf
	OpInlineCode
	OpInstanceVariableDefined
	OpInstanceVariableGet
	OpInstanceVariableSet
	OpIsDefined
	OpIsNil
	OpLoadFile
	OpMatchBreakPoint
	OpMatchException
	OpMethodDefined
	OpMoveRel
	OpNext
	OpNot
	OpPop
	OpPopKeywordArgs
	OpPushArg
	OpPushArgc
	OpPushArgs
	OpPushBlock
	OpPushFalse
	OpPushFloat
	OpPushInt
	OpPushLastMatch
	OpPushNil
	OpPushObjectClass
	OpPushRational
	OpPushRegexp
	OpPushRescued
	OpPushSelf
	OpPushString
	OpPushSymbol
	OpPushTrue
	OpRedo
	OpRetry
	OpReturn
	OpSend
	OpShell
	OpSingletonClass
	OpStringAppend
	OpStringToRegexp
	OpSuper
	OpSwap
	OpToArray
	OpTry
	OpUndefineMethod
	OpVariableDeclare
	OpVariableGet
	OpVariableSet
	OpWhileBody
	OpWhile
	OpWithSingleton
	OpYield

	opcodeCount
)

// Variable marks a stack count that depends on the instruction payload.
const Variable = -1

// OpcodeInfo describes an opcode for the disassembler and the stack checker.
type OpcodeInfo struct {
	Name      string
	StackPop  int  // values consumed, or Variable
	StackPush int  // values produced, or Variable
	HasBody   bool // opens a region closed by an end instruction
}

var opcodeInfoTable = [opcodeCount]OpcodeInfo{
	OpAliasGlobal:             {"alias_global", 0, 0, false},
	OpAliasMethod:             {"alias_method", 2, 0, false},
	OpArrayConcat:             {"array_concat", Variable, 1, false},
	OpArrayPop:                {"array_pop", 1, 2, false},
	OpArrayPopWithDefault:     {"array_pop_with_default", 2, 2, false},
	OpArrayPush:               {"array_push", 2, 1, false},
	OpArrayShift:              {"array_shift", 1, 2, false},
	OpArrayShiftWithDefault:   {"array_shift_with_default", 2, 2, false},
	OpArrayWrap:               {"array_wrap", 1, 1, false},
	OpAutoloadConst:           {"autoload_const", 0, 0, true},
	OpBreak:                   {"break", 1, 1, false},
	OpBreakOut:                {"break_out", 1, 1, false},
	OpCaseEqual:               {"case_equal", 2, 1, false},
	OpCatch:                   {"catch", 0, 0, false},
	OpCheckArgs:               {"check_args", 0, 0, false},
	OpCheckExtraKeywords:      {"check_extra_keywords", 1, 1, false},
	OpCheckRequiredKeywords:   {"check_required_keywords", 1, 1, false},
	OpClassVariableGet:        {"class_variable_get", 0, 1, false},
	OpClassVariableSet:        {"class_variable_set", 1, 0, false},
	OpConstFind:               {"const_find", 1, 1, false},
	OpConstSet:                {"const_set", 2, 0, false},
	OpContinue:                {"continue", 0, 1, false},
	OpCreateArray:             {"create_array", Variable, 1, false},
	OpCreateComplex:           {"create_complex", 0, 1, false},
	OpCreateHash:              {"create_hash", Variable, 1, false},
	OpCreateLambda:            {"create_lambda", 1, 1, false},
	OpCreateRange:             {"create_range", 2, 1, false},
	OpDefineBlock:             {"define_block", 0, 1, true},
	OpDefineClass:             {"define_class", 2, 1, true},
	OpDefineMethod:            {"define_method", 0, 1, true},
	OpDefineModule:            {"define_module", 1, 1, true},
	OpDup:                     {"dup", 1, 2, false},
	OpDupObject:               {"dup_object", 1, 1, false},
	OpDupRel:                  {"dup_rel", 0, 1, false},
	OpElse:                    {"else", 0, 0, false},
	OpEnd:                     {"end", 0, 0, false},
	OpGlobalVariableDefined:   {"global_variable_defined", 0, 1, false},
	OpGlobalVariableGet:       {"global_variable_get", 0, 1, false},
	OpGlobalVariableSet:       {"global_variable_set", 1, 0, false},
	OpHashDelete:              {"hash_delete", 1, 2, false},
	OpHashDeleteWithDefault:   {"hash_delete_with_default", 2, 2, false},
	OpHashMerge:               {"hash_merge", 2, 1, false},
	OpHashPut:                 {"hash_put", 3, 1, false},
	OpIf:                      {"if", 1, 1, true},
	OpInlineCode:              {"inline_code", 0, 1, false},
	OpInstanceVariableDefined: {"instance_variable_defined", 0, 1, false},
	OpInstanceVariableGet:     {"instance_variable_get", 0, 1, false},
	OpInstanceVariableSet:     {"instance_variable_set", 1, 0, false},
	OpIsDefined:               {"is_defined", 0, 1, true},
	OpIsNil:                   {"is_nil", 1, 1, false},
	OpLoadFile:                {"load_file", 0, 1, false},
	OpMatchBreakPoint:         {"match_break_point", 1, 1, false},
	OpMatchException:          {"match_exception", 1, 1, false},
	OpMethodDefined:           {"method_defined", 1, 1, false},
	OpMoveRel:                 {"move_rel", 0, 0, false},
	OpNext:                    {"next", 1, 1, false},
	OpNot:                     {"not", 1, 1, false},
	OpPop:                     {"pop", 1, 0, false},
	OpPopKeywordArgs:          {"pop_keyword_args", 0, 1, false},
	OpPushArg:                 {"push_arg", 0, 1, false},
	OpPushArgc:                {"push_argc", 0, 1, false},
	OpPushArgs:                {"push_args", 0, 1, false},
	OpPushBlock:               {"push_block", 0, 1, false},
	OpPushFalse:               {"push_false", 0, 1, false},
	OpPushFloat:               {"push_float", 0, 1, false},
	OpPushInt:                 {"push_int", 0, 1, false},
	OpPushLastMatch:           {"push_last_match", 0, 1, false},
	OpPushNil:                 {"push_nil", 0, 1, false},
	OpPushObjectClass:         {"push_object_class", 0, 1, false},
	OpPushRational:            {"push_rational", 0, 1, false},
	OpPushRegexp:              {"push_regexp", 0, 1, false},
	OpPushRescued:             {"push_rescued", 0, 1, false},
	OpPushSelf:                {"push_self", 0, 1, false},
	OpPushString:              {"push_string", 0, 1, false},
	OpPushSymbol:              {"push_symbol", 0, 1, false},
	OpPushTrue:                {"push_true", 0, 1, false},
	OpRedo:                    {"redo", 0, 1, false},
	OpRetry:                   {"retry", 0, 1, false},
	OpReturn:                  {"return", 1, 1, false},
	OpSend:                    {"send", Variable, 1, false},
	OpShell:                   {"shell", 1, 1, false},
	OpSingletonClass:          {"singleton_class", 1, 1, false},
	OpStringAppend:            {"string_append", 2, 1, false},
	OpStringToRegexp:          {"string_to_regexp", 1, 1, false},
	OpSuper:                   {"super", Variable, 1, false},
	OpSwap:                    {"swap", 2, 2, false},
	OpToArray:                 {"to_array", 1, 1, false},
	OpTry:                     {"try", 0, 1, true},
	OpUndefineMethod:          {"undefine_method", 0, 0, false},
	OpVariableDeclare:         {"variable_declare", 0, 0, false},
	OpVariableGet:             {"variable_get", 0, 1, false},
	OpVariableSet:             {"variable_set", 1, 0, false},
	OpWhileBody:               {"while_body", 0, 0, false},
	OpWhile:                   {"while", 0, 1, true},
	OpWithSingleton:           {"with_singleton", 1, 1, true},
	OpYield:                   {"yield", Variable, 1, false},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with an "unknown" name if the opcode is out of range.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if op < opcodeCount {
		return opcodeInfoTable[op]
	}
	return OpcodeInfo{Name: fmt.Sprintf("unknown(0x%02x)", byte(op))}
}

// String returns the instruction name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// HasBody reports whether the opcode opens a nested region.
func (op Opcode) HasBody() bool {
	return GetOpcodeInfo(op).HasBody
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	return op < opcodeCount
}

// Lookup validates a serialized tag.
func Lookup(tag byte) (Opcode, bool) {
	op := Opcode(tag)
	return op, op.Valid()
}

// ByName returns the opcode with the given instruction name.
func ByName(name string) (Opcode, bool) {
	for op := Opcode(0); op < opcodeCount; op++ {
		if opcodeInfoTable[op].Name == name {
			return op, true
		}
	}
	return 0, false
}

// AllOpcodes returns every defined opcode in tag order.
func AllOpcodes() []Opcode {
	ops := make([]Opcode, opcodeCount)
	for i := range ops {
		ops[i] = Opcode(i)
	}
	return ops
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return int(opcodeCount)
}
