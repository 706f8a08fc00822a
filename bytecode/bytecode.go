// Package bytecode reads and writes the binary container for instruction
// sequences.
//
// File layout (fixed-width integers are big-endian):
//
//	"NatX" major minor
//	section count, then per section: type (1 byte), absolute offset (4 bytes)
//	rodata section: 4-byte length, then the pool (only when not empty)
//	code section: 4-byte size (ignored on read), then (opcode tag, payload)
//	until end of input
//
// Payloads reference names and literals by their offset in the rodata pool.
// Counts and indexes are BER integers; signed values use the compact form
// of AppendInt.
package bytecode

import (
	"errors"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("garnet.bytecode")

// Magic is the first four bytes of every bytecode file.
var Magic = [4]byte{'N', 'a', 't', 'X'}

const (
	VersionMajor = 0
	VersionMinor = 0
)

// Section types.
const (
	SectionCode   byte = 1
	SectionRoData byte = 2
)

const (
	headerSize       = len(Magic) + 2
	sectionEntrySize = 5
)

// Send, super and yield flag bits.
const (
	flagReceiverIsSelf = 1 << iota
	flagWithBlock
	flagArgsArrayOnStack
	flagHasKeywordHash
)

var (
	ErrInvalidMagic     = errors.New("invalid magic number: expected NatX")
	ErrVersionMismatch  = errors.New("bytecode version mismatch")
	ErrUnknownOpcode    = errors.New("unknown opcode")
	ErrUnexpectedEOF    = errors.New("unexpected end of bytecode")
	ErrMissingRoData    = errors.New("instruction references rodata but the file has none")
	ErrBadRoDataOffset  = errors.New("rodata offset does not start an entry")
	ErrUnencodable      = errors.New("instruction cannot be encoded")
	ErrUnknownSection   = errors.New("unknown section type")
	ErrMissingCodeTable = errors.New("no code section")
)
