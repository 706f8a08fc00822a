package bytecode

import (
	"fmt"
)

// RoData is the read-only data section: a pool of byte strings referenced
// by their offset within the section. Each entry is a BER length followed
// by the bytes.
type RoData struct {
	data    []byte
	offsets map[roKey]int  // writer side
	entries map[int]string // offset -> content, loader side
}

// Entry kinds. Identical bytes added under different kinds get separate
// entries, so a symbol never aliases a string of the same spelling.
const (
	kindSymbol = iota
	kindString
	kindEncoding
)

// roKey identifies a pool entry on the writer side. encoding is set for
// strings only.
type roKey struct {
	kind     int
	encoding string
	content  string
}

// NewRoData returns an empty pool.
func NewRoData() *RoData {
	return &RoData{offsets: make(map[roKey]int)}
}

// LoadRoData parses a section body.
func LoadRoData(data []byte) (*RoData, error) {
	r := &RoData{data: data, entries: make(map[int]string)}
	for pos := 0; pos < len(data); {
		size, n, ok := ReadBER(data[pos:])
		if !ok || uint64(len(data)-pos-n) < size {
			return nil, fmt.Errorf("%w: rodata entry at %d", ErrUnexpectedEOF, pos)
		}
		r.entries[pos] = string(data[pos+n : pos+n+int(size)])
		pos += n + int(size)
	}
	return r, nil
}

func (r *RoData) add(key roKey) int {
	if off, ok := r.offsets[key]; ok {
		return off
	}
	off := len(r.data)
	r.data = AppendBER(r.data, uint64(len(key.content)))
	r.data = append(r.data, key.content...)
	r.offsets[key] = off
	return off
}

// AddSymbol interns a method, variable or constant name.
func (r *RoData) AddSymbol(name string) int { return r.add(roKey{kind: kindSymbol, content: name}) }

// AddString interns string content. Strings are deduplicated per
// encoding; the encoding name itself is a separate entry.
func (r *RoData) AddString(s, encoding string) int {
	return r.add(roKey{kind: kindString, encoding: encoding, content: s})
}

// AddEncoding interns an encoding name.
func (r *RoData) AddEncoding(name string) int { return r.add(roKey{kind: kindEncoding, content: name}) }

// At returns the entry starting at offset.
func (r *RoData) At(offset int) (string, error) {
	s, ok := r.entries[offset]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrBadRoDataOffset, offset)
	}
	return s, nil
}

// Len returns the section size in bytes.
func (r *RoData) Len() int { return len(r.data) }

// Bytes returns the encoded section body.
func (r *RoData) Bytes() []byte { return r.data }
