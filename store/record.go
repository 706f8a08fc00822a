package store

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/garnet/transform"
)

// encMode is canonical so equal units encode to equal bytes.
var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("store: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

type record struct {
	Source  string   `cbor:"1,keyasint"`
	Files   []string `cbor:"2,keyasint,omitempty"`
	Symbols int      `cbor:"3,keyasint"`
	Strings int      `cbor:"4,keyasint"`
}

// MarshalUnit serializes u to CBOR bytes.
func MarshalUnit(u *transform.Unit) ([]byte, error) {
	b, err := encMode.Marshal(record{
		Source:  u.Source,
		Files:   u.Files,
		Symbols: u.Symbols,
		Strings: u.Strings,
	})
	if err != nil {
		return nil, fmt.Errorf("store: marshal unit: %w", err)
	}
	return b, nil
}

// UnmarshalUnit deserializes a unit from CBOR bytes.
func UnmarshalUnit(data []byte) (*transform.Unit, error) {
	var r record
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("store: unmarshal unit: %w", err)
	}
	return &transform.Unit{
		Source:  r.Source,
		Files:   r.Files,
		Symbols: r.Symbols,
		Strings: r.Strings,
	}, nil
}
