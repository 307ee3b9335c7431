package credential

import (
	"github.com/sanjit-bhat/credactive/wire"
)

// Shape is the activation pair's wire layout: both buffers independently
// length-prefixed, integrity tag first, then the encrypted identity.
var Shape = &wire.Shape{Name: "activationCredential", Fields: []wire.Field{
	{Name: "integrity", Kind: wire.KindBytes, Width: 2},
	{Name: "encIdentity", Kind: wire.KindBytes, Width: 2},
}}

// Encode rets the canonical encoding of the pair.
func (c *Credential) Encode() ([]byte, error) {
	s := wire.NewStruct(Shape).
		Set("integrity", c.Integrity).
		Set("encIdentity", c.EncIdentity)
	return wire.Encode(s)
}

// Decode parses a canonical activation pair.
func Decode(data []byte) (*Credential, error) {
	s, err := wire.Decode(Shape, data)
	if err != nil {
		return nil, err
	}
	return &Credential{
		Integrity:   s.Bytes("integrity"),
		EncIdentity: s.Bytes("encIdentity"),
	}, nil
}
