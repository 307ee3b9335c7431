package object

import (
	"fmt"

	"github.com/sanjit-bhat/credactive/wire"
)

// IDKind discriminates the public-id union in a descriptor.
type IDKind uint16

const (
	IDRSA       IDKind = 0x0001
	IDKeyedHash IDKind = 0x0008
	IDECC       IDKind = 0x0023
	IDSymCipher IDKind = 0x0025
)

// PublicID is the public-key material variant. the set is closed.
type PublicID interface {
	idKind() IDKind
}

// RSAID is an RSA modulus blob.
type RSAID struct {
	Modulus []byte
}

// SymCipherID is the digest of a symmetric key, serving as its public id.
type SymCipherID struct {
	Digest []byte
}

// ECCID is an elliptic-curve point with affine coordinates.
type ECCID struct {
	X []byte
	Y []byte
}

// KeyedHashID is the digest of a keyed-hash (HMAC) key.
type KeyedHashID struct {
	Digest []byte
}

func (RSAID) idKind() IDKind       { return IDRSA }
func (SymCipherID) idKind() IDKind { return IDSymCipher }
func (ECCID) idKind() IDKind       { return IDECC }
func (KeyedHashID) idKind() IDKind { return IDKeyedHash }

var (
	rsaShape = &wire.Shape{Name: "rsaPublicID", Fields: []wire.Field{
		{Name: "modulus", Kind: wire.KindBytes, Width: 2},
	}}
	symCipherShape = &wire.Shape{Name: "symCipherPublicID", Fields: []wire.Field{
		{Name: "digest", Kind: wire.KindBytes, Width: 2},
	}}
	eccShape = &wire.Shape{Name: "eccPublicID", Fields: []wire.Field{
		{Name: "x", Kind: wire.KindBytes, Width: 2},
		{Name: "y", Kind: wire.KindBytes, Width: 2},
	}}
	keyedHashShape = &wire.Shape{Name: "keyedHashPublicID", Fields: []wire.Field{
		{Name: "digest", Kind: wire.KindBytes, Width: 2},
	}}

	publicIDUnion = wire.NewUnion(
		[]uint64{uint64(IDRSA), uint64(IDKeyedHash), uint64(IDECC), uint64(IDSymCipher)},
		map[uint64]*wire.Shape{
			uint64(IDRSA):       rsaShape,
			uint64(IDKeyedHash): keyedHashShape,
			uint64(IDECC):       eccShape,
			uint64(IDSymCipher): symCipherShape,
		})

	// DescriptorShape is the canonical wire layout of a descriptor.
	DescriptorShape = &wire.Shape{Name: "publicKeyDescriptor", Fields: []wire.Field{
		{Name: "nameAlg", Kind: wire.KindUint, Width: 2},
		{Name: "attrs", Kind: wire.KindUint, Width: 4},
		{Name: "authPolicy", Kind: wire.KindBytes, Width: 2},
		{Name: "scheme", Kind: wire.KindUint, Width: 2},
		{Name: "schemeDetail", Kind: wire.KindUint, Width: 2},
		{Name: "idKind", Kind: wire.KindUint, Width: 2},
		{Name: "id", Kind: wire.KindUnion, Union: publicIDUnion, Selector: "idKind"},
	}}
)

// PublicKeyDescriptor names a key: its naming algorithm, attribute flags,
// required authorization-policy digest, scheme parameters, and public
// material. it holds no derived bytes; [PublicKeyDescriptor.Name] and
// [PublicKeyDescriptor.Canonical] recompute from the current fields every
// call, so mutation can never leave a stale encoding behind.
type PublicKeyDescriptor struct {
	NameAlg      Alg
	Attrs        uint32
	AuthPolicy   []byte
	Scheme       uint16
	SchemeDetail uint16
	ID           PublicID
}

// Canonical rets the byte-for-byte reproducible wire encoding.
func (d *PublicKeyDescriptor) Canonical() ([]byte, error) {
	if d.ID == nil {
		return nil, fmt.Errorf("object: descriptor has no public id")
	}
	payload, err := idToVal(d.ID)
	if err != nil {
		return nil, err
	}
	s := wire.NewStruct(DescriptorShape).
		Set("nameAlg", uint64(d.NameAlg)).
		Set("attrs", uint64(d.Attrs)).
		Set("authPolicy", d.AuthPolicy).
		Set("scheme", uint64(d.Scheme)).
		Set("schemeDetail", uint64(d.SchemeDetail)).
		Set("idKind", uint64(d.ID.idKind())).
		Set("id", payload)
	return wire.Encode(s)
}

// Name rets the descriptor's Name: the 2-byte big-endian naming algorithm
// id followed by the digest of the canonical encoding under that algorithm.
func (d *PublicKeyDescriptor) Name() ([]byte, error) {
	enc, err := d.Canonical()
	if err != nil {
		return nil, err
	}
	dig, err := d.NameAlg.Sum(enc)
	if err != nil {
		return nil, err
	}
	name := make([]byte, 0, 2+len(dig))
	name = append(name, byte(uint16(d.NameAlg)>>8), byte(d.NameAlg))
	return append(name, dig...), nil
}

// DecodeDescriptor parses a canonical encoding.
func DecodeDescriptor(data []byte) (*PublicKeyDescriptor, error) {
	s, err := wire.Decode(DescriptorShape, data)
	if err != nil {
		return nil, err
	}
	id, err := idFromVal(IDKind(s.Uint("idKind")), s.Get("id").(*wire.Struct))
	if err != nil {
		return nil, err
	}
	return &PublicKeyDescriptor{
		NameAlg:      Alg(s.Uint("nameAlg")),
		Attrs:        uint32(s.Uint("attrs")),
		AuthPolicy:   s.Bytes("authPolicy"),
		Scheme:       uint16(s.Uint("scheme")),
		SchemeDetail: uint16(s.Uint("schemeDetail")),
		ID:           id,
	}, nil
}

// ParseName checks a Name's framing and rets its naming algorithm.
func ParseName(name []byte) (Alg, error) {
	if len(name) < 2 {
		return 0, fmt.Errorf("%w: name shorter than its algorithm id", wire.ErrMalformedEncoding)
	}
	alg := Alg(uint16(name[0])<<8 | uint16(name[1]))
	size, err := alg.DigestSize()
	if err != nil {
		return 0, err
	}
	if len(name) != 2+size {
		return 0, fmt.Errorf("%w: name is %d bytes, want %d for %v", wire.ErrMalformedEncoding, len(name), 2+size, alg)
	}
	return alg, nil
}

func idToVal(id PublicID) (*wire.Struct, error) {
	switch id := id.(type) {
	case RSAID:
		return wire.NewStruct(rsaShape).Set("modulus", id.Modulus), nil
	case SymCipherID:
		return wire.NewStruct(symCipherShape).Set("digest", id.Digest), nil
	case ECCID:
		return wire.NewStruct(eccShape).Set("x", id.X).Set("y", id.Y), nil
	case KeyedHashID:
		return wire.NewStruct(keyedHashShape).Set("digest", id.Digest), nil
	default:
		return nil, fmt.Errorf("object: unknown public id %T", id)
	}
}

func idFromVal(kind IDKind, s *wire.Struct) (PublicID, error) {
	switch kind {
	case IDRSA:
		return RSAID{Modulus: s.Bytes("modulus")}, nil
	case IDSymCipher:
		return SymCipherID{Digest: s.Bytes("digest")}, nil
	case IDECC:
		return ECCID{X: s.Bytes("x"), Y: s.Bytes("y")}, nil
	case IDKeyedHash:
		return KeyedHashID{Digest: s.Bytes("digest")}, nil
	default:
		return nil, fmt.Errorf("%w: public id kind %#x", wire.ErrUnsupportedAlgorithm, uint16(kind))
	}
}
