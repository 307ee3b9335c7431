// Package wire encodes and decodes the tagged, big-endian wire format.
// a structure is described once by a [Shape] (an ordered field list), and a
// single generic walker handles encode and decode for every shape. adding a
// structure type never adds codec logic.
package wire

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrMalformedEncoding reports truncated or over-long wire data.
	ErrMalformedEncoding = errors.New("wire: malformed encoding")
	// ErrUnsupportedAlgorithm reports a selector outside the known set.
	ErrUnsupportedAlgorithm = errors.New("wire: unsupported algorithm")
)

// Kind classifies how a field appears on the wire.
type Kind uint8

const (
	// KindUint is a fixed-width unsigned scalar, big-endian.
	KindUint Kind = iota
	// KindBytes is a variable buffer preceded by a fixed-width length field.
	KindBytes
	// KindArray is an ordered sequence preceded by a fixed-width count.
	KindArray
	// KindStruct is a nested structure, fields concatenated with no padding.
	KindStruct
	// KindUnion is a polymorphic payload whose variant is picked by a
	// selector scalar decoded earlier in the same enclosing structure.
	KindUnion
)

// Field describes one wire field.
type Field struct {
	Name string
	Kind Kind
	// Width is the scalar byte width for KindUint, and the width of the
	// length or count prefix for KindBytes and KindArray (1..8).
	Width int
	// Elem describes array elements (KindArray only).
	Elem *Field
	// Struct is the nested shape (KindStruct only).
	Struct *Shape
	// Union is the variant table and Selector names the earlier KindUint
	// field that discriminates it (KindUnion only).
	Union    *Union
	Selector string
}

// Shape is an ordered field list. declaration order is wire order.
type Shape struct {
	Name   string
	Fields []Field
}

func (sh *Shape) index(name string) int {
	for i := range sh.Fields {
		if sh.Fields[i].Name == name {
			return i
		}
	}
	return -1
}

// Val is the decoded form of a wire value: uint64 for scalars, []byte for
// buffers, []Val for arrays, *Struct for structures and union payloads.
type Val any

// Struct holds one value per field of its shape.
type Struct struct {
	shape *Shape
	vals  []Val
}

// NewStruct rets an empty value of the given shape.
func NewStruct(shape *Shape) *Struct {
	return &Struct{shape: shape, vals: make([]Val, len(shape.Fields))}
}

func (s *Struct) Shape() *Shape { return s.shape }

// Set stores a field value and rets s for chaining.
// unknown names are programmer errors and panic.
func (s *Struct) Set(name string, v Val) *Struct {
	i := s.shape.index(name)
	if i < 0 {
		panic(fmt.Sprintf("wire: shape %s has no field %s", s.shape.Name, name))
	}
	s.vals[i] = v
	return s
}

// Get rets a field value. unknown names are programmer errors and panic.
func (s *Struct) Get(name string) Val {
	i := s.shape.index(name)
	if i < 0 {
		panic(fmt.Sprintf("wire: shape %s has no field %s", s.shape.Name, name))
	}
	return s.vals[i]
}

// Uint rets a scalar field, or 0 if unset.
func (s *Struct) Uint(name string) uint64 {
	v, _ := s.Get(name).(uint64)
	return v
}

// Bytes rets a buffer field, or nil if unset.
func (s *Struct) Bytes(name string) []byte {
	v, _ := s.Get(name).([]byte)
	return v
}

// Union is an immutable selector-to-variant dispatch table.
type Union struct {
	variants map[uint64]*Shape
}

// NewUnion builds the dispatch table once, at init. the declared selector
// set and the variant table must agree exactly; a missing, extra, or
// duplicate selector panics here rather than surfacing at decode time.
func NewUnion(declared []uint64, variants map[uint64]*Shape) *Union {
	seen := make(map[uint64]bool, len(declared))
	for _, sel := range declared {
		if seen[sel] {
			panic(fmt.Sprintf("wire: duplicate union selector %#x", sel))
		}
		seen[sel] = true
		if variants[sel] == nil {
			panic(fmt.Sprintf("wire: union selector %#x has no variant shape", sel))
		}
	}
	if len(variants) != len(declared) {
		extra := make([]uint64, 0, len(variants))
		for sel := range variants {
			if !seen[sel] {
				extra = append(extra, sel)
			}
		}
		sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
		panic(fmt.Sprintf("wire: union variants %#x are not in the declared set", extra))
	}
	u := &Union{variants: make(map[uint64]*Shape, len(variants))}
	for sel, sh := range variants {
		u.variants[sel] = sh
	}
	return u
}

// Variant rets the shape for a selector.
func (u *Union) Variant(sel uint64) (*Shape, error) {
	sh, ok := u.variants[sel]
	if !ok {
		return nil, fmt.Errorf("%w: union selector %#x", ErrUnsupportedAlgorithm, sel)
	}
	return sh, nil
}
