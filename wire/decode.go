package wire

import (
	"fmt"

	"github.com/goose-lang/std"
	"github.com/tchajed/marshal"
)

// Decode parses data as one value of the given shape. it errors with
// [ErrMalformedEncoding] on truncation and on trailing bytes after the
// top-level value.
func Decode(shape *Shape, data []byte) (*Struct, error) {
	s, rest, err := readStruct(shape, data)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after %s", ErrMalformedEncoding, len(rest), shape.Name)
	}
	return s, nil
}

// DecodeSome parses a leading value of the given shape and rets the rest,
// for shapes embedded in a larger stream.
func DecodeSome(shape *Shape, data []byte) (*Struct, []byte, error) {
	return readStruct(shape, data)
}

func readStruct(shape *Shape, b []byte) (*Struct, []byte, error) {
	s := NewStruct(shape)
	var err error
	for i := range shape.Fields {
		b, err = readField(s, i, b)
		if err != nil {
			return nil, nil, err
		}
	}
	return s, b, nil
}

func readField(s *Struct, i int, b []byte) ([]byte, error) {
	f := &s.shape.Fields[i]
	if f.Kind == KindUnion {
		return readUnion(s, f, b)
	}
	v, b, err := readVal(f, b)
	if err != nil {
		return nil, err
	}
	s.vals[i] = v
	return b, nil
}

func readVal(f *Field, b []byte) (Val, []byte, error) {
	switch f.Kind {
	case KindUint:
		return readUint(f.Name, f.Width, b)
	case KindBytes:
		length, b, err := readUint(f.Name, f.Width, b)
		if err != nil {
			return nil, nil, err
		}
		if length > uint64(len(b)) {
			return nil, nil, fmt.Errorf("%w: field %s: length %d exceeds %d remaining", ErrMalformedEncoding, f.Name, length, len(b))
		}
		data, b := marshal.ReadBytes(b, length)
		return std.BytesClone(data), b, nil
	case KindArray:
		count, b, err := readUint(f.Name, f.Width, b)
		if err != nil {
			return nil, nil, err
		}
		var elems []Val
		for j := uint64(0); j < count; j++ {
			var e Val
			e, b, err = readVal(f.Elem, b)
			if err != nil {
				return nil, nil, err
			}
			elems = append(elems, e)
		}
		return elems, b, nil
	case KindStruct:
		return readStruct(f.Struct, b)
	default:
		return nil, nil, fmt.Errorf("wire: field %s: bad kind %d", f.Name, f.Kind)
	}
}

// readUnion resolves the variant from the selector field, which has
// already been decoded since it precedes the union on the wire.
func readUnion(s *Struct, f *Field, b []byte) ([]byte, error) {
	si := s.shape.index(f.Selector)
	if si < 0 || si >= s.shape.index(f.Name) {
		return nil, fmt.Errorf("wire: union %s: selector %s must precede it in shape %s", f.Name, f.Selector, s.shape.Name)
	}
	sel, ok := s.vals[si].(uint64)
	if !ok {
		return nil, fmt.Errorf("wire: union %s: selector %s is not a scalar", f.Name, f.Selector)
	}
	variant, err := f.Union.Variant(sel)
	if err != nil {
		return nil, err
	}
	payload, b, err := readStruct(variant, b)
	if err != nil {
		return nil, err
	}
	s.Set(f.Name, payload)
	return b, nil
}

func readUint(name string, width int, b []byte) (uint64, []byte, error) {
	if width < 1 || width > 8 {
		return 0, nil, fmt.Errorf("wire: field %s: bad scalar width %d", name, width)
	}
	if len(b) < width {
		return 0, nil, fmt.Errorf("%w: field %s: need %d bytes, have %d", ErrMalformedEncoding, name, width, len(b))
	}
	var v uint64
	for i := 0; i < width; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v, b[width:], nil
}
