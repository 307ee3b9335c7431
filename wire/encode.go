package wire

import (
	"fmt"

	"github.com/tchajed/marshal"
)

// Encode rets the canonical encoding of s: fields in declaration order,
// no padding. it is pure; the same value always encodes to the same bytes.
func Encode(s *Struct) ([]byte, error) {
	return appendStruct(make([]byte, 0, 64), s)
}

func appendStruct(b []byte, s *Struct) ([]byte, error) {
	var err error
	for i := range s.shape.Fields {
		b, err = appendField(b, s, i)
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

func appendField(b []byte, s *Struct, i int) ([]byte, error) {
	f := &s.shape.Fields[i]
	if f.Kind == KindUnion {
		return appendUnion(b, s, f)
	}
	return appendVal(b, f, s.vals[i])
}

func appendVal(b []byte, f *Field, v Val) ([]byte, error) {
	switch f.Kind {
	case KindUint:
		n, ok := v.(uint64)
		if !ok && v != nil {
			return nil, fmt.Errorf("wire: field %s: want uint64, got %T", f.Name, v)
		}
		return appendUint(b, f.Name, f.Width, n)
	case KindBytes:
		d, ok := v.([]byte)
		if !ok && v != nil {
			return nil, fmt.Errorf("wire: field %s: want []byte, got %T", f.Name, v)
		}
		b, err := appendUint(b, f.Name, f.Width, uint64(len(d)))
		if err != nil {
			return nil, err
		}
		return marshal.WriteBytes(b, d), nil
	case KindArray:
		elems, ok := v.([]Val)
		if !ok && v != nil {
			return nil, fmt.Errorf("wire: field %s: want []Val, got %T", f.Name, v)
		}
		b, err := appendUint(b, f.Name, f.Width, uint64(len(elems)))
		if err != nil {
			return nil, err
		}
		for _, e := range elems {
			b, err = appendVal(b, f.Elem, e)
			if err != nil {
				return nil, err
			}
		}
		return b, nil
	case KindStruct:
		nested, ok := v.(*Struct)
		if !ok || nested.shape != f.Struct {
			return nil, fmt.Errorf("wire: field %s: value is not a %s", f.Name, f.Struct.Name)
		}
		return appendStruct(b, nested)
	default:
		return nil, fmt.Errorf("wire: field %s: bad kind %d", f.Name, f.Kind)
	}
}

func appendUnion(b []byte, s *Struct, f *Field) ([]byte, error) {
	si := s.shape.index(f.Selector)
	if si < 0 {
		return nil, fmt.Errorf("wire: union %s: shape %s has no selector field %s", f.Name, s.shape.Name, f.Selector)
	}
	sel, _ := s.vals[si].(uint64)
	variant, err := f.Union.Variant(sel)
	if err != nil {
		return nil, err
	}
	payload, ok := s.Get(f.Name).(*Struct)
	if !ok || payload.shape != variant {
		return nil, fmt.Errorf("wire: union %s: payload is not a %s (selector %#x)", f.Name, variant.Name, sel)
	}
	return appendStruct(b, payload)
}

func appendUint(b []byte, name string, width int, v uint64) ([]byte, error) {
	if width < 1 || width > 8 {
		return nil, fmt.Errorf("wire: field %s: bad scalar width %d", name, width)
	}
	if width < 8 && v>>(uint(width)*8) != 0 {
		return nil, fmt.Errorf("wire: field %s: value %d overflows %d bytes", name, v, width)
	}
	for i := width - 1; i >= 0; i-- {
		b = append(b, byte(v>>(uint(i)*8)))
	}
	return b, nil
}
