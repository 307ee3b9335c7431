package authrpc

import (
	"fmt"

	"github.com/goose-lang/std"
	"github.com/tchajed/marshal"

	"github.com/sanjit-bhat/credactive/wire"
)

// bounds-checked read/write helpers for the internal request/response
// serde. this framing is little-endian and local to the RPC layer; the
// big-endian protocol wire format applies only to package wire shapes.

func ReadInt(b []byte) (uint64, []byte, error) {
	if uint64(len(b)) < 8 {
		return 0, nil, fmt.Errorf("%w: rpc int", wire.ErrMalformedEncoding)
	}
	data, b := marshal.ReadInt(b)
	return data, b, nil
}

func WriteInt(b []byte, v uint64) []byte {
	return marshal.WriteInt(b, v)
}

func ReadByte(b []byte) (byte, []byte, error) {
	if len(b) < 1 {
		return 0, nil, fmt.Errorf("%w: rpc byte", wire.ErrMalformedEncoding)
	}
	data, b := marshal.ReadBytes(b, 1)
	return data[0], b, nil
}

func WriteByte(b []byte, v byte) []byte {
	return marshal.WriteBytes(b, []byte{v})
}

// ReadSlice1D reads a length-prefixed byte slice.
func ReadSlice1D(b []byte) ([]byte, []byte, error) {
	length, b, err := ReadInt(b)
	if err != nil {
		return nil, nil, err
	}
	if length > uint64(len(b)) {
		return nil, nil, fmt.Errorf("%w: rpc slice of %d bytes", wire.ErrMalformedEncoding, length)
	}
	data, b := marshal.ReadBytes(b, length)
	return std.BytesClone(data), b, nil
}

func WriteSlice1D(b []byte, data []byte) []byte {
	b = marshal.WriteInt(b, uint64(len(data)))
	return marshal.WriteBytes(b, data)
}

// ReadSlice2D reads a count-prefixed list of length-prefixed byte slices.
func ReadSlice2D(b []byte) ([][]byte, []byte, error) {
	count, b, err := ReadInt(b)
	if err != nil {
		return nil, nil, err
	}
	var data [][]byte
	for i := uint64(0); i < count; i++ {
		var one []byte
		one, b, err = ReadSlice1D(b)
		if err != nil {
			return nil, nil, err
		}
		data = append(data, one)
	}
	return data, b, nil
}

func WriteSlice2D(b []byte, data [][]byte) []byte {
	b = marshal.WriteInt(b, uint64(len(data)))
	for _, one := range data {
		b = WriteSlice1D(b, one)
	}
	return b
}
