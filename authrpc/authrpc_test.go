package authrpc

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sanjit-bhat/credactive/policy"
	"github.com/sanjit-bhat/credactive/transport"
	"github.com/sanjit-bhat/credactive/wire"
)

func startServer(t *testing.T, handlers map[uint64]Handler) string {
	l, err := transport.Listen("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	go NewServer(handlers).Serve(l)
	return l.Addr()
}

func TestCall(t *testing.T) {
	addr := startServer(t, map[uint64]Handler{
		7: func(arg []byte) ([]byte, error) {
			a, arg, err := ReadInt(arg)
			if err != nil {
				return nil, err
			}
			b, _, err := ReadInt(arg)
			if err != nil {
				return nil, err
			}
			return WriteInt(nil, a*b), nil
		},
	})

	c, err := Dial(addr)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	arg := WriteInt(nil, 6)
	arg = WriteInt(arg, 9)
	reply, err := c.Call(7, arg)
	if err != nil {
		t.Fatal(err)
	}
	got, _, err := ReadInt(reply)
	if err != nil || got != 54 {
		t.Fatal(got, err)
	}
}

// the handler's sentinel error must come back out of Call.
func TestErrorMapping(t *testing.T) {
	addr := startServer(t, map[uint64]Handler{
		1: func(arg []byte) ([]byte, error) { return nil, policy.ErrSessionExpired },
		2: func(arg []byte) ([]byte, error) { return nil, wire.ErrMalformedEncoding },
	})

	c, err := Dial(addr)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, err := c.Call(1, nil); !errors.Is(err, policy.ErrSessionExpired) {
		t.Fatal(err)
	}
	if _, err := c.Call(2, nil); !errors.Is(err, wire.ErrMalformedEncoding) {
		t.Fatal(err)
	}
	// unknown rpc id is an internal error, not a taxonomy sentinel.
	if _, err := c.Call(99, nil); err == nil {
		t.Fatal()
	}
}

func TestSerde(t *testing.T) {
	b := WriteSlice2D(nil, [][]byte{{1}, {2, 3}, nil})
	got, rest, err := ReadSlice2D(b)
	if err != nil || len(rest) != 0 {
		t.Fatal(err)
	}
	if len(got) != 3 || !bytes.Equal(got[0], []byte{1}) || !bytes.Equal(got[1], []byte{2, 3}) || len(got[2]) != 0 {
		t.Fatal()
	}

	if _, _, err := ReadSlice1D(WriteInt(nil, 10)); !errors.Is(err, wire.ErrMalformedEncoding) {
		t.Fatal(err)
	}
}
