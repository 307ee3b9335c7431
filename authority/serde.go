package authority

import (
	"fmt"

	"github.com/sanjit-bhat/credactive/authrpc"
	"github.com/sanjit-bhat/credactive/policy"
	"github.com/sanjit-bhat/credactive/wire"
)

// request/response serde for the authority RPC surface, in append style.
// only leaf nodes (Command, Secret) cross the wire via Extend; Or branch
// lists cross via Finalize.

const (
	nodeCommand byte = 1
	nodeSecret  byte = 2
)

func NodeEncode(b []byte, n policy.Node) ([]byte, error) {
	switch n := n.(type) {
	case policy.Command:
		b = authrpc.WriteByte(b, nodeCommand)
		return authrpc.WriteInt(b, uint64(n.Code)), nil
	case policy.Secret:
		b = authrpc.WriteByte(b, nodeSecret)
		return authrpc.WriteInt(b, uint64(n.Handle)), nil
	default:
		return nil, fmt.Errorf("authority: node %T does not cross the wire", n)
	}
}

func NodeDecode(b []byte) (policy.Node, []byte, error) {
	kind, b, err := authrpc.ReadByte(b)
	if err != nil {
		return nil, nil, err
	}
	v, b, err := authrpc.ReadInt(b)
	if err != nil {
		return nil, nil, err
	}
	switch kind {
	case nodeCommand:
		return policy.Command{Code: uint32(v)}, b, nil
	case nodeSecret:
		return policy.Secret{Handle: uint32(v)}, b, nil
	default:
		return nil, nil, fmt.Errorf("%w: node kind %d", wire.ErrMalformedEncoding, kind)
	}
}

type StartSessionArg struct {
	Alg uint64
}

func StartSessionArgEncode(b []byte, o *StartSessionArg) []byte {
	return authrpc.WriteInt(b, o.Alg)
}

func StartSessionArgDecode(b []byte) (*StartSessionArg, []byte, error) {
	a1, b, err := authrpc.ReadInt(b)
	if err != nil {
		return nil, nil, err
	}
	return &StartSessionArg{Alg: a1}, b, nil
}

type StartSessionReply struct {
	Handle uint64
}

func StartSessionReplyEncode(b []byte, o *StartSessionReply) []byte {
	return authrpc.WriteInt(b, o.Handle)
}

func StartSessionReplyDecode(b []byte) (*StartSessionReply, []byte, error) {
	a1, b, err := authrpc.ReadInt(b)
	if err != nil {
		return nil, nil, err
	}
	return &StartSessionReply{Handle: a1}, b, nil
}

type ExtendArg struct {
	Handle uint64
	Node   policy.Node
}

func ExtendArgEncode(b []byte, o *ExtendArg) ([]byte, error) {
	b = authrpc.WriteInt(b, o.Handle)
	return NodeEncode(b, o.Node)
}

func ExtendArgDecode(b []byte) (*ExtendArg, []byte, error) {
	a1, b, err := authrpc.ReadInt(b)
	if err != nil {
		return nil, nil, err
	}
	a2, b, err := NodeDecode(b)
	if err != nil {
		return nil, nil, err
	}
	return &ExtendArg{Handle: a1, Node: a2}, b, nil
}

type FinalizeArg struct {
	Handle   uint64
	Branches [][]byte
}

func FinalizeArgEncode(b []byte, o *FinalizeArg) []byte {
	b = authrpc.WriteInt(b, o.Handle)
	return authrpc.WriteSlice2D(b, o.Branches)
}

func FinalizeArgDecode(b []byte) (*FinalizeArg, []byte, error) {
	a1, b, err := authrpc.ReadInt(b)
	if err != nil {
		return nil, nil, err
	}
	a2, b, err := authrpc.ReadSlice2D(b)
	if err != nil {
		return nil, nil, err
	}
	return &FinalizeArg{Handle: a1, Branches: a2}, b, nil
}

type RestartArg struct {
	Handle uint64
}

func RestartArgEncode(b []byte, o *RestartArg) []byte {
	return authrpc.WriteInt(b, o.Handle)
}

func RestartArgDecode(b []byte) (*RestartArg, []byte, error) {
	a1, b, err := authrpc.ReadInt(b)
	if err != nil {
		return nil, nil, err
	}
	return &RestartArg{Handle: a1}, b, nil
}

type GatedUnwrapArg struct {
	Handle  uint64
	Profile byte
	// Cred is the canonical wire encoding of the activation pair.
	Cred    []byte
	Wrapped []byte
	Name    []byte
}

func GatedUnwrapArgEncode(b []byte, o *GatedUnwrapArg) []byte {
	b = authrpc.WriteInt(b, o.Handle)
	b = authrpc.WriteByte(b, o.Profile)
	b = authrpc.WriteSlice1D(b, o.Cred)
	b = authrpc.WriteSlice1D(b, o.Wrapped)
	return authrpc.WriteSlice1D(b, o.Name)
}

func GatedUnwrapArgDecode(b []byte) (*GatedUnwrapArg, []byte, error) {
	a1, b, err := authrpc.ReadInt(b)
	if err != nil {
		return nil, nil, err
	}
	a2, b, err := authrpc.ReadByte(b)
	if err != nil {
		return nil, nil, err
	}
	a3, b, err := authrpc.ReadSlice1D(b)
	if err != nil {
		return nil, nil, err
	}
	a4, b, err := authrpc.ReadSlice1D(b)
	if err != nil {
		return nil, nil, err
	}
	a5, b, err := authrpc.ReadSlice1D(b)
	if err != nil {
		return nil, nil, err
	}
	return &GatedUnwrapArg{Handle: a1, Profile: a2, Cred: a3, Wrapped: a4, Name: a5}, b, nil
}

type GatedUnwrapReply struct {
	Secret []byte
}

func GatedUnwrapReplyEncode(b []byte, o *GatedUnwrapReply) []byte {
	return authrpc.WriteSlice1D(b, o.Secret)
}

func GatedUnwrapReplyDecode(b []byte) (*GatedUnwrapReply, []byte, error) {
	a1, b, err := authrpc.ReadSlice1D(b)
	if err != nil {
		return nil, nil, err
	}
	return &GatedUnwrapReply{Secret: a1}, b, nil
}
