package authority

import (
	"github.com/sanjit-bhat/credactive/authrpc"
	"github.com/sanjit-bhat/credactive/credential"
	"github.com/sanjit-bhat/credactive/object"
)

const (
	RPCDescriptor uint64 = iota
	RPCStartSession
	RPCExtend
	RPCFinalize
	RPCRestart
	RPCGatedUnwrap
)

// NewRPCServer rets an RPC server exposing the authority's surface.
func NewRPCServer(a *Authority) *authrpc.Server {
	h := make(map[uint64]authrpc.Handler)
	h[RPCDescriptor] = func(arg []byte) ([]byte, error) {
		return a.Descriptor()
	}
	h[RPCStartSession] = func(arg []byte) ([]byte, error) {
		argObj, _, err := StartSessionArgDecode(arg)
		if err != nil {
			return nil, err
		}
		handle, err := a.StartSession(object.Alg(argObj.Alg))
		if err != nil {
			return nil, err
		}
		return StartSessionReplyEncode(nil, &StartSessionReply{Handle: handle}), nil
	}
	h[RPCExtend] = func(arg []byte) ([]byte, error) {
		argObj, _, err := ExtendArgDecode(arg)
		if err != nil {
			return nil, err
		}
		return nil, a.Extend(argObj.Handle, argObj.Node)
	}
	h[RPCFinalize] = func(arg []byte) ([]byte, error) {
		argObj, _, err := FinalizeArgDecode(arg)
		if err != nil {
			return nil, err
		}
		return nil, a.Finalize(argObj.Handle, argObj.Branches)
	}
	h[RPCRestart] = func(arg []byte) ([]byte, error) {
		argObj, _, err := RestartArgDecode(arg)
		if err != nil {
			return nil, err
		}
		return nil, a.Restart(argObj.Handle)
	}
	h[RPCGatedUnwrap] = func(arg []byte) ([]byte, error) {
		argObj, _, err := GatedUnwrapArgDecode(arg)
		if err != nil {
			return nil, err
		}
		cred, err := credential.Decode(argObj.Cred)
		if err != nil {
			return nil, err
		}
		secret, err := a.GatedUnwrap(argObj.Handle, argObj.Profile, cred, argObj.Wrapped, argObj.Name)
		if err != nil {
			return nil, err
		}
		return GatedUnwrapReplyEncode(nil, &GatedUnwrapReply{Secret: secret}), nil
	}
	return authrpc.NewServer(h)
}
