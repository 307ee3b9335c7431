package authority

import (
	"github.com/sanjit-bhat/credactive/authrpc"
	"github.com/sanjit-bhat/credactive/credential"
	"github.com/sanjit-bhat/credactive/object"
	"github.com/sanjit-bhat/credactive/policy"
)

// Client drives a remote authority. errors from remote operations come
// back as the same sentinels the authority raised; check with errors.Is.
type Client struct {
	c *authrpc.Client
}

func Dial(addr string) (*Client, error) {
	c, err := authrpc.Dial(addr)
	if err != nil {
		return nil, err
	}
	return &Client{c: c}, nil
}

func (c *Client) Close() error {
	return c.c.Close()
}

// Descriptor fetches and decodes the authority's public descriptor.
func (c *Client) Descriptor() (*object.PublicKeyDescriptor, error) {
	raw, err := c.c.Call(RPCDescriptor, nil)
	if err != nil {
		return nil, err
	}
	return object.DecodeDescriptor(raw)
}

func (c *Client) StartSession(alg object.Alg) (uint64, error) {
	arg := StartSessionArgEncode(nil, &StartSessionArg{Alg: uint64(alg)})
	raw, err := c.c.Call(RPCStartSession, arg)
	if err != nil {
		return 0, err
	}
	reply, _, err := StartSessionReplyDecode(raw)
	if err != nil {
		return 0, err
	}
	return reply.Handle, nil
}

func (c *Client) Extend(handle uint64, n policy.Node) error {
	arg, err := ExtendArgEncode(nil, &ExtendArg{Handle: handle, Node: n})
	if err != nil {
		return err
	}
	_, err = c.c.Call(RPCExtend, arg)
	return err
}

func (c *Client) Finalize(handle uint64, branches [][]byte) error {
	arg := FinalizeArgEncode(nil, &FinalizeArg{Handle: handle, Branches: branches})
	_, err := c.c.Call(RPCFinalize, arg)
	return err
}

func (c *Client) Restart(handle uint64) error {
	arg := RestartArgEncode(nil, &RestartArg{Handle: handle})
	_, err := c.c.Call(RPCRestart, arg)
	return err
}

// GatedUnwrap asks the authority to activate a credential under the
// asymmetric profile.
func (c *Client) GatedUnwrap(handle uint64, cred *credential.Credential, wrapped, name []byte) ([]byte, error) {
	return c.gatedUnwrap(handle, ProfileAsymmetric, cred, wrapped, name)
}

// GatedUnwrapSymmetric is [Client.GatedUnwrap] for the pre-shared-key
// profile.
func (c *Client) GatedUnwrapSymmetric(handle uint64, cred *credential.Credential, wrapped, name []byte) ([]byte, error) {
	return c.gatedUnwrap(handle, ProfileSymmetric, cred, wrapped, name)
}

func (c *Client) gatedUnwrap(handle uint64, profile byte, cred *credential.Credential, wrapped, name []byte) ([]byte, error) {
	credByt, err := cred.Encode()
	if err != nil {
		return nil, err
	}
	arg := GatedUnwrapArgEncode(nil, &GatedUnwrapArg{
		Handle:  handle,
		Profile: profile,
		Cred:    credByt,
		Wrapped: wrapped,
		Name:    name,
	})
	raw, err := c.c.Call(RPCGatedUnwrap, arg)
	if err != nil {
		return nil, err
	}
	reply, _, err := GatedUnwrapReplyDecode(raw)
	if err != nil {
		return nil, err
	}
	return reply.Secret, nil
}
