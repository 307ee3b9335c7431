// Package authrpc is a small request/response RPC layer over the framed
// transport. requests carry an rpc id and an argument blob; replies carry
// a one-byte status that maps the authority's sentinel errors across the
// wire and back.
package authrpc

import (
	"fmt"
	"sync"

	"github.com/sanjit-bhat/credactive/transport"
)

// Handler serves one rpc. the returned error crosses the wire as a status
// code; the payload is dropped on error.
type Handler func(arg []byte) ([]byte, error)

// Server dispatches requests to an immutable handler table.
type Server struct {
	handlers map[uint64]Handler
}

func NewServer(handlers map[uint64]Handler) *Server {
	h := make(map[uint64]Handler, len(handlers))
	for id, f := range handlers {
		h[id] = f
	}
	return &Server{handlers: h}
}

// Serve accepts conns until the listener closes. requests on one conn are
// served in order; clients hold at most one call in flight.
func (s *Server) Serve(l *transport.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn *transport.Conn) {
	for {
		req, err := conn.Receive()
		if err != nil {
			return
		}
		rpcID, arg, err := ReadInt(req)
		if err != nil {
			// not even an rpc id. drop the conn.
			conn.Close()
			return
		}
		reply := s.handle(rpcID, arg)
		if err := conn.Send(reply); err != nil {
			return
		}
	}
}

func (s *Server) handle(rpcID uint64, arg []byte) []byte {
	f, ok := s.handlers[rpcID]
	if !ok {
		return []byte{codeInternal}
	}
	payload, err := f(arg)
	if err != nil {
		return []byte{codeOf(err)}
	}
	reply := make([]byte, 0, 1+len(payload))
	reply = WriteByte(reply, codeOK)
	return append(reply, payload...)
}

// Client makes calls over one conn. it serializes calls; use one client
// per concurrent caller.
type Client struct {
	mu   sync.Mutex
	conn *transport.Conn
}

func Dial(addr string) (*Client, error) {
	conn, err := transport.Dial(addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Call sends one request and waits for its reply. a non-nil error is
// either a transport failure or the remote operation's own typed error.
func (c *Client) Call(rpcID uint64, arg []byte) ([]byte, error) {
	req := WriteInt(make([]byte, 0, 8+len(arg)), rpcID)
	req = append(req, arg...)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.Send(req); err != nil {
		return nil, err
	}
	reply, err := c.conn.Receive()
	if err != nil {
		return nil, err
	}
	status, payload, err := ReadByte(reply)
	if err != nil {
		return nil, fmt.Errorf("authrpc: empty reply")
	}
	if remoteErr := errOf(status); remoteErr != nil {
		return nil, fmt.Errorf("authrpc: remote: %w", remoteErr)
	}
	return payload, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
