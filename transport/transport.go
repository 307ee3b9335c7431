// Package transport moves length-framed byte blobs over TCP. it carries
// encoded descriptors, activation pairs, and wrapped secrets between the
// party defining a secret and the key-holding authority; reliability and
// ordering are its concern, not the protocol core's.
package transport

import (
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/tchajed/marshal"
)

// maxFrame bounds a frame so a bad peer cannot make us allocate
// arbitrarily much.
const maxFrame = 1 << 24

// Conn is a framed connection. sends and receives each take their own
// lock, so one goroutine may send while another receives.
type Conn struct {
	c      net.Conn
	sendMu sync.Mutex
	recvMu sync.Mutex
}

func newConn(c net.Conn) *Conn {
	return &Conn{c: c}
}

// Dial connects to an authority at host:port.
func Dial(addr string) (*Conn, error) {
	c, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	return newConn(c), nil
}

// Send writes one frame: an 8-byte length header, then the payload.
// on error the conn is closed; a half-written frame is unrecoverable.
func (c *Conn) Send(data []byte) error {
	if len(data) > maxFrame {
		return fmt.Errorf("transport: frame of %d bytes exceeds limit", len(data))
	}
	e := marshal.NewEnc(8 + uint64(len(data)))
	e.PutInt(uint64(len(data)))
	e.PutBytes(data)
	msg := e.Finish()

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if _, err := c.c.Write(msg); err != nil {
		c.c.Close()
		return fmt.Errorf("transport: send: %w", err)
	}
	return nil
}

// Receive reads one frame. on error the conn is closed; we have lost
// track of frame boundaries.
func (c *Conn) Receive() ([]byte, error) {
	c.recvMu.Lock()
	defer c.recvMu.Unlock()

	header := make([]byte, 8)
	if _, err := io.ReadFull(c.c, header); err != nil {
		c.c.Close()
		return nil, fmt.Errorf("transport: receive header: %w", err)
	}
	d := marshal.NewDec(header)
	length := d.GetInt()
	if length > maxFrame {
		c.c.Close()
		return nil, fmt.Errorf("transport: peer announced %d byte frame", length)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(c.c, data); err != nil {
		c.c.Close()
		return nil, fmt.Errorf("transport: receive body: %w", err)
	}
	return data, nil
}

// Close closes the underlying conn.
func (c *Conn) Close() error {
	return c.c.Close()
}

// Listener accepts framed connections.
type Listener struct {
	l net.Listener
}

func Listen(addr string) (*Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	return &Listener{l: l}, nil
}

// Addr rets the bound address, useful when listening on port 0.
func (l *Listener) Addr() string {
	return l.l.Addr().String()
}

func (l *Listener) Accept() (*Conn, error) {
	c, err := l.l.Accept()
	if err != nil {
		return nil, fmt.Errorf("transport: accept: %w", err)
	}
	return newConn(c), nil
}

func (l *Listener) Close() error {
	return l.l.Close()
}
