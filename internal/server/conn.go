package server

import (
	"net"

	"ircchat/internal/protocol"
)

// Conn is one client transport. A frame carries exactly one record: the TCP
// implementation delimits frames with the protocol terminator, while the
// WebSocket gateway relies on message boundaries.
type Conn interface {
	ReadFrame() (protocol.Message, error)
	WriteFrame(protocol.Message) error
	Close() error
	RemoteAddr() net.Addr
}

type tcpConn struct {
	conn net.Conn
	dec  *protocol.Decoder
}

func newTCPConn(c net.Conn) *tcpConn {
	return &tcpConn{conn: c, dec: protocol.NewDecoder(c)}
}

func (c *tcpConn) ReadFrame() (protocol.Message, error) {
	return c.dec.Next()
}

func (c *tcpConn) WriteFrame(m protocol.Message) error {
	data, err := protocol.Marshal(m)
	if err != nil {
		return err
	}
	_, err = c.conn.Write(data)
	return err
}

func (c *tcpConn) Close() error {
	return c.conn.Close()
}

func (c *tcpConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
