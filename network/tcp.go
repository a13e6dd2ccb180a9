package network

import (
	"bufio"
	"encoding/json"
	"net"
	"sync"
)

// maxFrameBytes bounds one newline-delimited frame; anything larger
// ends the connection.
const maxFrameBytes = 1 << 20

// TCPConn speaks the primary wire protocol: newline-delimited JSON over
// a persistent stream, one message per line, no length prefix.
type TCPConn struct {
	conn net.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewTCPConn creates a new connection wrapper
func NewTCPConn(conn net.Conn) *TCPConn {
	return &TCPConn{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}
}

// ReadPump reads line frames until the socket errors or the peer
// closes. Empty lines are skipped; malformed frames are passed through
// to the handler, which drops them silently.
func (c *TCPConn) ReadPump(h MessageHandler) {
	defer c.Close()

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 64*1024), maxFrameBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		frame := make([]byte, len(line))
		copy(frame, line)
		h.HandleMessage(c, frame)
	}
}

// WritePump writes queued messages, one per line, until the send
// queue closes or a write fails.
func (c *TCPConn) WritePump() {
	defer c.conn.Close()

	for message := range c.send {
		if _, err := c.conn.Write(append(message, '\n')); err != nil {
			return
		}
	}
}

// Send queues a message for the client. Messages sent after the
// connection closes are dropped.
func (c *TCPConn) Send(msg any) error {
	messageBytes, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	select {
	case c.send <- messageBytes:
	default:
		// Slow consumer; drop the connection rather than block the
		// simulation.
		c.conn.Close()
	}
	return nil
}

// Close closes the socket and the send queue, ending the write pump.
func (c *TCPConn) Close() error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
	return c.conn.Close()
}

// RemoteAddr reports the peer address.
func (c *TCPConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
