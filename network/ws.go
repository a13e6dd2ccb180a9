package network

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// WSConn wraps a WebSocket connection. Each text frame carries exactly
// one message, mirroring one line of the TCP transport.
type WSConn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewWSConn creates a new connection wrapper
func NewWSConn(ws *websocket.Conn) *WSConn {
	return &WSConn{
		ws:   ws,
		send: make(chan []byte, sendQueueSize),
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *WSConn) ReadPump(h MessageHandler) {
	defer c.Close()

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Error reading message: %v", err)
			}
			break
		}
		h.HandleMessage(c, message)
	}
}

// WritePump writes queued messages to the WebSocket connection
func (c *WSConn) WritePump() {
	defer c.ws.Close()

	for message := range c.send {
		w, err := c.ws.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		if _, err := w.Write(message); err != nil {
			return
		}
		if err := w.Close(); err != nil {
			return
		}
	}
	c.ws.WriteMessage(websocket.CloseMessage, []byte{})
}

// Send queues a message for the client. Messages sent after the
// connection closes are dropped.
func (c *WSConn) Send(msg any) error {
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
		c.ws.Close()
	}
	return nil
}

// Close closes the socket and the send queue, ending the write pump.
func (c *WSConn) Close() error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
	return c.ws.Close()
}

// RemoteAddr reports the peer address.
func (c *WSConn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}
