package network

import (
	"io"
	"net"
	"testing"
	"time"
)

type nopHandler struct{}

func (nopHandler) HandleMessage(conn Conn, frame []byte) {}

func TestTCPConnCloseEndsWritePump(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	c := NewTCPConn(server)

	done := make(chan struct{})
	go func() {
		c.WritePump()
		close(done)
	}()
	go io.Copy(io.Discard, client)

	if err := c.Send(map[string]any{"type": "ping"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	c.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("write pump still running after close")
	}

	// sends after close are dropped silently
	if err := c.Send(map[string]any{"type": "ping"}); err != nil {
		t.Fatalf("send after close: %v", err)
	}
	// a second close must not panic on the closed send queue
	c.Close()
}

func TestTCPConnPeerCloseEndsBothPumps(t *testing.T) {
	client, server := net.Pipe()
	c := NewTCPConn(server)

	writeDone := make(chan struct{})
	go func() {
		c.WritePump()
		close(writeDone)
	}()
	readDone := make(chan struct{})
	go func() {
		c.ReadPump(nopHandler{})
		close(readDone)
	}()

	client.Close()

	select {
	case <-readDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("read pump still running after peer close")
	}
	select {
	case <-writeDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("write pump still running after read pump exit")
	}
}
