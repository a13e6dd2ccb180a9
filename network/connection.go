package network

// Conn is one client connection, regardless of transport. Send is safe
// from any goroutine; messages are queued on a buffered channel and
// written by the connection's write pump. A full queue or a transport
// error closes the connection, which ends the read loop and triggers
// the session cleanup path.
type Conn interface {
	Send(msg any) error
	Close() error
	RemoteAddr() string
}

// MessageHandler interface for handling messages
type MessageHandler interface {
	HandleMessage(conn Conn, frame []byte)
}

const sendQueueSize = 256
