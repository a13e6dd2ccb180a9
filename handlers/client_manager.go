package handlers

import (
	"encoding/json"
	"log"
	"runtime"
	"sync"

	"github.com/remeh/sizedwaitgroup"

	"embervale/server/network"
)

// ClientManager tracks in-world connections by session id and fans
// messages out to them. It implements services.Broadcaster.
type ClientManager struct {
	mu       sync.RWMutex
	sessions map[int]network.Conn
}

func NewClientManager() *ClientManager {
	return &ClientManager{sessions: make(map[int]network.Conn)}
}

// Register binds a session id to its connection for fan-out.
func (m *ClientManager) Register(pid int, conn network.Conn) {
	m.mu.Lock()
	m.sessions[pid] = conn
	m.mu.Unlock()
}

// Unregister drops a session from fan-out.
func (m *ClientManager) Unregister(pid int) {
	m.mu.Lock()
	delete(m.sessions, pid)
	m.mu.Unlock()
}

// Count reports the number of registered in-world sessions.
func (m *ClientManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// BroadcastAll serializes the message once and queues it on every
// registered connection. A connection that fails to accept it is
// closed; its read loop then runs the normal disconnect path.
func (m *ClientManager) BroadcastAll(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("broadcast marshal: %v", err)
		return
	}
	raw := json.RawMessage(data)

	m.mu.RLock()
	conns := make([]network.Conn, 0, len(m.sessions))
	for _, c := range m.sessions {
		conns = append(conns, c)
	}
	m.mu.RUnlock()

	swg := sizedwaitgroup.New(runtime.NumCPU())
	for _, c := range conns {
		swg.Add()
		go func(c network.Conn) {
			defer swg.Done()
			if err := c.Send(raw); err != nil {
				c.Close()
			}
		}(c)
	}
	swg.Wait()
}

// SendTo queues a message for one session, if it is still registered.
func (m *ClientManager) SendTo(pid int, msg any) {
	m.mu.RLock()
	c := m.sessions[pid]
	m.mu.RUnlock()
	if c == nil {
		return
	}
	if err := c.Send(msg); err != nil {
		c.Close()
	}
}
