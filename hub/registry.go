// ABOUTME: Connection registry that fans serialized events out to every live WebSocket client.
// ABOUTME: Broadcast iterates a snapshot outside the lock and prunes connections whose writes fail.
package hub

import (
	"context"
	"log"
	"sync"
)

// Conn is one live client connection.
type Conn interface {
	ID() string
	WriteMessage(ctx context.Context, msg []byte) error
	Close() error
}

// Registry tracks live connections. It is safe for concurrent use and
// satisfies progress.Broadcaster.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Register adds conn to the set.
func (r *Registry) Register(conn Conn) {
	r.mu.Lock()
	r.conns[conn.ID()] = conn
	n := len(r.conns)
	r.mu.Unlock()
	log.Printf("component=hub action=register conn=%s connections=%d", conn.ID(), n)
}

// Unregister removes conn and closes it. Removing a connection that is not
// registered does nothing, so the close happens at most once.
func (r *Registry) Unregister(conn Conn) {
	r.mu.Lock()
	_, ok := r.conns[conn.ID()]
	delete(r.conns, conn.ID())
	n := len(r.conns)
	r.mu.Unlock()

	if !ok {
		return
	}
	if err := conn.Close(); err != nil {
		log.Printf("component=hub action=close_failed conn=%s err=%v", conn.ID(), err)
	}
	log.Printf("component=hub action=unregister conn=%s connections=%d", conn.ID(), n)
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Broadcast sends msg to every registered connection. A failed write never
// stops delivery to the others; failed connections are unregistered once the
// pass is over.
func (r *Registry) Broadcast(ctx context.Context, msg []byte) {
	r.mu.RLock()
	if len(r.conns) == 0 {
		r.mu.RUnlock()
		return
	}
	snapshot := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		snapshot = append(snapshot, c)
	}
	r.mu.RUnlock()

	var failed []Conn
	for _, c := range snapshot {
		if err := c.WriteMessage(ctx, msg); err != nil {
			log.Printf("component=hub action=send_failed conn=%s err=%v", c.ID(), err)
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		r.Unregister(c)
	}
}

// SendTo delivers msg to a single connection, unregistering it on failure.
func (r *Registry) SendTo(ctx context.Context, conn Conn, msg []byte) error {
	if err := conn.WriteMessage(ctx, msg); err != nil {
		log.Printf("component=hub action=send_failed conn=%s err=%v", conn.ID(), err)
		r.Unregister(conn)
		return err
	}
	return nil
}

// CloseAll unregisters and closes every connection. Used during shutdown.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	snapshot := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		snapshot = append(snapshot, c)
	}
	r.mu.RUnlock()

	for _, c := range snapshot {
		r.Unregister(c)
	}
}
