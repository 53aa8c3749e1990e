// ABOUTME: Adapter that lets a gorilla/websocket connection participate in the registry.
// ABOUTME: Serializes writers and bounds every write with a deadline.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// DefaultWriteTimeout bounds a single frame write when the context has no deadline.
const DefaultWriteTimeout = 10 * time.Second

// WSConn wraps a gorilla connection. gorilla permits one concurrent writer,
// so writes are guarded by a mutex; reads remain the caller's responsibility.
type WSConn struct {
	id           string
	ws           *websocket.Conn
	writeMu      sync.Mutex
	writeTimeout time.Duration
	closeOnce    sync.Once
	closeErr     error
}

// NewWSConn wraps ws with a fresh uuid.
func NewWSConn(ws *websocket.Conn) *WSConn {
	return &WSConn{
		id:           uuid.New().String(),
		ws:           ws,
		writeTimeout: DefaultWriteTimeout,
	}
}

// ID returns the connection's uuid.
func (c *WSConn) ID() string { return c.id }

// WriteMessage writes msg as a single text frame.
func (c *WSConn) WriteMessage(ctx context.Context, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, msg)
}

// ReadMessage reads the next frame from the client.
func (c *WSConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

// Close sends a close frame and closes the underlying connection once.
func (c *WSConn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
