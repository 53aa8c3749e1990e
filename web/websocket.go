// ABOUTME: WebSocket endpoint that registers clients for event broadcast and answers control messages.
// ABOUTME: Replies go to the asking client only; execution events arrive through the registry's broadcast.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/2389-research/featurecrew/hub"
)

// clientMessage is a control message sent by a browser client.
type clientMessage struct {
	Type      string `json:"type"`
	Timestamp any    `json:"timestamp"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("component=web action=ws_upgrade_failed err=%v", err)
		return
	}

	conn := hub.NewWSConn(ws)
	s.hub.Register(conn)
	defer s.hub.Unregister(conn)

	ctx := context.WithoutCancel(r.Context())
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.handleClientMessage(ctx, conn, data)
	}
}

func (s *Server) handleClientMessage(ctx context.Context, conn hub.Conn, data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.reply(ctx, conn, errorReply("Invalid JSON format"))
		return
	}

	switch msg.Type {
	case "ping":
		s.reply(ctx, conn, map[string]any{"type": "pong", "timestamp": msg.Timestamp})
	case "get_status":
		s.reply(ctx, conn, map[string]any{
			"type":        "status",
			"connections": s.hub.Count(),
			"timestamp":   msg.Timestamp,
		})
	default:
		s.reply(ctx, conn, errorReply(fmt.Sprintf("Unknown message type: %s", msg.Type)))
	}
}

func (s *Server) reply(ctx context.Context, conn hub.Conn, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("component=web action=ws_marshal_failed err=%v", err)
		return
	}
	_ = s.hub.SendTo(ctx, conn, payload)
}

func errorReply(message string) map[string]any {
	return map[string]any{
		"type":      "error",
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
}
