package websocket

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/satriahrh/persona-chat/utils/log"
	"go.uber.org/zap"
)

// ReplyFunc produces the reply text for one chat message. It never fails;
// errors are already collapsed into a fallback reply.
type ReplyFunc func(ctx context.Context, message string) string

type inboundFrame struct {
	Message *string `json:"message"`
}

type outboundFrame struct {
	Reply string `json:"reply,omitempty"`
	Error string `json:"error,omitempty"`
}

type Server struct {
	upgrader websocket.Upgrader
	reply    ReplyFunc
	hub      *Hub
	base     context.Context
}

// NewServer creates a websocket chat server. Client contexts derive from
// base, so cancelling it ends every session.
func NewServer(base context.Context, reply ReplyFunc) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		reply: reply,
		hub:   NewHub(),
		base:  base,
	}
}

func (s *Server) RunWebsocketHub() {
	s.hub.Run(s.base)
}

func (s *Server) GetHub() *Hub {
	return s.hub
}

// handleMessage decodes a chat frame and encodes the reply frame.
func (s *Server) handleMessage(ctx context.Context, raw []byte) []byte {
	var in inboundFrame
	var out outboundFrame
	switch err := json.Unmarshal(raw, &in); {
	case err != nil:
		out.Error = "invalid JSON frame"
	case in.Message == nil:
		out.Error = "missing \"message\" field"
	default:
		out.Reply = s.reply(ctx, *in.Message)
	}

	b, err := json.Marshal(out)
	if err != nil {
		log.WithCtx(ctx).Error("Failed to marshal websocket frame", zap.Error(err))
		return []byte(`{"error":"internal error"}`)
	}
	return b
}
