package websocket

import (
	"github.com/labstack/echo/v4"
	"github.com/satriahrh/persona-chat/utils/log"
)

// Handler upgrades GET /ws and serves chat frames until the client leaves.
func (s *Server) Handler(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	ctx := log.ContextWithRequestID(s.base, c.Response().Header().Get(echo.HeaderXRequestID))
	client := NewClient(ctx, conn, s.handleMessage)
	s.hub.Register(client)
	defer s.hub.Unregister(client)

	client.Run()

	// Wait for the client context to be done (connection closed)
	<-client.Context().Done()

	return nil
}
