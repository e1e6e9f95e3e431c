package server

import (
	"errors"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// FeedUpgrade admits websocket handshakes for the live feed.
func (s *Server) FeedUpgrade(c *fiber.Ctx) error {
	if s.hub == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			&models.AppError{Code: "FEED_UNAVAILABLE", Message: "Live feed is unavailable"})
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// FeedHandler streams feed events to one websocket client. The feed is
// anonymous and push-only.
// @Summary Live feed of published posts and comments
// @Tags feed
// @Router /ws/feed [get]
func (s *Server) FeedHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		client, err := s.hub.Register(conn)
		if err != nil {
			if !errors.Is(err, notifications.ErrHubClosed) {
				middleware.Logger.Warn("feed: failed to register connection", "error", err)
			}
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		go client.WritePump()
		client.ReadPump()
	})
}
