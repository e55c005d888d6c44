package stream

import (
	"context"
	"errors"

	"backend-runcoach/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Authorizer decides whether viewerID may follow runID. A *fiber.Error is
// sent as is; any other error refuses with 403.
type Authorizer func(ctx context.Context, viewerID, runID string) error

// RegisterRoutes mounts the watcher websocket behind authMiddleware and
// authorize. Watchers only read; anything they send is discarded and a read
// error ends the connection.
func RegisterRoutes(r fiber.Router, hub *Hub, authMiddleware fiber.Handler, authorize Authorizer) {
	r.Get("/ws/:runID", authMiddleware, func(c *fiber.Ctx) error {
		viewerID, err := auth.RequireUser(c)
		if err != nil {
			return err
		}
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if authorize != nil {
			if err := authorize(c.UserContext(), viewerID, c.Params("runID")); err != nil {
				var fe *fiber.Error
				if errors.As(err, &fe) {
					return fe
				}
				return fiber.NewError(fiber.StatusForbidden, err.Error())
			}
		}
		return c.Next()
	}, websocket.New(func(c *websocket.Conn) {
		client := hub.Register(c.Params("runID"))

		done := make(chan struct{})
		go func() {
			defer close(done)
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		hub.Unregister(client)
		<-done
	}))
}
