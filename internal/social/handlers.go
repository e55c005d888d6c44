package social

import (
	"errors"

	"backend-runcoach/internal/auth"
	"backend-runcoach/internal/db"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := auth.RequireUser(c)
		if err != nil {
			return err
		}
		var req AddFriendRequest
		if err := c.BodyParser(&req); err != nil || req.FriendID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "friend_id required")
		}
		if err := svc.AddFriend(c.UserContext(), userID, req.FriendID); err != nil {
			switch {
			case errors.Is(err, ErrSelfFriend):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			case errors.Is(err, ErrUnknownUser):
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return storageError(err)
		}
		return c.SendStatus(fiber.StatusCreated)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := auth.RequireUser(c)
		if err != nil {
			return err
		}
		if err := svc.RemoveFriend(c.UserContext(), userID, c.Params("id")); err != nil {
			return storageError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := auth.RequireUser(c)
		if err != nil {
			return err
		}
		friends, err := svc.Friends(c.UserContext(), userID)
		if err != nil {
			return storageError(err)
		}
		return c.JSON(friends)
	})
}

func storageError(err error) error {
	if errors.Is(err, db.ErrUnavailable) {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
