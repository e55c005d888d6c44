package plan

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
		var req Plan
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		p, err := svc.CreatePlan(c.UserContext(), userID, req)
		if err != nil {
			return planError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := auth.RequireUser(c)
		if err != nil {
			return err
		}
		plans, err := svc.ListPlans(c.UserContext(), userID)
		if err != nil {
			return planError(err)
		}
		return c.JSON(plans)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := auth.RequireUser(c)
		if err != nil {
			return err
		}
		p, err := svc.GetPlan(c.UserContext(), userID, c.Params("id"))
		if err != nil {
			return planError(err)
		}
		return c.JSON(p)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := auth.RequireUser(c)
		if err != nil {
			return err
		}
		if err := svc.DeletePlan(c.UserContext(), userID, c.Params("id")); err != nil {
			return planError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func planError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidPlan):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrPlanNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, db.ErrUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
