package tracking

import (
	"context"
	"errors"

	"backend-runcoach/internal/auth"
	"backend-runcoach/internal/plan"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the run actions. locationLimit guards the location
// ingest route and may be nil.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware, locationLimit fiber.Handler) {
	if locationLimit == nil {
		locationLimit = func(c *fiber.Ctx) error { return c.Next() }
	}

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := auth.RequireUser(c)
		if err != nil {
			return err
		}
		var req CreateRunRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		run, err := svc.Create(c.UserContext(), userID, req)
		if err != nil {
			return runError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(run)
	})

	r.Get("/current", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := auth.RequireUser(c)
		if err != nil {
			return err
		}
		run, err := svc.Current(userID)
		if err != nil {
			return runError(err)
		}
		return c.JSON(run)
	})

	r.Delete("/current", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := auth.RequireUser(c)
		if err != nil {
			return err
		}
		if err := svc.Discard(c.UserContext(), userID); err != nil {
			return runError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/start", authMiddleware, action(svc.Start))
	r.Post("/pause", authMiddleware, action(svc.Pause))
	r.Post("/resume", authMiddleware, action(svc.Resume))

	r.Post("/stop", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := auth.RequireUser(c)
		if err != nil {
			return err
		}
		run, err := svc.Stop(c.UserContext(), userID)
		if err != nil {
			return runError(err)
		}
		return c.JSON(run)
	})

	r.Post("/locations", authMiddleware, locationLimit, func(c *fiber.Ctx) error {
		userID, err := auth.RequireUser(c)
		if err != nil {
			return err
		}
		var req LocationRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		run, err := svc.AddLocation(c.UserContext(), userID, req)
		if err != nil {
			return runError(err)
		}
		return c.Status(fiber.StatusAccepted).JSON(run)
	})

	r.Get("/history", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := auth.RequireUser(c)
		if err != nil {
			return err
		}
		runs, err := svc.History(c.UserContext(), userID, c.QueryInt("limit", defaultPageSize))
		if err != nil {
			return runError(err)
		}
		return c.JSON(runs)
	})

	r.Get("/feed", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := auth.RequireUser(c)
		if err != nil {
			return err
		}
		feed, err := svc.Feed(c.UserContext(), userID, c.QueryInt("limit", defaultPageSize))
		if err != nil {
			return runError(err)
		}
		return c.JSON(feed)
	})
}

func action(fn func(ctx context.Context, userID string) (LiveRun, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.RequireUser(c)
		if err != nil {
			return err
		}
		run, err := fn(c.UserContext(), userID)
		if err != nil {
			return runError(err)
		}
		return c.JSON(run)
	}
}

func runError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidRun), errors.Is(err, ErrInvalidLocation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoActiveRun), errors.Is(err, plan.ErrPlanNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrTransitionRejected), errors.Is(err, ErrRunInProgress), errors.Is(err, ErrNotRunning):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrWatchForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrStorageUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
