package server

import (
	"context"

	"backend-runcoach/internal/auth"
	"backend-runcoach/internal/config"
	"backend-runcoach/internal/db"
	"backend-runcoach/internal/logging"
	"backend-runcoach/internal/middleware"
	"backend-runcoach/internal/plan"
	"backend-runcoach/internal/session"
	"backend-runcoach/internal/social"
	"backend-runcoach/internal/stream"
	"backend-runcoach/internal/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     db.Querier
	Redis  *redis.Client
	Stream *stream.Hub
	Runs   *tracking.Registry
}

// NewServer wires every route. ctx carries the logger and bounds the live
// stream subscription. q and redisClient may be nil; runs are then neither
// persisted nor fanned out across instances.
func NewServer(ctx context.Context, cfg config.Config, q db.Querier, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(logging.Middleware(ctx))

	hub := stream.NewHub(ctx, redisClient)
	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     q,
		Redis:  redisClient,
		Stream: hub,
		Runs:   tracking.NewRegistry(ctx, session.SystemClock{}, cfg.TickInterval, hub),
	}

	registerRoutes(s)
	return s
}

// Close stops every live run and the stream subscription.
func (s *Server) Close() error {
	s.Runs.CloseAll()
	return s.Stream.Close()
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "live_runs": s.Runs.Len()})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	locationLimit := middleware.NewRateLimiter(s.Cfg.LocationRate, s.Cfg.LocationBurst)

	s.Runs.OnRelease(locationLimit.Forget)

	plans := plan.NewService(s.DB)
	friends := social.NewService(s.DB)
	var friendCheck tracking.FriendChecker
	if s.DB != nil {
		friendCheck = friends
	}
	runs := tracking.NewService(s.DB, s.Runs, plans, nil)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	tracking.RegisterRoutes(s.App.Group("/runs"), runs, jwtMiddleware, locationLimit.Handler(auth.UserID))
	plan.RegisterRoutes(s.App.Group("/plans"), plans, jwtMiddleware)
	social.RegisterRoutes(s.App.Group("/friends"), friends, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, jwtMiddleware, tracking.WatchAuthorizer(s.Runs, friendCheck))
}
