package router

import (
	"github.com/benbjohnson/clock"
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/nishant2253/proofchain/proofchain-go/internal/handler"
	"github.com/nishant2253/proofchain/proofchain-go/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Content *handler.ContentHandler
	Vote    *handler.VoteHandler
	Health  *handler.HealthHandler
}

// Options tune the middleware stack.
type Options struct {
	CORSOrigins string
	// Clock drives the rate-limit windows; nil means wall time.
	Clock clock.Clock
	// DisableRateLimits turns the per-route limiters off (tests, load runs).
	DisableRateLimits bool
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, opts Options) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestID())
	app.Use(middleware.NewRequestLogger())
	app.Use(handler.MetricsMiddleware())
	app.Use(middleware.NewCORS(opts.CORSOrigins))

	// Probes and metrics (before API group, no limits)
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", handler.MetricsHandler())

	limit := func(l middleware.Limit) fiber.Handler {
		if opts.DisableRateLimits {
			return func(c fiber.Ctx) error { return c.Next() }
		}
		return middleware.NewRateLimiter(l, opts.Clock).Handler()
	}
	read := limit(middleware.ReadLimit)
	vote := limit(middleware.VoteLimit)

	api := app.Group("/api")

	// Content routes
	api.Post("/content", limit(middleware.ContentLimit), h.Content.Create)
	api.Get("/content", read, h.Content.List)
	api.Get("/content/:id", read, h.Content.Get)
	api.Get("/content/:id/results", read, h.Content.Results)
	api.Get("/content/:id/votes", read, h.Content.Votes)
	api.Post("/content/:id/finalize", limit(middleware.FinalizeLimit), h.Content.Finalize)
	api.Post("/content/:id/claim", limit(middleware.ClaimLimit), h.Content.Claim)

	// Vote routes
	api.Post("/votes", vote, h.Vote.Submit)
	api.Post("/votes/commit", vote, h.Vote.Commit)
	api.Post("/votes/reveal", vote, h.Vote.Reveal)
}
