package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nishant2253/proofchain/proofchain-go/internal/middleware"
)

// Version is reported by the readiness probe.
const Version = "1.0.0"

const probeTimeout = 3 * time.Second

// Probe is one readiness dependency. A nil Ping marks it disabled, which
// never degrades readiness.
type Probe struct {
	Name string
	Ping func(ctx context.Context) error
}

// PostgresProbe pings the pool; a nil pool means the in-memory store.
func PostgresProbe(pool *pgxpool.Pool) Probe {
	p := Probe{Name: "database"}
	if pool != nil {
		p.Ping = pool.Ping
	}
	return p
}

// RedisProbe pings the results cache.
func RedisProbe(rdb *redis.Client) Probe {
	p := Probe{Name: "redis"}
	if rdb != nil {
		p.Ping = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return p
}

// BlockNumberer is the slice of an RPC client the chain probe needs.
type BlockNumberer interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// ChainProbe asks the RPC node for its head block.
func ChainProbe(rpc BlockNumberer) Probe {
	p := Probe{Name: "chain"}
	if rpc != nil {
		p.Ping = func(ctx context.Context) error {
			_, err := rpc.BlockNumber(ctx)
			return err
		}
	}
	return p
}

type HealthHandler struct {
	probes  []Probe
	startAt time.Time
}

func NewHealthHandler(probes ...Probe) *HealthHandler {
	return &HealthHandler{probes: probes, startAt: time.Now()}
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /health/ready. Any probe that is down answers 503.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), probeTimeout)
	defer cancel()

	overall := "healthy"
	checks := make(fiber.Map, len(h.probes))
	for _, p := range h.probes {
		res := runProbe(ctx, p)
		if res["status"] == "down" {
			overall = "degraded"
		}
		checks[p.Name] = res
	}

	status := fiber.StatusOK
	if overall != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"status":         overall,
		"checks":         checks,
		"uptime_seconds": int(time.Since(h.startAt).Seconds()),
		"version":        Version,
	})
}

func runProbe(ctx context.Context, p Probe) fiber.Map {
	if p.Ping == nil {
		return fiber.Map{"status": "disabled"}
	}
	start := time.Now()
	err := p.Ping(ctx)
	res := fiber.Map{"status": "up", "latency_ms": time.Since(start).Milliseconds()}
	if err != nil {
		res["status"] = "down"
		res["error"] = "connection failed"
		middleware.Logger.Warn().Err(err).Str("probe", p.Name).Msg("readiness probe failed")
	}
	return res
}
