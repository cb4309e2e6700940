package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Collectors for the ProofChain backend. They are created at package init so
// services can record against them in tests without calling Register.
var (
	VotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofchain_votes_total",
			Help: "Total votes accepted, by kind and option.",
		},
		[]string{"kind", "option"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "proofchain_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "proofchain_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	FinalizationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofchain_finalizations_total",
			Help: "Content items finalized, by verdict.",
		},
		[]string{"verdict"},
	)

	FinalizationErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "proofchain_finalization_errors_total",
			Help: "Finalization attempts that failed.",
		},
	)

	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "proofchain_finalize_sweep_duration_seconds",
			Help:    "Duration of finalization sweeps.",
			Buckets: prometheus.DefBuckets,
		},
	)

	RewardClaims = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "proofchain_reward_claims_total",
			Help: "Successful submitter reward claims.",
		},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "proofchain_cache_hits_total",
			Help: "Total Redis cache hits.",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "proofchain_cache_misses_total",
			Help: "Total Redis cache misses.",
		},
	)

	ChainEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofchain_chain_events_total",
			Help: "Contract events processed, by event name.",
		},
		[]string{"event"},
	)
)

// Register adds all collectors to the default registry. Call once at startup.
// A nil pool skips the connection pool gauges.
func Register(pool *pgxpool.Pool) {
	prometheus.MustRegister(
		VotesTotal,
		RequestDuration,
		RequestsInFlight,
		FinalizationsTotal,
		FinalizationErrors,
		SweepDuration,
		RewardClaims,
		CacheHits,
		CacheMisses,
		ChainEvents,
	)

	if pool == nil {
		return
	}

	// DB pool gauges read live stats from pgxpool
	prometheus.MustRegister(
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "proofchain_db_connection_pool_active",
				Help: "Number of active database connections.",
			},
			func() float64 {
				return float64(pool.Stat().AcquiredConns())
			},
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "proofchain_db_connection_pool_idle",
				Help: "Number of idle database connections.",
			},
			func() float64 {
				return float64(pool.Stat().IdleConns())
			},
		),
	)
}
