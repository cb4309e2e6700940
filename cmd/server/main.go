package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/nishant2253/proofchain/proofchain-go/internal/chain"
	"github.com/nishant2253/proofchain/proofchain-go/internal/config"
	"github.com/nishant2253/proofchain/proofchain-go/internal/db"
	"github.com/nishant2253/proofchain/proofchain-go/internal/handler"
	"github.com/nishant2253/proofchain/proofchain-go/internal/metrics"
	"github.com/nishant2253/proofchain/proofchain-go/internal/middleware"
	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
	"github.com/nishant2253/proofchain/proofchain-go/internal/repository"
	"github.com/nishant2253/proofchain/proofchain-go/internal/router"
	"github.com/nishant2253/proofchain/proofchain-go/internal/service"
)

// tokenTable is a price source that also serves the token reference data.
type tokenTable interface {
	service.PriceSource
	service.TokenCatalog
}

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()
	middleware.InitLogger(cfg.LogLevel, "proofchain-api", cfg.IsDevelopment())
	log := middleware.Logger

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.New()

	// Storage
	var (
		pool     *pgxpool.Pool
		contents service.ContentStore
		votes    service.VoteStore
		tokens   tokenTable
	)
	switch cfg.Store {
	case config.StorePostgres:
		var err error
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		if err := db.CreateSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to create schema")
		}
		if err := db.SeedTokens(ctx, pool, model.DefaultTokens()); err != nil {
			log.Fatal().Err(err).Msg("failed to seed tokens")
		}
		contents = repository.NewContentRepo(pool)
		votes = repository.NewVoteRepo(pool)
		tokens = repository.NewTokenRepo(pool)
	default:
		log.Warn().Msg("using in-memory store; data is lost on restart")
		store := repository.NewMemoryStore()
		contents, votes = store, store
		tokens = service.NewStaticPriceSource(model.DefaultTokens())
	}
	if cfg.PriceSource == config.PriceSourceStatic {
		tokens = service.NewStaticPriceSource(model.DefaultTokens())
	}

	// Chain
	contractABI, err := chain.ParseABI()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse contract ABI")
	}
	contract := ethcommon.HexToAddress(cfg.ContractAddress)

	var eth *ethclient.Client
	if cfg.ChainEnabled() {
		eth, err = ethclient.DialContext(ctx, cfg.ChainRPCURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to dial chain RPC")
		}
		defer eth.Close()
	}

	var prices service.PriceSource = tokens
	if cfg.PriceSource == config.PriceSourceOracle {
		prices = chain.NewOraclePriceSource(eth, contract, contractABI, tokens, clk, chain.DefaultOracleTTL)
	}

	// Metrics and cache
	metrics.Register(pool)

	cache := service.NewCacheService(cfg.RedisURL, log)
	defer cache.Close()
	// results cached by a previous build may carry a stale shape
	if n, err := cache.ClearPattern(ctx, "results:*"); err != nil {
		log.Warn().Err(err).Msg("failed to clear results cache")
	} else if n > 0 {
		log.Info().Int("keys", n).Msg("cleared results cache")
	}

	// Services
	policy := service.NewWindowPolicy(clk)
	converter := service.NewPriceConverter(prices)
	aggregator := service.NewAggregator(converter, cfg.ConsensusThresholdPercent)
	finalizer := service.NewFinalizeService(contents, votes, aggregator, policy, cache, cfg.FinalizeBatchSize, log)
	rewards := service.NewRewardService(contents, policy, log)
	contentSvc := service.NewContentService(contents, policy, rewards, cfg.VotingDuration, log)
	voteSvc := service.NewVoteService(contents, votes, tokens, converter, policy, log)
	results := service.NewResultsService(finalizer, cache, log)

	// Background workers
	worker := service.NewFinalizeWorker(finalizer, clk, cfg.FinalizeStartDelay, cfg.FinalizeInterval, log)
	worker.Start(ctx)
	defer worker.Stop()

	if eth != nil {
		watcher := chain.NewWatcher(eth, contract, chain.NewEventParser(contractABI),
			contentSvc, voteSvc, finalizer, clk, cfg.ChainPollInterval, cfg.ChainStartBlock, log)
		watcher.Start(ctx)
		defer watcher.Stop()
	}

	// HTTP
	app := fiber.New(fiber.Config{
		AppName:      "ProofChain API",
		ServerHeader: "ProofChain",
	})
	router.Setup(app, &router.Handlers{
		Content: handler.NewContentHandler(contentSvc, results, finalizer, rewards, voteSvc),
		Vote:    handler.NewVoteHandler(voteSvc),
		Health:  handler.NewHealthHandler(healthProbes(pool, cache, eth)...),
	}, router.Options{CORSOrigins: cfg.CORSOrigins, Clock: clk})

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Environment).
			Str("store", cfg.Store).
			Str("prices", cfg.PriceSource).
			Bool("chain", cfg.ChainEnabled()).
			Msg("ProofChain backend starting")
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("server stopped")
		}
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func healthProbes(pool *pgxpool.Pool, cache *service.CacheService, eth *ethclient.Client) []handler.Probe {
	probes := []handler.Probe{handler.PostgresProbe(pool), handler.RedisProbe(cache.Client())}
	if eth != nil {
		probes = append(probes, handler.ChainProbe(eth))
	}
	return probes
}
