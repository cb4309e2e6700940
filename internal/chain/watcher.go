package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/nishant2253/proofchain/proofchain-go/internal/metrics"
	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
	"github.com/nishant2253/proofchain/proofchain-go/internal/repository"
	"github.com/nishant2253/proofchain/proofchain-go/internal/service"
)

// DefaultBlockRange caps the span of one eth_getLogs request.
const DefaultBlockRange = 2000

// LogClient is the RPC surface the watcher polls. *ethclient.Client
// satisfies it.
type LogClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

type VoteRecorder interface {
	RecordChainVote(ctx context.Context, ev service.ChainVote) (bool, error)
}

type ContentRecorder interface {
	RecordChainContent(ctx context.Context, ev service.ChainContent) (bool, error)
}

type Finalizer interface {
	FinalizeByContractID(ctx context.Context, contractID uint64) (*service.FinalizationOutcome, error)
}

// Watcher polls the contract's event logs and mirrors them into the store.
// Handlers are idempotent, so a failed range is simply scanned again on the
// next tick.
type Watcher struct {
	client     LogClient
	contract   ethcommon.Address
	parser     *EventParser
	contents   ContentRecorder
	votes      VoteRecorder
	finalizer  Finalizer
	clock      clock.Clock
	interval   time.Duration
	blockRange uint64
	log        zerolog.Logger

	mu      sync.Mutex
	next    uint64
	started bool

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	afterPoll func(error)
}

// NewWatcher creates a watcher that starts at startBlock, or at the chain
// head when startBlock is 0.
func NewWatcher(client LogClient, contract ethcommon.Address, parser *EventParser, contents ContentRecorder, votes VoteRecorder, finalizer Finalizer, clk clock.Clock, interval time.Duration, startBlock uint64, log zerolog.Logger) *Watcher {
	if clk == nil {
		clk = clock.New()
	}
	return &Watcher{
		client:     client,
		contract:   contract,
		parser:     parser,
		contents:   contents,
		votes:      votes,
		finalizer:  finalizer,
		clock:      clk,
		interval:   interval,
		blockRange: DefaultBlockRange,
		log:        log.With().Str("component", "chain-watcher").Logger(),
		next:       startBlock,
		started:    startBlock > 0,
		stopCh:     make(chan struct{}),
	}
}

// NextBlock returns the first block not yet scanned.
func (w *Watcher) NextBlock() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.next
}

// Start polls every interval until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	w.log.Info().
		Str("contract", w.contract.Hex()).
		Dur("interval", w.interval).
		Int("topics", len(w.parser.Topics())).
		Msg("starting")

	ticker := w.clock.Ticker(w.interval)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				err := w.Poll(ctx)
				if err != nil {
					w.log.Error().Err(err).Msg("poll failed")
				}
				if w.afterPoll != nil {
					w.afterPoll(err)
				}
			case <-ctx.Done():
				w.log.Info().Msg("stopping (context cancelled)")
				return
			case <-w.stopCh:
				w.log.Info().Msg("stopping (stop signal)")
				return
			}
		}
	}()
}

func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Poll scans every block from the cursor up to the current head.
func (w *Watcher) Poll(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	head, err := w.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}
	if !w.started {
		w.next = head
		w.started = true
	}

	for w.next <= head {
		to := w.next + w.blockRange - 1
		if to > head {
			to = head
		}
		if err := w.processRange(ctx, w.next, to); err != nil {
			return fmt.Errorf("blocks %d-%d: %w", w.next, to, err)
		}
		w.next = to + 1
	}
	return nil
}

func (w *Watcher) processRange(ctx context.Context, from, to uint64) error {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []ethcommon.Address{w.contract},
		Topics:    [][]ethcommon.Hash{w.parser.Topics()},
	}
	logs, err := w.client.FilterLogs(ctx, query)
	if err != nil {
		return err
	}
	if len(logs) > 0 {
		w.log.Debug().
			Uint64("from_block", from).
			Uint64("to_block", to).
			Int("logs", len(logs)).
			Msg("found contract events")
	}

	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		ev, err := w.parser.Parse(lg)
		if err != nil {
			// a malformed log can never succeed; skip it
			w.log.Warn().Err(err).Str("tx", lg.TxHash.Hex()).Uint("index", lg.Index).Msg("unparseable log")
			continue
		}
		if err := w.handle(ctx, ev); err != nil {
			return fmt.Errorf("%s in %s: %w", ev.Name, ev.TxHash, err)
		}
		metrics.ChainEvents.WithLabelValues(ev.Name).Inc()
	}
	return nil
}

func (w *Watcher) handle(ctx context.Context, ev *Event) error {
	switch {
	case ev.Content != nil:
		_, err := w.contents.RecordChainContent(ctx, *ev.Content)
		return err

	case ev.Vote != nil:
		_, err := w.votes.RecordChainVote(ctx, *ev.Vote)
		if errors.Is(err, service.ErrInvalidVote) || errors.Is(err, service.ErrUnknownTokenType) {
			w.log.Warn().Err(err).Str("tx", ev.TxHash).Msg("chain vote rejected")
			return nil
		}
		return err

	case ev.Finalized != nil:
		out, err := w.finalizer.FinalizeByContractID(ctx, ev.Finalized.ContractID)
		if errors.Is(err, repository.ErrNotFound) {
			w.log.Warn().Uint64("contract_id", ev.Finalized.ContractID).Msg("finalization for unknown content")
			return nil
		}
		if err != nil {
			return err
		}
		if out.State == model.StateOpen {
			w.log.Warn().
				Str("content_id", out.Content.ID).
				Msg("contract finalized before the local window closed")
		}
		return nil
	}
	return nil
}
