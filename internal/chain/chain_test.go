package chain

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
	"github.com/nishant2253/proofchain/proofchain-go/internal/repository"
	"github.com/nishant2253/proofchain/proofchain-go/internal/service"
)

var (
	epoch        = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	contractAddr = ethcommon.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	submitter    = ethcommon.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	voter        = ethcommon.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

func mustABI(t *testing.T) abi.ABI {
	t.Helper()
	a, err := ParseABI()
	require.NoError(t, err)
	return a
}

// packLog builds a contract log the way the node would emit it.
func packLog(t *testing.T, a abi.ABI, name string, block uint64, indexed []ethcommon.Hash, args ...interface{}) types.Log {
	t.Helper()
	ev := a.Events[name]
	data, err := ev.Inputs.NonIndexed().Pack(args...)
	require.NoError(t, err)
	return types.Log{
		Address:     contractAddr,
		Topics:      append([]ethcommon.Hash{ev.ID}, indexed...),
		Data:        data,
		BlockNumber: block,
		TxHash:      ethcommon.BigToHash(new(big.Int).SetUint64(block*1000 + uint64(len(data)))),
	}
}

func idTopic(id uint64) ethcommon.Hash {
	return ethcommon.BigToHash(new(big.Int).SetUint64(id))
}

func addrTopic(a ethcommon.Address) ethcommon.Hash {
	return ethcommon.BytesToHash(a.Bytes())
}

func contentLog(t *testing.T, a abi.ABI, block, id uint64, end time.Time) types.Log {
	return packLog(t, a, EventContentSubmitted, block,
		[]ethcommon.Hash{idTopic(id), addrTopic(submitter)},
		"bafybeigdyrzt", big.NewInt(end.Unix()))
}

func voteLog(t *testing.T, a abi.ABI, block, id uint64, option, token uint8, amount int64, confidence uint8) types.Log {
	return packLog(t, a, EventVoteSubmitted, block,
		[]ethcommon.Hash{idTopic(id), addrTopic(voter)},
		option, token, big.NewInt(amount), confidence)
}

func finalizedLog(t *testing.T, a abi.ABI, block, id uint64) types.Log {
	return packLog(t, a, EventVotingFinalized, block,
		[]ethcommon.Hash{idTopic(id)},
		uint8(model.OptionReal), big.NewInt(1))
}

// fakeLogClient serves a fixed log set and records every query.
type fakeLogClient struct {
	mu      sync.Mutex
	head    uint64
	logs    []types.Log
	queries [][2]uint64
	failing bool
}

func (c *fakeLogClient) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head, nil
}

func (c *fakeLogClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	from, to := q.FromBlock.Uint64(), q.ToBlock.Uint64()
	c.queries = append(c.queries, [2]uint64{from, to})
	if c.failing {
		return nil, context.DeadlineExceeded
	}
	var out []types.Log
	for _, lg := range c.logs {
		if lg.BlockNumber >= from && lg.BlockNumber <= to {
			out = append(out, lg)
		}
	}
	return out, nil
}

func (c *fakeLogClient) setHead(h uint64) {
	c.mu.Lock()
	c.head = h
	c.mu.Unlock()
}

type chainFixture struct {
	clock     *clock.Mock
	store     *repository.MemoryStore
	policy    *service.WindowPolicy
	contents  *service.ContentService
	votes     *service.VoteService
	finalizer *service.FinalizeService
	abi       abi.ABI
	client    *fakeLogClient
}

func newChainFixture(t *testing.T) *chainFixture {
	t.Helper()
	clk := clock.NewMock()
	clk.Set(epoch)

	log := zerolog.Nop()
	store := repository.NewMemoryStore()
	prices := service.NewStaticPriceSource(model.DefaultTokens())
	converter := service.NewPriceConverter(prices)
	policy := service.NewWindowPolicy(clk)
	finalizer := service.NewFinalizeService(store, store, service.NewAggregator(converter, 0), policy, nil, 0, log)
	rewards := service.NewRewardService(store, policy, log)

	return &chainFixture{
		clock:     clk,
		store:     store,
		policy:    policy,
		contents:  service.NewContentService(store, policy, rewards, 24*time.Hour, log),
		votes:     service.NewVoteService(store, store, prices, converter, policy, log),
		finalizer: finalizer,
		abi:       mustABI(t),
		client:    &fakeLogClient{},
	}
}

func (f *chainFixture) watcher(startBlock uint64) *Watcher {
	return NewWatcher(f.client, contractAddr, NewEventParser(f.abi), f.contents, f.votes, f.finalizer,
		f.clock, 15*time.Second, startBlock, zerolog.Nop())
}
