package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
	"github.com/nishant2253/proofchain/proofchain-go/internal/repository"
	"github.com/nishant2253/proofchain/proofchain-go/pkg/hash"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	clock     *clock.Mock
	store     *repository.MemoryStore
	prices    *StaticPriceSource
	policy    *WindowPolicy
	agg       *Aggregator
	finalizer *FinalizeService
	votes     *VoteService
	rewards   *RewardService
	contents  *ContentService
	results   *ResultsService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, 0, nil)
}

func newFixtureWith(t *testing.T, threshold float64, cache ResultsCache) *fixture {
	t.Helper()

	clk := clock.NewMock()
	clk.Set(epoch)

	store := repository.NewMemoryStore()
	prices := NewStaticPriceSource(model.DefaultTokens())
	policy := NewWindowPolicy(clk)
	converter := NewPriceConverter(prices)
	agg := NewAggregator(converter, threshold)
	log := zerolog.Nop()

	finalizer := NewFinalizeService(store, store, agg, policy, cache, 0, log)
	rewards := NewRewardService(store, policy, log)

	return &fixture{
		clock:     clk,
		store:     store,
		prices:    prices,
		policy:    policy,
		agg:       agg,
		finalizer: finalizer,
		votes:     NewVoteService(store, store, prices, converter, policy, log),
		rewards:   rewards,
		contents:  NewContentService(store, policy, rewards, 24*time.Hour, log),
		results:   NewResultsService(finalizer, cache, log),
	}
}

// seedContent stores a content item whose voting window is [now, now+window).
func (f *fixture) seedContent(t *testing.T, id string, window time.Duration) *model.Content {
	t.Helper()
	now := f.clock.Now()
	end := now.Add(window)
	c := &model.Content{
		ID:              id,
		ContractID:      hash.NumericID(id),
		Title:           "content " + id,
		Submitter:       "0xsubmitter",
		SubmissionTime:  now,
		VotingStartTime: now,
		VotingEndTime:   &end,
	}
	require.NoError(t, f.store.Create(context.Background(), c))
	return c
}

// castVote inserts a simple vote directly, bypassing window checks.
func (f *fixture) castVote(t *testing.T, contentID, voter string, option model.VoteOption, token model.TokenType, stake string, confidence int) {
	t.Helper()
	v := &model.Vote{
		ContentID:   contentID,
		Voter:       voter,
		Kind:        model.VoteKindSimple,
		Option:      option,
		TokenType:   token,
		StakeAmount: decimal.RequireFromString(stake),
		Confidence:  confidence,
		Timestamp:   f.clock.Now(),
	}
	require.NoError(t, f.store.InsertUnique(context.Background(), v))
}

func simpleVote(voter string, option model.VoteOption, usd string, confidence int) model.Vote {
	return model.Vote{
		Voter:       voter,
		Kind:        model.VoteKindSimple,
		Option:      option,
		TokenType:   model.TokenUSDC,
		StakeAmount: decimal.RequireFromString(usd),
		Confidence:  confidence,
	}
}

func intPtr(v int) *int { return &v }

var errOracleDown = errors.New("oracle down")

type failingPrices struct{}

func (failingPrices) PriceUSD(ctx context.Context, t model.TokenType) (decimal.Decimal, error) {
	return decimal.Decimal{}, errOracleDown
}

func (failingPrices) Decimals(ctx context.Context, t model.TokenType) (int32, error) {
	return 0, errOracleDown
}

// fakeCache is an in-memory ResultsCache that counts calls.
type fakeCache struct {
	entries     map[string]*model.ResultsResponse
	gets        int
	sets        int
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*model.ResultsResponse)}
}

func (c *fakeCache) GetResults(ctx context.Context, id string) (*model.ResultsResponse, error) {
	c.gets++
	return c.entries[id], nil
}

func (c *fakeCache) SetResults(ctx context.Context, id string, resp *model.ResultsResponse) error {
	c.sets++
	c.entries[id] = resp
	return nil
}

func (c *fakeCache) InvalidateResults(ctx context.Context, id string) error {
	c.invalidated = append(c.invalidated, id)
	delete(c.entries, id)
	return nil
}
