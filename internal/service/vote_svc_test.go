package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
	"github.com/nishant2253/proofchain/proofchain-go/internal/repository"
	"github.com/nishant2253/proofchain/proofchain-go/pkg/hash"
)

func voteReq(contentID, voter string, option, token int, stake string, confidence int) model.VoteRequest {
	return model.VoteRequest{
		ContentID:   contentID,
		Voter:       voter,
		Vote:        intPtr(option),
		TokenType:   intPtr(token),
		StakeAmount: stake,
		Confidence:  confidence,
	}
}

func TestSubmitVote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedContent(t, "c1", time.Hour)

	resp, err := f.votes.Submit(ctx, voteReq("c1", "0xABC", int(model.OptionReal), int(model.TokenUSDC), "50", 7))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.True(t, resp.Counted)
	assert.Equal(t, "0xabc", resp.Voter)

	v, err := f.store.FindOne(ctx, "c1", "0xabc")
	require.NoError(t, err)
	assert.Equal(t, model.VoteKindSimple, v.Kind)
	assert.Equal(t, model.OptionReal, v.Option)
	assert.True(t, v.StakeAmount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 7, v.Confidence)
}

func TestSubmitVoteRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedContent(t, "c1", time.Hour)

	_, err := f.votes.Submit(ctx, voteReq("c1", "0xabc", int(model.OptionReal), int(model.TokenUSDC), "100", 10))
	require.NoError(t, err)
	_, err = f.votes.Submit(ctx, voteReq("c1", "0xABC", int(model.OptionFake), int(model.TokenUSDC), "900", 10))
	require.ErrorIs(t, err, repository.ErrDuplicateVote)

	votes, err := f.store.FindByContent(ctx, "c1")
	require.NoError(t, err)
	res, err := f.agg.Aggregate(ctx, votes)
	require.NoError(t, err)
	assert.Equal(t, model.VerdictReal, res.Verdict)
	assert.Equal(t, 1, res.TotalVotes)
}

func TestSubmitVoteConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	f.seedContent(t, "c1", time.Hour)

	const attempts = 25
	var (
		wg         sync.WaitGroup
		accepted   atomic.Int32
		duplicates atomic.Int32
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.votes.Submit(context.Background(), voteReq("c1", "0xabc", int(model.OptionReal), int(model.TokenUSDC), "10", 5))
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, repository.ErrDuplicateVote):
				duplicates.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
	assert.Equal(t, int32(attempts-1), duplicates.Load())
}

func TestSubmitVoteValidation(t *testing.T) {
	f := newFixture(t)
	f.seedContent(t, "c1", time.Hour)

	tests := []struct {
		name string
		req  model.VoteRequest
		want error
	}{
		{"missing option", model.VoteRequest{ContentID: "c1", Voter: "0xa", TokenType: intPtr(1), StakeAmount: "5", Confidence: 5}, ErrInvalidVote},
		{"bad option", voteReq("c1", "0xa", 3, 1, "5", 5), ErrInvalidVote},
		{"confidence low", voteReq("c1", "0xa", 1, 1, "5", 0), ErrInvalidVote},
		{"confidence high", voteReq("c1", "0xa", 1, 1, "5", 11), ErrInvalidVote},
		{"unknown token", voteReq("c1", "0xa", 1, 7, "5", 5), ErrUnknownTokenType},
		{"missing token", model.VoteRequest{ContentID: "c1", Voter: "0xa", Vote: intPtr(1), StakeAmount: "5", Confidence: 5}, ErrUnknownTokenType},
		{"unparsable stake", voteReq("c1", "0xa", 1, 1, "lots", 5), ErrInvalidVote},
		{"zero stake", voteReq("c1", "0xa", 1, 1, "0", 5), ErrInvalidVote},
		{"below minimum", voteReq("c1", "0xa", 1, 1, "0.5", 5), ErrStakeTooSmall},
		{"eth below minimum", voteReq("c1", "0xa", 1, 0, "0.0001", 5), ErrStakeTooSmall},
		{"unknown content", voteReq("nope", "0xa", 1, 1, "5", 5), repository.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.votes.Submit(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSubmitVoteWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start := f.clock.Now().Add(time.Hour)
	end := start.Add(time.Hour)
	require.NoError(t, f.store.Create(ctx, &model.Content{
		ID:              "later",
		ContractID:      hash.NumericID("later"),
		Title:           "later",
		Submitter:       "0xs",
		VotingStartTime: start,
		VotingEndTime:   &end,
	}))

	req := voteReq("later", "0xa", 1, 1, "5", 5)
	_, err := f.votes.Submit(ctx, req)
	require.ErrorIs(t, err, ErrVotingNotStarted)

	f.clock.Add(90 * time.Minute)
	_, err = f.votes.Submit(ctx, req)
	require.NoError(t, err)

	f.clock.Add(30 * time.Minute)
	req.Voter = "0xb"
	_, err = f.votes.Submit(ctx, req)
	require.ErrorIs(t, err, ErrVotingClosed)
}

func TestCommitReveal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedContent(t, "c1", time.Hour)

	commit := hash.CommitHash(uint8(model.OptionFake), 8, "pepper")
	resp, err := f.votes.Commit(ctx, model.CommitRequest{
		ContentID:   "c1",
		Voter:       "0xA",
		CommitHash:  commit,
		TokenType:   intPtr(int(model.TokenDAI)),
		StakeAmount: "400",
	})
	require.NoError(t, err)
	assert.False(t, resp.Counted)

	votes, err := f.store.FindByContent(ctx, "c1")
	require.NoError(t, err)
	res, err := f.agg.Aggregate(ctx, votes)
	require.NoError(t, err)
	assert.Equal(t, model.VerdictNoVotes, res.Verdict)

	_, err = f.votes.Reveal(ctx, model.RevealRequest{ContentID: "c1", Voter: "0xa", Vote: intPtr(int(model.OptionReal)), Confidence: 8, Salt: "pepper"})
	require.ErrorIs(t, err, ErrCommitMismatch)

	resp, err = f.votes.Reveal(ctx, model.RevealRequest{ContentID: "c1", Voter: "0xa", Vote: intPtr(int(model.OptionFake)), Confidence: 8, Salt: "pepper"})
	require.NoError(t, err)
	assert.True(t, resp.Counted)

	_, err = f.votes.Reveal(ctx, model.RevealRequest{ContentID: "c1", Voter: "0xa", Vote: intPtr(int(model.OptionFake)), Confidence: 8, Salt: "pepper"})
	require.ErrorIs(t, err, repository.ErrAlreadyRevealed)

	votes, err = f.store.FindByContent(ctx, "c1")
	require.NoError(t, err)
	res, err = f.agg.Aggregate(ctx, votes)
	require.NoError(t, err)
	assert.Equal(t, model.VerdictFake, res.Verdict)
	assert.Equal(t, 16.0, res.TotalWeight)
}

func TestRevealWithoutCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedContent(t, "c1", time.Hour)

	req := model.RevealRequest{ContentID: "c1", Voter: "0xa", Vote: intPtr(1), Confidence: 5, Salt: "s"}
	_, err := f.votes.Reveal(ctx, req)
	require.ErrorIs(t, err, ErrNotCommitted)

	_, err = f.votes.Submit(ctx, voteReq("c1", "0xa", 1, 1, "5", 5))
	require.NoError(t, err)
	_, err = f.votes.Reveal(ctx, req)
	require.ErrorIs(t, err, ErrNotCommitted)
}

func TestRevealAfterWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedContent(t, "c1", time.Hour)

	_, err := f.votes.Commit(ctx, model.CommitRequest{
		ContentID:   "c1",
		Voter:       "0xa",
		CommitHash:  hash.CommitHash(1, 5, "s"),
		TokenType:   intPtr(1),
		StakeAmount: "5",
	})
	require.NoError(t, err)

	f.clock.Add(time.Hour)
	_, err = f.votes.Reveal(ctx, model.RevealRequest{ContentID: "c1", Voter: "0xa", Vote: intPtr(1), Confidence: 5, Salt: "s"})
	require.ErrorIs(t, err, ErrVotingClosed)
}

func TestCommitAfterDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := f.clock.Now()
	deadline := now.Add(time.Hour)
	reveal := now.Add(2 * time.Hour)
	require.NoError(t, f.store.Create(ctx, &model.Content{
		ID:              "legacy",
		ContractID:      hash.NumericID("legacy"),
		Title:           "legacy",
		Submitter:       "0xs",
		VotingStartTime: now,
		RevealDeadline:  &reveal,
		VotingDeadline:  &deadline,
	}))

	f.clock.Add(time.Hour)
	_, err := f.votes.Commit(ctx, model.CommitRequest{
		ContentID:   "legacy",
		Voter:       "0xa",
		CommitHash:  hash.CommitHash(1, 5, "s"),
		TokenType:   intPtr(1),
		StakeAmount: "5",
	})
	require.ErrorIs(t, err, ErrCommitPhaseClosed)
}

func TestRecordChainVote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.seedContent(t, "c1", time.Hour)

	ev := ChainVote{
		ContractID: c.ContractID,
		Voter:      "0xFEED",
		Option:     model.OptionReal,
		TokenType:  model.TokenUSDC,
		Amount:     big.NewInt(2_500_000),
		Confidence: 9,
		TxHash:     "0xtx",
	}
	recorded, err := f.votes.RecordChainVote(ctx, ev)
	require.NoError(t, err)
	assert.True(t, recorded)

	v, err := f.store.FindOne(ctx, "c1", "0xfeed")
	require.NoError(t, err)
	assert.True(t, v.StakeAmount.Equal(decimal.RequireFromString("2.5")), v.StakeAmount.String())
	assert.Equal(t, "0xtx", v.TxHash)

	recorded, err = f.votes.RecordChainVote(ctx, ev)
	require.NoError(t, err)
	assert.False(t, recorded)

	ev.ContractID = c.ContractID + 1
	recorded, err = f.votes.RecordChainVote(ctx, ev)
	require.NoError(t, err)
	assert.False(t, recorded)

	ev.Confidence = 0
	_, err = f.votes.RecordChainVote(ctx, ev)
	require.ErrorIs(t, err, ErrInvalidVote)
}

func TestListForContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedContent(t, "c1", time.Hour)
	for i := 0; i < 3; i++ {
		f.castVote(t, "c1", fmt.Sprintf("0x%d", i), model.OptionFake, model.TokenUSDC, "1", 1)
	}

	votes, err := f.votes.ListForContent(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, votes, 3)

	_, err = f.votes.ListForContent(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
