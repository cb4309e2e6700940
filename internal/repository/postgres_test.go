package repository

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nishant2253/proofchain/proofchain-go/internal/db"
	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
)

// newPostgres returns a pool bound to a throwaway schema on DATABASE_URL.
func newPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()

	admin, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	schema := "proofchain_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})

	cfg, err := pgxpool.ParseConfig(url)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.CreateSchema(ctx, pool))
	return pool
}

func seedRow(t *testing.T, r *ContentRepo, id string, contractID uint64, window time.Duration) {
	t.Helper()
	end := t0.Add(window)
	require.NoError(t, r.Create(context.Background(), &model.Content{
		ID:              id,
		ContractID:      contractID,
		Title:           "content " + id,
		Submitter:       "0xsubmitter",
		SubmissionTime:  t0,
		VotingStartTime: t0,
		VotingEndTime:   &end,
	}))
}

func TestPostgresContentCreateUnique(t *testing.T) {
	r := NewContentRepo(newPostgres(t))
	ctx := context.Background()
	seedRow(t, r, "a", 1, time.Hour)

	require.ErrorIs(t, r.Create(ctx, &model.Content{ID: "a", ContractID: 2, VotingStartTime: t0}), ErrDuplicateContent)
	require.ErrorIs(t, r.Create(ctx, &model.Content{ID: "b", ContractID: 1, VotingStartTime: t0}), ErrDuplicateContent)

	c, err := r.FindByContractID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", c.ID)

	_, err = r.FindByID(ctx, "b")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresMarkFinalizedOnce(t *testing.T) {
	r := NewContentRepo(newPostgres(t))
	ctx := context.Background()
	seedRow(t, r, "a", 1, time.Hour)

	winner := model.OptionReal
	f := model.Finalization{
		Verdict:          model.VerdictReal,
		WinningOption:    &winner,
		Confidence:       75,
		TotalWeight:      40,
		ConsensusReached: true,
		TotalUSDValue:    decimal.RequireFromString("1000"),
		Participants:     []string{"0xa", "0xb"},
		FinalizedAt:      t0.Add(2 * time.Hour),
	}
	require.NoError(t, r.MarkFinalized(ctx, "a", f))
	require.ErrorIs(t, r.MarkFinalized(ctx, "a", f), ErrAlreadyFinalized)
	require.ErrorIs(t, r.MarkFinalized(ctx, "missing", f), ErrNotFound)

	c, err := r.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.True(t, c.IsFinalized)
	assert.Equal(t, model.VerdictReal, c.Verdict)
	require.NotNil(t, c.WinningOption)
	assert.Equal(t, model.OptionReal, *c.WinningOption)
	assert.Equal(t, 2, c.ParticipantCount)
	assert.True(t, c.TotalUSDValue.Equal(decimal.RequireFromString("1000")))
}

func TestPostgresMarkFinalizedConcurrent(t *testing.T) {
	r := NewContentRepo(newPostgres(t))
	seedRow(t, r, "a", 1, time.Hour)

	var (
		wg      sync.WaitGroup
		commits atomic.Int32
		lost    atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.MarkFinalized(context.Background(), "a", model.Finalization{
				Verdict:     model.VerdictNoVotes,
				FinalizedAt: t0.Add(time.Hour),
			})
			switch {
			case err == nil:
				commits.Add(1)
			case errors.Is(err, ErrAlreadyFinalized):
				lost.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), commits.Load())
	assert.Equal(t, int32(7), lost.Load())
}

func TestPostgresMarkRewardClaimed(t *testing.T) {
	r := NewContentRepo(newPostgres(t))
	ctx := context.Background()
	seedRow(t, r, "a", 1, time.Hour)

	require.ErrorIs(t, r.MarkRewardClaimed(ctx, "a", 100, t0), ErrAlreadyClaimed)
	require.ErrorIs(t, r.MarkRewardClaimed(ctx, "missing", 100, t0), ErrNotFound)

	require.NoError(t, r.MarkFinalized(ctx, "a", model.Finalization{Verdict: model.VerdictNoVotes, FinalizedAt: t0}))
	require.NoError(t, r.MarkRewardClaimed(ctx, "a", 155, t0.Add(48*time.Hour)))
	require.ErrorIs(t, r.MarkRewardClaimed(ctx, "a", 155, t0.Add(49*time.Hour)), ErrAlreadyClaimed)

	c, err := r.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.True(t, c.HasClaimedReward)
	assert.Equal(t, 155, c.ClaimedReward)
	require.NotNil(t, c.ClaimedAt)
	assert.True(t, c.ClaimedAt.Equal(t0.Add(48*time.Hour)))
}

func TestPostgresFindDueRetriesFailuresLast(t *testing.T) {
	r := NewContentRepo(newPostgres(t))
	ctx := context.Background()
	seedRow(t, r, "a", 1, time.Hour)
	seedRow(t, r, "b", 2, 2*time.Hour)
	seedRow(t, r, "open", 3, 10*time.Hour)

	now := t0.Add(3 * time.Hour)
	due, err := r.FindDueForFinalization(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "a", due[0].ID)

	require.NoError(t, r.MarkFinalizeFailed(ctx, "a", now))
	due, err = r.FindDueForFinalization(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "b", due[0].ID)
}

func TestPostgresVoteInsertUnique(t *testing.T) {
	pool := newPostgres(t)
	contents, votes := NewContentRepo(pool), NewVoteRepo(pool)
	ctx := context.Background()
	seedRow(t, contents, "a", 1, time.Hour)

	vote := func(voter string) *model.Vote {
		return &model.Vote{
			ContentID:   "a",
			Voter:       voter,
			Kind:        model.VoteKindSimple,
			Option:      model.OptionFake,
			TokenType:   model.TokenUSDC,
			StakeAmount: decimal.RequireFromString("2.5"),
			Confidence:  7,
			Timestamp:   t0,
		}
	}

	first := vote("0xAB")
	require.NoError(t, votes.InsertUnique(ctx, first))
	assert.NotZero(t, first.ID)
	require.ErrorIs(t, votes.InsertUnique(ctx, vote("0xab")), ErrDuplicateVote)

	orphan := vote("0xcd")
	orphan.ContentID = "missing"
	require.ErrorIs(t, votes.InsertUnique(ctx, orphan), ErrNotFound)

	all, err := votes.FindByContent(ctx, "a")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "0xab", all[0].Voter)
	assert.True(t, all[0].StakeAmount.Equal(decimal.RequireFromString("2.5")))
}

func TestPostgresVoteRevealOnce(t *testing.T) {
	pool := newPostgres(t)
	contents, votes := NewContentRepo(pool), NewVoteRepo(pool)
	ctx := context.Background()
	seedRow(t, contents, "a", 1, time.Hour)

	require.NoError(t, votes.InsertUnique(ctx, &model.Vote{
		ContentID:   "a",
		Voter:       "0xab",
		Kind:        model.VoteKindCommit,
		TokenType:   model.TokenUSDC,
		StakeAmount: decimal.RequireFromString("10"),
		CommitHash:  "0x1234",
		Timestamp:   t0,
	}))

	require.NoError(t, votes.Reveal(ctx, "a", "0xAB", model.OptionReal, 9, "salt", t0.Add(time.Minute)))
	require.ErrorIs(t, votes.Reveal(ctx, "a", "0xab", model.OptionReal, 9, "salt", t0.Add(time.Minute)), ErrAlreadyRevealed)
	require.ErrorIs(t, votes.Reveal(ctx, "a", "0xcd", model.OptionReal, 9, "salt", t0), ErrNotFound)

	v, err := votes.FindOne(ctx, "a", "0xab")
	require.NoError(t, err)
	assert.True(t, v.Counted())
	assert.Equal(t, model.OptionReal, v.Option)
	assert.Equal(t, 9, v.Confidence)
}
