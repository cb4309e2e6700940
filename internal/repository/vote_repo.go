package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
)

// foreignKeyViolation is the Postgres SQLSTATE for foreign_key_violation.
const foreignKeyViolation = "23503"

type VoteRepo struct {
	pool *pgxpool.Pool
}

func NewVoteRepo(pool *pgxpool.Pool) *VoteRepo {
	return &VoteRepo{pool: pool}
}

const voteColumns = `
	id, content_id, voter, kind, vote, token_type, stake_amount::text, confidence,
	commit_hash, salt, revealed, created_at, revealed_at, tx_hash`

// InsertUnique inserts a vote. The UNIQUE (content_id, voter) constraint is
// the arbiter between concurrent submissions; its violation maps to
// ErrDuplicateVote.
func (r *VoteRepo) InsertUnique(ctx context.Context, v *model.Vote) error {
	v.Voter = strings.ToLower(v.Voter)
	err := r.pool.QueryRow(ctx, `
		INSERT INTO votes
			(content_id, voter, kind, vote, token_type, stake_amount, confidence,
			 commit_hash, salt, revealed, created_at, tx_hash)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		v.ContentID, v.Voter, string(v.Kind), int16(v.Option), int16(v.TokenType),
		v.StakeAmount.String(), int16(v.Confidence), v.CommitHash, v.Salt, v.Revealed,
		v.Timestamp, v.TxHash,
	).Scan(&v.ID)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return ErrDuplicateVote
		case foreignKeyViolation:
			return ErrNotFound
		}
	}
	return err
}

// FindByContent returns every vote on a content item in insertion order.
func (r *VoteRepo) FindByContent(ctx context.Context, contentID string) ([]model.Vote, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+voteColumns+`
		FROM votes
		WHERE content_id = $1
		ORDER BY id`, contentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	votes := []model.Vote{}
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, err
		}
		votes = append(votes, *v)
	}
	return votes, rows.Err()
}

// FindOne returns the vote a voter cast on a content item.
func (r *VoteRepo) FindOne(ctx context.Context, contentID, voter string) (*model.Vote, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+voteColumns+`
		FROM votes
		WHERE content_id = $1 AND voter = $2`, contentID, strings.ToLower(voter))
	return scanVote(row)
}

// Reveal fills in a committed vote's plaintext. The revealed = false guard
// makes concurrent reveals resolve to exactly one winner.
func (r *VoteRepo) Reveal(ctx context.Context, contentID, voter string, option model.VoteOption, confidence int, salt string, at time.Time) error {
	voter = strings.ToLower(voter)
	tag, err := r.pool.Exec(ctx, `
		UPDATE votes
		SET vote = $3, confidence = $4, salt = $5, revealed = true, revealed_at = $6
		WHERE content_id = $1 AND voter = $2 AND kind = 'commit' AND revealed = false`,
		contentID, voter, int16(option), int16(confidence), salt, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	existing, err := r.FindOne(ctx, contentID, voter)
	if err != nil {
		return err
	}
	if existing.Kind == model.VoteKindCommit && existing.Revealed {
		return ErrAlreadyRevealed
	}
	return ErrNotFound
}

func scanVote(row pgx.Row) (*model.Vote, error) {
	var (
		v          model.Vote
		kind       string
		option     int16
		tokenType  int16
		stake      string
		confidence int16
	)
	err := row.Scan(
		&v.ID, &v.ContentID, &v.Voter, &kind, &option, &tokenType, &stake, &confidence,
		&v.CommitHash, &v.Salt, &v.Revealed, &v.Timestamp, &v.RevealedAt, &v.TxHash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	v.Kind = model.VoteKind(kind)
	v.Option = model.VoteOption(option)
	v.TokenType = model.TokenType(tokenType)
	v.Confidence = int(confidence)
	if v.StakeAmount, err = decimal.NewFromString(stake); err != nil {
		return nil, fmt.Errorf("decode stake_amount for vote %d: %w", v.ID, err)
	}
	return &v, nil
}
