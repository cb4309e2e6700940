package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
)

type ContentRepo struct {
	pool *pgxpool.Pool
}

func NewContentRepo(pool *pgxpool.Pool) *ContentRepo {
	return &ContentRepo{pool: pool}
}

const contentColumns = `
	id, contract_id, title, description, content_hash, submitter,
	submission_time, voting_start_time, voting_end_time, voting_deadline, reveal_deadline,
	is_finalized, finalized_at, verdict, winning_option, confidence, total_weight,
	consensus_reached, participant_count, participants, total_usd_value::text,
	vote_distribution, token_totals, has_claimed_reward, claimed_reward, claimed_at,
	finalize_failed_at`

// endTimeExpr resolves the effective deadline the same way model.Content.EndTime does.
const endTimeExpr = `COALESCE(voting_end_time, voting_deadline, reveal_deadline)`

// Create inserts a new content item.
func (r *ContentRepo) Create(ctx context.Context, c *model.Content) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO contents
			(id, contract_id, title, description, content_hash, submitter,
			 submission_time, voting_start_time, voting_end_time, voting_deadline, reveal_deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, int64(c.ContractID), c.Title, c.Description, c.ContentHash, c.Submitter,
		c.SubmissionTime, c.VotingStartTime, c.VotingEndTime, c.VotingDeadline, c.RevealDeadline)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateContent
	}
	return err
}

// FindByID returns a single content item by storage id.
func (r *ContentRepo) FindByID(ctx context.Context, id string) (*model.Content, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+contentColumns+` FROM contents WHERE id = $1`, id)
	return scanContent(row)
}

// FindByContractID returns a single content item by its numeric contract id.
func (r *ContentRepo) FindByContractID(ctx context.Context, contractID uint64) (*model.Content, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+contentColumns+` FROM contents WHERE contract_id = $1`, int64(contractID))
	return scanContent(row)
}

// FindDueForFinalization returns unfinalized items whose deadline has passed.
// Items never attempted come first, then those whose last failure is oldest,
// so a run of failing items cannot hold back the rest.
func (r *ContentRepo) FindDueForFinalization(ctx context.Context, now time.Time, limit int) ([]model.Content, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+contentColumns+`
		FROM contents
		WHERE is_finalized = false AND `+endTimeExpr+` <= $1
		ORDER BY finalize_failed_at ASC NULLS FIRST, `+endTimeExpr+`, id
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	return collectContents(rows)
}

// List returns content items filtered by status, newest first.
func (r *ContentRepo) List(ctx context.Context, q model.ContentQuery) ([]model.Content, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	args := []any{q.Skip, limit}
	where := "TRUE"
	switch q.Status {
	case model.StatusFinalized:
		where = "is_finalized = true"
	case model.StatusExpired:
		where = "is_finalized = false AND " + endTimeExpr + " <= $3"
		args = append(args, q.Now)
	case model.StatusLive:
		where = "is_finalized = false AND voting_start_time <= $3 AND (" + endTimeExpr + " IS NULL OR " + endTimeExpr + " > $3)"
		args = append(args, q.Now)
	case model.StatusPending:
		where = "is_finalized = false AND voting_start_time > $3 AND (" + endTimeExpr + " IS NULL OR " + endTimeExpr + " > $3)"
		args = append(args, q.Now)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+contentColumns+`
		FROM contents
		WHERE `+where+`
		ORDER BY submission_time DESC, id
		OFFSET $1 LIMIT $2`, args...)
	if err != nil {
		return nil, err
	}
	return collectContents(rows)
}

// MarkFinalized writes the verdict and flips is_finalized in one conditional
// update. Zero affected rows means another caller finalized first.
func (r *ContentRepo) MarkFinalized(ctx context.Context, id string, f model.Finalization) error {
	dist, err := json.Marshal(f.VoteDistribution)
	if err != nil {
		return fmt.Errorf("encode vote distribution: %w", err)
	}
	tokens, err := json.Marshal(f.TokenTotals)
	if err != nil {
		return fmt.Errorf("encode token totals: %w", err)
	}
	var winning *int16
	if f.WinningOption != nil {
		w := int16(*f.WinningOption)
		winning = &w
	}
	participants := f.Participants
	if participants == nil {
		participants = []string{}
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE contents SET
			is_finalized = true,
			finalized_at = $2,
			verdict = $3,
			winning_option = $4,
			confidence = $5,
			total_weight = $6,
			consensus_reached = $7,
			participant_count = $8,
			participants = $9,
			total_usd_value = $10::numeric,
			vote_distribution = $11,
			token_totals = $12
		WHERE id = $1 AND is_finalized = false`,
		id, f.FinalizedAt, string(f.Verdict), winning, f.Confidence, f.TotalWeight,
		f.ConsensusReached, len(participants), participants, f.TotalUSDValue.String(), dist, tokens)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missReason(ctx, id, ErrAlreadyFinalized)
	}
	return nil
}

// MarkFinalizeFailed stamps a failed finalization attempt. Finalized items
// are left untouched.
func (r *ContentRepo) MarkFinalizeFailed(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE contents SET finalize_failed_at = $2
		WHERE id = $1 AND is_finalized = false`, id, at)
	return err
}

// MarkRewardClaimed sets the claim fields only if the item is finalized and
// unclaimed, as a single conditional update.
func (r *ContentRepo) MarkRewardClaimed(ctx context.Context, id string, reward int, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE contents
		SET has_claimed_reward = true, claimed_reward = $2, claimed_at = $3
		WHERE id = $1 AND is_finalized = true AND has_claimed_reward = false`,
		id, reward, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missReason(ctx, id, ErrAlreadyClaimed)
	}
	return nil
}

// missReason distinguishes a missing row from a lost compare-and-set.
func (r *ContentRepo) missReason(ctx context.Context, id string, conflict error) error {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM contents WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return conflict
}

func collectContents(rows pgx.Rows) ([]model.Content, error) {
	defer rows.Close()

	var contents []model.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		contents = append(contents, *c)
	}
	return contents, rows.Err()
}

func scanContent(row pgx.Row) (*model.Content, error) {
	var (
		c          model.Content
		contractID int64
		verdict    string
		winning    *int16
		usd        string
		dist       []byte
		tokens     []byte
	)
	err := row.Scan(
		&c.ID, &contractID, &c.Title, &c.Description, &c.ContentHash, &c.Submitter,
		&c.SubmissionTime, &c.VotingStartTime, &c.VotingEndTime, &c.VotingDeadline, &c.RevealDeadline,
		&c.IsFinalized, &c.FinalizedAt, &verdict, &winning, &c.Confidence, &c.TotalWeight,
		&c.ConsensusReached, &c.ParticipantCount, &c.Participants, &usd,
		&dist, &tokens, &c.HasClaimedReward, &c.ClaimedReward, &c.ClaimedAt,
		&c.FinalizeFailedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	c.ContractID = uint64(contractID)
	c.Verdict = model.Verdict(verdict)
	if winning != nil {
		o := model.VoteOption(*winning)
		c.WinningOption = &o
	}
	if c.TotalUSDValue, err = decimal.NewFromString(usd); err != nil {
		return nil, fmt.Errorf("decode total_usd_value: %w", err)
	}
	if err := json.Unmarshal(dist, &c.VoteDistribution); err != nil {
		return nil, fmt.Errorf("decode vote_distribution: %w", err)
	}
	if err := json.Unmarshal(tokens, &c.TokenTotals); err != nil {
		return nil, fmt.Errorf("decode token_totals: %w", err)
	}
	return &c, nil
}
