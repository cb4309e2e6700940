package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
)

// CreateSchema creates all tables needed by the backend.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SeedTokens inserts the reference token table, leaving existing rows alone so
// that prices refreshed by the price job are not overwritten.
func SeedTokens(ctx context.Context, pool *pgxpool.Pool, tokens []model.SupportedToken) error {
	for _, t := range tokens {
		_, err := pool.Exec(ctx, `
			INSERT INTO supported_tokens
				(token_type, symbol, decimals, current_price_usd, is_active, min_stake_amount, bonus_multiplier)
			VALUES ($1, $2, $3, $4::numeric, $5, $6::numeric, $7::numeric)
			ON CONFLICT (token_type) DO NOTHING`,
			int16(t.TokenType), t.Symbol, t.Decimals, t.CurrentPriceUSD.String(), t.IsActive,
			t.MinStakeAmount.String(), t.BonusMultiplier.String())
		if err != nil {
			return fmt.Errorf("seed token %s: %w", t.Symbol, err)
		}
	}
	return nil
}

const schema = `
-- Content under vote
CREATE TABLE IF NOT EXISTS contents (
    id                 TEXT PRIMARY KEY,
    contract_id        BIGINT NOT NULL UNIQUE,
    title              TEXT NOT NULL,
    description        TEXT NOT NULL DEFAULT '',
    content_hash       TEXT NOT NULL DEFAULT '',
    submitter          TEXT NOT NULL,
    submission_time    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    voting_start_time  TIMESTAMPTZ NOT NULL,
    voting_end_time    TIMESTAMPTZ,
    voting_deadline    TIMESTAMPTZ,
    reveal_deadline    TIMESTAMPTZ,

    is_finalized       BOOLEAN NOT NULL DEFAULT FALSE,
    finalized_at       TIMESTAMPTZ,
    verdict            TEXT NOT NULL DEFAULT '',
    winning_option     SMALLINT,
    confidence         DOUBLE PRECISION NOT NULL DEFAULT 0,
    total_weight       DOUBLE PRECISION NOT NULL DEFAULT 0,
    consensus_reached  BOOLEAN NOT NULL DEFAULT FALSE,
    participant_count  INTEGER NOT NULL DEFAULT 0,
    participants       TEXT[] NOT NULL DEFAULT '{}',
    total_usd_value    NUMERIC NOT NULL DEFAULT 0,
    vote_distribution  JSONB NOT NULL DEFAULT '[]',
    token_totals       JSONB NOT NULL DEFAULT '[]',

    has_claimed_reward BOOLEAN NOT NULL DEFAULT FALSE,
    claimed_reward     INTEGER NOT NULL DEFAULT 0,
    claimed_at         TIMESTAMPTZ,
    finalize_failed_at TIMESTAMPTZ,

    CHECK (voting_end_time IS NULL OR voting_start_time < voting_end_time)
);

ALTER TABLE contents ADD COLUMN IF NOT EXISTS finalize_failed_at TIMESTAMPTZ;

CREATE INDEX IF NOT EXISTS idx_contents_due
    ON contents ((COALESCE(voting_end_time, voting_deadline, reveal_deadline)))
    WHERE is_finalized = FALSE;
CREATE INDEX IF NOT EXISTS idx_contents_submission_time ON contents(submission_time DESC);

-- Votes; one per (content, voter)
CREATE TABLE IF NOT EXISTS votes (
    id           BIGSERIAL PRIMARY KEY,
    content_id   TEXT NOT NULL REFERENCES contents(id) ON DELETE CASCADE,
    voter        TEXT NOT NULL CHECK (voter = lower(voter)),
    kind         TEXT NOT NULL CHECK (kind IN ('simple', 'commit')),
    vote         SMALLINT NOT NULL DEFAULT 0,
    token_type   SMALLINT NOT NULL,
    stake_amount NUMERIC NOT NULL,
    confidence   SMALLINT NOT NULL DEFAULT 0,
    commit_hash  TEXT NOT NULL DEFAULT '',
    salt         TEXT NOT NULL DEFAULT '',
    revealed     BOOLEAN NOT NULL DEFAULT FALSE,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    revealed_at  TIMESTAMPTZ,
    tx_hash      TEXT NOT NULL DEFAULT '',
    UNIQUE (content_id, voter)
);

CREATE INDEX IF NOT EXISTS idx_votes_content_id ON votes(content_id);

-- Stake asset reference data
CREATE TABLE IF NOT EXISTS supported_tokens (
    token_type        SMALLINT PRIMARY KEY,
    symbol            TEXT NOT NULL,
    decimals          INTEGER NOT NULL,
    current_price_usd NUMERIC NOT NULL,
    is_active         BOOLEAN NOT NULL DEFAULT TRUE,
    min_stake_amount  NUMERIC NOT NULL DEFAULT 0,
    bonus_multiplier  NUMERIC NOT NULL DEFAULT 1,
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
