package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
)

// ErrTokenNotSupported is returned for unknown or inactive token types.
var ErrTokenNotSupported = errors.New("token not supported")

// TokenRepo reads the supported_tokens reference table. It doubles as a
// price source backed by the prices the refresh job writes there.
type TokenRepo struct {
	pool *pgxpool.Pool
}

func NewTokenRepo(pool *pgxpool.Pool) *TokenRepo {
	return &TokenRepo{pool: pool}
}

// Token returns the reference row for an active token type.
func (r *TokenRepo) Token(ctx context.Context, t model.TokenType) (model.SupportedToken, error) {
	var (
		tok      model.SupportedToken
		tt       int16
		price    string
		minStake string
		bonus    string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT token_type, symbol, decimals, current_price_usd::text, is_active,
		       min_stake_amount::text, bonus_multiplier::text
		FROM supported_tokens
		WHERE token_type = $1`, int16(t)).
		Scan(&tt, &tok.Symbol, &tok.Decimals, &price, &tok.IsActive, &minStake, &bonus)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.SupportedToken{}, ErrTokenNotSupported
	}
	if err != nil {
		return model.SupportedToken{}, err
	}
	if !tok.IsActive {
		return model.SupportedToken{}, ErrTokenNotSupported
	}

	tok.TokenType = model.TokenType(tt)
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{{&tok.CurrentPriceUSD, price}, {&tok.MinStakeAmount, minStake}, {&tok.BonusMultiplier, bonus}} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return model.SupportedToken{}, fmt.Errorf("decode token %s: %w", tok.Symbol, err)
		}
	}
	return tok, nil
}

// PriceUSD returns the current USD price per whole token.
func (r *TokenRepo) PriceUSD(ctx context.Context, t model.TokenType) (decimal.Decimal, error) {
	tok, err := r.Token(ctx, t)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return tok.CurrentPriceUSD, nil
}

// Decimals returns the token's base-unit exponent.
func (r *TokenRepo) Decimals(ctx context.Context, t model.TokenType) (int32, error) {
	tok, err := r.Token(ctx, t)
	if err != nil {
		return 0, err
	}
	return tok.Decimals, nil
}

// UpdatePrice records a refreshed price for a token type.
func (r *TokenRepo) UpdatePrice(ctx context.Context, t model.TokenType, price decimal.Decimal) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE supported_tokens SET current_price_usd = $2::numeric, updated_at = NOW()
		WHERE token_type = $1`, int16(t), price.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotSupported
	}
	return nil
}
