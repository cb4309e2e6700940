package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
	"github.com/nishant2253/proofchain/proofchain-go/internal/repository"
)

// StaticPriceSource is an in-memory price table. It serves tests and demo
// mode, and is safe for concurrent SetPrice calls from a refresh job.
type StaticPriceSource struct {
	mu     sync.RWMutex
	tokens map[model.TokenType]model.SupportedToken
}

func NewStaticPriceSource(tokens []model.SupportedToken) *StaticPriceSource {
	s := &StaticPriceSource{tokens: make(map[model.TokenType]model.SupportedToken, len(tokens))}
	for _, t := range tokens {
		s.tokens[t.TokenType] = t
	}
	return s
}

// Token returns the reference entry for an active token type.
func (s *StaticPriceSource) Token(ctx context.Context, t model.TokenType) (model.SupportedToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tok, ok := s.tokens[t]
	if !ok || !tok.IsActive {
		return model.SupportedToken{}, ErrUnknownTokenType
	}
	return tok, nil
}

func (s *StaticPriceSource) PriceUSD(ctx context.Context, t model.TokenType) (decimal.Decimal, error) {
	tok, err := s.Token(ctx, t)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return tok.CurrentPriceUSD, nil
}

func (s *StaticPriceSource) Decimals(ctx context.Context, t model.TokenType) (int32, error) {
	tok, err := s.Token(ctx, t)
	if err != nil {
		return 0, err
	}
	return tok.Decimals, nil
}

// UpdatePrice replaces the price of a known token type.
func (s *StaticPriceSource) UpdatePrice(ctx context.Context, t model.TokenType, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.tokens[t]
	if !ok {
		return ErrUnknownTokenType
	}
	tok.CurrentPriceUSD = price
	s.tokens[t] = tok
	return nil
}

// PriceConverter turns stake amounts into USD using a PriceSource snapshot.
type PriceConverter struct {
	source PriceSource
}

func NewPriceConverter(source PriceSource) *PriceConverter {
	return &PriceConverter{source: source}
}

// USDValue returns amount * priceUSD(tokenType). Amount is in whole tokens.
func (p *PriceConverter) USDValue(ctx context.Context, t model.TokenType, amount decimal.Decimal) (decimal.Decimal, error) {
	if !t.Valid() {
		return decimal.Decimal{}, fmt.Errorf("%w: %d", ErrUnknownTokenType, uint8(t))
	}
	price, err := p.source.PriceUSD(ctx, t)
	if err != nil {
		return decimal.Decimal{}, classifyPriceErr(t, err)
	}
	return amount.Mul(price), nil
}

// FromBaseUnits converts an on-chain integer amount into whole tokens using
// the token's decimals.
func (p *PriceConverter) FromBaseUnits(ctx context.Context, t model.TokenType, raw *big.Int) (decimal.Decimal, error) {
	if !t.Valid() {
		return decimal.Decimal{}, fmt.Errorf("%w: %d", ErrUnknownTokenType, uint8(t))
	}
	decimals, err := p.source.Decimals(ctx, t)
	if err != nil {
		return decimal.Decimal{}, classifyPriceErr(t, err)
	}
	return decimal.NewFromBigInt(raw, -decimals), nil
}

func classifyPriceErr(t model.TokenType, err error) error {
	if errors.Is(err, ErrUnknownTokenType) || errors.Is(err, repository.ErrTokenNotSupported) {
		return fmt.Errorf("%w: %s", ErrUnknownTokenType, t)
	}
	return fmt.Errorf("%w: %s: %v", ErrPriceUnavailable, t, err)
}
