package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TokenType identifies a stake asset. Values match the contract enum.
type TokenType uint8

const (
	TokenETH   TokenType = 0
	TokenUSDC  TokenType = 1
	TokenUSDT  TokenType = 2
	TokenDAI   TokenType = 3
	TokenPYUSD TokenType = 4

	// NumTokenTypes sizes the per-token arrays.
	NumTokenTypes = 5
)

func (t TokenType) Valid() bool {
	return t < NumTokenTypes
}

func (t TokenType) String() string {
	switch t {
	case TokenETH:
		return "ETH"
	case TokenUSDC:
		return "USDC"
	case TokenUSDT:
		return "USDT"
	case TokenDAI:
		return "DAI"
	case TokenPYUSD:
		return "PYUSD"
	default:
		return fmt.Sprintf("TokenType(%d)", uint8(t))
	}
}

// SupportedToken is reference data for an accepted stake asset.
type SupportedToken struct {
	TokenType       TokenType       `json:"tokenType"`
	Symbol          string          `json:"symbol"`
	Decimals        int32           `json:"decimals"`
	CurrentPriceUSD decimal.Decimal `json:"currentPriceUSD"`
	IsActive        bool            `json:"isActive"`
	MinStakeAmount  decimal.Decimal `json:"minStakeAmount"`
	BonusMultiplier decimal.Decimal `json:"bonusMultiplier"`
}

// TokenTotals holds cumulative USD value per token type.
type TokenTotals [NumTokenTypes]decimal.Decimal

// DefaultTokens is the reference table used for seeding and demo pricing.
func DefaultTokens() []SupportedToken {
	one := decimal.NewFromInt(1)
	return []SupportedToken{
		{TokenType: TokenETH, Symbol: "ETH", Decimals: 18, CurrentPriceUSD: decimal.NewFromInt(2000), IsActive: true, MinStakeAmount: decimal.RequireFromString("0.001"), BonusMultiplier: one},
		{TokenType: TokenUSDC, Symbol: "USDC", Decimals: 6, CurrentPriceUSD: one, IsActive: true, MinStakeAmount: one, BonusMultiplier: one},
		{TokenType: TokenUSDT, Symbol: "USDT", Decimals: 6, CurrentPriceUSD: one, IsActive: true, MinStakeAmount: one, BonusMultiplier: one},
		{TokenType: TokenDAI, Symbol: "DAI", Decimals: 18, CurrentPriceUSD: one, IsActive: true, MinStakeAmount: one, BonusMultiplier: one},
		{TokenType: TokenPYUSD, Symbol: "PYUSD", Decimals: 6, CurrentPriceUSD: one, IsActive: true, MinStakeAmount: one, BonusMultiplier: decimal.RequireFromString("1.1")},
	}
}
