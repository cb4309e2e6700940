package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
)

// ContentStore is the content repository the core consumes. MarkFinalized and
// MarkRewardClaimed must be compare-and-set operations: they fail with
// repository.ErrAlreadyFinalized / repository.ErrAlreadyClaimed instead of
// overwriting.
type ContentStore interface {
	Create(ctx context.Context, c *model.Content) error
	FindByID(ctx context.Context, id string) (*model.Content, error)
	FindByContractID(ctx context.Context, contractID uint64) (*model.Content, error)
	FindDueForFinalization(ctx context.Context, now time.Time, limit int) ([]model.Content, error)
	List(ctx context.Context, q model.ContentQuery) ([]model.Content, error)
	MarkFinalized(ctx context.Context, id string, f model.Finalization) error
	MarkFinalizeFailed(ctx context.Context, id string, at time.Time) error
	MarkRewardClaimed(ctx context.Context, id string, reward int, at time.Time) error
}

// VoteStore is the vote repository. InsertUnique fails with
// repository.ErrDuplicateVote when (content, voter) already exists.
type VoteStore interface {
	InsertUnique(ctx context.Context, v *model.Vote) error
	FindByContent(ctx context.Context, contentID string) ([]model.Vote, error)
	FindOne(ctx context.Context, contentID, voter string) (*model.Vote, error)
	Reveal(ctx context.Context, contentID, voter string, option model.VoteOption, confidence int, salt string, at time.Time) error
}

// PriceSource supplies USD prices and base-unit decimals per token type.
type PriceSource interface {
	PriceUSD(ctx context.Context, t model.TokenType) (decimal.Decimal, error)
	Decimals(ctx context.Context, t model.TokenType) (int32, error)
}

// TokenCatalog exposes the supported-token reference table.
type TokenCatalog interface {
	Token(ctx context.Context, t model.TokenType) (model.SupportedToken, error)
}

// ResultsCache is the cache-aside layer for results responses. A nil cache
// or a disabled CacheService turns every call into a no-op.
type ResultsCache interface {
	GetResults(ctx context.Context, contentID string) (*model.ResultsResponse, error)
	SetResults(ctx context.Context, contentID string, resp *model.ResultsResponse) error
	InvalidateResults(ctx context.Context, contentID string) error
}
