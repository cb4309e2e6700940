package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
	"github.com/nishant2253/proofchain/proofchain-go/internal/service"
)

// OraclePriceDecimals is the fixed-point scale of getTokenPriceUSD.
const OraclePriceDecimals = 8

// DefaultOracleTTL is how long a fetched price is reused.
const DefaultOracleTTL = time.Minute

// Caller executes read-only contract calls. *ethclient.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type cachedPrice struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// OraclePriceSource reads USD prices from the contract's price oracle view.
// Token decimals are static reference data and come from the fallback source.
type OraclePriceSource struct {
	caller   Caller
	contract ethcommon.Address
	abi      abi.ABI
	fallback service.PriceSource
	clock    clock.Clock
	ttl      time.Duration

	mu    sync.Mutex
	cache map[model.TokenType]cachedPrice
}

func NewOraclePriceSource(caller Caller, contract ethcommon.Address, contractABI abi.ABI, fallback service.PriceSource, clk clock.Clock, ttl time.Duration) *OraclePriceSource {
	if clk == nil {
		clk = clock.New()
	}
	if ttl <= 0 {
		ttl = DefaultOracleTTL
	}
	return &OraclePriceSource{
		caller:   caller,
		contract: contract,
		abi:      contractABI,
		fallback: fallback,
		clock:    clk,
		ttl:      ttl,
		cache:    make(map[model.TokenType]cachedPrice),
	}
}

func (o *OraclePriceSource) PriceUSD(ctx context.Context, t model.TokenType) (decimal.Decimal, error) {
	if !t.Valid() {
		return decimal.Decimal{}, service.ErrUnknownTokenType
	}

	now := o.clock.Now()
	o.mu.Lock()
	hit, ok := o.cache[t]
	o.mu.Unlock()
	if ok && now.Sub(hit.fetchedAt) < o.ttl {
		return hit.price, nil
	}

	price, err := o.fetch(ctx, t)
	if err != nil {
		return decimal.Decimal{}, err
	}

	o.mu.Lock()
	o.cache[t] = cachedPrice{price: price, fetchedAt: now}
	o.mu.Unlock()
	return price, nil
}

func (o *OraclePriceSource) Decimals(ctx context.Context, t model.TokenType) (int32, error) {
	return o.fallback.Decimals(ctx, t)
}

func (o *OraclePriceSource) fetch(ctx context.Context, t model.TokenType) (decimal.Decimal, error) {
	data, err := o.abi.Pack(MethodTokenPriceUSD, uint8(t))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("pack %s: %w", MethodTokenPriceUSD, err)
	}
	to := o.contract
	out, err := o.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("call %s(%s): %w", MethodTokenPriceUSD, t, err)
	}
	values, err := o.abi.Unpack(MethodTokenPriceUSD, out)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("unpack %s: %w", MethodTokenPriceUSD, err)
	}
	if len(values) != 1 {
		return decimal.Decimal{}, fmt.Errorf("%s returned %d values", MethodTokenPriceUSD, len(values))
	}
	raw, ok := values[0].(*big.Int)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%s returned %T", MethodTokenPriceUSD, values[0])
	}
	if raw.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("oracle has no price for %s", t)
	}
	return decimal.NewFromBigInt(raw, -OraclePriceDecimals), nil
}
