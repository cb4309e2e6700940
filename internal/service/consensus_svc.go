package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
)

// tieConfidence is reported when REAL and FAKE carry equal weight.
const tieConfidence = 50

// Aggregator folds a content item's votes into a quadratic-voting verdict.
type Aggregator struct {
	converter        *PriceConverter
	weigher          Weigher
	thresholdPercent float64
}

// NewAggregator creates an aggregator. thresholdPercent is the minimum share
// of total weight the winner needs for consensus; 0 means plain plurality.
func NewAggregator(converter *PriceConverter, thresholdPercent float64) *Aggregator {
	return &Aggregator{
		converter:        converter,
		weigher:          Weigher{Scale: ConfidenceScale},
		thresholdPercent: thresholdPercent,
	}
}

// ThresholdPercent returns the configured consensus threshold.
func (a *Aggregator) ThresholdPercent() float64 {
	return a.thresholdPercent
}

// Aggregate computes the consensus result for a set of votes. The algorithm:
//
//	For each counted vote V:
//	  usd(V)    = stake * priceUSD(token)
//	  weight(V) = sqrt(usd(V)) * confidence / 10
//	winner = REAL or FAKE with strictly greater summed weight (equal -> TIE)
//
// Uncounted votes (unrevealed commits) are skipped. A failed price lookup
// aborts the whole aggregation: treating the vote as zero-value would skew
// the result.
func (a *Aggregator) Aggregate(ctx context.Context, votes []model.Vote) (*model.ConsensusResult, error) {
	var (
		dist   model.Distribution
		tokens model.TokenTotals
		total  decimal.Decimal
	)

	for _, v := range votes {
		if !v.Counted() {
			continue
		}
		if !v.Option.Valid() {
			return nil, fmt.Errorf("%w: voter %s has option %d", ErrInvalidVote, v.Voter, uint8(v.Option))
		}

		usd, err := a.converter.USDValue(ctx, v.TokenType, v.StakeAmount)
		if err != nil {
			return nil, fmt.Errorf("price vote from %s: %w", v.Voter, err)
		}
		w := a.weigher.Weight(usd, v.Confidence)

		tally := &dist[v.Option]
		tally.Count++
		tally.Weight += w
		tally.ConfidenceSum += w * float64(v.Confidence)
		tally.USDValue = tally.USDValue.Add(usd)

		tokens[v.TokenType] = tokens[v.TokenType].Add(usd)
		total = total.Add(usd)
	}

	res := a.Decide(dist)
	res.TokenTotals = tokens
	res.TotalUSDValue = total
	return res, nil
}

// Decide derives the verdict and rounded breakdown from a full-precision
// distribution.
func (a *Aggregator) Decide(dist model.Distribution) *model.ConsensusResult {
	res := &model.ConsensusResult{
		Distribution: dist,
		Breakdown:    Breakdown(dist),
		TotalVotes:   dist.TotalCount(),
	}
	if res.TotalVotes == 0 {
		res.Verdict = model.VerdictNoVotes
		return res
	}

	totalWeight := dist.TotalWeight()
	res.TotalWeight = round2(totalWeight)

	realWeight, fakeWeight := dist[model.OptionReal].Weight, dist[model.OptionFake].Weight
	var winner model.VoteOption
	switch {
	case realWeight == 0 && fakeWeight == 0:
		// only abstentions: nothing to decide between
		res.Verdict = model.VerdictUndecided
		return res
	case realWeight > fakeWeight:
		winner = model.OptionReal
	case fakeWeight > realWeight:
		winner = model.OptionFake
	default:
		res.Verdict = model.VerdictTie
		res.Confidence = tieConfidence
		return res
	}

	// winner weight is strictly positive here, so totalWeight > 0
	share := dist[winner].Weight / totalWeight * 100
	res.Confidence = round2(share)
	if a.thresholdPercent > 0 && share < a.thresholdPercent {
		res.Verdict = model.VerdictUndecided
		return res
	}

	res.Verdict = model.VerdictFor(winner)
	res.WinningOption = &winner
	res.ConsensusReached = true
	return res
}

// Breakdown rounds each option's tally for presentation.
func Breakdown(dist model.Distribution) [model.NumOptions]model.OptionBreakdown {
	var out [model.NumOptions]model.OptionBreakdown
	totalWeight := dist.TotalWeight()
	for i, t := range dist {
		b := model.OptionBreakdown{
			Count:  t.Count,
			Weight: round2(t.Weight),
		}
		if totalWeight > 0 {
			b.Percentage = round2(t.Weight / totalWeight * 100)
		}
		if t.Weight > 0 {
			b.Confidence = round2(t.ConfidenceSum / t.Weight)
		}
		out[i] = b
	}
	return out
}
