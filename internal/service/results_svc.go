package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/nishant2253/proofchain/proofchain-go/internal/metrics"
	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
)

// ResultsService serves consensus results, finalizing lazily on first read
// after the window closes. Finalized results never change, so they are
// cached without invalidation on reads.
type ResultsService struct {
	finalizer *FinalizeService
	cache     ResultsCache
	log       zerolog.Logger
}

// NewResultsService creates a results service. cache may be nil.
func NewResultsService(finalizer *FinalizeService, cache ResultsCache, log zerolog.Logger) *ResultsService {
	return &ResultsService{
		finalizer: finalizer,
		cache:     cache,
		log:       log.With().Str("component", "results").Logger(),
	}
}

// Get returns the results for a content item. While the voting window is open
// it fails with ErrResultsNotAvailable.
func (s *ResultsService) Get(ctx context.Context, id string) (*model.ResultsResponse, error) {
	if s.cache != nil {
		cached, err := s.cache.GetResults(ctx, id)
		if err != nil {
			s.log.Warn().Err(err).Str("content_id", id).Msg("cache get failed")
		}
		if cached != nil {
			metrics.CacheHits.Inc()
			return cached, nil
		}
		metrics.CacheMisses.Inc()
	}

	out, err := s.finalizer.FinalizeIfDue(ctx, id)
	if err != nil {
		return nil, err
	}
	if out.State != model.StateFinalized {
		return nil, ErrResultsNotAvailable
	}

	resp := BuildResults(out.Content)
	if s.cache != nil {
		if err := s.cache.SetResults(ctx, id, resp); err != nil {
			s.log.Warn().Err(err).Str("content_id", id).Msg("cache set failed")
		}
	}
	return resp, nil
}

// BuildResults renders a finalized content item's persisted aggregates.
func BuildResults(c *model.Content) *model.ResultsResponse {
	b := Breakdown(c.VoteDistribution)
	return &model.ResultsResponse{
		ContentID:        c.ID,
		Verdict:          c.Verdict,
		Confidence:       c.Confidence,
		TotalWeight:      c.TotalWeight,
		ConsensusReached: c.ConsensusReached,
		Breakdown: model.ResultBreakdown{
			Upvotes:   b[model.OptionReal],
			Downvotes: b[model.OptionFake],
			Abstain:   b[model.OptionAbstain],
		},
		IsFinalized:       c.IsFinalized,
		TotalVotes:        c.VoteDistribution.TotalCount(),
		TotalParticipants: c.ParticipantCount,
		TotalUSDValue:     c.TotalUSDValue,
		FinalizedAt:       c.FinalizedAt,
	}
}
