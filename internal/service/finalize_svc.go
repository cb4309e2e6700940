package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nishant2253/proofchain/proofchain-go/internal/metrics"
	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
	"github.com/nishant2253/proofchain/proofchain-go/internal/repository"
)

// DefaultSweepBatch bounds how many due items one sweep picks up.
const DefaultSweepBatch = 100

// FinalizationOutcome reports what FinalizeIfDue did. Performed is true only
// for the call whose compare-and-set committed the finalization.
type FinalizationOutcome struct {
	Content   *model.Content
	Result    *model.ConsensusResult
	State     model.State
	Performed bool
}

// SweepReport summarises one sweep over due content.
type SweepReport struct {
	Checked   int
	Finalized int
	Failed    int
}

// FinalizeService closes voting on content items exactly once.
type FinalizeService struct {
	contents   ContentStore
	votes      VoteStore
	aggregator *Aggregator
	policy     *WindowPolicy
	cache      ResultsCache
	batchSize  int
	log        zerolog.Logger

	observeSweep func(seconds float64)
}

// NewFinalizeService wires the finalization engine. cache may be nil.
func NewFinalizeService(contents ContentStore, votes VoteStore, aggregator *Aggregator, policy *WindowPolicy, cache ResultsCache, batchSize int, log zerolog.Logger) *FinalizeService {
	if batchSize <= 0 {
		batchSize = DefaultSweepBatch
	}
	return &FinalizeService{
		contents:   contents,
		votes:      votes,
		aggregator: aggregator,
		policy:     policy,
		cache:      cache,
		batchSize:  batchSize,
		log:        log.With().Str("component", "finalize").Logger(),

		observeSweep: metrics.SweepDuration.Observe,
	}
}

// FinalizeIfDue finalizes a content item whose voting window has ended. It is
// safe to call concurrently and repeatedly: only one caller commits, the rest
// see the committed state with Performed=false.
func (s *FinalizeService) FinalizeIfDue(ctx context.Context, id string) (*FinalizationOutcome, error) {
	c, err := s.contents.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.finalize(ctx, c)
}

// FinalizeByContractID is FinalizeIfDue keyed by the contract's numeric id.
func (s *FinalizeService) FinalizeByContractID(ctx context.Context, contractID uint64) (*FinalizationOutcome, error) {
	c, err := s.contents.FindByContractID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	return s.finalize(ctx, c)
}

func (s *FinalizeService) finalize(ctx context.Context, c *model.Content) (*FinalizationOutcome, error) {
	if c.IsFinalized {
		return &FinalizationOutcome{Content: c, State: model.StateFinalized}, nil
	}
	if !s.policy.HasEnded(c) {
		return &FinalizationOutcome{Content: c, State: model.StateOpen}, nil
	}

	votes, err := s.votes.FindByContent(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("load votes for %s: %w", c.ID, err)
	}
	result, err := s.aggregator.Aggregate(ctx, votes)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", c.ID, err)
	}

	f := model.Finalization{
		Verdict:          result.Verdict,
		WinningOption:    result.WinningOption,
		Confidence:       result.Confidence,
		TotalWeight:      result.TotalWeight,
		ConsensusReached: result.ConsensusReached,
		VoteDistribution: result.Distribution,
		TokenTotals:      result.TokenTotals,
		TotalUSDValue:    result.TotalUSDValue,
		Participants:     participants(votes),
		FinalizedAt:      s.policy.Now().UTC(),
	}

	err = s.contents.MarkFinalized(ctx, c.ID, f)
	if errors.Is(err, repository.ErrAlreadyFinalized) {
		// lost the race; report what the winner committed
		current, ferr := s.contents.FindByID(ctx, c.ID)
		if ferr != nil {
			return nil, ferr
		}
		return &FinalizationOutcome{Content: current, State: model.StateFinalized}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("commit finalization for %s: %w", c.ID, err)
	}

	c.Apply(f)
	s.invalidate(ctx, c.ID)
	metrics.FinalizationsTotal.WithLabelValues(verdictLabel(f.Verdict)).Inc()

	s.log.Info().
		Str("content_id", c.ID).
		Str("verdict", verdictLabel(f.Verdict)).
		Float64("confidence", f.Confidence).
		Int("participants", len(f.Participants)).
		Msg("content finalized")

	return &FinalizationOutcome{
		Content:   c,
		Result:    result,
		State:     model.StateFinalized,
		Performed: true,
	}, nil
}

// Sweep finalizes up to batchSize due items. Failures are logged, counted
// and stamped on the item so the next sweep tries other due items first.
func (s *FinalizeService) Sweep(ctx context.Context) (SweepReport, error) {
	clk := s.policy.Clock()
	start := clk.Now()
	defer func() {
		s.observeSweep(clk.Since(start).Seconds())
	}()

	due, err := s.contents.FindDueForFinalization(ctx, s.policy.Now(), s.batchSize)
	if err != nil {
		return SweepReport{}, fmt.Errorf("find due content: %w", err)
	}

	var report SweepReport
	for i := range due {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Checked++

		out, err := s.finalize(ctx, &due[i])
		if err != nil {
			report.Failed++
			metrics.FinalizationErrors.Inc()
			s.log.Error().Err(err).Str("content_id", due[i].ID).Msg("finalize failed")
			if markErr := s.contents.MarkFinalizeFailed(ctx, due[i].ID, clk.Now()); markErr != nil {
				s.log.Warn().Err(markErr).Str("content_id", due[i].ID).Msg("record failed attempt")
			}
			continue
		}
		if out.Performed {
			report.Finalized++
		}
	}
	return report, nil
}

func (s *FinalizeService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateResults(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("content_id", id).Msg("cache invalidate failed")
	}
}

// participants returns the distinct voters, lower-cased and sorted.
func participants(votes []model.Vote) []string {
	seen := make(map[string]struct{}, len(votes))
	out := make([]string, 0, len(votes))
	for _, v := range votes {
		voter := strings.ToLower(v.Voter)
		if _, ok := seen[voter]; ok {
			continue
		}
		seen[voter] = struct{}{}
		out = append(out, voter)
	}
	sort.Strings(out)
	return out
}

func verdictLabel(v model.Verdict) string {
	if v == model.VerdictUndecided {
		return "UNDECIDED"
	}
	return string(v)
}
