package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nishant2253/proofchain/proofchain-go/internal/metrics"
	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
	"github.com/nishant2253/proofchain/proofchain-go/internal/repository"
)

// Submitter reward formula components.
const (
	RewardBase           = 100
	RewardPerParticipant = 5
	RewardConsensusBonus = 50
	RewardActivityBonus  = 25
	// RewardActivityVotes is the counted-vote count that must be exceeded for
	// the activity bonus.
	RewardActivityVotes = 10
)

// RewardService computes and pays out submitter rewards.
type RewardService struct {
	contents ContentStore
	policy   *WindowPolicy
	log      zerolog.Logger
}

func NewRewardService(contents ContentStore, policy *WindowPolicy, log zerolog.Logger) *RewardService {
	return &RewardService{
		contents: contents,
		policy:   policy,
		log:      log.With().Str("component", "reward").Logger(),
	}
}

// Reward returns the submitter reward for a content item; 0 until finalized.
func (s *RewardService) Reward(c *model.Content) int {
	if !c.IsFinalized {
		return 0
	}
	reward := RewardBase + RewardPerParticipant*c.ParticipantCount
	if c.WinningOption != nil {
		reward += RewardConsensusBonus
	}
	if c.VoteDistribution.TotalCount() > RewardActivityVotes {
		reward += RewardActivityBonus
	}
	return reward
}

// ClaimReward marks the reward as claimed once the claim delay has elapsed.
// A second claim fails with repository.ErrAlreadyClaimed.
func (s *RewardService) ClaimReward(ctx context.Context, id string) (*model.RewardClaim, error) {
	c, err := s.contents.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsFinalized {
		return nil, ErrNotFinalized
	}
	if c.HasClaimedReward {
		return nil, repository.ErrAlreadyClaimed
	}
	if !s.policy.CanClaimReward(c) {
		return nil, ErrClaimWindowNotOpen
	}

	reward := s.Reward(c)
	at := s.policy.Now().UTC()
	if err := s.contents.MarkRewardClaimed(ctx, id, reward, at); err != nil {
		if errors.Is(err, repository.ErrAlreadyClaimed) {
			return nil, err
		}
		return nil, fmt.Errorf("claim reward for %s: %w", id, err)
	}

	metrics.RewardClaims.Inc()
	s.log.Info().
		Str("content_id", id).
		Int("reward", reward).
		Msg("reward claimed")

	return &model.RewardClaim{ContentID: id, Reward: reward, ClaimedAt: at}, nil
}
