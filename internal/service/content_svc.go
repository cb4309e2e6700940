package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
	"github.com/nishant2253/proofchain/proofchain-go/internal/repository"
	"github.com/nishant2253/proofchain/proofchain-go/pkg/hash"
)

// Voting window bounds.
const (
	MinVotingDuration = time.Hour
	MaxVotingDuration = 30 * 24 * time.Hour
)

// Listing page size bounds.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ChainContent is a ContentSubmitted contract event decoded into domain terms.
type ChainContent struct {
	ContractID    uint64
	Submitter     string
	ContentHash   string
	VotingEndTime time.Time
	TxHash        string
}

type ContentService struct {
	contents        ContentStore
	policy          *WindowPolicy
	rewards         *RewardService
	defaultDuration time.Duration
	log             zerolog.Logger
}

func NewContentService(contents ContentStore, policy *WindowPolicy, rewards *RewardService, defaultDuration time.Duration, log zerolog.Logger) *ContentService {
	return &ContentService{
		contents:        contents,
		policy:          policy,
		rewards:         rewards,
		defaultDuration: defaultDuration,
		log:             log.With().Str("component", "content").Logger(),
	}
}

// Create registers a content item and opens its voting window at once.
func (s *ContentService) Create(ctx context.Context, req model.ContentRequest) (*model.ContentResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidContent)
	}
	if strings.TrimSpace(req.Submitter) == "" {
		return nil, fmt.Errorf("%w: submitter is required", ErrInvalidContent)
	}

	duration := s.defaultDuration
	if req.VotingDuration != "" {
		d, err := time.ParseDuration(req.VotingDuration)
		if err != nil {
			return nil, fmt.Errorf("%w: voting duration %q", ErrInvalidContent, req.VotingDuration)
		}
		duration = d
	}
	if duration < MinVotingDuration || duration > MaxVotingDuration {
		return nil, fmt.Errorf("%w: voting duration must be between %s and %s", ErrInvalidContent, MinVotingDuration, MaxVotingDuration)
	}

	id := uuid.NewString()
	contractID := hash.NumericID(id)
	if req.ContractID != nil {
		contractID = *req.ContractID
	}

	now := s.policy.Now().UTC()
	end := now.Add(duration)
	c := &model.Content{
		ID:              id,
		ContractID:      contractID,
		Title:           title,
		Description:     strings.TrimSpace(req.Description),
		ContentHash:     strings.TrimSpace(req.ContentHash),
		Submitter:       strings.ToLower(req.Submitter),
		SubmissionTime:  now,
		VotingStartTime: now,
		VotingEndTime:   &end,
		Participants:    []string{},
	}
	if err := s.contents.Create(ctx, c); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("content_id", c.ID).
		Uint64("contract_id", c.ContractID).
		Time("voting_end", end).
		Msg("content created")

	return s.respond(c), nil
}

// RecordChainContent mirrors content submitted directly to the contract. It
// reports false when the contract id is already known.
func (s *ContentService) RecordChainContent(ctx context.Context, ev ChainContent) (bool, error) {
	if _, err := s.contents.FindByContractID(ctx, ev.ContractID); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	now := s.policy.Now().UTC()
	end := ev.VotingEndTime.UTC()
	if !end.After(now) {
		// an already-closed window still needs a valid start < end
		now = end.Add(-MinVotingDuration)
	}
	c := &model.Content{
		ID:              uuid.NewString(),
		ContractID:      ev.ContractID,
		Title:           fmt.Sprintf("On-chain content #%d", ev.ContractID),
		ContentHash:     ev.ContentHash,
		Submitter:       strings.ToLower(ev.Submitter),
		SubmissionTime:  now,
		VotingStartTime: now,
		VotingEndTime:   &end,
		Participants:    []string{},
	}
	err := s.contents.Create(ctx, c)
	if errors.Is(err, repository.ErrDuplicateContent) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.log.Info().
		Str("content_id", c.ID).
		Uint64("contract_id", c.ContractID).
		Str("tx", ev.TxHash).
		Msg("chain content recorded")
	return true, nil
}

// Get returns a content item with its current status and reward.
func (s *ContentService) Get(ctx context.Context, id string) (*model.ContentResponse, error) {
	c, err := s.contents.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.respond(c), nil
}

// List returns content matching the query, newest first. Limit is clamped to
// MaxListLimit.
func (s *ContentService) List(ctx context.Context, q model.ContentQuery) ([]model.ContentResponse, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultListLimit
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	if q.Skip < 0 {
		q.Skip = 0
	}
	q.Now = s.policy.Now()

	items, err := s.contents.List(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]model.ContentResponse, 0, len(items))
	for i := range items {
		out = append(out, *s.respond(&items[i]))
	}
	return out, nil
}

func (s *ContentService) respond(c *model.Content) *model.ContentResponse {
	return &model.ContentResponse{
		Content: *c,
		Status:  s.policy.Status(c),
		Reward:  s.rewards.Reward(c),
	}
}
