package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nishant2253/proofchain/proofchain-go/internal/metrics"
	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
	"github.com/nishant2253/proofchain/proofchain-go/internal/repository"
	"github.com/nishant2253/proofchain/proofchain-go/pkg/hash"
)

// ChainVote is a VoteSubmitted contract event decoded into domain terms.
// Amount is in the token's base units.
type ChainVote struct {
	ContractID uint64
	Voter      string
	Option     model.VoteOption
	TokenType  model.TokenType
	Amount     *big.Int
	Confidence int
	TxHash     string
	Timestamp  time.Time
}

type VoteService struct {
	contents  ContentStore
	votes     VoteStore
	tokens    TokenCatalog
	converter *PriceConverter
	policy    *WindowPolicy
	log       zerolog.Logger
}

func NewVoteService(contents ContentStore, votes VoteStore, tokens TokenCatalog, converter *PriceConverter, policy *WindowPolicy, log zerolog.Logger) *VoteService {
	return &VoteService{
		contents:  contents,
		votes:     votes,
		tokens:    tokens,
		converter: converter,
		policy:    policy,
		log:       log.With().Str("component", "votes").Logger(),
	}
}

// Submit records a simple vote, which counts toward aggregation immediately.
func (s *VoteService) Submit(ctx context.Context, req model.VoteRequest) (*model.VoteResponse, error) {
	option, err := parseOption(req.Vote)
	if err != nil {
		return nil, err
	}
	if err := checkConfidence(req.Confidence); err != nil {
		return nil, err
	}
	tokenType, stake, err := s.parseStake(ctx, req.TokenType, req.StakeAmount)
	if err != nil {
		return nil, err
	}

	c, err := s.contents.FindByID(ctx, req.ContentID)
	if err != nil {
		return nil, err
	}
	if err := s.checkLive(c); err != nil {
		return nil, err
	}

	v := &model.Vote{
		ContentID:   c.ID,
		Voter:       strings.ToLower(req.Voter),
		Kind:        model.VoteKindSimple,
		Option:      option,
		TokenType:   tokenType,
		StakeAmount: stake,
		Confidence:  req.Confidence,
		Timestamp:   s.policy.Now().UTC(),
		TxHash:      req.TxHash,
	}
	if err := s.votes.InsertUnique(ctx, v); err != nil {
		return nil, err
	}
	metrics.VotesTotal.WithLabelValues(string(v.Kind), option.String()).Inc()

	return &model.VoteResponse{
		Success:   true,
		ContentID: v.ContentID,
		Voter:     v.Voter,
		Kind:      string(v.Kind),
		Counted:   true,
	}, nil
}

// Commit records the sealed half of a commit-reveal vote. It is accepted while
// voting is live and, when set, before the commit deadline.
func (s *VoteService) Commit(ctx context.Context, req model.CommitRequest) (*model.VoteResponse, error) {
	if strings.TrimSpace(req.CommitHash) == "" {
		return nil, fmt.Errorf("%w: commit hash is required", ErrInvalidVote)
	}
	tokenType, stake, err := s.parseStake(ctx, req.TokenType, req.StakeAmount)
	if err != nil {
		return nil, err
	}

	c, err := s.contents.FindByID(ctx, req.ContentID)
	if err != nil {
		return nil, err
	}
	if err := s.checkLive(c); err != nil {
		if errors.Is(err, ErrVotingClosed) {
			return nil, ErrCommitPhaseClosed
		}
		return nil, err
	}
	if c.VotingDeadline != nil && !s.policy.Now().Before(*c.VotingDeadline) {
		return nil, ErrCommitPhaseClosed
	}

	v := &model.Vote{
		ContentID:   c.ID,
		Voter:       strings.ToLower(req.Voter),
		Kind:        model.VoteKindCommit,
		TokenType:   tokenType,
		StakeAmount: stake,
		CommitHash:  strings.ToLower(req.CommitHash),
		Timestamp:   s.policy.Now().UTC(),
	}
	if err := s.votes.InsertUnique(ctx, v); err != nil {
		return nil, err
	}
	metrics.VotesTotal.WithLabelValues(string(v.Kind), "SEALED").Inc()

	return &model.VoteResponse{
		Success:   true,
		ContentID: v.ContentID,
		Voter:     v.Voter,
		Kind:      string(v.Kind),
		Counted:   false,
	}, nil
}

// Reveal opens a committed vote. The revealed option, confidence and salt must
// hash to the stored commitment.
func (s *VoteService) Reveal(ctx context.Context, req model.RevealRequest) (*model.VoteResponse, error) {
	option, err := parseOption(req.Vote)
	if err != nil {
		return nil, err
	}
	if err := checkConfidence(req.Confidence); err != nil {
		return nil, err
	}

	c, err := s.contents.FindByID(ctx, req.ContentID)
	if err != nil {
		return nil, err
	}
	if c.IsFinalized || s.policy.HasEnded(c) {
		return nil, ErrVotingClosed
	}

	voter := strings.ToLower(req.Voter)
	committed, err := s.votes.FindOne(ctx, c.ID, voter)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotCommitted
	}
	if err != nil {
		return nil, err
	}
	if committed.Kind != model.VoteKindCommit {
		return nil, ErrNotCommitted
	}
	if committed.Revealed {
		return nil, repository.ErrAlreadyRevealed
	}

	digest := hash.CommitHash(uint8(option), uint8(req.Confidence), req.Salt)
	if !hash.EqualHex(digest, committed.CommitHash) {
		return nil, ErrCommitMismatch
	}

	err = s.votes.Reveal(ctx, c.ID, voter, option, req.Confidence, req.Salt, s.policy.Now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotCommitted
	}
	if err != nil {
		return nil, err
	}
	metrics.VotesTotal.WithLabelValues("reveal", option.String()).Inc()

	return &model.VoteResponse{
		Success:   true,
		ContentID: c.ID,
		Voter:     voter,
		Kind:      string(model.VoteKindCommit),
		Counted:   true,
	}, nil
}

// RecordChainVote mirrors an on-chain vote as a simple vote. The contract has
// already enforced the voting window and stake rules, so only shape is
// checked. It reports false when the vote was already recorded or the
// content is unknown or finalized.
func (s *VoteService) RecordChainVote(ctx context.Context, ev ChainVote) (bool, error) {
	if !ev.Option.Valid() {
		return false, fmt.Errorf("%w: option %d", ErrInvalidVote, uint8(ev.Option))
	}
	if err := checkConfidence(ev.Confidence); err != nil {
		return false, err
	}

	c, err := s.contents.FindByContractID(ctx, ev.ContractID)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Warn().Uint64("contract_id", ev.ContractID).Str("tx", ev.TxHash).Msg("vote for unknown content")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if c.IsFinalized {
		s.log.Warn().Str("content_id", c.ID).Str("tx", ev.TxHash).Msg("vote after finalization ignored")
		return false, nil
	}

	stake, err := s.converter.FromBaseUnits(ctx, ev.TokenType, ev.Amount)
	if err != nil {
		return false, err
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = s.policy.Now()
	}

	v := &model.Vote{
		ContentID:   c.ID,
		Voter:       strings.ToLower(ev.Voter),
		Kind:        model.VoteKindSimple,
		Option:      ev.Option,
		TokenType:   ev.TokenType,
		StakeAmount: stake,
		Confidence:  ev.Confidence,
		Timestamp:   ts.UTC(),
		TxHash:      ev.TxHash,
	}
	err = s.votes.InsertUnique(ctx, v)
	if errors.Is(err, repository.ErrDuplicateVote) {
		s.log.Debug().Str("content_id", c.ID).Str("voter", v.Voter).Msg("chain vote already recorded")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	metrics.VotesTotal.WithLabelValues("chain", ev.Option.String()).Inc()
	return true, nil
}

// ListForContent returns all votes on an existing content item.
func (s *VoteService) ListForContent(ctx context.Context, contentID string) ([]model.Vote, error) {
	if _, err := s.contents.FindByID(ctx, contentID); err != nil {
		return nil, err
	}
	return s.votes.FindByContent(ctx, contentID)
}

func (s *VoteService) checkLive(c *model.Content) error {
	if c.IsFinalized || s.policy.HasEnded(c) {
		return ErrVotingClosed
	}
	if s.policy.Now().Before(c.VotingStartTime) {
		return ErrVotingNotStarted
	}
	return nil
}

// parseStake validates the token and stake amount against the token catalog.
func (s *VoteService) parseStake(ctx context.Context, rawToken *int, rawStake string) (model.TokenType, decimal.Decimal, error) {
	if rawToken == nil || *rawToken < 0 || *rawToken >= model.NumTokenTypes {
		return 0, decimal.Decimal{}, ErrUnknownTokenType
	}
	t := model.TokenType(*rawToken)

	stake, err := decimal.NewFromString(strings.TrimSpace(rawStake))
	if err != nil {
		return 0, decimal.Decimal{}, fmt.Errorf("%w: stake amount %q", ErrInvalidVote, rawStake)
	}
	if stake.Sign() <= 0 {
		return 0, decimal.Decimal{}, fmt.Errorf("%w: stake must be positive", ErrInvalidVote)
	}

	tok, err := s.tokens.Token(ctx, t)
	if err != nil {
		return 0, decimal.Decimal{}, classifyPriceErr(t, err)
	}
	if stake.LessThan(tok.MinStakeAmount) {
		return 0, decimal.Decimal{}, fmt.Errorf("%w: minimum %s %s", ErrStakeTooSmall, tok.MinStakeAmount, tok.Symbol)
	}
	return t, stake, nil
}

func parseOption(raw *int) (model.VoteOption, error) {
	if raw == nil || *raw < 0 || *raw >= model.NumOptions {
		return 0, fmt.Errorf("%w: vote must be between 0 and 2", ErrInvalidVote)
	}
	return model.VoteOption(*raw), nil
}

func checkConfidence(c int) error {
	if c < model.MinConfidence || c > model.MaxConfidence {
		return fmt.Errorf("%w: confidence must be between %d and %d", ErrInvalidVote, model.MinConfidence, model.MaxConfidence)
	}
	return nil
}
