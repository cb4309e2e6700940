package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the presentation status of a content item's voting window.
type Status string

const (
	StatusPending   Status = "pending"
	StatusLive      Status = "live"
	StatusExpired   Status = "expired"
	StatusFinalized Status = "finalized"
)

// State is the finalization state machine position. Finalized is terminal.
type State string

const (
	StateOpen               State = "open"
	StateExpiredUnfinalized State = "expired-unfinalized"
	StateFinalized          State = "finalized"
)

// Content is a piece of submitted content under vote.
type Content struct {
	ID          string `json:"id"`
	ContractID  uint64 `json:"contractId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ContentHash string `json:"contentHash,omitempty"`
	Submitter   string `json:"submitter"`

	SubmissionTime  time.Time  `json:"submissionTime"`
	VotingStartTime time.Time  `json:"votingStartTime"`
	VotingEndTime   *time.Time `json:"votingEndTime,omitempty"`
	VotingDeadline  *time.Time `json:"votingDeadline,omitempty"`
	RevealDeadline  *time.Time `json:"revealDeadline,omitempty"`

	IsFinalized      bool            `json:"isFinalized"`
	FinalizedAt      *time.Time      `json:"finalizedAt,omitempty"`
	Verdict          Verdict         `json:"verdict"`
	WinningOption    *VoteOption     `json:"winningOption"`
	Confidence       float64         `json:"confidence"`
	TotalWeight      float64         `json:"totalWeight"`
	ConsensusReached bool            `json:"consensusReached"`
	ParticipantCount int             `json:"participantCount"`
	Participants     []string        `json:"participants"`
	TotalUSDValue    decimal.Decimal `json:"totalUSDValue"`
	VoteDistribution Distribution    `json:"voteDistribution"`
	TokenTotals      TokenTotals     `json:"tokenTotals"`

	HasClaimedReward bool       `json:"hasClaimedReward"`
	ClaimedReward    int        `json:"claimedReward"`
	ClaimedAt        *time.Time `json:"claimedAt,omitempty"`

	// FinalizeFailedAt is the last failed sweep attempt; such items are
	// retried after never-attempted ones.
	FinalizeFailedAt *time.Time `json:"-"`
}

// EndTime returns the first deadline present, in precedence order
// votingEndTime, votingDeadline, revealDeadline.
func (c *Content) EndTime() (time.Time, bool) {
	for _, t := range []*time.Time{c.VotingEndTime, c.VotingDeadline, c.RevealDeadline} {
		if t != nil {
			return *t, true
		}
	}
	return time.Time{}, false
}

// Apply copies a committed finalization onto the content item.
func (c *Content) Apply(f Finalization) {
	finalizedAt := f.FinalizedAt
	c.IsFinalized = true
	c.FinalizedAt = &finalizedAt
	c.Verdict = f.Verdict
	c.WinningOption = f.WinningOption
	c.Confidence = f.Confidence
	c.TotalWeight = f.TotalWeight
	c.ConsensusReached = f.ConsensusReached
	c.VoteDistribution = f.VoteDistribution
	c.TokenTotals = f.TokenTotals
	c.TotalUSDValue = f.TotalUSDValue
	c.Participants = f.Participants
	c.ParticipantCount = len(f.Participants)
}

// ContentQuery filters content listings.
type ContentQuery struct {
	Status Status
	Now    time.Time // reference time for the status filter
	Skip   int
	Limit  int
}

// ContentRequest is the API request body for submitting content.
type ContentRequest struct {
	ContractID     *uint64 `json:"contractId,omitempty"`
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	ContentHash    string  `json:"contentHash"`
	Submitter      string  `json:"submitter"`
	VotingDuration string  `json:"votingDuration,omitempty"` // Go duration, e.g. "72h"
}

// ContentResponse is the API response for content lookups.
type ContentResponse struct {
	Content
	Status Status `json:"status"`
	Reward int    `json:"reward,omitempty"`
}

// ResultsResponse is the API response for consensus results.
type ResultsResponse struct {
	ContentID         string          `json:"contentId"`
	Verdict           Verdict         `json:"verdict"`
	Confidence        float64         `json:"confidence"`
	TotalWeight       float64         `json:"totalWeight"`
	ConsensusReached  bool            `json:"consensusReached"`
	Breakdown         ResultBreakdown `json:"breakdown"`
	IsFinalized       bool            `json:"isFinalized"`
	TotalVotes        int             `json:"totalVotes"`
	TotalParticipants int             `json:"totalParticipants"`
	TotalUSDValue     decimal.Decimal `json:"totalUSDValue"`
	FinalizedAt       *time.Time      `json:"finalizedAt,omitempty"`
}

// ResultBreakdown groups per-option figures the way the UI consumes them.
type ResultBreakdown struct {
	Upvotes   OptionBreakdown `json:"upvotes"`
	Downvotes OptionBreakdown `json:"downvotes"`
	Abstain   OptionBreakdown `json:"abstain"`
}

// RewardClaim is the API response for a successful reward claim.
type RewardClaim struct {
	ContentID string    `json:"contentId"`
	Reward    int       `json:"reward"`
	ClaimedAt time.Time `json:"claimedAt"`
}
