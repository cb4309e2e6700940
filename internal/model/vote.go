package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// VoteOption is the opinion a voter stakes on. Values match the contract enum.
type VoteOption uint8

const (
	OptionFake    VoteOption = 0
	OptionReal    VoteOption = 1
	OptionAbstain VoteOption = 2

	// NumOptions sizes the per-option arrays.
	NumOptions = 3
)

func (o VoteOption) Valid() bool {
	return o < NumOptions
}

func (o VoteOption) String() string {
	switch o {
	case OptionFake:
		return "FAKE"
	case OptionReal:
		return "REAL"
	case OptionAbstain:
		return "ABSTAIN"
	default:
		return fmt.Sprintf("VoteOption(%d)", uint8(o))
	}
}

// VoteKind distinguishes one-shot votes from the legacy commit-reveal flow.
type VoteKind string

const (
	VoteKindSimple VoteKind = "simple"
	VoteKindCommit VoteKind = "commit"
)

// Confidence bounds.
const (
	MinConfidence = 1
	MaxConfidence = 10
)

// Vote is one participant's stake-weighted opinion on a content item.
type Vote struct {
	ID          int64           `json:"id"`
	ContentID   string          `json:"contentId"`
	Voter       string          `json:"voter"`
	Kind        VoteKind        `json:"kind"`
	Option      VoteOption      `json:"vote"`
	TokenType   TokenType       `json:"tokenType"`
	StakeAmount decimal.Decimal `json:"stakeAmount"`
	Confidence  int             `json:"confidence"`
	CommitHash  string          `json:"commitHash,omitempty"`
	Salt        string          `json:"-"`
	Revealed    bool            `json:"revealed"`
	Timestamp   time.Time       `json:"timestamp"`
	RevealedAt  *time.Time      `json:"revealedAt,omitempty"`
	TxHash      string          `json:"txHash,omitempty"`
}

// Counted reports whether the vote takes part in aggregation. A commit only
// counts once it has been revealed.
func (v Vote) Counted() bool {
	return v.Kind == VoteKindSimple || v.Revealed
}

// VoteRequest is the API request body for a simple vote.
type VoteRequest struct {
	ContentID   string `json:"contentId"`
	Voter       string `json:"voter"`
	Vote        *int   `json:"vote"`
	TokenType   *int   `json:"tokenType"`
	StakeAmount string `json:"stakeAmount"`
	Confidence  int    `json:"confidence"`
	TxHash      string `json:"txHash,omitempty"`
}

// CommitRequest is the API request body for the commit phase.
type CommitRequest struct {
	ContentID   string `json:"contentId"`
	Voter       string `json:"voter"`
	CommitHash  string `json:"commitHash"`
	TokenType   *int   `json:"tokenType"`
	StakeAmount string `json:"stakeAmount"`
}

// RevealRequest is the API request body for the reveal phase.
type RevealRequest struct {
	ContentID  string `json:"contentId"`
	Voter      string `json:"voter"`
	Vote       *int   `json:"vote"`
	Confidence int    `json:"confidence"`
	Salt       string `json:"salt"`
}

// VoteResponse is the API response after a vote, commit or reveal.
type VoteResponse struct {
	Success   bool   `json:"success"`
	ContentID string `json:"contentId"`
	Voter     string `json:"voter"`
	Kind      string `json:"kind"`
	Counted   bool   `json:"counted"`
}
