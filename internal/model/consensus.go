package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Verdict is the aggregate outcome of voting on a content item. The zero
// value means no verdict: consensus was not reached.
type Verdict string

const (
	VerdictUndecided Verdict = ""
	VerdictReal      Verdict = "REAL"
	VerdictFake      Verdict = "FAKE"
	VerdictTie       Verdict = "TIE"
	VerdictNoVotes   Verdict = "NO_VOTES"
)

// MarshalJSON encodes the undecided verdict as null.
func (v Verdict) MarshalJSON() ([]byte, error) {
	if v == VerdictUndecided {
		return []byte("null"), nil
	}
	return json.Marshal(string(v))
}

func (v *Verdict) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = VerdictUndecided
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*v = Verdict(s)
	return nil
}

// VerdictFor maps a winning option to its verdict.
func VerdictFor(o VoteOption) Verdict {
	if o == OptionReal {
		return VerdictReal
	}
	return VerdictFake
}

// OptionTally accumulates one option's votes at full precision.
type OptionTally struct {
	Count         int             `json:"count"`
	Weight        float64         `json:"weight"`
	ConfidenceSum float64         `json:"confidenceSum"` // sum of weight*confidence
	USDValue      decimal.Decimal `json:"usdValue"`
}

// Distribution is indexed by VoteOption.
type Distribution [NumOptions]OptionTally

// TotalWeight sums weight across all options.
func (d Distribution) TotalWeight() float64 {
	var total float64
	for _, t := range d {
		total += t.Weight
	}
	return total
}

// TotalCount sums vote counts across all options.
func (d Distribution) TotalCount() int {
	var total int
	for _, t := range d {
		total += t.Count
	}
	return total
}

// OptionBreakdown is the rounded, presentation form of an OptionTally.
type OptionBreakdown struct {
	Count      int     `json:"count"`
	Weight     float64 `json:"weight"`
	Percentage float64 `json:"percentage"`
	Confidence float64 `json:"confidence"`
}

// ConsensusResult is the outcome of aggregating a content item's votes.
type ConsensusResult struct {
	Verdict          Verdict                     `json:"verdict"`
	WinningOption    *VoteOption                 `json:"winningOption"`
	Confidence       float64                     `json:"confidence"`
	TotalWeight      float64                     `json:"totalWeight"`
	ConsensusReached bool                        `json:"consensusReached"`
	Breakdown        [NumOptions]OptionBreakdown `json:"breakdown"`
	Distribution     Distribution                `json:"-"`
	TotalUSDValue    decimal.Decimal             `json:"totalUSDValue"`
	TokenTotals      TokenTotals                 `json:"-"`
	TotalVotes       int                         `json:"totalVotes"`
}

// Finalization is the write-once aggregate state committed when voting closes.
type Finalization struct {
	Verdict          Verdict
	WinningOption    *VoteOption
	Confidence       float64
	TotalWeight      float64
	ConsensusReached bool
	VoteDistribution Distribution
	TokenTotals      TokenTotals
	TotalUSDValue    decimal.Decimal
	Participants     []string
	FinalizedAt      time.Time
}
