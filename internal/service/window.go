package service

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
)

// ClaimDelay is how long after voting ends the submitter must wait before
// claiming the reward.
const ClaimDelay = 48 * time.Hour

// WindowPolicy answers time-based questions about a content item's voting
// window against an injected clock.
type WindowPolicy struct {
	clock clock.Clock
}

// NewWindowPolicy creates a policy. A nil clock uses the wall clock.
func NewWindowPolicy(clk clock.Clock) *WindowPolicy {
	if clk == nil {
		clk = clock.New()
	}
	return &WindowPolicy{clock: clk}
}

// Now returns the policy's current time.
func (p *WindowPolicy) Now() time.Time {
	return p.clock.Now()
}

// Clock exposes the underlying clock for schedulers sharing it.
func (p *WindowPolicy) Clock() clock.Clock {
	return p.clock
}

// HasEnded reports whether the voting window has closed. Content without any
// deadline never ends.
func (p *WindowPolicy) HasEnded(c *model.Content) bool {
	end, ok := c.EndTime()
	if !ok {
		return false
	}
	return !p.clock.Now().Before(end)
}

// IsLive reports whether votes are accepted right now.
func (p *WindowPolicy) IsLive(c *model.Content) bool {
	if c.IsFinalized {
		return false
	}
	return !p.clock.Now().Before(c.VotingStartTime) && !p.HasEnded(c)
}

// CanClaimReward reports whether the claim delay has elapsed for a finalized
// item. Items finalized without a deadline count from FinalizedAt.
func (p *WindowPolicy) CanClaimReward(c *model.Content) bool {
	if !c.IsFinalized {
		return false
	}
	end, ok := c.EndTime()
	if !ok {
		if c.FinalizedAt == nil {
			return false
		}
		end = *c.FinalizedAt
	}
	return !p.clock.Now().Before(end.Add(ClaimDelay))
}

// Status is the presentation status of the window.
func (p *WindowPolicy) Status(c *model.Content) model.Status {
	switch {
	case c.IsFinalized:
		return model.StatusFinalized
	case p.HasEnded(c):
		return model.StatusExpired
	case !p.clock.Now().Before(c.VotingStartTime):
		return model.StatusLive
	default:
		return model.StatusPending
	}
}

// State is the position in the finalization state machine.
func (p *WindowPolicy) State(c *model.Content) model.State {
	switch {
	case c.IsFinalized:
		return model.StateFinalized
	case p.HasEnded(c):
		return model.StateExpiredUnfinalized
	default:
		return model.StateOpen
	}
}
