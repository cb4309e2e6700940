package service

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"

	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
)

func at(d time.Duration) *time.Time {
	t := epoch.Add(d)
	return &t
}

func newPolicyAt(now time.Time) *WindowPolicy {
	clk := clock.NewMock()
	clk.Set(now)
	return NewWindowPolicy(clk)
}

func TestHasEndedFallbackOrder(t *testing.T) {
	p := newPolicyAt(epoch)

	tests := []struct {
		name    string
		content model.Content
		want    bool
	}{
		{"no deadline", model.Content{}, false},
		{"end time passed", model.Content{VotingEndTime: at(-time.Hour)}, true},
		{"end time reached exactly", model.Content{VotingEndTime: at(0)}, true},
		{"end time ahead", model.Content{VotingEndTime: at(time.Hour)}, false},
		{"end time wins over deadline", model.Content{VotingEndTime: at(time.Hour), VotingDeadline: at(-time.Hour)}, false},
		{"voting deadline fallback", model.Content{VotingDeadline: at(-time.Minute), RevealDeadline: at(time.Hour)}, true},
		{"reveal deadline fallback", model.Content{RevealDeadline: at(-time.Minute)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.HasEnded(&tt.content))
		})
	}
}

func TestCanClaimReward(t *testing.T) {
	end := epoch
	finalized := model.Content{VotingEndTime: &end, IsFinalized: true, FinalizedAt: &end}

	assert.False(t, newPolicyAt(epoch).CanClaimReward(&finalized))
	assert.False(t, newPolicyAt(epoch.Add(47*time.Hour)).CanClaimReward(&finalized))
	assert.True(t, newPolicyAt(epoch.Add(48*time.Hour)).CanClaimReward(&finalized))

	open := model.Content{VotingEndTime: &end}
	assert.False(t, newPolicyAt(epoch.Add(72*time.Hour)).CanClaimReward(&open))

	// no deadline: counts from finalization time
	noDeadline := model.Content{IsFinalized: true, FinalizedAt: at(time.Hour)}
	assert.False(t, newPolicyAt(epoch.Add(48*time.Hour)).CanClaimReward(&noDeadline))
	assert.True(t, newPolicyAt(epoch.Add(49*time.Hour)).CanClaimReward(&noDeadline))
}

func TestStatusAndState(t *testing.T) {
	p := newPolicyAt(epoch)

	pending := model.Content{VotingStartTime: epoch.Add(time.Hour), VotingEndTime: at(2 * time.Hour)}
	live := model.Content{VotingStartTime: epoch.Add(-time.Hour), VotingEndTime: at(time.Hour)}
	expired := model.Content{VotingStartTime: epoch.Add(-2 * time.Hour), VotingEndTime: at(-time.Hour)}
	finalized := expired
	finalized.IsFinalized = true

	assert.Equal(t, model.StatusPending, p.Status(&pending))
	assert.Equal(t, model.StatusLive, p.Status(&live))
	assert.Equal(t, model.StatusExpired, p.Status(&expired))
	assert.Equal(t, model.StatusFinalized, p.Status(&finalized))

	assert.Equal(t, model.StateOpen, p.State(&live))
	assert.Equal(t, model.StateExpiredUnfinalized, p.State(&expired))
	assert.Equal(t, model.StateFinalized, p.State(&finalized))

	assert.True(t, p.IsLive(&live))
	assert.False(t, p.IsLive(&pending))
	assert.False(t, p.IsLive(&expired))
}
