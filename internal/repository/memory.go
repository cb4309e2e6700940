package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
)

// MemoryStore is an in-process content and vote store for tests and demo
// mode. Every conditional update runs under one mutex, so it gives the same
// at-most-once guarantees as the Postgres repos.
type MemoryStore struct {
	mu       sync.Mutex
	contents map[string]*model.Content
	byChain  map[uint64]string
	votes    map[string][]*model.Vote
	nextVote int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contents: make(map[string]*model.Content),
		byChain:  make(map[uint64]string),
		votes:    make(map[string][]*model.Vote),
	}
}

// Create stores a new content item.
func (s *MemoryStore) Create(ctx context.Context, c *model.Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contents[c.ID]; ok {
		return ErrDuplicateContent
	}
	if _, ok := s.byChain[c.ContractID]; ok {
		return ErrDuplicateContent
	}
	s.contents[c.ID] = cloneContent(c)
	s.byChain[c.ContractID] = c.ID
	return nil
}

// FindByID returns a copy of the content item with the given id.
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*model.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneContent(c), nil
}

// FindByContractID returns the content item mapped to a contract id.
func (s *MemoryStore) FindByContractID(ctx context.Context, contractID uint64) (*model.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byChain[contractID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneContent(s.contents[id]), nil
}

// FindDueForFinalization returns unfinalized items whose end time is at or
// before now. Never-attempted items come first, then oldest failure, then
// oldest deadline.
func (s *MemoryStore) FindDueForFinalization(ctx context.Context, now time.Time, limit int) ([]model.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []model.Content
	for _, c := range s.contents {
		if c.IsFinalized {
			continue
		}
		end, ok := c.EndTime()
		if !ok || now.Before(end) {
			continue
		}
		due = append(due, *cloneContent(c))
	}
	sort.Slice(due, func(i, j int) bool {
		fi, fj := due[i].FinalizeFailedAt, due[j].FinalizeFailedAt
		switch {
		case fi == nil && fj != nil:
			return true
		case fi != nil && fj == nil:
			return false
		case fi != nil && !fi.Equal(*fj):
			return fi.Before(*fj)
		}
		ei, _ := due[i].EndTime()
		ej, _ := due[j].EndTime()
		if ei.Equal(ej) {
			return due[i].ID < due[j].ID
		}
		return ei.Before(ej)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// List returns content items matching the query, newest submission first.
func (s *MemoryStore) List(ctx context.Context, q model.ContentQuery) ([]model.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Content
	for _, c := range s.contents {
		if q.Status != "" && statusAt(c, q.Now) != q.Status {
			continue
		}
		out = append(out, *cloneContent(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmissionTime.Equal(out[j].SubmissionTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].SubmissionTime.After(out[j].SubmissionTime)
	})
	if q.Skip >= len(out) {
		return []model.Content{}, nil
	}
	out = out[q.Skip:]
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// MarkFinalized commits a finalization only if the item is still unfinalized.
func (s *MemoryStore) MarkFinalized(ctx context.Context, id string, f model.Finalization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contents[id]
	if !ok {
		return ErrNotFound
	}
	if c.IsFinalized {
		return ErrAlreadyFinalized
	}
	f.Participants = append([]string(nil), f.Participants...)
	c.Apply(f)
	return nil
}

// MarkFinalizeFailed stamps a failed finalization attempt on an unfinalized item.
func (s *MemoryStore) MarkFinalizeFailed(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contents[id]
	if !ok {
		return ErrNotFound
	}
	if !c.IsFinalized {
		c.FinalizeFailedAt = &at
	}
	return nil
}

// MarkRewardClaimed records a claim only if the item is finalized and the
// reward has not been claimed yet.
func (s *MemoryStore) MarkRewardClaimed(ctx context.Context, id string, reward int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contents[id]
	if !ok {
		return ErrNotFound
	}
	if !c.IsFinalized || c.HasClaimedReward {
		return ErrAlreadyClaimed
	}
	c.HasClaimedReward = true
	c.ClaimedReward = reward
	c.ClaimedAt = &at
	return nil
}

// InsertUnique stores a vote, failing with ErrDuplicateVote if the voter
// already voted on the content item. Voter addresses compare case-insensitively.
func (s *MemoryStore) InsertUnique(ctx context.Context, v *model.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contents[v.ContentID]; !ok {
		return ErrNotFound
	}
	voter := strings.ToLower(v.Voter)
	for _, existing := range s.votes[v.ContentID] {
		if existing.Voter == voter {
			return ErrDuplicateVote
		}
	}
	s.nextVote++
	v.ID = s.nextVote
	v.Voter = voter
	stored := *v
	s.votes[v.ContentID] = append(s.votes[v.ContentID], &stored)
	return nil
}

// FindByContent returns all votes on a content item in insertion order.
func (s *MemoryStore) FindByContent(ctx context.Context, contentID string) ([]model.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	votes := make([]model.Vote, 0, len(s.votes[contentID]))
	for _, v := range s.votes[contentID] {
		votes = append(votes, *v)
	}
	return votes, nil
}

// FindOne returns the vote cast by voter on a content item.
func (s *MemoryStore) FindOne(ctx context.Context, contentID, voter string) (*model.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	voter = strings.ToLower(voter)
	for _, v := range s.votes[contentID] {
		if v.Voter == voter {
			out := *v
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// Reveal fills in the plaintext of a committed vote exactly once.
func (s *MemoryStore) Reveal(ctx context.Context, contentID, voter string, option model.VoteOption, confidence int, salt string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	voter = strings.ToLower(voter)
	for _, v := range s.votes[contentID] {
		if v.Voter != voter || v.Kind != model.VoteKindCommit {
			continue
		}
		if v.Revealed {
			return ErrAlreadyRevealed
		}
		v.Option = option
		v.Confidence = confidence
		v.Salt = salt
		v.Revealed = true
		v.RevealedAt = &at
		return nil
	}
	return ErrNotFound
}

func cloneContent(c *model.Content) *model.Content {
	out := *c
	out.Participants = append([]string(nil), c.Participants...)
	return &out
}

// statusAt mirrors the SQL status filter in ContentRepo.List.
func statusAt(c *model.Content, now time.Time) model.Status {
	if c.IsFinalized {
		return model.StatusFinalized
	}
	end, hasEnd := c.EndTime()
	switch {
	case hasEnd && !now.Before(end):
		return model.StatusExpired
	case !now.Before(c.VotingStartTime):
		return model.StatusLive
	default:
		return model.StatusPending
	}
}
