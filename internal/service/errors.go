package service

import "errors"

// Input errors.
var (
	ErrUnknownTokenType    = errors.New("unknown token type")
	ErrInvalidVote         = errors.New("invalid vote")
	ErrStakeTooSmall       = errors.New("stake below token minimum")
	ErrVotingNotStarted    = errors.New("voting has not started")
	ErrVotingClosed        = errors.New("voting is closed")
	ErrCommitPhaseClosed   = errors.New("commit phase is closed")
	ErrNotCommitted        = errors.New("no committed vote to reveal")
	ErrCommitMismatch      = errors.New("reveal does not match commit")
	ErrVotingActive        = errors.New("voting is still active")
	ErrResultsNotAvailable = errors.New("results not yet available")
	ErrNotFinalized        = errors.New("content not finalized")
	ErrClaimWindowNotOpen  = errors.New("reward claim window not open")
	ErrInvalidContent      = errors.New("invalid content")
)

// Upstream errors.
var (
	ErrPriceUnavailable = errors.New("price unavailable")
)
