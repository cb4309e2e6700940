package repository

import "errors"

var (
	// ErrNotFound is returned when a content item or vote does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateVote is returned when (content_id, voter) already has a vote.
	ErrDuplicateVote = errors.New("duplicate vote")
	// ErrDuplicateContent is returned when a content id or contract id is taken.
	ErrDuplicateContent = errors.New("duplicate content")
	// ErrAlreadyFinalized is returned when the finalize compare-and-set finds
	// the item already finalized.
	ErrAlreadyFinalized = errors.New("content already finalized")
	// ErrAlreadyClaimed is returned when the claim compare-and-set finds the
	// reward already claimed.
	ErrAlreadyClaimed = errors.New("reward already claimed")
	// ErrAlreadyRevealed is returned when a commit was already revealed.
	ErrAlreadyRevealed = errors.New("vote already revealed")
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"
