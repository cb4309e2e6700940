package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/nishant2253/proofchain/proofchain-go/internal/middleware"
	"github.com/nishant2253/proofchain/proofchain-go/internal/repository"
	"github.com/nishant2253/proofchain/proofchain-go/internal/service"
)

type apiError struct {
	target error
	status int
	code   string
}

// errorTable maps domain and storage errors to HTTP responses. Order matters
// only for wrapped errors that match more than one entry.
var errorTable = []apiError{
	{repository.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},

	{service.ErrInvalidVote, fiber.StatusBadRequest, "INVALID_VOTE"},
	{service.ErrInvalidContent, fiber.StatusBadRequest, "INVALID_CONTENT"},
	{service.ErrUnknownTokenType, fiber.StatusBadRequest, "UNKNOWN_TOKEN_TYPE"},
	{service.ErrStakeTooSmall, fiber.StatusBadRequest, "STAKE_TOO_SMALL"},

	{repository.ErrDuplicateVote, fiber.StatusConflict, "DUPLICATE_VOTE"},
	{repository.ErrDuplicateContent, fiber.StatusConflict, "DUPLICATE_CONTENT"},
	{repository.ErrAlreadyClaimed, fiber.StatusConflict, "ALREADY_CLAIMED"},
	{repository.ErrAlreadyRevealed, fiber.StatusConflict, "ALREADY_REVEALED"},
	{service.ErrVotingNotStarted, fiber.StatusConflict, "VOTING_NOT_STARTED"},
	{service.ErrVotingClosed, fiber.StatusConflict, "VOTING_CLOSED"},
	{service.ErrCommitPhaseClosed, fiber.StatusConflict, "COMMIT_PHASE_CLOSED"},
	{service.ErrNotCommitted, fiber.StatusConflict, "NOT_COMMITTED"},
	{service.ErrCommitMismatch, fiber.StatusConflict, "COMMIT_MISMATCH"},
	{service.ErrVotingActive, fiber.StatusConflict, "VOTING_ACTIVE"},
	{service.ErrResultsNotAvailable, fiber.StatusConflict, "RESULTS_NOT_AVAILABLE"},
	{service.ErrNotFinalized, fiber.StatusConflict, "NOT_FINALIZED"},
	{service.ErrClaimWindowNotOpen, fiber.StatusConflict, "CLAIM_WINDOW_NOT_OPEN"},

	{service.ErrPriceUnavailable, fiber.StatusBadGateway, "PRICE_UNAVAILABLE"},
}

// writeError answers with the mapped status for known errors and a generic
// 500 otherwise. fallback is the client-facing message for the 500 case.
func writeError(c fiber.Ctx, err error, fallback string) error {
	for _, e := range errorTable {
		if errors.Is(err, e.target) {
			return middleware.ErrorResponse(c, e.status, e.code, err.Error())
		}
	}
	middleware.Logger.Error().Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("request failed")
	return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", fallback)
}

func invalidField(c fiber.Ctx, msg string) error {
	return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", msg)
}

func invalidBody(c fiber.Ctx) error {
	return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
}
