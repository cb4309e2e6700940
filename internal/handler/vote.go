package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/nishant2253/proofchain/proofchain-go/internal/middleware"
	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
	"github.com/nishant2253/proofchain/proofchain-go/internal/service"
)

type VoteHandler struct {
	svc *service.VoteService
}

func NewVoteHandler(svc *service.VoteService) *VoteHandler {
	return &VoteHandler{svc: svc}
}

// Submit handles POST /api/votes
func (h *VoteHandler) Submit(c fiber.Ctx) error {
	var req model.VoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}

	contentID, voter, errMsg := validateTarget(req.ContentID, req.Voter)
	if errMsg != "" {
		return invalidField(c, errMsg)
	}
	req.ContentID, req.Voter = contentID, voter

	if errMsg := middleware.ValidateOption(req.Vote); errMsg != "" {
		return invalidField(c, errMsg)
	}
	if errMsg := middleware.ValidateConfidence(req.Confidence); errMsg != "" {
		return invalidField(c, errMsg)
	}
	stake, errMsg := validateStake(req.TokenType, req.StakeAmount)
	if errMsg != "" {
		return invalidField(c, errMsg)
	}
	req.StakeAmount = stake

	if req.TxHash != "" {
		txHash, errMsg := middleware.ValidateHash32("txHash", req.TxHash)
		if errMsg != "" {
			return invalidField(c, errMsg)
		}
		req.TxHash = txHash
	}

	resp, err := h.svc.Submit(c.Context(), req)
	if err != nil {
		return writeError(c, err, "Failed to submit vote")
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Commit handles POST /api/votes/commit
func (h *VoteHandler) Commit(c fiber.Ctx) error {
	var req model.CommitRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}

	contentID, voter, errMsg := validateTarget(req.ContentID, req.Voter)
	if errMsg != "" {
		return invalidField(c, errMsg)
	}
	req.ContentID, req.Voter = contentID, voter

	commitHash, errMsg := middleware.ValidateHash32("commitHash", req.CommitHash)
	if errMsg != "" {
		return invalidField(c, errMsg)
	}
	req.CommitHash = commitHash

	stake, errMsg := validateStake(req.TokenType, req.StakeAmount)
	if errMsg != "" {
		return invalidField(c, errMsg)
	}
	req.StakeAmount = stake

	resp, err := h.svc.Commit(c.Context(), req)
	if err != nil {
		return writeError(c, err, "Failed to commit vote")
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Reveal handles POST /api/votes/reveal
func (h *VoteHandler) Reveal(c fiber.Ctx) error {
	var req model.RevealRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}

	contentID, voter, errMsg := validateTarget(req.ContentID, req.Voter)
	if errMsg != "" {
		return invalidField(c, errMsg)
	}
	req.ContentID, req.Voter = contentID, voter

	if errMsg := middleware.ValidateOption(req.Vote); errMsg != "" {
		return invalidField(c, errMsg)
	}
	if errMsg := middleware.ValidateConfidence(req.Confidence); errMsg != "" {
		return invalidField(c, errMsg)
	}
	if errMsg := middleware.ValidateSalt(req.Salt); errMsg != "" {
		return invalidField(c, errMsg)
	}

	resp, err := h.svc.Reveal(c.Context(), req)
	if err != nil {
		return writeError(c, err, "Failed to reveal vote")
	}
	return c.JSON(resp)
}

func validateTarget(contentID, voter string) (string, string, string) {
	id, errMsg := middleware.ValidateContentID(contentID)
	if errMsg != "" {
		return "", "", errMsg
	}
	addr, errMsg := middleware.ValidateAddress("voter", voter)
	if errMsg != "" {
		return "", "", errMsg
	}
	return id, addr, ""
}

func validateStake(tokenType *int, amount string) (string, string) {
	if errMsg := middleware.ValidateTokenType(tokenType); errMsg != "" {
		return "", errMsg
	}
	stake, errMsg := middleware.ValidateStakeAmount(amount)
	if errMsg != "" {
		return "", errMsg
	}
	return stake.String(), ""
}
