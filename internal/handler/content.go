package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/nishant2253/proofchain/proofchain-go/internal/middleware"
	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
	"github.com/nishant2253/proofchain/proofchain-go/internal/service"
)

type ContentHandler struct {
	contents  *service.ContentService
	results   *service.ResultsService
	finalizer *service.FinalizeService
	rewards   *service.RewardService
	votes     *service.VoteService
}

func NewContentHandler(contents *service.ContentService, results *service.ResultsService, finalizer *service.FinalizeService, rewards *service.RewardService, votes *service.VoteService) *ContentHandler {
	return &ContentHandler{
		contents:  contents,
		results:   results,
		finalizer: finalizer,
		rewards:   rewards,
		votes:     votes,
	}
}

// Create handles POST /api/content
func (h *ContentHandler) Create(c fiber.Ctx) error {
	var req model.ContentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}

	title, errMsg := middleware.ValidateTitle(req.Title)
	if errMsg != "" {
		return invalidField(c, errMsg)
	}
	req.Title = title

	submitter, errMsg := middleware.ValidateAddress("submitter", req.Submitter)
	if errMsg != "" {
		return invalidField(c, errMsg)
	}
	req.Submitter = submitter

	contentHash, errMsg := middleware.ValidateContentHash(req.ContentHash)
	if errMsg != "" {
		return invalidField(c, errMsg)
	}
	req.ContentHash = contentHash
	req.Description = middleware.ValidateDescription(req.Description)

	resp, err := h.contents.Create(c.Context(), req)
	if err != nil {
		return writeError(c, err, "Failed to create content")
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// List handles GET /api/content?status=live&skip=0&limit=20
func (h *ContentHandler) List(c fiber.Ctx) error {
	status := model.Status(fiber.Query[string](c, "status"))
	switch status {
	case "", model.StatusPending, model.StatusLive, model.StatusExpired, model.StatusFinalized:
	default:
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_PARAM",
			"status must be one of pending, live, expired, finalized")
	}

	q := model.ContentQuery{
		Status: status,
		Skip:   fiber.Query[int](c, "skip", 0),
		Limit:  fiber.Query[int](c, "limit", service.DefaultListLimit),
	}
	items, err := h.contents.List(c.Context(), q)
	if err != nil {
		return writeError(c, err, "Failed to list content")
	}
	return c.JSON(fiber.Map{
		"contents": items,
		"count":    len(items),
	})
}

// Get handles GET /api/content/:id
func (h *ContentHandler) Get(c fiber.Ctx) error {
	id, errMsg := middleware.ValidateContentID(c.Params("id"))
	if errMsg != "" {
		return invalidField(c, errMsg)
	}

	resp, err := h.contents.Get(c.Context(), id)
	if err != nil {
		return writeError(c, err, "Failed to lookup content")
	}
	return c.JSON(resp)
}

// Results handles GET /api/content/:id/results
func (h *ContentHandler) Results(c fiber.Ctx) error {
	id, errMsg := middleware.ValidateContentID(c.Params("id"))
	if errMsg != "" {
		return invalidField(c, errMsg)
	}

	resp, err := h.results.Get(c.Context(), id)
	if err != nil {
		return writeError(c, err, "Failed to compute results")
	}
	return c.JSON(resp)
}

// Finalize handles POST /api/content/:id/finalize
func (h *ContentHandler) Finalize(c fiber.Ctx) error {
	id, errMsg := middleware.ValidateContentID(c.Params("id"))
	if errMsg != "" {
		return invalidField(c, errMsg)
	}

	out, err := h.finalizer.FinalizeIfDue(c.Context(), id)
	if err != nil {
		return writeError(c, err, "Failed to finalize content")
	}
	if out.State != model.StateFinalized {
		return writeError(c, service.ErrVotingActive, "")
	}
	return c.JSON(fiber.Map{
		"performed": out.Performed,
		"results":   service.BuildResults(out.Content),
	})
}

// Claim handles POST /api/content/:id/claim
func (h *ContentHandler) Claim(c fiber.Ctx) error {
	id, errMsg := middleware.ValidateContentID(c.Params("id"))
	if errMsg != "" {
		return invalidField(c, errMsg)
	}

	claim, err := h.rewards.ClaimReward(c.Context(), id)
	if err != nil {
		return writeError(c, err, "Failed to claim reward")
	}
	return c.JSON(claim)
}

// Votes handles GET /api/content/:id/votes
func (h *ContentHandler) Votes(c fiber.Ctx) error {
	id, errMsg := middleware.ValidateContentID(c.Params("id"))
	if errMsg != "" {
		return invalidField(c, errMsg)
	}

	votes, err := h.votes.ListForContent(c.Context(), id)
	if err != nil {
		return writeError(c, err, "Failed to list votes")
	}
	return c.JSON(fiber.Map{
		"contentId": id,
		"votes":     votes,
		"count":     len(votes),
	})
}
