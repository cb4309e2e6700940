package middleware

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
)

// Field length limits matching database schema constraints.
const (
	MaxTitleLen       = 200  // contents.title VARCHAR(200)
	MaxDescriptionLen = 2000 // contents.description VARCHAR(2000)
	MaxContentHashLen = 128  // contents.content_hash VARCHAR(128)
	MaxSaltLen        = 128
	MaxStakeDecimals  = 18 // widest token precision (ETH, DAI)
)

var (
	// cidRe matches IPFS CIDs (base32 v1 or base58 v0).
	cidRe = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateAddress checks for a 0x-prefixed 20-byte hex address and returns it
// lower-cased.
func ValidateAddress(field, addr string) (string, string) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", field + " is required"
	}
	if !strings.HasPrefix(addr, "0x") || !common.IsHexAddress(addr) {
		return "", field + " must be a 0x-prefixed hex address"
	}
	return strings.ToLower(addr), ""
}

// ValidateContentID checks that a content id is a UUID.
func ValidateContentID(id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "contentId is required"
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", "contentId must be a UUID"
	}
	return parsed.String(), ""
}

// ValidateTitle trims and bounds a content title.
func ValidateTitle(title string) (string, string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", "title is required"
	}
	if len(title) > MaxTitleLen {
		return "", fmt.Sprintf("title must be at most %d characters", MaxTitleLen)
	}
	return title, ""
}

// ValidateDescription trims and truncates a description to DB limits.
func ValidateDescription(desc string) string {
	desc = strings.TrimSpace(desc)
	if len(desc) > MaxDescriptionLen {
		desc = desc[:MaxDescriptionLen]
	}
	return desc
}

// ValidateContentHash checks an optional IPFS CID.
func ValidateContentHash(cid string) (string, string) {
	cid = strings.TrimSpace(cid)
	if cid == "" {
		return "", ""
	}
	if len(cid) > MaxContentHashLen {
		return "", fmt.Sprintf("contentHash must be at most %d characters", MaxContentHashLen)
	}
	if !cidRe.MatchString(cid) {
		return "", "contentHash contains invalid characters"
	}
	return cid, ""
}

// ValidateOption checks the vote option (0 fake, 1 real, 2 abstain).
func ValidateOption(v *int) string {
	if v == nil {
		return "vote is required"
	}
	if *v < 0 || *v >= model.NumOptions {
		return fmt.Sprintf("vote must be between 0 and %d", model.NumOptions-1)
	}
	return ""
}

// ValidateTokenType checks the stake token enum.
func ValidateTokenType(t *int) string {
	if t == nil {
		return "tokenType is required"
	}
	if *t < 0 || *t >= model.NumTokenTypes {
		return fmt.Sprintf("tokenType must be between 0 and %d", model.NumTokenTypes-1)
	}
	return ""
}

// ValidateConfidence checks the 1..10 confidence range.
func ValidateConfidence(c int) string {
	if c < model.MinConfidence || c > model.MaxConfidence {
		return fmt.Sprintf("confidence must be between %d and %d", model.MinConfidence, model.MaxConfidence)
	}
	return ""
}

// ValidateStakeAmount parses a positive decimal stake in whole tokens.
func ValidateStakeAmount(s string) (decimal.Decimal, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, "stakeAmount is required"
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, "stakeAmount must be a decimal number"
	}
	if d.Sign() <= 0 {
		return decimal.Decimal{}, "stakeAmount must be positive"
	}
	if d.Exponent() < -MaxStakeDecimals {
		return decimal.Decimal{}, fmt.Sprintf("stakeAmount supports at most %d decimal places", MaxStakeDecimals)
	}
	return d, ""
}

// ValidateHash32 checks a 0x-prefixed 32-byte hex digest (commit hash, tx
// hash) and returns it lower-cased.
func ValidateHash32(field, h string) (string, string) {
	h = strings.TrimSpace(h)
	if h == "" {
		return "", field + " is required"
	}
	b, err := hexutil.Decode(h)
	if err != nil || len(b) != 32 {
		return "", field + " must be a 0x-prefixed 32-byte hex string"
	}
	return strings.ToLower(h), ""
}

// ValidateSalt checks the reveal salt.
func ValidateSalt(salt string) string {
	if salt == "" {
		return "salt is required"
	}
	if len(salt) > MaxSaltLen {
		return fmt.Sprintf("salt must be at most %d characters", MaxSaltLen)
	}
	return ""
}
