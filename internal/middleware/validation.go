package middleware

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateCampaignName validates a campaign name.
func ValidateCampaignName(name string) error {
	if len(name) == 0 {
		return errors.New("campaign name cannot be empty")
	}
	if len(name) > 256 {
		return errors.New("campaign name exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("campaign name must be valid UTF-8")
	}
	return nil
}

// ValidateLeadLimit validates a per-run lead limit against the cap.
func ValidateLeadLimit(limit, max int) error {
	if limit < 0 || limit > max {
		return fmt.Errorf("lead limit must be between 1 and %d", max)
	}
	return nil
}

// ValidateID validates a resource ID.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid ID format")
	}
	return nil
}

// ValidateQuestion validates a lead chat question.
func ValidateQuestion(q string) error {
	if len(q) == 0 {
		return errors.New("question cannot be empty")
	}
	if len(q) > 10000 {
		return errors.New("question exceeds maximum length")
	}
	if !utf8.ValidString(q) {
		return errors.New("question must be valid UTF-8")
	}
	return nil
}

// ValidateInstruction validates a website refinement instruction.
func ValidateInstruction(s string) error {
	if len(s) == 0 {
		return errors.New("instruction cannot be empty")
	}
	if len(s) > 10000 {
		return errors.New("instruction exceeds maximum length")
	}
	if !utf8.ValidString(s) {
		return errors.New("instruction must be valid UTF-8")
	}
	return nil
}
