package middleware

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxUserIDLength bounds user ids accepted in paths and bodies.
const MaxUserIDLength = 128

// ValidateContent validates message, invitation and review text.
func ValidateContent(content string, maxLength int) error {
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	if maxLength > 0 && len(content) > maxLength {
		return fmt.Errorf("content exceeds maximum length of %d", maxLength)
	}
	return nil
}

// ValidateUserID validates a user ID. User ids become NATS subject tokens, so they may not
// contain dots, wildcards or whitespace.
func ValidateUserID(id string) error {
	if id == "" {
		return errors.New("user ID cannot be empty")
	}
	if len(id) > MaxUserIDLength {
		return errors.New("user ID exceeds maximum length")
	}
	if strings.ContainsAny(id, ".*> \t\r\n") {
		return errors.New("user ID contains invalid characters")
	}
	return nil
}

// ValidateInteractionID validates an interaction ID.
func ValidateInteractionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid interaction ID format")
	}
	return nil
}
