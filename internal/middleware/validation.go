package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxContentLength bounds a single chat message.
const MaxContentLength = 10000

// ValidateMessageContent validates inbound chat message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > MaxContentLength {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates a session ID.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid session ID format")
	}
	return nil
}

// ValidateDocumentID validates a document ID.
func ValidateDocumentID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid document ID format")
	}
	return nil
}

// ValidateTenantID validates a tenant ID.
func ValidateTenantID(id string) error {
	if len(id) == 0 {
		return errors.New("tenant ID cannot be empty")
	}
	if len(id) > 64 {
		return errors.New("tenant ID exceeds maximum length")
	}
	return nil
}

// ValidateDocumentName validates a document name.
func ValidateDocumentName(name string) error {
	if len(name) == 0 {
		return errors.New("document name cannot be empty")
	}
	if len(name) > 256 {
		return errors.New("document name exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("document name must be valid UTF-8")
	}
	return nil
}
