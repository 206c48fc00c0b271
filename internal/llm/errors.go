package llm

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse indicates a provider returned a completion with no
// content. It is terminal: the call succeeded at the transport level, so
// retrying would burn tokens for the same outcome.
var ErrEmptyResponse = errors.New("llm: empty response from provider")

// UnsupportedProviderError indicates a request named a provider outside the
// supported set. This is a configuration error and is never retried.
type UnsupportedProviderError struct {
	Provider Provider
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("llm: unsupported provider %q", e.Provider)
}

// ModelRequestError wraps the final underlying error after retries exhaust.
type ModelRequestError struct {
	Provider Provider
	Attempts int
	Err      error
}

func (e *ModelRequestError) Error() string {
	return fmt.Sprintf("llm: model request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ModelRequestError) Unwrap() error {
	return e.Err
}
