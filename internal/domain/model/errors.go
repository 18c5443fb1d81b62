package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches no stored credential
// or scheduled message.
var ErrNotFound = errors.New("not found")

// ErrNoRefreshToken is returned when a credential refresh is requested
// but the stored credential carries no refresh token.
var ErrNoRefreshToken = errors.New("credential has no refresh token")

// ValidationError reports a missing or malformed input field. It is
// surfaced to the caller and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ProviderError reports a Slack-side rejection of an API call. Code is
// the provider's error string ("invalid_auth", "channel_not_found").
type ProviderError struct {
	Op   string
	Code string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("slack %s failed: %s", e.Op, e.Code)
}
