// Package welfarechat holds the errors shared by the chat widget packages.
package welfarechat

import "errors"

// Common errors for chat transport and widget state operations.
var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrInvalidStoreType = errors.New("invalid store type")
	ErrRequestFailed    = errors.New("chat request failed")
	ErrMissingBody      = errors.New("chat response has no body")
	ErrEmptyInput       = errors.New("empty chat input")
)
