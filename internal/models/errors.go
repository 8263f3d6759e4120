package models

import "errors"

// Failure taxonomy shared by the dispatcher, facade and HTTP layer. Callers
// classify with errors.Is; transport diagnostics are wrapped around these.
var (
	ErrNotConnected    = errors.New("mqtt transport not connected")
	ErrPublishFailed   = errors.New("mqtt publish failed")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("device not found")
	ErrTimeout         = errors.New("operation timed out")
)
