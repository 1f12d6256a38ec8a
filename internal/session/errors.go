package session

import "errors"

// Failure taxonomy surfaced to the realtime and REST layers. NotFound and
// InvalidState reject the request without mutating anything; TransientStore
// covers store failures and timeouts.
var (
	ErrNotFound       = errors.New("session or item not found")
	ErrTransientStore = errors.New("transient store error")
	ErrInvalidState   = errors.New("invalid state")
)
