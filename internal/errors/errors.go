package errors

import "errors"

// Domain error kinds. Every failure in the lifecycle core wraps one of these
// so callers can branch with errors.Is; none of them is fatal to the process.
var ErrNotFound = errors.New("entity not found")
var ErrInactive = errors.New("entity is inactive")
var ErrAlreadyUsed = errors.New("ticket already used")
var ErrCancelled = errors.New("entity is cancelled")
var ErrInvalidTransition = errors.New("invalid status transition")
var ErrCodeExhausted = errors.New("code generation retry budget exceeded")
var ErrConflict = errors.New("concurrent update conflict")
var ErrUnauthorized = errors.New("user is not authorized")
var ErrForbidden = errors.New("operation is forbidden for user")
