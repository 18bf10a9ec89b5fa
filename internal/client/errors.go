package client

import (
	"errors"

	"coinflip/internal/chain"
)

var (
	// ErrFlipInProgress guards the single-active-wager assumption: a second
	// bet transfer before the first settles would corrupt the session.
	ErrFlipInProgress = errors.New("another flip is in progress")

	// ErrInsufficientBalance is a local pre-check; the network would reject
	// the transfer anyway.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")

	// ErrInternalConsistency means the settlement service reported a
	// win/loss that contradicts its own outcome value. The session aborts
	// loudly; it never "corrects" the display.
	ErrInternalConsistency = errors.New("settlement result inconsistent")
)

// IsTransient reports whether the user can simply re-initiate the wager:
// network trouble and confirmation timeouts are retryable, a rejected or
// failed transfer is fatal for that wager.
func IsTransient(err error) bool {
	return errors.Is(err, chain.ErrNetwork) || errors.Is(err, chain.ErrConfirmTimeout)
}
