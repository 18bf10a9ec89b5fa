package flip

import "errors"

var (
	// ErrInvalidWager rejects out-of-bounds amounts or a choice outside
	// {0,1} before any side effect.
	ErrInvalidWager = errors.New("invalid wager")

	// ErrBetNotConfirmed means the claimed bet transfer could not be seen
	// confirmed at the custodial address. No outcome is generated.
	ErrBetNotConfirmed = errors.New("bet transfer not confirmed")

	// ErrBetMismatch means the referenced transfer landed but does not fund
	// this wager: wrong sender, wrong recipient, or too few lamports.
	ErrBetMismatch = errors.New("bet transfer does not match wager")

	// ErrBetAlreadySpent means the referenced transfer already settled a
	// wager. One confirmed transfer funds exactly one flip.
	ErrBetAlreadySpent = errors.New("bet transfer already spent")

	// ErrInsufficientHouseBalance means the wager resolved as a win but the
	// custodial wallet cannot cover the payout. The outcome is still
	// disclosed; the payout is withheld and flagged for the operator.
	ErrInsufficientHouseBalance = errors.New("insufficient house balance")
)
