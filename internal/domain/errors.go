package domain

import "errors"

var (
	// ErrSubscriptionFailed is returned when subscription to darkpool contract events fails
	ErrSubscriptionFailed = errors.New("subscription failed")

	// ErrDuplicateSeed is returned when creating a state object whose recovery
	// stream seed already identifies a stored object
	ErrDuplicateSeed = errors.New("state object already exists for recovery stream seed")

	// ErrNotFound is returned when no state object carries the given nullifier
	ErrNotFound = errors.New("state object not found")

	// ErrAlreadyInactive is returned when deactivating a state object that is
	// already inactive
	ErrAlreadyInactive = errors.New("state object already inactive")

	// ErrVersionConflict is returned when a supersession does not advance the
	// object version by exactly one
	ErrVersionConflict = errors.New("state object version conflict")

	// ErrUnknownAccount is returned when no master view seed exists for the
	// account implied by an event
	ErrUnknownAccount = errors.New("unknown account")

	// ErrAccountExists is returned when registering a master view seed for an
	// owner address that already has one
	ErrAccountExists = errors.New("account already registered")

	// ErrAlreadyProcessed signals that an event's nullifier or recovery ID was
	// recorded by an earlier delivery. Redeliveries short-circuit on it; it is
	// never surfaced as a failure.
	ErrAlreadyProcessed = errors.New("event already processed")

	// ErrChainHalted is returned when a chain worker refuses new events after a
	// non-recoverable error
	ErrChainHalted = errors.New("chain halted pending operator intervention")
)

// IsDataError reports whether err is a non-recoverable consistency error.
// Data errors halt the chain worker; everything else is treated as transient
// and retried.
func IsDataError(err error) bool {
	return errors.Is(err, ErrDuplicateSeed) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlreadyInactive) ||
		errors.Is(err, ErrVersionConflict) ||
		errors.Is(err, ErrUnknownAccount)
}
