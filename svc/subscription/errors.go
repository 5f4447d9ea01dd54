package subscription

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the user has no subscription record. Quota checks
	// deny on it, but it is a different signal than an over-limit denial.
	ErrNotFound = errors.New("subscription record not found")

	// ErrStoreUnavailable wraps transport or storage failures.
	ErrStoreUnavailable = errors.New("subscription store unavailable")

	// ErrUserNotFound is returned by the usage mutators; it is always joined
	// with ErrNotFound.
	ErrUserNotFound = errors.New("user not found")

	// ErrBatchFailed means a batch run had candidates and none of them could
	// be transitioned.
	ErrBatchFailed = errors.New("every subscription transition in the batch failed")

	ErrInvalidTransition    = errors.New("invalid subscription transition")
	ErrInvalidAmount        = errors.New("requested amount must be positive")
	ErrInvalidOperation     = errors.New("unknown quota operation")
	ErrInvalidPaymentMethod = errors.New("payment method is required")
	ErrInvalidDays          = errors.New("days must be positive")
	ErrNothingToReset       = errors.New("no usage counters selected for reset")
	ErrInvalidPolicy        = errors.New("invalid tier policy")
	ErrInvalidUserID        = errors.New("user id is required")
)

func invalidTransition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}

func userNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return errors.Join(ErrUserNotFound, err)
	}
	return err
}
