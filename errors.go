package treasury

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound     = errors.New("treasury: not found")
	ErrInvalidInput = errors.New("treasury: invalid input")
	ErrUnauthorized = errors.New("treasury: unauthorized")

	// Configuration errors
	ErrAlreadyConfigured    = errors.New("treasury: vesting already configured")
	ErrNotConfigured        = errors.New("treasury: vesting not configured")
	ErrEmptyInput           = errors.New("treasury: no beneficiaries provided")
	ErrLengthMismatch       = errors.New("treasury: beneficiary and amount lists differ in length")
	ErrInvalidBeneficiary   = errors.New("treasury: invalid beneficiary account")
	ErrZeroAllocation       = errors.New("treasury: allocation amount is zero")
	ErrDuplicateBeneficiary = errors.New("treasury: duplicate beneficiary")

	// Vesting state errors
	ErrPaused           = errors.New("treasury: vesting is paused")
	ErrNotPaused        = errors.New("treasury: vesting is not paused")
	ErrAlreadyPaused    = errors.New("treasury: vesting already paused")
	ErrRevoked          = errors.New("treasury: allocation is revoked")
	ErrAlreadyRevoked   = errors.New("treasury: allocation already revoked")
	ErrNotRevoked       = errors.New("treasury: allocation is not revoked")
	ErrCliffNotReached  = errors.New("treasury: cliff period not reached")
	ErrNoAllocation     = errors.New("treasury: no allocation for beneficiary")
	ErrNothingToRelease = errors.New("treasury: allocation already released")
	ErrConservation     = errors.New("treasury: pool balance cannot cover outstanding allocations")

	// Staking errors
	ErrZeroAmount          = errors.New("treasury: amount is zero")
	ErrNoPosition          = errors.New("treasury: no stake position for account")
	ErrInsufficientStaked  = errors.New("treasury: unstake amount exceeds staked balance")
	ErrLockupNotElapsed    = errors.New("treasury: lockup period not elapsed")
	ErrNoRewards           = errors.New("treasury: no rewards to claim")
	ErrInsufficientRewards = errors.New("treasury: reward pool cannot cover claim")
	ErrRateOutOfRange      = errors.New("treasury: reward rate outside allowed band")
	ErrInsufficientBalance = errors.New("treasury: insufficient balance")

	// Custodian errors
	ErrTransferFailed = errors.New("treasury: custodian transfer failed")

	// Store errors
	ErrStoreNotReady     = errors.New("treasury: store not ready")
	ErrStoreClosed       = errors.New("treasury: store is closed")
	ErrTransactionFailed = errors.New("treasury: transaction failed")
	ErrMigrationFailed   = errors.New("treasury: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("treasury: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "treasury: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("treasury: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrNoAllocation) ||
		errors.Is(err, ErrNoPosition)
}

// IsStateError returns true if the error reflects a state gate (pause,
// cliff, lockup, revocation) rather than bad input. State errors clear on
// their own as time passes or an admin intervenes.
func IsStateError(err error) bool {
	return errors.Is(err, ErrPaused) ||
		errors.Is(err, ErrCliffNotReached) ||
		errors.Is(err, ErrLockupNotElapsed) ||
		errors.Is(err, ErrRevoked)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed) ||
		errors.Is(err, ErrTransferFailed)
}
