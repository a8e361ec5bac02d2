package domain

import "errors"

var (
	// ErrInvalidBalance marks negative or non-numeric input to tier classification.
	ErrInvalidBalance = errors.New("invalid balance")

	// ErrInvalidAddress marks a string that is not a Stellar public key.
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrWalletNotFound means the account does not exist on the ledger.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrTransientNetwork covers connection failures, 5xx responses and exhausted rate-limit retries.
	ErrTransientNetwork = errors.New("transient network error")

	// ErrQueryTimedOut means a single ledger request exceeded its timeout.
	ErrQueryTimedOut = errors.New("ledger query timed out")
)

// IsRetryable reports whether the caller may retry the whole operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientNetwork) || errors.Is(err, ErrQueryTimedOut)
}
