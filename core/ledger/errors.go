package ledger

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/trufnetwork/ledger-go/core/types"
)

var (
	ErrInsufficientFunds    = errors.New("insufficient available funds")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrDuplicateTransaction = errors.New("transaction id already recorded")
	ErrUnknownTransaction   = errors.New("referenced transaction not found")
	ErrAlreadyDisputed      = errors.New("transaction already disputed")
	ErrNotDisputed          = errors.New("transaction is not under dispute")
	ErrNotDisputable        = errors.New("transaction cannot be disputed")
	ErrArithmetic           = errors.New("balance arithmetic failed")
)

// RejectionError reports a transaction that was dropped without mutating the ledger.
type RejectionError struct {
	Tx  types.Transaction
	Err error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s client=%d tx=%d rejected: %v", e.Tx.Type, e.Tx.Client, e.Tx.Tx, e.Err)
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

func reject(tx types.Transaction, err error) *RejectionError {
	return &RejectionError{Tx: tx, Err: err}
}
