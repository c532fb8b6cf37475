// Package ledger applies deposits, withdrawals and the dispute lifecycle to
// per-client accounts.
//
// A Ledger is owned by its caller and is not safe for concurrent use: a replay
// feeds it one transaction at a time, in input order.
//
// Policies:
//   - a withdrawal larger than the available balance is rejected;
//   - only deposits and withdrawals that were applied can be disputed later;
//   - a dispute may take available below zero;
//   - a locked account keeps accepting transactions, locked is only reported.
package ledger

import (
	"fmt"

	"github.com/trufnetwork/ledger-go/core/logging"
	"github.com/trufnetwork/ledger-go/core/types"
	"github.com/trufnetwork/ledger-go/core/util"
	"go.uber.org/zap"
)

type Ledger struct {
	accounts map[types.ClientId]*account
	logger   *zap.Logger
}

type Option func(*Ledger)

// WithLogger sets the logger that receives rejection diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func New(options ...Option) *Ledger {
	l := &Ledger{
		accounts: make(map[types.ClientId]*account),
		logger:   logging.Logger,
	}
	for _, option := range options {
		option(l)
	}
	return l
}

// Apply applies tx to the account of tx.Client, creating the account if needed.
//
// A rejected transaction leaves the ledger untouched, is logged as a warning and
// returned as a *RejectionError. Rejections are not fatal: callers keep feeding
// the next transaction.
func (l *Ledger) Apply(tx types.Transaction) error {
	acc := l.account(tx.Client)

	var err error
	switch tx.Type {
	case types.TxTypeDeposit:
		err = l.deposit(acc, tx)
	case types.TxTypeWithdrawal:
		err = l.withdraw(acc, tx)
	case types.TxTypeDispute:
		err = l.dispute(acc, tx)
	case types.TxTypeResolve:
		err = l.resolve(acc, tx)
	case types.TxTypeChargeBack:
		err = l.chargeBack(acc, tx)
	default:
		err = fmt.Errorf("unsupported transaction type %s", tx.Type)
	}
	if err == nil {
		return nil
	}

	rejection := reject(tx, err)
	l.logger.Warn("transaction rejected",
		zap.String("type", tx.Type.String()),
		zap.Uint16("client", uint16(tx.Client)),
		zap.Uint32("tx", uint32(tx.Tx)),
		zap.Error(err),
	)
	return rejection
}

func (l *Ledger) deposit(acc *account, tx types.Transaction) error {
	if err := l.checkNew(acc, tx); err != nil {
		return err
	}

	available, err := acc.available.Add(tx.Amount)
	if err != nil {
		return arithmetic(err)
	}

	acc.available = available
	acc.history[tx.Tx] = tx
	return nil
}

func (l *Ledger) withdraw(acc *account, tx types.Transaction) error {
	if err := l.checkNew(acc, tx); err != nil {
		return err
	}
	if acc.available.Cmp(tx.Amount) < 0 {
		return fmt.Errorf("%w: available %s, requested %s", ErrInsufficientFunds, acc.available, tx.Amount)
	}

	available, err := acc.available.Sub(tx.Amount)
	if err != nil {
		return arithmetic(err)
	}

	acc.available = available
	acc.history[tx.Tx] = tx
	return nil
}

func (l *Ledger) checkNew(acc *account, tx types.Transaction) error {
	if tx.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, tx.Amount)
	}
	if acc.knows(tx.Tx) {
		return ErrDuplicateTransaction
	}
	return nil
}

func (l *Ledger) dispute(acc *account, tx types.Transaction) error {
	if _, ok := acc.disputed[tx.Tx]; ok {
		return ErrAlreadyDisputed
	}
	ref, ok := acc.history[tx.Tx]
	if !ok {
		return ErrUnknownTransaction
	}
	if !ref.Type.HasAmount() {
		return fmt.Errorf("%w: %s", ErrNotDisputable, ref.Type)
	}

	held, err := acc.held.Add(ref.Amount)
	if err != nil {
		return arithmetic(err)
	}
	available, err := acc.available.Sub(ref.Amount)
	if err != nil {
		return arithmetic(err)
	}

	acc.held, acc.available = held, available
	delete(acc.history, tx.Tx)
	acc.disputed[tx.Tx] = ref
	return nil
}

func (l *Ledger) resolve(acc *account, tx types.Transaction) error {
	ref, ok := acc.disputed[tx.Tx]
	if !ok {
		return ErrNotDisputed
	}

	held, err := acc.held.Sub(ref.Amount)
	if err != nil {
		return arithmetic(err)
	}
	available, err := acc.available.Add(ref.Amount)
	if err != nil {
		return arithmetic(err)
	}

	acc.held, acc.available = held, available
	delete(acc.disputed, tx.Tx)
	acc.history[tx.Tx] = ref
	return nil
}

func (l *Ledger) chargeBack(acc *account, tx types.Transaction) error {
	ref, ok := acc.disputed[tx.Tx]
	if !ok {
		return ErrNotDisputed
	}

	held, err := acc.held.Sub(ref.Amount)
	if err != nil {
		return arithmetic(err)
	}

	acc.held = held
	acc.locked = true
	delete(acc.disputed, tx.Tx)
	acc.history[tx.Tx] = ref
	return nil
}

func arithmetic(err error) error {
	return fmt.Errorf("%w: %v", ErrArithmetic, err)
}

func (l *Ledger) account(client types.ClientId) *account {
	acc, ok := l.accounts[client]
	if !ok {
		acc = newAccount(client)
		l.accounts[client] = acc
	}
	return acc
}

// Account returns the current state of one client account.
func (l *Ledger) Account(client types.ClientId) (types.AccountSnapshot, bool) {
	acc, ok := l.accounts[client]
	if !ok {
		return types.AccountSnapshot{}, false
	}
	return acc.snapshot(), true
}

// Snapshots returns every known account ordered by client id.
func (l *Ledger) Snapshots() []types.AccountSnapshot {
	out := make([]types.AccountSnapshot, 0, len(l.accounts))
	for _, client := range util.SortedKeys(l.accounts) {
		out = append(out, l.accounts[client].snapshot())
	}
	return out
}

// Len returns the number of known accounts.
func (l *Ledger) Len() int {
	return len(l.accounts)
}
