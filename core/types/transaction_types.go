package types

import (
	"fmt"
	"strings"
)

// ClientId identifies a client account
type ClientId uint16

// TxId identifies a transaction; unique for the lifetime of a ledger
type TxId uint32

// TxType is the kind of a ledger transaction
type TxType uint8

const (
	TxTypeDeposit    TxType = iota + 1 // Credit available funds
	TxTypeWithdrawal                   // Debit available funds
	TxTypeDispute                      // Hold the amount of a prior transaction
	TxTypeResolve                      // Release a held dispute back to available
	TxTypeChargeBack                   // Remove a held dispute and lock the account
)

var txTypeNames = map[TxType]string{
	TxTypeDeposit:    "deposit",
	TxTypeWithdrawal: "withdrawal",
	TxTypeDispute:    "dispute",
	TxTypeResolve:    "resolve",
	TxTypeChargeBack: "chargeback",
}

// ParseTxType parses a transaction type name, ignoring case and surrounding spaces.
func ParseTxType(s string) (TxType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t, n := range txTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown transaction type %q", s)
}

func (t TxType) String() string {
	if n, ok := txTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("TxType(%d)", uint8(t))
}

// HasAmount reports whether transactions of this type carry their own amount.
// Disputes, resolves and chargebacks take the amount of the transaction they reference.
func (t TxType) HasAmount() bool {
	return t == TxTypeDeposit || t == TxTypeWithdrawal
}

// Transaction is a single decoded ledger row
type Transaction struct {
	Type   TxType
	Client ClientId
	Tx     TxId
	Amount Amount // Zero for types without an amount
}

// Validate checks that the transaction is well formed
func (t *Transaction) Validate() error {
	if _, ok := txTypeNames[t.Type]; !ok {
		return fmt.Errorf("invalid transaction type %d", uint8(t.Type))
	}
	if t.Type.HasAmount() && t.Amount.Sign() <= 0 {
		return fmt.Errorf("%s amount must be positive, got %s", t.Type, t.Amount)
	}
	return nil
}

// Deposit builds a deposit transaction.
func Deposit(client ClientId, tx TxId, amount Amount) Transaction {
	return Transaction{Type: TxTypeDeposit, Client: client, Tx: tx, Amount: amount}
}

// Withdrawal builds a withdrawal transaction.
func Withdrawal(client ClientId, tx TxId, amount Amount) Transaction {
	return Transaction{Type: TxTypeWithdrawal, Client: client, Tx: tx, Amount: amount}
}

// Dispute builds a dispute against a prior transaction.
func Dispute(client ClientId, tx TxId) Transaction {
	return Transaction{Type: TxTypeDispute, Client: client, Tx: tx, Amount: Zero()}
}

// Resolve builds a resolve of a disputed transaction.
func Resolve(client ClientId, tx TxId) Transaction {
	return Transaction{Type: TxTypeResolve, Client: client, Tx: tx, Amount: Zero()}
}

// ChargeBack builds a chargeback of a disputed transaction.
func ChargeBack(client ClientId, tx TxId) Transaction {
	return Transaction{Type: TxTypeChargeBack, Client: client, Tx: tx, Amount: Zero()}
}
