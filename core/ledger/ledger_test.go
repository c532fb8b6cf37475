package ledger

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trufnetwork/ledger-go/core/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func amt(s string) types.Amount {
	return types.MustParseAmount(s)
}

func newObservedLedger() (*Ledger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.WarnLevel)
	return New(WithLogger(zap.New(core))), logs
}

type row struct {
	client    types.ClientId
	available string
	held      string
	total     string
	locked    bool
}

func requireAccount(t *testing.T, l *Ledger, want row) {
	t.Helper()
	got, ok := l.Account(want.client)
	require.True(t, ok, "account %d should exist", want.client)

	total, err := got.Total()
	require.NoError(t, err)

	assert.Equal(t, want.available, got.Available.String(), "available")
	assert.Equal(t, want.held, got.Held.String(), "held")
	assert.Equal(t, want.total, total.String(), "total")
	assert.Equal(t, want.locked, got.Locked, "locked")
}

// ═══════════════════════════════════════════════════════════════
// SCENARIOS
// ═══════════════════════════════════════════════════════════════

func TestLedger_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		txs      []types.Transaction
		want     row
		rejected int
	}{
		{
			name: "Single deposit",
			txs:  []types.Transaction{types.Deposit(1, 1, amt("1.0"))},
			want: row{1, "1.0000", "0.0000", "1.0000", false},
		},
		{
			name: "Deposit then withdrawal",
			txs: []types.Transaction{
				types.Deposit(1, 1, amt("1.0")),
				types.Withdrawal(1, 2, amt("0.5")),
			},
			want: row{1, "0.5000", "0.0000", "0.5000", false},
		},
		{
			name: "Dispute holds the deposit",
			txs: []types.Transaction{
				types.Deposit(1, 1, amt("1.0")),
				types.Dispute(1, 1),
			},
			want: row{1, "0.0000", "1.0000", "1.0000", false},
		},
		{
			name: "Resolve releases the hold",
			txs: []types.Transaction{
				types.Deposit(1, 1, amt("1.0")),
				types.Dispute(1, 1),
				types.Resolve(1, 1),
			},
			want: row{1, "1.0000", "0.0000", "1.0000", false},
		},
		{
			name: "Chargeback removes funds and locks",
			txs: []types.Transaction{
				types.Deposit(1, 1, amt("1.0")),
				types.Dispute(1, 1),
				types.ChargeBack(1, 1),
			},
			want: row{1, "0.0000", "0.0000", "0.0000", true},
		},
		{
			name: "Dispute of unknown transaction",
			txs: []types.Transaction{
				types.Deposit(1, 1, amt("1.0")),
				types.Dispute(1, 99),
			},
			want:     row{1, "1.0000", "0.0000", "1.0000", false},
			rejected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, logs := newObservedLedger()
			rejected := 0
			for _, tx := range tt.txs {
				if err := l.Apply(tx); err != nil {
					rejected++
				}
			}

			assert.Equal(t, tt.rejected, rejected)
			assert.Equal(t, tt.rejected, logs.Len(), "one diagnostic per rejection")
			requireAccount(t, l, tt.want)
		})
	}
}

// ═══════════════════════════════════════════════════════════════
// RULES
// ═══════════════════════════════════════════════════════════════

func TestLedger_DepositsSumExactly(t *testing.T) {
	l := New()
	for i := 1; i <= 1000; i++ {
		require.NoError(t, l.Apply(types.Deposit(7, types.TxId(i), amt("0.1"))))
	}
	requireAccount(t, l, row{7, "100.0000", "0.0000", "100.0000", false})
}

func TestLedger_WithdrawalInsufficientFunds(t *testing.T) {
	l, logs := newObservedLedger()
	require.NoError(t, l.Apply(types.Deposit(1, 1, amt("1.0"))))

	err := l.Apply(types.Withdrawal(1, 2, amt("1.5")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientFunds))

	var rejection *RejectionError
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, types.TxId(2), rejection.Tx.Tx)

	requireAccount(t, l, row{1, "1.0000", "0.0000", "1.0000", false})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "transaction rejected", entry.Message)
	assert.Equal(t, "withdrawal", entry.ContextMap()["type"])
}

func TestLedger_WithdrawalOfEntireBalance(t *testing.T) {
	l := New()
	require.NoError(t, l.Apply(types.Deposit(1, 1, amt("2.5"))))
	require.NoError(t, l.Apply(types.Withdrawal(1, 2, amt("2.5"))))
	requireAccount(t, l, row{1, "0.0000", "0.0000", "0.0000", false})
}

func TestLedger_RejectedWithdrawalIsNotDisputable(t *testing.T) {
	l := New()
	require.NoError(t, l.Apply(types.Deposit(1, 1, amt("1.0"))))
	require.Error(t, l.Apply(types.Withdrawal(1, 2, amt("5.0"))))

	err := l.Apply(types.Dispute(1, 2))
	assert.True(t, errors.Is(err, ErrUnknownTransaction))
	requireAccount(t, l, row{1, "1.0000", "0.0000", "1.0000", false})
}

func TestLedger_DisputeWithdrawal(t *testing.T) {
	l := New()
	require.NoError(t, l.Apply(types.Deposit(1, 1, amt("3.0"))))
	require.NoError(t, l.Apply(types.Withdrawal(1, 2, amt("1.0"))))
	require.NoError(t, l.Apply(types.Dispute(1, 2)))

	requireAccount(t, l, row{1, "1.0000", "1.0000", "2.0000", false})
}

func TestLedger_DisputeCanDriveAvailableNegative(t *testing.T) {
	l := New()
	require.NoError(t, l.Apply(types.Deposit(1, 1, amt("10"))))
	require.NoError(t, l.Apply(types.Withdrawal(1, 2, amt("8"))))
	require.NoError(t, l.Apply(types.Dispute(1, 1)))

	requireAccount(t, l, row{1, "-8.0000", "10.0000", "2.0000", false})
}

func TestLedger_DisputeTwice(t *testing.T) {
	l, logs := newObservedLedger()
	require.NoError(t, l.Apply(types.Deposit(1, 1, amt("1.0"))))
	require.NoError(t, l.Apply(types.Dispute(1, 1)))

	err := l.Apply(types.Dispute(1, 1))
	assert.True(t, errors.Is(err, ErrAlreadyDisputed))
	assert.Equal(t, 1, logs.Len())
	requireAccount(t, l, row{1, "0.0000", "1.0000", "1.0000", false})
}

func TestLedger_DisputeOtherClientsTransaction(t *testing.T) {
	l := New()
	require.NoError(t, l.Apply(types.Deposit(1, 1, amt("1.0"))))

	err := l.Apply(types.Dispute(2, 1))
	assert.True(t, errors.Is(err, ErrUnknownTransaction))
	requireAccount(t, l, row{1, "1.0000", "0.0000", "1.0000", false})
	requireAccount(t, l, row{2, "0.0000", "0.0000", "0.0000", false})
}

func TestLedger_ResolveAndChargeBackRequireDispute(t *testing.T) {
	for _, build := range []func(types.ClientId, types.TxId) types.Transaction{types.Resolve, types.ChargeBack} {
		tx := build(1, 1)
		t.Run(tx.Type.String(), func(t *testing.T) {
			l, logs := newObservedLedger()
			require.NoError(t, l.Apply(types.Deposit(1, 1, amt("1.0"))))

			err := l.Apply(tx)
			assert.True(t, errors.Is(err, ErrNotDisputed))
			assert.Equal(t, 1, logs.Len())
			requireAccount(t, l, row{1, "1.0000", "0.0000", "1.0000", false})

			err = l.Apply(build(1, 42))
			assert.True(t, errors.Is(err, ErrNotDisputed))
			requireAccount(t, l, row{1, "1.0000", "0.0000", "1.0000", false})
		})
	}
}

func TestLedger_ResolveTwice(t *testing.T) {
	l := New()
	require.NoError(t, l.Apply(types.Deposit(1, 1, amt("1.0"))))
	require.NoError(t, l.Apply(types.Dispute(1, 1)))
	require.NoError(t, l.Apply(types.Resolve(1, 1)))

	assert.True(t, errors.Is(l.Apply(types.Resolve(1, 1)), ErrNotDisputed))
	requireAccount(t, l, row{1, "1.0000", "0.0000", "1.0000", false})
}

func TestLedger_LockedAccountKeepsProcessing(t *testing.T) {
	l := New()
	require.NoError(t, l.Apply(types.Deposit(1, 1, amt("1.0"))))
	require.NoError(t, l.Apply(types.Dispute(1, 1)))
	require.NoError(t, l.Apply(types.ChargeBack(1, 1)))
	require.NoError(t, l.Apply(types.Deposit(1, 2, amt("2.0"))))

	requireAccount(t, l, row{1, "2.0000", "0.0000", "2.0000", true})
}

func TestLedger_DuplicateTransactionId(t *testing.T) {
	l := New()
	require.NoError(t, l.Apply(types.Deposit(1, 1, amt("1.0"))))

	err := l.Apply(types.Deposit(1, 1, amt("5.0")))
	assert.True(t, errors.Is(err, ErrDuplicateTransaction))

	require.NoError(t, l.Apply(types.Dispute(1, 1)))
	err = l.Apply(types.Withdrawal(1, 1, amt("0.5")))
	assert.True(t, errors.Is(err, ErrDuplicateTransaction))

	requireAccount(t, l, row{1, "0.0000", "1.0000", "1.0000", false})
}

func TestLedger_NonPositiveAmounts(t *testing.T) {
	for _, value := range []string{"0", "-1.5"} {
		t.Run(value, func(t *testing.T) {
			l := New()
			assert.True(t, errors.Is(l.Apply(types.Deposit(1, 1, amt(value))), ErrInvalidAmount))
			assert.True(t, errors.Is(l.Apply(types.Withdrawal(1, 2, amt(value))), ErrInvalidAmount))
			requireAccount(t, l, row{1, "0.0000", "0.0000", "0.0000", false})
		})
	}
}

// ═══════════════════════════════════════════════════════════════
// PROPERTIES
// ═══════════════════════════════════════════════════════════════

func TestLedger_DisputeResolveRoundTrip(t *testing.T) {
	amounts := []string{"0.0001", "1", "12.3456", "99999.9999"}
	for i, value := range amounts {
		t.Run(value, func(t *testing.T) {
			l := New()
			require.NoError(t, l.Apply(types.Deposit(1, 1, amt("5"))))
			require.NoError(t, l.Apply(types.Deposit(1, 2, amt(value))))
			before, _ := l.Account(1)

			require.NoError(t, l.Apply(types.Dispute(1, 2)), "case %d", i)
			require.NoError(t, l.Apply(types.Resolve(1, 2)))
			after, _ := l.Account(1)

			assert.True(t, before.Available.Equal(after.Available))
			assert.True(t, before.Held.Equal(after.Held))
			assert.False(t, after.Locked)
		})
	}
}

func TestLedger_DisputeChargeBackRemovesHeld(t *testing.T) {
	l := New()
	require.NoError(t, l.Apply(types.Deposit(1, 1, amt("3.25"))))
	require.NoError(t, l.Apply(types.Deposit(1, 2, amt("1.75"))))
	require.NoError(t, l.Apply(types.Dispute(1, 1)))
	require.NoError(t, l.Apply(types.Dispute(1, 2)))
	disputed, _ := l.Account(1)

	require.NoError(t, l.Apply(types.ChargeBack(1, 2)))
	after, _ := l.Account(1)

	want, err := disputed.Held.Sub(amt("1.75"))
	require.NoError(t, err)
	assert.True(t, want.Equal(after.Held))
	assert.True(t, disputed.Available.Equal(after.Available), "available is never restored")
	assert.True(t, after.Locked)
}

func TestLedger_TotalIsAvailablePlusHeld(t *testing.T) {
	l := New()
	txs := []types.Transaction{
		types.Deposit(1, 1, amt("10")),
		types.Deposit(2, 2, amt("4.5")),
		types.Withdrawal(1, 3, amt("3.3333")),
		types.Dispute(1, 1),
		types.Dispute(2, 2),
		types.Resolve(2, 2),
		types.ChargeBack(1, 1),
		types.Deposit(3, 4, amt("0.0001")),
	}
	for _, tx := range txs {
		_ = l.Apply(tx)
	}

	for _, s := range l.Snapshots() {
		total, err := s.Total()
		require.NoError(t, err)
		sum, err := s.Available.Add(s.Held)
		require.NoError(t, err)
		assert.True(t, sum.Equal(total), fmt.Sprintf("client %d", s.Client))
	}
}

func TestLedger_SnapshotsSortedByClient(t *testing.T) {
	l := New()
	for i, client := range []types.ClientId{9, 3, 65535, 1} {
		require.NoError(t, l.Apply(types.Deposit(client, types.TxId(i+1), amt("1"))))
	}

	var clients []types.ClientId
	for _, s := range l.Snapshots() {
		clients = append(clients, s.Client)
	}
	assert.Equal(t, []types.ClientId{1, 3, 9, 65535}, clients)
	assert.Equal(t, 4, l.Len())
}

func TestLedger_UnknownAccount(t *testing.T) {
	l := New()
	_, ok := l.Account(5)
	assert.False(t, ok)
	assert.Empty(t, l.Snapshots())
}
