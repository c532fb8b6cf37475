package ledger

import (
	"github.com/trufnetwork/ledger-go/core/types"
)

// account holds one client's balances and the transactions that can still be
// referenced by disputes. A TxId lives in at most one of history and disputed.
type account struct {
	client    types.ClientId
	available types.Amount
	held      types.Amount
	locked    bool
	history   map[types.TxId]types.Transaction
	disputed  map[types.TxId]types.Transaction
}

func newAccount(client types.ClientId) *account {
	return &account{
		client:    client,
		available: types.Zero(),
		held:      types.Zero(),
		history:   make(map[types.TxId]types.Transaction),
		disputed:  make(map[types.TxId]types.Transaction),
	}
}

func (a *account) knows(tx types.TxId) bool {
	if _, ok := a.history[tx]; ok {
		return true
	}
	_, ok := a.disputed[tx]
	return ok
}

func (a *account) snapshot() types.AccountSnapshot {
	return types.AccountSnapshot{
		Client:    a.client,
		Available: a.available,
		Held:      a.held,
		Locked:    a.locked,
	}
}
