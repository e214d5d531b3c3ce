package vault

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Ledger tracks lamport balances for every system account the engine touches:
// the market pool, per-user vaults, the fee destination, master and session
// wallets, and keepers.
//
// This is the real-balance source of truth. Market and position records carry
// accounting mirrors of some of these balances, but solvency decisions (sell
// coverage, redemption capacity) must always read the ledger.
type Ledger struct {
	mu       sync.RWMutex
	balances map[solana.PublicKey]uint64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[solana.PublicKey]uint64)}
}

// Balance returns the lamports held by account. Unknown accounts hold zero.
func (l *Ledger) Balance(account solana.PublicKey) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account]
}

// Credit adds lamports to an account (external funding, airdrops).
func (l *Ledger) Credit(account solana.PublicKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += lamports
}

// Transfer moves lamports from one account to another, failing if the source
// cannot cover the amount. A zero-lamport transfer is a no-op.
func (l *Ledger) Transfer(from, to solana.PublicKey, lamports uint64) error {
	if lamports == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.balances[from]
	if bal < lamports {
		return fmt.Errorf("vault: transfer %d lamports from %s: balance %d", lamports, from, bal)
	}
	l.balances[from] = bal - lamports
	l.balances[to] += lamports
	return nil
}

// Drain moves the entire balance of from to to and returns the amount moved.
func (l *Ledger) Drain(from, to solana.PublicKey) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.balances[from]
	if bal == 0 {
		return 0
	}
	l.balances[from] = 0
	l.balances[to] += bal
	return bal
}

// TotalSupply sums every balance; useful as a conservation check in tests.
func (l *Ledger) TotalSupply() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total uint64
	for _, b := range l.balances {
		total += b
	}
	return total
}
