package market

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/seojinlee/flipmarket/pkg/lmsr"
)

// MaxNonces bounds the per-position replay window. Oldest entries are evicted
// first; an order older than the window is unexecutable once the window has
// rolled past it, which is the intended tradeoff.
const MaxNonces = 1000

// Position is a user's holdings and sub-vault mirror in one market.
//
// VaultBalanceE6 mirrors the user vault's lamports in e6 units. Like the
// market's VaultE6 it is advisory; the lamport ledger is authoritative.
type Position struct {
	Owner        solana.PublicKey `json:"owner"`
	MasterWallet solana.PublicKey `json:"master_wallet"`

	YesSharesE6 int64 `json:"yes_shares_e6"`
	NoSharesE6  int64 `json:"no_shares_e6"`

	VaultBalanceE6 int64            `json:"vault_balance_e6"`
	Vault          solana.PublicKey `json:"vault"`
	VaultBump      uint8            `json:"vault_bump"`

	UsedNonces []uint64 `json:"used_nonces"`
}

// NewPosition creates an empty position for owner, controlled by master.
func NewPosition(owner, master, vault solana.PublicKey, vaultBump uint8) *Position {
	return &Position{
		Owner:        owner,
		MasterWallet: master,
		Vault:        vault,
		VaultBump:    vaultBump,
	}
}

// Shares returns holdings of the given side.
func (p *Position) Shares(side lmsr.Side) int64 {
	if side == lmsr.Yes {
		return p.YesSharesE6
	}
	return p.NoSharesE6
}

// addShares adjusts holdings, flooring at zero on the way down.
func (p *Position) addShares(side lmsr.Side, delta int64) {
	if side == lmsr.Yes {
		p.YesSharesE6 += delta
		if p.YesSharesE6 < 0 {
			p.YesSharesE6 = 0
		}
	} else {
		p.NoSharesE6 += delta
		if p.NoSharesE6 < 0 {
			p.NoSharesE6 = 0
		}
	}
}

// NonceUsed reports whether nonce is inside the replay window.
func (p *Position) NonceUsed(nonce uint64) bool {
	for _, n := range p.UsedNonces {
		if n == nonce {
			return true
		}
	}
	return false
}

// RecordNonce appends nonce to the window, evicting the oldest entry once the
// window is full. Fails if the nonce is already present.
func (p *Position) RecordNonce(nonce uint64) error {
	if p.NonceUsed(nonce) {
		return fmt.Errorf("%w: %d", ErrNonceAlreadyUsed, nonce)
	}
	if len(p.UsedNonces) >= MaxNonces {
		p.UsedNonces = p.UsedNonces[1:]
	}
	p.UsedNonces = append(p.UsedNonces, nonce)
	return nil
}

// Validate checks structural invariants on the record.
func (p *Position) Validate() error {
	if p.Owner.IsZero() {
		return fmt.Errorf("%w: position owner unset", ErrBadParam)
	}
	if p.YesSharesE6 < 0 || p.NoSharesE6 < 0 {
		return fmt.Errorf("%w: negative share balance", ErrBadParam)
	}
	if p.VaultBalanceE6 < 0 {
		return fmt.Errorf("%w: negative vault mirror", ErrBadParam)
	}
	if len(p.UsedNonces) > MaxNonces {
		return fmt.Errorf("%w: nonce window over capacity", ErrBadParam)
	}
	return nil
}
