package vault

import (
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestTransferMovesBalance(t *testing.T) {
	l := NewLedger()
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()

	l.Credit(a, 1_000)
	if err := l.Transfer(a, b, 400); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := l.Balance(a); got != 600 {
		t.Errorf("a balance = %d, want 600", got)
	}
	if got := l.Balance(b); got != 400 {
		t.Errorf("b balance = %d, want 400", got)
	}
}

func TestTransferInsufficient(t *testing.T) {
	l := NewLedger()
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	l.Credit(a, 100)

	if err := l.Transfer(a, b, 101); err == nil {
		t.Fatal("expected insufficient-balance error")
	}
	// Failed transfer must not move anything.
	if l.Balance(a) != 100 || l.Balance(b) != 0 {
		t.Errorf("balances mutated on failed transfer: a=%d b=%d", l.Balance(a), l.Balance(b))
	}
}

func TestZeroTransferNoop(t *testing.T) {
	l := NewLedger()
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	if err := l.Transfer(a, b, 0); err != nil {
		t.Errorf("zero transfer should succeed: %v", err)
	}
}

func TestDrainAndConservation(t *testing.T) {
	l := NewLedger()
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	c := solana.NewWallet().PublicKey()

	l.Credit(a, 5_000)
	l.Credit(b, 2_500)
	before := l.TotalSupply()

	if err := l.Transfer(a, c, 1_234); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if moved := l.Drain(b, c); moved != 2_500 {
		t.Errorf("Drain moved %d, want 2_500", moved)
	}
	if l.Balance(b) != 0 {
		t.Errorf("drained account holds %d", l.Balance(b))
	}
	if after := l.TotalSupply(); after != before {
		t.Errorf("supply changed: %d -> %d", before, after)
	}
}
