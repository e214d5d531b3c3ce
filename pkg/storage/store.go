package storage

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/gagliardetto/solana-go"

	"github.com/seojinlee/flipmarket/pkg/market"
)

// Store provides Pebble-based persistence for the market record, positions,
// and trade history. Values are JSON; writes from the engine are serialized
// by the engine's own lock.
type Store struct {
	db  *pebble.DB
	seq atomic.Uint64 // disambiguates trades within one second
}

// Open opens (or creates) a Pebble database at path.
func Open(path string) (*Store, error) {
	opts := &pebble.Options{
		Cache:                    pebble.NewCache(64 << 20),
		MemTableSize:             32 << 20,
		MaxConcurrentCompactions: func() int { return 2 },
		L0CompactionThreshold:    2,
		L0StopWritesThreshold:    12,
		LBaseMaxBytes:            64 << 20,
		MaxOpenFiles:             1000,
		BytesPerSync:             512 << 10,
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open pebble db at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveMarket persists the market record.
func (s *Store) SaveMarket(m *market.Market) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("storage: marshal market: %w", err)
	}
	if err := s.db.Set(marketKey(m.Address), data, pebble.Sync); err != nil {
		return fmt.Errorf("storage: save market: %w", err)
	}
	return nil
}

// LoadMarket loads the market record by address. Returns nil if absent.
func (s *Store) LoadMarket(addr solana.PublicKey) (*market.Market, error) {
	data, closer, err := s.db.Get(marketKey(addr))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get market: %w", err)
	}
	defer closer.Close()

	var m market.Market
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("storage: unmarshal market: %w", err)
	}
	return &m, nil
}

// SavePosition persists a position.
func (s *Store) SavePosition(p *market.Position) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("storage: marshal position: %w", err)
	}
	if err := s.db.Set(positionKey(p.Owner), data, pebble.Sync); err != nil {
		return fmt.Errorf("storage: save position: %w", err)
	}
	return nil
}

// LoadPosition loads a position by owner. Returns nil if absent.
func (s *Store) LoadPosition(owner solana.PublicKey) (*market.Position, error) {
	data, closer, err := s.db.Get(positionKey(owner))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get position: %w", err)
	}
	defer closer.Close()

	var p market.Position
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("storage: unmarshal position: %w", err)
	}
	return &p, nil
}

// LoadAllPositions scans every persisted position.
func (s *Store) LoadAllPositions() ([]*market.Position, error) {
	prefix := positionPrefix()
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: position iter: %w", err)
	}
	defer iter.Close()

	var out []*market.Position
	for iter.First(); iter.Valid(); iter.Next() {
		var p market.Position
		if err := json.Unmarshal(iter.Value(), &p); err != nil {
			continue // skip corrupt entries
		}
		cp := p
		out = append(out, &cp)
	}
	return out, nil
}

// SaveTrade appends a trade snapshot. NoSync: trade history is reconstructible
// and high-volume.
func (s *Store) SaveTrade(snap *market.TradeSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("storage: marshal trade: %w", err)
	}
	key := tradeKey(snap.Timestamp, snap.User, s.seq.Add(1))
	if err := s.db.Set(key, data, pebble.NoSync); err != nil {
		return fmt.Errorf("storage: save trade: %w", err)
	}
	return nil
}

// LoadRecentTrades returns up to limit trades, newest first.
func (s *Store) LoadRecentTrades(limit int) ([]*market.TradeSnapshot, error) {
	prefix := tradePrefix()
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: trade iter: %w", err)
	}
	defer iter.Close()

	var out []*market.TradeSnapshot
	for iter.Last(); iter.Valid() && len(out) < limit; iter.Prev() {
		var snap market.TradeSnapshot
		if err := json.Unmarshal(iter.Value(), &snap); err != nil {
			continue
		}
		cp := snap
		out = append(out, &cp)
	}
	return out, nil
}

// Batch groups writes for atomic commit (startup migration, bulk restores).
type Batch struct {
	batch *pebble.Batch
}

// NewBatch creates a batch writer.
func (s *Store) NewBatch() *Batch {
	return &Batch{batch: s.db.NewBatch()}
}

// SaveMarket adds a market write to the batch.
func (b *Batch) SaveMarket(m *market.Market) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return b.batch.Set(marketKey(m.Address), data, nil)
}

// SavePosition adds a position write to the batch.
func (b *Batch) SavePosition(p *market.Position) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return b.batch.Set(positionKey(p.Owner), data, nil)
}

// Commit writes the batch atomically.
func (b *Batch) Commit() error {
	return b.batch.Commit(pebble.Sync)
}

// Close discards the batch without committing.
func (b *Batch) Close() error {
	return b.batch.Close()
}
