// Package memory is an in-process storage backend. It implements every
// repository contract on maps guarded by one store, with transactions that
// snapshot the store and restore it on error. It serves STORAGE=memory and
// the domain tests.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"tillpoint/internal/core/id"
	"tillpoint/internal/core/tx"
	"tillpoint/internal/domain/audit"
	"tillpoint/internal/domain/client"
	"tillpoint/internal/domain/sale"
	"tillpoint/internal/domain/saleitem"
	"tillpoint/internal/domain/stock"
	"tillpoint/internal/domain/variant"
)

// table keeps rows plus their insertion order, used as the final sort key.
type table[T any] struct {
	rows map[id.ID]T
	seq  map[id.ID]uint64
	next uint64
}

func newTable[T any]() table[T] {
	return table[T]{rows: make(map[id.ID]T), seq: make(map[id.ID]uint64)}
}

func (t *table[T]) put(key id.ID, row T) {
	if _, ok := t.seq[key]; !ok {
		t.next++
		t.seq[key] = t.next
	}
	t.rows[key] = row
}

func (t *table[T]) remove(key id.ID) bool {
	if _, ok := t.rows[key]; !ok {
		return false
	}
	delete(t.rows, key)
	delete(t.seq, key)
	return true
}

// ordered returns matching rows sorted by less, then insertion order.
func (t *table[T]) ordered(match func(T) bool, less func(a, b T) int) []T {
	type entry struct {
		row T
		seq uint64
	}
	var entries []entry
	for key, row := range t.rows {
		if match == nil || match(row) {
			entries = append(entries, entry{row: row, seq: t.seq[key]})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if less != nil {
			if c := less(entries[i].row, entries[j].row); c != 0 {
				return c < 0
			}
		}
		return entries[i].seq < entries[j].seq
	})
	out := make([]T, len(entries))
	for i, e := range entries {
		out[i] = e.row
	}
	return out
}

func (t table[T]) clone() table[T] {
	return table[T]{rows: maps.Clone(t.rows), seq: maps.Clone(t.seq), next: t.next}
}

type state struct {
	lots      table[stock.Lot]
	variants  table[variant.Variant]
	sales     table[sale.Sale]
	items     table[saleitem.Item]
	clients   map[string]client.CompanyClient
	sequences map[string]int64
	audit     []audit.Entry
}

func newState() state {
	return state{
		lots:      newTable[stock.Lot](),
		variants:  newTable[variant.Variant](),
		sales:     newTable[sale.Sale](),
		items:     newTable[saleitem.Item](),
		clients:   make(map[string]client.CompanyClient),
		sequences: make(map[string]int64),
	}
}

func (s state) clone() state {
	return state{
		lots:      s.lots.clone(),
		variants:  s.variants.clone(),
		sales:     s.sales.clone(),
		items:     s.items.clone(),
		clients:   maps.Clone(s.clients),
		sequences: maps.Clone(s.sequences),
		audit:     append([]audit.Entry(nil), s.audit...),
	}
}

// Store holds all data. txMu serializes writers (one transaction or one
// standalone write at a time); mu guards the maps themselves.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: newState()}
}

type txKey struct{}

var _ tx.Manager = (*TxManager)(nil)

// TxManager implements tx.Manager over a Store.
type TxManager struct {
	store *Store
}

// NewTxManager creates a transaction manager for store.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// RunInTransaction runs fn with exclusive write access. On error every
// change made by fn is discarded. Nested calls join the outer transaction.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.InTransaction(ctx) {
		return fn(ctx)
	}

	s := m.store
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// InTransaction reports whether ctx carries a transaction on this store.
func (m *TxManager) InTransaction(ctx context.Context) bool {
	return m.store.inTx(ctx)
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// write runs fn with the data lock held. Outside a transaction it also takes
// the writer lock so it cannot interleave with one.
func (s *Store) write(ctx context.Context, fn func(d *state) error) error {
	if !s.inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.data)
}

func (s *Store) read(fn func(d *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&s.data)
}
