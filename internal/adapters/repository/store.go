// Package repository loads the source tables and serves them read-only.
package repository

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/okian/vaxdash/internal/domain/model"
)

// Store provides read access to the loaded tables.
type Store interface {
	// Table returns the named table. Returns ErrUnknownTable if absent.
	Table(ctx context.Context, name string) (*model.Table, error)

	// Names lists the loaded table names in ascending order.
	Names() []string
}

// snapshot is an immutable set of tables. Readers never see a partial reload.
type snapshot struct {
	tables map[string]*model.Table
	names  []string
}

// MemoryStore keeps every table in memory behind an atomically swapped
// snapshot. Tables are never mutated after Replace.
type MemoryStore struct {
	snap atomic.Pointer[snapshot]
}

// NewMemoryStore builds a store holding tables.
func NewMemoryStore(tables ...*model.Table) *MemoryStore {
	s := &MemoryStore{}
	s.Replace(tables...)
	return s
}

// Replace atomically swaps the whole table set.
func (s *MemoryStore) Replace(tables ...*model.Table) {
	next := &snapshot{tables: make(map[string]*model.Table, len(tables))}
	for _, t := range tables {
		if t == nil {
			continue
		}
		next.tables[t.Name] = t
	}
	for name := range next.tables {
		next.names = append(next.names, name)
	}
	sort.Strings(next.names)
	s.snap.Store(next)
}

// Table implements Store.
func (s *MemoryStore) Table(ctx context.Context, name string) (*model.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, ok := s.snap.Load().tables[name]
	if !ok {
		return nil, fmt.Errorf("table %q: %w", name, ErrUnknownTable)
	}
	return t, nil
}

// Names implements Store.
func (s *MemoryStore) Names() []string {
	names := s.snap.Load().names
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Count returns the number of loaded tables.
func (s *MemoryStore) Count() int {
	return len(s.snap.Load().tables)
}
