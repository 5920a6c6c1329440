// Package memory provides an in-memory records.TxStore.
package memory

import (
	"context"
	"sync"

	"github.com/tess/backoffice/records"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu   sync.RWMutex
	docs map[records.CollectionName]records.Document
}

func New() *Store {
	return &Store{docs: make(map[records.CollectionName]records.Document)}
}

// Load returns a copy of the named document.
func (m *Store) Load(_ context.Context, name records.CollectionName) (records.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadLocked(name), nil
}

// Save writes doc if its version is current.
func (m *Store) Save(_ context.Context, doc records.Document) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(doc)
}

// Reset drops every collection.
func (m *Store) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = make(map[records.CollectionName]records.Document)
	return nil
}

func (m *Store) loadLocked(name records.CollectionName) records.Document {
	doc, ok := m.docs[name]
	if !ok {
		return records.Document{Name: name}
	}
	doc.Data = append([]byte(nil), doc.Data...)
	return doc
}

func (m *Store) saveLocked(doc records.Document) (int64, error) {
	current := m.docs[doc.Name].Version
	if current != doc.Version {
		return 0, records.ErrConcurrentModification
	}

	next := current + 1
	m.docs[doc.Name] = records.Document{
		Name:    doc.Name,
		Data:    append([]byte(nil), doc.Data...),
		Version: next,
	}
	return next, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Store) WithTx(ctx context.Context, fn func(records.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()

	if err := fn(&txView{parent: m}); err != nil {
		m.docs = snapshot
		return err
	}

	// Commit (already done via direct writes)
	return nil
}

func (m *Store) snapshot() map[records.CollectionName]records.Document {
	docsCopy := make(map[records.CollectionName]records.Document, len(m.docs))
	for k, v := range m.docs {
		docsCopy[k] = v
	}
	return docsCopy
}

// txView runs against the parent while its lock is held by WithTx.
type txView struct {
	parent *Store
}

func (tv *txView) Load(_ context.Context, name records.CollectionName) (records.Document, error) {
	return tv.parent.loadLocked(name), nil
}

func (tv *txView) Save(_ context.Context, doc records.Document) (int64, error) {
	return tv.parent.saveLocked(doc)
}
