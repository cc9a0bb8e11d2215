package datastore

import (
	"context"
	"slices"
	"sync"

	"github.com/tphakala/reckless-court/internal/court"
)

// MemoryStore is an in-process fallback store for tests and fallback-less runs
type MemoryStore struct {
	mu        sync.Mutex
	subs      []court.Submission
	sentences []string
	hasSent   bool

	// Err, when set, is returned by every operation
	Err error
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Snapshot overwrites the submissions snapshot
func (m *MemoryStore) Snapshot(_ context.Context, subs []court.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.subs = slices.Clone(subs)
	return nil
}

// Restore returns the last snapshot, or an empty slice
func (m *MemoryStore) Restore(context.Context) ([]court.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.subs == nil {
		return []court.Submission{}, nil
	}
	return slices.Clone(m.subs), nil
}

// SaveSentences overwrites the sentence list
func (m *MemoryStore) SaveSentences(_ context.Context, sentences []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sentences = slices.Clone(sentences)
	m.hasSent = true
	return nil
}

// LoadSentences returns the saved sentence list
func (m *MemoryStore) LoadSentences(context.Context) ([]string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, false, m.Err
	}
	if !m.hasSent {
		return nil, false, nil
	}
	if m.sentences == nil {
		return []string{}, true, nil
	}
	return slices.Clone(m.sentences), true, nil
}

var (
	_ court.Fallback = (*MemoryStore)(nil)
	_ court.Fallback = (*SQLiteStore)(nil)
)
