package ledger

import (
	"context"
	"sync"
)

// Store persists debit records and settlement records with single-key
// atomicity. Implementations must distinguish "not found" (ErrRecordNotFound,
// ErrSettlementNotFound) from store failure.
type Store interface {
	// GetRecord retrieves the debit record for a UTXO.
	GetRecord(ctx context.Context, utxoID string) (*Record, error)

	// PutRecord creates or replaces the debit record for a UTXO.
	PutRecord(ctx context.Context, record *Record) error

	// GetSettlement retrieves the settlement for an authorization.
	GetSettlement(ctx context.Context, authorizationID string) (*Settlement, error)

	// PutSettlement creates or replaces the settlement for an authorization.
	PutSettlement(ctx context.Context, settlement *Settlement) error
}

// MemStore is an in-memory implementation of Store for testing.
type MemStore struct {
	mu          sync.RWMutex
	records     map[string]Record
	settlements map[string]Settlement
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates a new in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		records:     make(map[string]Record),
		settlements: make(map[string]Settlement),
	}
}

// GetRecord retrieves the debit record for a UTXO.
func (s *MemStore) GetRecord(_ context.Context, utxoID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[utxoID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	// Return a copy so callers cannot mutate stored state.
	return &record, nil
}

// PutRecord creates or replaces the debit record for a UTXO.
func (s *MemStore) PutRecord(_ context.Context, record *Record) error {
	if record == nil {
		return ErrNilParam
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.UtxoID] = *record
	return nil
}

// GetSettlement retrieves the settlement for an authorization.
func (s *MemStore) GetSettlement(_ context.Context, authorizationID string) (*Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settlement, ok := s.settlements[authorizationID]
	if !ok {
		return nil, ErrSettlementNotFound
	}
	return &settlement, nil
}

// PutSettlement creates or replaces the settlement for an authorization.
func (s *MemStore) PutSettlement(_ context.Context, settlement *Settlement) error {
	if settlement == nil {
		return ErrNilParam
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.settlements[settlement.AuthorizationID] = *settlement
	return nil
}
