package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var (
	bucketUtxos       = []byte("utxos")
	bucketSettlements = []byte("settlements")
)

// BoltStore is a bbolt-backed Store. Records are stored as JSON keyed by
// utxoId, settlements keyed by authorization id.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketUtxos, bucketSettlements} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// GetRecord retrieves the debit record for a UTXO.
func (s *BoltStore) GetRecord(_ context.Context, utxoID string) (*Record, error) {
	var record Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketUtxos).Get([]byte(utxoID))
		if data == nil {
			return ErrRecordNotFound
		}
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("ledger: decode record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// PutRecord creates or replaces the debit record for a UTXO.
func (s *BoltStore) PutRecord(_ context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("%w: record", ErrNilParam)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("ledger: encode record: %w", err)
		}
		if err := tx.Bucket(bucketUtxos).Put([]byte(record.UtxoID), data); err != nil {
			return fmt.Errorf("ledger: put record: %w", err)
		}
		return nil
	})
}

// GetSettlement retrieves the settlement for an authorization.
func (s *BoltStore) GetSettlement(_ context.Context, authorizationID string) (*Settlement, error) {
	var settlement Settlement
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSettlements).Get([]byte(authorizationID))
		if data == nil {
			return ErrSettlementNotFound
		}
		if err := json.Unmarshal(data, &settlement); err != nil {
			return fmt.Errorf("ledger: decode settlement: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &settlement, nil
}

// PutSettlement creates or replaces the settlement for an authorization.
func (s *BoltStore) PutSettlement(_ context.Context, settlement *Settlement) error {
	if settlement == nil {
		return fmt.Errorf("%w: settlement", ErrNilParam)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(settlement)
		if err != nil {
			return fmt.Errorf("ledger: encode settlement: %w", err)
		}
		if err := tx.Bucket(bucketSettlements).Put([]byte(settlement.AuthorizationID), data); err != nil {
			return fmt.Errorf("ledger: put settlement: %w", err)
		}
		return nil
	})
}
