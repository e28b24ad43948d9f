// Package store persists session state behind a small key-value port.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tally-dev/tally/internal/model"
)

// TransactionsKey holds the categorized transaction collection.
const TransactionsKey = "transactions"

// Store is a key-value persistence port.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// SaveTransactions writes txns under TransactionsKey as a JSON array.
func SaveTransactions(ctx context.Context, s Store, txns []model.Transaction) error {
	if txns == nil {
		txns = []model.Transaction{}
	}
	data, err := json.Marshal(txns)
	if err != nil {
		return fmt.Errorf("encoding transactions: %w", err)
	}
	if err := s.Set(ctx, TransactionsKey, data); err != nil {
		return fmt.Errorf("saving transactions: %w", err)
	}
	return nil
}

// LoadTransactions reads the collection saved by SaveTransactions. A store
// with nothing saved yields nil.
func LoadTransactions(ctx context.Context, s Store) ([]model.Transaction, error) {
	data, ok, err := s.Get(ctx, TransactionsKey)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var txns []model.Transaction
	if err := json.Unmarshal(data, &txns); err != nil {
		return nil, fmt.Errorf("decoding transactions: %w", err)
	}
	return txns, nil
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open returns the named backend. path is ignored for the memory backend.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendSQLite, "":
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
