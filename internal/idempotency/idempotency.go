// Package idempotency guards the trigger endpoint against double-processing
// a retried request: a batch_id already recorded (in flight, completed or
// failed) short circuits the handler instead of re-running the pipeline or double-firing
// the completion callback. Backed by BadgerDB so the guard survives process
// restarts, unlike an in-memory map.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Status is the recorded state of a batch_id.
type Status string

const (
	StatusInFlight  Status = "IN_FLIGHT"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

const keyPrefix = "batch:"

type record struct {
	Status Status `json:"status"`
}

// Store is a durable batch_id dedup store.
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens (creating if necessary) the Badger database at path.
func Open(path string, ttl time.Duration) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open idempotency store: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{db: db, ttl: ttl}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Claim atomically checks whether batchID is new and, if so, marks it
// in-flight. It returns (true, nil) when the caller owns this batch and
// should proceed; (false, nil) when the batch is already known (in flight,
// completed or failed) and the caller should skip processing.
func (s *Store) Claim(ctx context.Context, batchID string) (bool, error) {
	claimed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(keyPrefix + batchID)
		if _, err := txn.Get(key); err == nil {
			return nil // already known; claimed stays false
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		data, err := json.Marshal(record{Status: StatusInFlight})
		if err != nil {
			return err
		}
		entry := badger.NewEntry(key, data).WithTTL(s.ttl)
		if err := txn.SetEntry(entry); err != nil {
			return err
		}
		claimed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("claim batch %s: %w", batchID, err)
	}
	return claimed, nil
}

// Finish records the terminal status of a batch this process claimed.
func (s *Store) Finish(ctx context.Context, batchID string, status Status) error {
	data, err := json.Marshal(record{Status: status})
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(keyPrefix+batchID), data).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("finish batch %s: %w", batchID, err)
	}
	return nil
}

// Status returns the recorded status for batchID, or ok=false if unknown.
func (s *Store) Status(ctx context.Context, batchID string) (Status, bool, error) {
	var rec record
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + batchID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return "", false, fmt.Errorf("read batch %s: %w", batchID, err)
	}
	return rec.Status, found, nil
}
