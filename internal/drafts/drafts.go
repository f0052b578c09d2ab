// Package drafts persists in-progress survey answers per evaluator, the
// server-side stand-in for the browser's local storage. Drafts are a staging
// area: the responses table is the durable source of truth, and every save
// replaces the whole blob for that evaluator.
package drafts

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "drafts/"

// Store is a BadgerDB-backed draft store.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a draft store in the given directory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open draft store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a non-persistent draft store, used in tests.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory draft store: %w", err)
	}
	return &Store{db: db}, nil
}

func draftKey(evaluatorUUID string) []byte {
	return []byte(keyPrefix + evaluatorUUID)
}

// Save replaces the evaluator's entire draft mapping. Callers merge new
// answers into the full map before saving; there is no partial update.
func (s *Store) Save(evaluatorUUID string, all map[string]any) error {
	data, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("encode drafts: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(draftKey(evaluatorUUID), data)
	})
	if err != nil {
		return fmt.Errorf("save drafts: %w", err)
	}
	return nil
}

// Load returns the evaluator's draft mapping. Missing or unparseable state
// yields an empty map, never an error the caller has to branch on.
func (s *Store) Load(evaluatorUUID string) map[string]any {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(draftKey(evaluatorUUID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return map[string]any{}
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil || all == nil {
		return map[string]any{}
	}
	return all
}

// Clear removes the evaluator's persisted drafts.
func (s *Store) Clear(evaluatorUUID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(draftKey(evaluatorUUID))
	})
	if err != nil {
		return fmt.Errorf("clear drafts: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
