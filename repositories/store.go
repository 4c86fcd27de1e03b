package repositories

import (
	stderrors "errors"
	"fmt"
	"messenger/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
)

const maxConflictRetries = 8

// OpenInMemory opens the process store. Nothing survives a restart.
func OpenInMemory() (*badger.DB, error) {
	return badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.WARNING))
}

// update runs fn in a read-write transaction and replays it when a concurrent
// transaction committed a conflicting write first.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err = db.Update(fn); !stderrors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func get[T any](txn *badger.Txn, key string) (T, error) {
	var out T
	item, err := txn.Get([]byte(key))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return out, fmt.Errorf("%s: %w", key, errors.ErrNotFound)
	}
	if err != nil {
		return out, err
	}
	err = item.Value(func(val []byte) error {
		return cbor.Unmarshal(val, &out)
	})
	return out, err
}

func set(txn *badger.Txn, key string, value any) error {
	data, err := cbor.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return txn.Set([]byte(key), data)
}

// insertUnique simulates a unique index: the key must not exist yet.
func insertUnique(txn *badger.Txn, key string, value any) error {
	_, err := txn.Get([]byte(key))
	switch {
	case err == nil:
		return fmt.Errorf("%s: %w", key, errors.ErrDuplicateKey)
	case !stderrors.Is(err, badger.ErrKeyNotFound):
		return err
	}
	return set(txn, key, value)
}

func remove(txn *badger.Txn, keys ...string) error {
	for _, key := range keys {
		if err := txn.Delete([]byte(key)); err != nil {
			return err
		}
	}
	return nil
}

// scan decodes every value under prefix in key order.
func scan[T any](txn *badger.Txn, prefix string) ([]T, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var out []T
	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		var value T
		err := it.Item().Value(func(val []byte) error {
			return cbor.Unmarshal(val, &value)
		})
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}
