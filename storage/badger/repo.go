package badger

import (
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/corpus/storage"
)

// readValue reads and deserializes one key within a transaction.
// A missing key maps to storage.ErrNotFound.
func readValue(tx *badger.Txn, key []byte, dest any) error {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return storage.ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return storage.Unmarshal(val, dest)
	})
}

// writeValue serializes and writes one key within a transaction.
func writeValue(tx *badger.Txn, key []byte, value any) error {
	data, err := storage.Marshal(value)
	if err != nil {
		return err
	}
	return tx.Set(key, data)
}

// keyExists reports whether a key is present.
func keyExists(tx *badger.Txn, key []byte) (bool, error) {
	_, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
