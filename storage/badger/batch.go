package badger

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

// BatchRepository implements storage.BatchRepository for BadgerDB.
type BatchRepository struct {
	backend *Backend
}

var _ storage.BatchRepository = (*BatchRepository)(nil)

// NewBatchRepository creates a new BatchRepository.
func NewBatchRepository(backend *Backend) (*BatchRepository, error) {
	return &BatchRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *BatchRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *BatchRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddBatch stores a new batch.
func (r *BatchRepository) AddBatch(ctx context.Context, batch *core.Batch) (*core.Batch, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		batch.InsertedAt = time.Now().UTC()
		batch.UpdatedAt = batch.InsertedAt
		if err := writeValue(tx, makeBatchKey(batch.ID), batch); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// GetBatch retrieves a batch by ID.
func (r *BatchRepository) GetBatch(ctx context.Context, id string) (*core.Batch, error) {
	var batch core.Batch
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return readValue(tx, makeBatchKey(id), &batch)
	}, false)
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// UpdateBatch replaces a stored batch.
func (r *BatchRepository) UpdateBatch(ctx context.Context, batch *core.Batch) (*core.Batch, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeBatchKey(batch.ID)
		exists, err := keyExists(tx, key)
		if err != nil {
			return err
		}
		if !exists {
			return storage.ErrNotFound
		}
		batch.UpdatedAt = time.Now().UTC()
		if err := writeValue(tx, key, batch); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// UpdateBatchStatus transitions a batch's status unconditionally.
func (r *BatchRepository) UpdateBatchStatus(ctx context.Context, id string, status core.BatchStatus) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeBatchKey(id)
		var batch core.Batch
		if err := readValue(tx, key, &batch); err != nil {
			return err
		}
		batch.Status = status
		batch.UpdatedAt = time.Now().UTC()
		if err := writeValue(tx, key, &batch); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ClaimBatchStatus atomically transitions a batch from any of the given
// statuses to the target status. The read and write happen in one BadgerDB
// transaction; a concurrent claim surfaces as a commit conflict, so exactly
// one caller observes true for a given transition.
func (r *BatchRepository) ClaimBatchStatus(ctx context.Context, id string, from []core.BatchStatus, to core.BatchStatus) (bool, error) {
	claimed := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeBatchKey(id)
		var batch core.Batch
		if err := readValue(tx, key, &batch); err != nil {
			return err
		}
		if !slices.Contains(from, batch.Status) {
			return nil
		}
		batch.Status = to
		batch.UpdatedAt = time.Now().UTC()
		if err := writeValue(tx, key, &batch); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		claimed = true
		return nil
	}, true)
	if errors.Is(err, badger.ErrConflict) {
		// Another claimant committed first.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return claimed, nil
}

// ListBatchesByStatus returns up to limit batches in the given status, oldest
// first. Batch volume is low, so this is a prefix scan rather than an index.
func (r *BatchRepository) ListBatchesByStatus(ctx context.Context, status core.BatchStatus, limit int) ([]*core.Batch, error) {
	var batches []*core.Batch
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(batchPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			if !bytes.HasPrefix(item.Key(), opts.Prefix) {
				continue
			}
			var batch core.Batch
			err := item.Value(func(val []byte) error {
				return storage.Unmarshal(val, &batch)
			})
			if err != nil {
				return err
			}
			if batch.Status == status {
				b := batch
				batches = append(batches, &b)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(batches, func(a, b *core.Batch) int {
		return a.InsertedAt.Compare(b.InsertedAt)
	})
	if limit > 0 && len(batches) > limit {
		batches = batches[:limit]
	}
	return batches, nil
}
