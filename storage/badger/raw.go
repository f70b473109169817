package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

// RawRepository implements storage.RawRepository for BadgerDB.
type RawRepository struct {
	backend *Backend
}

var _ storage.RawRepository = (*RawRepository)(nil)

// NewRawRepository creates a new RawRepository.
func NewRawRepository(backend *Backend) (*RawRepository, error) {
	return &RawRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *RawRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *RawRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddRawRecord stores a new document version and moves the latest pointer to
// it, clearing the flag on the previous latest version in the same
// transaction.
func (r *RawRepository) AddRawRecord(ctx context.Context, record *core.RawRecord) (*core.RawRecord, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		record.IsLatest = true
		record.InsertedAt = time.Now().UTC()
		record.UpdatedAt = record.InsertedAt

		// Clear the latest flag on the previous version, if any.
		prev, err := r.readLatest(tx, record.SourceID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if prev != nil && prev.Version != record.Version {
			prev.IsLatest = false
			prev.UpdatedAt = record.InsertedAt
			if err := writeValue(tx, makeRawRecordKey(prev.SourceID, prev.Version), prev); err != nil {
				return err
			}
		}

		if err := writeValue(tx, makeRawRecordKey(record.SourceID, record.Version), record); err != nil {
			return err
		}
		if err := writeValue(tx, makeRawLatestKey(record.SourceID), record.Version); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetRawRecord retrieves one document version.
func (r *RawRepository) GetRawRecord(ctx context.Context, sourceID string, version int) (*core.RawRecord, error) {
	var record core.RawRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return readValue(tx, makeRawRecordKey(sourceID, version), &record)
	}, false)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetLatestRawRecord retrieves the latest stored version of a source.
func (r *RawRepository) GetLatestRawRecord(ctx context.Context, sourceID string) (*core.RawRecord, error) {
	var record *core.RawRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		record, err = r.readLatest(tx, sourceID)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// UpdateRawStatus transitions a stored version's processing status.
func (r *RawRepository) UpdateRawStatus(ctx context.Context, sourceID string, version int, status core.RawStatus) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRawRecordKey(sourceID, version)
		var record core.RawRecord
		if err := readValue(tx, key, &record); err != nil {
			return err
		}
		record.Status = status
		record.UpdatedAt = time.Now().UTC()
		if err := writeValue(tx, key, &record); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

func (r *RawRepository) readLatest(tx *badger.Txn, sourceID string) (*core.RawRecord, error) {
	var version int
	if err := readValue(tx, makeRawLatestKey(sourceID), &version); err != nil {
		return nil, err
	}
	var record core.RawRecord
	if err := readValue(tx, makeRawRecordKey(sourceID, version), &record); err != nil {
		return nil, err
	}
	return &record, nil
}
