package badger

import (
	"bytes"
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

// FingerprintRepository implements storage.FingerprintRepository for BadgerDB.
type FingerprintRepository struct {
	backend *Backend
}

var _ storage.FingerprintRepository = (*FingerprintRepository)(nil)

// NewFingerprintRepository creates a new FingerprintRepository.
func NewFingerprintRepository(backend *Backend) (*FingerprintRepository, error) {
	return &FingerprintRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *FingerprintRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *FingerprintRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// GetFingerprint retrieves the fingerprint for one usage location.
func (r *FingerprintRepository) GetFingerprint(ctx context.Context, sourcePath, fieldKey, usagePath string) (*core.Fingerprint, error) {
	var fp core.Fingerprint
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return readValue(tx, makeFingerprintKey(sourcePath, fieldKey, usagePath), &fp)
	}, false)
	if err != nil {
		return nil, err
	}
	return &fp, nil
}

// FindFingerprint retrieves any fingerprint recorded for the fragment
// identity regardless of usage path.
func (r *FingerprintRepository) FindFingerprint(ctx context.Context, sourcePath, fieldKey string) (*core.Fingerprint, error) {
	var fp core.Fingerprint
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return readValue(tx, makeFingerprintIdentityKey(sourcePath, fieldKey), &fp)
	}, false)
	if err != nil {
		return nil, err
	}
	return &fp, nil
}

// ListFingerprints returns every fingerprint recorded for the fragment
// identity, one per usage path. Rows persisted before the usage index
// existed are not listed; FindFingerprint still reaches those.
func (r *FingerprintRepository) ListFingerprints(ctx context.Context, sourcePath, fieldKey string) ([]*core.Fingerprint, error) {
	var fps []*core.Fingerprint
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeFingerprintUsagePrefix(sourcePath, fieldKey)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			if !bytes.HasPrefix(item.Key(), opts.Prefix) {
				continue
			}
			var fp core.Fingerprint
			err := item.Value(func(val []byte) error {
				return storage.Unmarshal(val, &fp)
			})
			if err != nil {
				return err
			}
			f := fp
			fps = append(fps, &f)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return fps, nil
}

// PutFingerprint stores a fingerprint under its exact usage-location key, the
// identity-level fallback key, and the per-identity usage index.
func (r *FingerprintRepository) PutFingerprint(ctx context.Context, fp *core.Fingerprint) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := writeValue(tx, makeFingerprintKey(fp.SourcePath, fp.FieldKey, fp.UsagePath), fp); err != nil {
			return err
		}
		if err := writeValue(tx, makeFingerprintIdentityKey(fp.SourcePath, fp.FieldKey), fp); err != nil {
			return err
		}
		if fp.UsagePath != "" {
			if err := writeValue(tx, makeFingerprintUsageKey(fp.SourcePath, fp.FieldKey, fp.UsagePath), fp); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}
