package badger

import (
	"bytes"
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

// VectorRepository implements storage.VectorRepository for BadgerDB.
type VectorRepository struct {
	backend *Backend
}

var _ storage.VectorRepository = (*VectorRepository)(nil)

// NewVectorRepository creates a new VectorRepository.
func NewVectorRepository(backend *Backend) (*VectorRepository, error) {
	return &VectorRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *VectorRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *VectorRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// PutVectors replaces the stored vectors for a section. Chunks from a prior
// version are deleted first so re-embedding never leaves stale chunks behind.
func (r *VectorRepository) PutVectors(ctx context.Context, batchID, sectionPath, sectionURI, fieldKey string, vectors []core.ContentVector) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeVectorSectionPrefix(batchID, sectionPath, sectionURI, fieldKey)

		var stale [][]byte
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if bytes.HasPrefix(iter.Item().Key(), prefix) {
				stale = append(stale, iter.Item().KeyCopy(nil))
			}
		}
		iter.Close()

		for _, key := range stale {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		for i := range vectors {
			v := &vectors[i]
			v.BatchID = batchID
			v.SectionPath = sectionPath
			v.SectionURI = sectionURI
			v.FieldKey = fieldKey
			v.ChunkIndex = i
			v.InsertedAt = now
			key := makeVectorKey(batchID, sectionPath, sectionURI, fieldKey, i)
			if err := writeValue(tx, key, v); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetVectors retrieves the stored vectors for a section in chunk order.
func (r *VectorRepository) GetVectors(ctx context.Context, batchID, sectionPath, sectionURI, fieldKey string) ([]core.ContentVector, error) {
	var vectors []core.ContentVector
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeVectorSectionPrefix(batchID, sectionPath, sectionURI, fieldKey)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			if !bytes.HasPrefix(item.Key(), prefix) {
				continue
			}
			var v core.ContentVector
			err := item.Value(func(val []byte) error {
				return storage.Unmarshal(val, &v)
			})
			if err != nil {
				return err
			}
			vectors = append(vectors, v)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return vectors, nil
}
