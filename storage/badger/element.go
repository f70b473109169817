package badger

import (
	"bytes"
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

// ElementRepository implements storage.ElementRepository for BadgerDB.
type ElementRepository struct {
	backend *Backend
}

var _ storage.ElementRepository = (*ElementRepository)(nil)

// NewElementRepository creates a new ElementRepository.
func NewElementRepository(backend *Backend) (*ElementRepository, error) {
	return &ElementRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *ElementRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *ElementRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// UpsertElement stores an enrichment result. Successful enrichments also
// refresh the cross-batch prior-enrichment index for the fragment identity.
func (r *ElementRepository) UpsertElement(ctx context.Context, element *core.EnrichedElement) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		element.UpdatedAt = time.Now().UTC()
		key := makeElementKey(element.BatchID, element.SourcePath, element.FieldKey)
		if err := writeValue(tx, key, element); err != nil {
			return err
		}
		if element.Status == core.ElementEnriched {
			priorKey := makeElementPriorKey(element.SourcePath, element.FieldKey)
			if err := writeValue(tx, priorKey, element); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetElement retrieves one element.
func (r *ElementRepository) GetElement(ctx context.Context, batchID, sourcePath, fieldKey string) (*core.EnrichedElement, error) {
	var element core.EnrichedElement
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return readValue(tx, makeElementKey(batchID, sourcePath, fieldKey), &element)
	}, false)
	if err != nil {
		return nil, err
	}
	return &element, nil
}

// ListElements returns all elements recorded for a batch.
func (r *ElementRepository) ListElements(ctx context.Context, batchID string) ([]*core.EnrichedElement, error) {
	var elements []*core.EnrichedElement
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeElementBatchPrefix(batchID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			if !bytes.HasPrefix(item.Key(), opts.Prefix) {
				continue
			}
			var element core.EnrichedElement
			err := item.Value(func(val []byte) error {
				return storage.Unmarshal(val, &element)
			})
			if err != nil {
				return err
			}
			e := element
			elements = append(elements, &e)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return elements, nil
}

// CountElements returns the number of elements recorded for a batch.
func (r *ElementRepository) CountElements(ctx context.Context, batchID string) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeElementBatchPrefix(batchID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if bytes.HasPrefix(iter.Item().Key(), opts.Prefix) {
				count++
			}
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// FindPriorEnrichment retrieves the most recent successful enrichment of a
// fragment identity across all batches.
func (r *ElementRepository) FindPriorEnrichment(ctx context.Context, sourcePath, fieldKey string) (*core.EnrichedElement, error) {
	var element core.EnrichedElement
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return readValue(tx, makeElementPriorKey(sourcePath, fieldKey), &element)
	}, false)
	if err != nil {
		return nil, err
	}
	return &element, nil
}
