package badger

import (
	"bytes"
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

// SectionRepository implements storage.SectionRepository for BadgerDB.
type SectionRepository struct {
	backend *Backend
}

var _ storage.SectionRepository = (*SectionRepository)(nil)

// NewSectionRepository creates a new SectionRepository.
func NewSectionRepository(backend *Backend) (*SectionRepository, error) {
	return &SectionRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *SectionRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *SectionRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddSection stores a section. An existing section with the same key is a
// duplicate usage location and is reported as storage.ErrDuplicateKey.
func (r *SectionRepository) AddSection(ctx context.Context, section *core.Section) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSectionKey(section.BatchID, section.SectionPath, section.SectionURI, section.FieldKey)
		exists, err := keyExists(tx, key)
		if err != nil {
			return err
		}
		if exists {
			return storage.ErrDuplicateKey
		}
		section.UpdatedAt = time.Now().UTC()
		if err := writeValue(tx, key, section); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetSection retrieves one section.
func (r *SectionRepository) GetSection(ctx context.Context, batchID, sectionPath, sectionURI, fieldKey string) (*core.Section, error) {
	var section core.Section
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return readValue(tx, makeSectionKey(batchID, sectionPath, sectionURI, fieldKey), &section)
	}, false)
	if err != nil {
		return nil, err
	}
	return &section, nil
}

// ListSections returns all sections recorded for a batch.
func (r *SectionRepository) ListSections(ctx context.Context, batchID string) ([]*core.Section, error) {
	return r.listSections(batchID, func(*core.Section) bool { return true }, 0)
}

// ListSectionsByEmbeddingStatus returns up to limit sections of a batch in
// the given embedding status.
func (r *SectionRepository) ListSectionsByEmbeddingStatus(ctx context.Context, batchID string, status core.EmbeddingStatus, limit int) ([]*core.Section, error) {
	return r.listSections(batchID, func(s *core.Section) bool {
		return s.EmbeddingStatus == status
	}, limit)
}

// UpdateSectionEmbedding transitions a section's embedding status.
func (r *SectionRepository) UpdateSectionEmbedding(ctx context.Context, batchID, sectionPath, sectionURI, fieldKey string, status core.EmbeddingStatus) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSectionKey(batchID, sectionPath, sectionURI, fieldKey)
		var section core.Section
		if err := readValue(tx, key, &section); err != nil {
			return err
		}
		section.EmbeddingStatus = status
		section.UpdatedAt = time.Now().UTC()
		if err := writeValue(tx, key, &section); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

func (r *SectionRepository) listSections(batchID string, keep func(*core.Section) bool, limit int) ([]*core.Section, error) {
	var sections []*core.Section
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeSectionBatchPrefix(batchID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			if !bytes.HasPrefix(item.Key(), opts.Prefix) {
				continue
			}
			var section core.Section
			err := item.Value(func(val []byte) error {
				return storage.Unmarshal(val, &section)
			})
			if err != nil {
				return err
			}
			if !keep(&section) {
				continue
			}
			s := section
			sections = append(sections, &s)
			if limit > 0 && len(sections) == limit {
				return nil
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return sections, nil
}
