// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

// Repositories aggregates all BadgerDB-backed repositories over one shared
// backend. It is the unit the system facade opens and closes.
type Repositories struct {
	Raw         *RawRepository
	Batch       *BatchRepository
	Fingerprint *FingerprintRepository
	Element     *ElementRepository
	Section     *SectionRepository
	Vector      *VectorRepository

	backend *Backend
}

// NewRepositories opens a BadgerDB database at path and constructs every
// repository over it. Pass inMemory=true for ephemeral storage.
func NewRepositories(path string, inMemory bool) (*Repositories, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}

	repos := &Repositories{backend: backend}
	if repos.Raw, err = NewRawRepository(backend); err != nil {
		backend.Close()
		return nil, err
	}
	if repos.Batch, err = NewBatchRepository(backend); err != nil {
		backend.Close()
		return nil, err
	}
	if repos.Fingerprint, err = NewFingerprintRepository(backend); err != nil {
		backend.Close()
		return nil, err
	}
	if repos.Element, err = NewElementRepository(backend); err != nil {
		backend.Close()
		return nil, err
	}
	if repos.Section, err = NewSectionRepository(backend); err != nil {
		backend.Close()
		return nil, err
	}
	if repos.Vector, err = NewVectorRepository(backend); err != nil {
		backend.Close()
		return nil, err
	}
	return repos, nil
}

// Backend exposes the shared backend for transaction composition.
func (r *Repositories) Backend() *Backend {
	return r.backend
}

// Close closes every repository and the shared backend.
func (r *Repositories) Close() error {
	for _, c := range []interface{ Close() error }{
		r.Raw, r.Batch, r.Fingerprint, r.Element, r.Section, r.Vector,
	} {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return r.backend.Close()
}
