package store

import (
	"sync"

	"codeberg.org/mutker/powermon/internal/errors"
)

// MemStore is an in-memory Store for tests. FailWrites and FailReads
// force the storage-unwritable/unreadable failure paths.
type MemStore struct {
	mu         sync.Mutex
	blobs      map[string][]byte
	FailWrites bool
	FailReads  bool
	Writes     int
}

func NewMemStore() *MemStore {
	return &MemStore{blobs: map[string][]byte{}}
}

func (m *MemStore) Read(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	errFactory := errors.New()
	if m.FailReads {
		return nil, errFactory.New(errors.ErrStateLoad)
	}

	data, ok := m.blobs[name]
	if !ok {
		return nil, errFactory.New(errors.ErrBlobNotFound)
	}

	out := make([]byte, len(data))
	copy(out, data)

	return out, nil
}

func (m *MemStore) Write(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return errors.New().New(errors.ErrStateSave)
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	m.blobs[name] = stored
	m.Writes++

	return nil
}

func (m *MemStore) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blobs, name)

	return nil
}
