package repofake

import (
	"sync"

	"github.com/jrsteele09/go-graph-session/graphsession/statestore"
	"github.com/jrsteele09/go-graph-session/internal/errors"
)

// FakeStateRepo is an in-memory statestore.Repo for tests.
type FakeStateRepo struct {
	mu     sync.Mutex
	data   []byte
	exists bool

	// WriteCalls counts Write invocations, so tests can assert that a failed
	// token exchange never persists state.
	WriteCalls int
}

var _ statestore.Repo = (*FakeStateRepo)(nil)

func NewFakeStateRepo() *FakeStateRepo {
	return &FakeStateRepo{}
}

// Seed preloads a record, as if a previous session had persisted it.
func (f *FakeStateRepo) Seed(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = append([]byte(nil), data...)
	f.exists = true
}

func (f *FakeStateRepo) Exists() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exists, nil
}

func (f *FakeStateRepo) Read() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.exists {
		return nil, errors.ErrStateRecordNotFound
	}
	return append([]byte(nil), f.data...), nil
}

func (f *FakeStateRepo) Write(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = append([]byte(nil), data...)
	f.exists = true
	f.WriteCalls++
	return nil
}

func (f *FakeStateRepo) Delete() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = nil
	f.exists = false
	return nil
}
