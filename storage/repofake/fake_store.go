package storerepofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/ilumina-session/storage"
)

var _ storage.Store = (*FakeStore)(nil)

// FakeStore keeps the record in memory. It doubles as the memory-only store
// and lets tests inject failures.
type FakeStore struct {
	record *storage.Record
	lock   sync.RWMutex

	LoadErr   error
	SaveErr   error
	RemoveErr error
	Saves     int
	Removes   int
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

func (s *FakeStore) Load(_ context.Context) (*storage.Record, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	if s.record == nil {
		return nil, storage.ErrNotFound
	}
	r := *s.record
	return &r, nil
}

func (s *FakeStore) Save(_ context.Context, record storage.Record) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.Saves++
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.record = &record
	return nil
}

func (s *FakeStore) Remove(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.Removes++
	if s.RemoveErr != nil {
		return s.RemoveErr
	}
	s.record = nil
	return nil
}

// Peek returns the stored record without going through Load.
func (s *FakeStore) Peek() *storage.Record {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.record == nil {
		return nil
	}
	r := *s.record
	return &r
}
