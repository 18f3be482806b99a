package storage

import (
	"context"
	"sync"
)

// Memory keeps the record for the life of the process only.
type Memory struct {
	mu     sync.Mutex
	record *Record
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.record == nil {
		return nil, ErrNotFound
	}
	r := *m.record
	return &r, nil
}

func (m *Memory) Save(_ context.Context, record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = &record
	return nil
}

func (m *Memory) Remove(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = nil
	return nil
}
