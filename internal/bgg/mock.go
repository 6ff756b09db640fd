package bgg

import (
	"context"
	"sync"
)

// MockFetcher is a test double that returns canned details by id.
type MockFetcher struct {
	Details map[int]*Details
	Err     error

	mu    sync.Mutex
	Calls []int
}

// Name returns "mock".
func (m *MockFetcher) Name() string { return "mock" }

// Fetch records the call and returns Err or the canned details for id.
func (m *MockFetcher) Fetch(_ context.Context, id int) (*Details, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, id)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	d, ok := m.Details[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}
