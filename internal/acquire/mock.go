package acquire

import (
	"context"
	"sync"
)

// MockAcquirer is a mock implementation of Acquirer for testing. It returns
// Dir for every location unless Err is set.
type MockAcquirer struct {
	Dir string
	Err error

	mu    sync.Mutex
	calls []string
}

// NewMockAcquirer creates a mock that always hands out dir.
func NewMockAcquirer(dir string) *MockAcquirer {
	return &MockAcquirer{Dir: dir}
}

func (m *MockAcquirer) Acquire(ctx context.Context, location string) (*Source, error) {
	m.mu.Lock()
	m.calls = append(m.calls, location)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &Source{Location: location, Dir: m.Dir}, nil
}

// Calls returns the locations passed to Acquire, in order.
func (m *MockAcquirer) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
