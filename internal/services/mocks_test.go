package services

import (
	"context"

	"github.com/shrdaa/backend/internal/database"
	"github.com/stretchr/testify/mock"
)

// MockStore forwards to next unless an expectation for the table returns
// an error. Only writes are intercepted.
type MockStore struct {
	mock.Mock
	next database.Store
}

func (m *MockStore) EnsureInitialized(ctx context.Context, t database.Table) error {
	return m.next.EnsureInitialized(ctx, t)
}

func (m *MockStore) ReadAll(ctx context.Context, t database.Table) ([][]string, error) {
	return m.next.ReadAll(ctx, t)
}

func (m *MockStore) Append(ctx context.Context, t database.Table, record []string) error {
	if err := m.Called(t.Name).Error(0); err != nil {
		return err
	}
	return m.next.Append(ctx, t, record)
}

func (m *MockStore) Overwrite(ctx context.Context, t database.Table, records [][]string) error {
	if err := m.Called(t.Name).Error(0); err != nil {
		return err
	}
	return m.next.Overwrite(ctx, t, records)
}

func (m *MockStore) Close() error { return m.next.Close() }
