// Package mocks provides testify mocks of the court interfaces
package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/tphakala/reckless-court/internal/court"
)

// MockStore implements court.Store
type MockStore struct {
	mock.Mock
}

// NewMockStore creates a MockStore whose expectations are asserted at test cleanup
func NewMockStore(t *testing.T) *MockStore {
	t.Helper()
	m := &MockStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockStore) GetSubmissions(ctx context.Context) ([]court.Submission, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]court.Submission), args.Error(1)
}

func (m *MockStore) AddSubmission(ctx context.Context, sub court.NewSubmission) (int, error) {
	args := m.Called(ctx, sub)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) UpdateJudgments(ctx context.Context, changes []court.JudgmentChange) (int, error) {
	args := m.Called(ctx, changes)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) SendJudgments(ctx context.Context, changes []court.JudgmentChange) error {
	args := m.Called(ctx, changes)
	return args.Error(0)
}

func (m *MockStore) UpdateJudgmentWithSentence(ctx context.Context, id int, judgment court.Judgment, sentence string) error {
	args := m.Called(ctx, id, judgment, sentence)
	return args.Error(0)
}

func (m *MockStore) UpdateJudgmentToFree(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ court.Store = (*MockStore)(nil)
