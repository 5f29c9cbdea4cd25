package board

import (
	"context"
	"time"

	"github.com/featureboard/backend/internal/domain/board"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockFeatureRepository is a mock implementation of board.FeatureRepository
type MockFeatureRepository struct {
	mock.Mock
}

func (m *MockFeatureRepository) FindByID(ctx context.Context, id uuid.UUID) (*board.Feature, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*board.Feature), args.Error(1)
}

func (m *MockFeatureRepository) Save(ctx context.Context, f *board.Feature) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFeatureRepository) ListByStatus(ctx context.Context, status board.FeatureStatus) ([]*board.Feature, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*board.Feature), args.Error(1)
}

func (m *MockFeatureRepository) ClaimImplementation(ctx context.Context, id uuid.UUID, voteSnapshot int, startedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, voteSnapshot, startedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockFeatureRepository) FinishImplementation(ctx context.Context, id uuid.UUID, implementedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, implementedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockFeatureRepository) AbortImplementation(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockFeatureRepository) ForceImplemented(ctx context.Context, id uuid.UUID, voteSnapshot int, implementedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, voteSnapshot, implementedAt)
	return args.Bool(0), args.Error(1)
}

// MockVoteRepository is a mock implementation of board.VoteRepository
type MockVoteRepository struct {
	mock.Mock
}

func (m *MockVoteRepository) FindByFeatureAndUser(ctx context.Context, featureID, userID uuid.UUID) (*board.Vote, error) {
	args := m.Called(ctx, featureID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*board.Vote), args.Error(1)
}

func (m *MockVoteRepository) Save(ctx context.Context, v *board.Vote) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *MockVoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockVoteRepository) CountByFeature(ctx context.Context, featureID uuid.UUID) (int64, error) {
	args := m.Called(ctx, featureID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVoteRepository) CountByFeatures(ctx context.Context, featureIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	args := m.Called(ctx, featureIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]int64), args.Error(1)
}

func (m *MockVoteRepository) VotedFeatureIDs(ctx context.Context, userID uuid.UUID, featureIDs []uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, userID, featureIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockVoteRepository) DeleteByFeature(ctx context.Context, featureID uuid.UUID) (int64, error) {
	args := m.Called(ctx, featureID)
	return args.Get(0).(int64), args.Error(1)
}

// MockDispatcher is a mock implementation of WorkflowDispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, req DispatchRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// MockGate is a mock implementation of RateLimitGate
type MockGate struct {
	mock.Mock
}

func (m *MockGate) Allow(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockGate) Check(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// MockCaptchaVerifier is a mock implementation of CaptchaVerifier
type MockCaptchaVerifier struct {
	mock.Mock
}

func (m *MockCaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	args := m.Called(ctx, token, remoteIP)
	return args.Error(0)
}
