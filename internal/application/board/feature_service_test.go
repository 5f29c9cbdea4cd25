package board

import (
	"context"
	"testing"
	"time"

	"github.com/featureboard/backend/internal/domain/board"
	"github.com/featureboard/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFeatureService(featureRepo *MockFeatureRepository, voteRepo *MockVoteRepository) *FeatureService {
	scope := NewNoOpTransactionScope(featureRepo, voteRepo)
	return NewFeatureService(scope, featureRepo, voteRepo, zap.NewNop())
}

func TestCreateFeature(t *testing.T) {
	t.Run("creates feature with creator auto-vote", func(t *testing.T) {
		featureRepo := new(MockFeatureRepository)
		voteRepo := new(MockVoteRepository)
		svc := newFeatureService(featureRepo, voteRepo)

		userID := uuid.New()
		featureRepo.On("Save", mock.Anything, mock.AnythingOfType("*board.Feature")).Return(nil)
		voteRepo.On("Save", mock.Anything, mock.AnythingOfType("*board.Vote")).Return(nil)

		resp, err := svc.Create(context.Background(), userID, CreateFeatureRequest{
			Title:       "Dark mode",
			Description: "Please add a dark theme",
		})
		require.NoError(t, err)

		assert.Equal(t, "Dark mode", resp.Title)
		assert.Equal(t, string(board.FeatureStatusPending), resp.Status)
		assert.Equal(t, 1, resp.VoteTotal)
		assert.True(t, resp.UserHasVoted)
		assert.Equal(t, userID, resp.CreatorID)

		voteRepo.AssertCalled(t, "Save", mock.Anything, mock.MatchedBy(func(v *board.Vote) bool {
			return v.UserID == userID && v.FeatureID == resp.ID
		}))
	})

	t.Run("rejects invalid title", func(t *testing.T) {
		featureRepo := new(MockFeatureRepository)
		voteRepo := new(MockVoteRepository)
		svc := newFeatureService(featureRepo, voteRepo)

		_, err := svc.Create(context.Background(), uuid.New(), CreateFeatureRequest{
			Title:       "  ",
			Description: "desc",
		})
		require.Error(t, err)
		featureRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects unknown parent", func(t *testing.T) {
		featureRepo := new(MockFeatureRepository)
		voteRepo := new(MockVoteRepository)
		svc := newFeatureService(featureRepo, voteRepo)

		parentID := uuid.New()
		featureRepo.On("FindByID", mock.Anything, parentID).Return(nil, shared.ErrNotFound)

		_, err := svc.Create(context.Background(), uuid.New(), CreateFeatureRequest{
			Title:       "Dark mode",
			Description: "desc",
			ParentID:    &parentID,
		})
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_FOUND", domainErr.Code)
	})

	t.Run("rejects implemented parent", func(t *testing.T) {
		featureRepo := new(MockFeatureRepository)
		voteRepo := new(MockVoteRepository)
		svc := newFeatureService(featureRepo, voteRepo)

		parent, _ := board.NewFeature("Parent", "desc", uuid.New(), nil)
		require.NoError(t, parent.ForceComplete(0))
		featureRepo.On("FindByID", mock.Anything, parent.ID).Return(parent, nil)

		_, err := svc.Create(context.Background(), uuid.New(), CreateFeatureRequest{
			Title:       "Variation",
			Description: "desc",
			ParentID:    &parent.ID,
		})
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
	})

	t.Run("enforces submission gate", func(t *testing.T) {
		featureRepo := new(MockFeatureRepository)
		voteRepo := new(MockVoteRepository)
		svc := newFeatureService(featureRepo, voteRepo)

		gate := new(MockGate)
		svc.SetSubmissionGate(gate)

		userID := uuid.New()
		gate.On("Allow", mock.Anything, userID.String()).Return(false, nil)

		_, err := svc.Create(context.Background(), userID, CreateFeatureRequest{
			Title:       "Dark mode",
			Description: "desc",
		})
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "RATE_LIMITED", domainErr.Code)
	})

	t.Run("enforces captcha verification", func(t *testing.T) {
		featureRepo := new(MockFeatureRepository)
		voteRepo := new(MockVoteRepository)
		svc := newFeatureService(featureRepo, voteRepo)

		verifier := new(MockCaptchaVerifier)
		svc.SetCaptchaVerifier(verifier)

		verifier.On("Verify", mock.Anything, "bad-token", "1.2.3.4").
			Return(shared.NewDomainError("INVALID_INPUT", "CAPTCHA verification failed"))

		_, err := svc.Create(context.Background(), uuid.New(), CreateFeatureRequest{
			Title:        "Dark mode",
			Description:  "desc",
			CaptchaToken: "bad-token",
			RemoteIP:     "1.2.3.4",
		})
		require.Error(t, err)
		featureRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestListFeatures(t *testing.T) {
	featureRepo := new(MockFeatureRepository)
	voteRepo := new(MockVoteRepository)
	svc := newFeatureService(featureRepo, voteRepo)

	userID := uuid.New()

	low, _ := board.NewFeature("Low votes", "desc", uuid.New(), nil)
	high, _ := board.NewFeature("High votes", "desc", uuid.New(), nil)
	high.CreatedAt = low.CreatedAt.Add(-time.Hour)

	inFlight, _ := board.NewFeature("In flight", "desc", uuid.New(), nil)
	require.NoError(t, inFlight.BeginImplementation(5))

	done, _ := board.NewFeature("Done", "desc", uuid.New(), nil)
	require.NoError(t, done.ForceComplete(9))

	featureRepo.On("ListByStatus", mock.Anything, board.FeatureStatusPending).
		Return([]*board.Feature{low, high}, nil)
	featureRepo.On("ListByStatus", mock.Anything, board.FeatureStatusImplementing).
		Return([]*board.Feature{inFlight}, nil)
	featureRepo.On("ListByStatus", mock.Anything, board.FeatureStatusImplemented).
		Return([]*board.Feature{done}, nil)
	voteRepo.On("CountByFeatures", mock.Anything, []uuid.UUID{low.ID, high.ID}).
		Return(map[uuid.UUID]int64{low.ID: 1, high.ID: 4}, nil)
	voteRepo.On("VotedFeatureIDs", mock.Anything, userID, []uuid.UUID{low.ID, high.ID}).
		Return([]uuid.UUID{high.ID}, nil)

	resp, err := svc.List(context.Background(), userID)
	require.NoError(t, err)

	require.Len(t, resp.Pending, 2)
	assert.Equal(t, high.ID, resp.Pending[0].ID, "ordered by vote count desc")
	assert.Equal(t, 4, resp.Pending[0].VoteTotal)
	assert.True(t, resp.Pending[0].UserHasVoted)
	assert.False(t, resp.Pending[1].UserHasVoted)

	require.Len(t, resp.Implementing, 1)
	assert.Equal(t, 5, resp.Implementing[0].VoteTotal, "frozen snapshot")

	require.Len(t, resp.Implemented, 1)
	assert.Equal(t, 9, resp.Implemented[0].VoteTotal)
	assert.True(t, resp.CanSubmit)
}

func TestListFeaturesAnonymous(t *testing.T) {
	featureRepo := new(MockFeatureRepository)
	voteRepo := new(MockVoteRepository)
	svc := newFeatureService(featureRepo, voteRepo)

	f, _ := board.NewFeature("Dark mode", "desc", uuid.New(), nil)

	featureRepo.On("ListByStatus", mock.Anything, board.FeatureStatusPending).
		Return([]*board.Feature{f}, nil)
	featureRepo.On("ListByStatus", mock.Anything, board.FeatureStatusImplementing).
		Return([]*board.Feature{}, nil)
	featureRepo.On("ListByStatus", mock.Anything, board.FeatureStatusImplemented).
		Return([]*board.Feature{}, nil)
	voteRepo.On("CountByFeatures", mock.Anything, []uuid.UUID{f.ID}).
		Return(map[uuid.UUID]int64{f.ID: 3}, nil)

	resp, err := svc.List(context.Background(), uuid.Nil)
	require.NoError(t, err)

	require.Len(t, resp.Pending, 1)
	assert.False(t, resp.Pending[0].UserHasVoted)
	voteRepo.AssertNotCalled(t, "VotedFeatureIDs", mock.Anything, mock.Anything, mock.Anything)
}
