package handler

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/featureboard/backend/internal/domain/board"
	"github.com/featureboard/backend/internal/domain/shared"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memFeatureRepo is an in-memory board.FeatureRepository for handler tests
type memFeatureRepo struct {
	mu       sync.Mutex
	features map[uuid.UUID]*board.Feature
}

func newMemFeatureRepo(features ...*board.Feature) *memFeatureRepo {
	repo := &memFeatureRepo{features: make(map[uuid.UUID]*board.Feature)}
	for _, f := range features {
		repo.features[f.ID] = f
	}
	return repo
}

func (r *memFeatureRepo) FindByID(_ context.Context, id uuid.UUID) (*board.Feature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.features[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return f, nil
}

func (r *memFeatureRepo) Save(_ context.Context, f *board.Feature) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.features[f.ID] = f
	return nil
}

func (r *memFeatureRepo) ListByStatus(_ context.Context, status board.FeatureStatus) ([]*board.Feature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*board.Feature
	for _, f := range r.features {
		if f.Status == status {
			result = append(result, f)
		}
	}
	return result, nil
}

func (r *memFeatureRepo) ClaimImplementation(_ context.Context, id uuid.UUID, voteSnapshot int, startedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.features[id]
	if !ok || f.Status != board.FeatureStatusPending {
		return false, nil
	}
	f.Status = board.FeatureStatusImplementing
	f.VoteSnapshot = voteSnapshot
	f.ImplementationStartedAt = &startedAt
	return true, nil
}

func (r *memFeatureRepo) FinishImplementation(_ context.Context, id uuid.UUID, implementedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.features[id]
	if !ok || f.Status != board.FeatureStatusImplementing {
		return false, nil
	}
	f.Status = board.FeatureStatusImplemented
	f.ImplementedAt = &implementedAt
	return true, nil
}

func (r *memFeatureRepo) AbortImplementation(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.features[id]
	if !ok || f.Status != board.FeatureStatusImplementing {
		return false, nil
	}
	f.Status = board.FeatureStatusPending
	f.ImplementationStartedAt = nil
	return true, nil
}

func (r *memFeatureRepo) ForceImplemented(_ context.Context, id uuid.UUID, voteSnapshot int, implementedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.features[id]
	if !ok || f.Status != board.FeatureStatusPending {
		return false, nil
	}
	f.Status = board.FeatureStatusImplemented
	f.VoteSnapshot = voteSnapshot
	f.ImplementedAt = &implementedAt
	return true, nil
}

// memVoteRepo is an in-memory board.VoteRepository for handler tests
type memVoteRepo struct {
	mu    sync.Mutex
	votes map[uuid.UUID]*board.Vote
}

func newMemVoteRepo(votes ...*board.Vote) *memVoteRepo {
	repo := &memVoteRepo{votes: make(map[uuid.UUID]*board.Vote)}
	for _, v := range votes {
		repo.votes[v.ID] = v
	}
	return repo
}

func (r *memVoteRepo) FindByFeatureAndUser(_ context.Context, featureID, userID uuid.UUID) (*board.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.votes {
		if v.FeatureID == featureID && v.UserID == userID {
			return v, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memVoteRepo) Save(_ context.Context, v *board.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.votes[v.ID] = v
	return nil
}

func (r *memVoteRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.votes, id)
	return nil
}

func (r *memVoteRepo) CountByFeature(_ context.Context, featureID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, v := range r.votes {
		if v.FeatureID == featureID {
			count++
		}
	}
	return count, nil
}

func (r *memVoteRepo) CountByFeatures(ctx context.Context, featureIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	result := make(map[uuid.UUID]int64)
	for _, id := range featureIDs {
		count, _ := r.CountByFeature(ctx, id)
		result[id] = count
	}
	return result, nil
}

func (r *memVoteRepo) VotedFeatureIDs(_ context.Context, userID uuid.UUID, featureIDs []uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(featureIDs))
	for _, id := range featureIDs {
		wanted[id] = true
	}
	var result []uuid.UUID
	for _, v := range r.votes {
		if v.UserID == userID && wanted[v.FeatureID] {
			result = append(result, v.FeatureID)
		}
	}
	return result, nil
}

func (r *memVoteRepo) DeleteByFeature(_ context.Context, featureID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for id, v := range r.votes {
		if v.FeatureID == featureID {
			delete(r.votes, id)
			removed++
		}
	}
	return removed, nil
}

// pendingFeature builds a pending feature with events cleared
func pendingFeature(title string) *board.Feature {
	f, err := board.NewFeature(title, "test description", uuid.New(), nil)
	if err != nil {
		panic(err)
	}
	f.ClearDomainEvents()
	return f
}

// implementingFeature builds a feature mid-implementation
func implementingFeature(title string, voteSnapshot int) *board.Feature {
	f := pendingFeature(title)
	if err := f.BeginImplementation(voteSnapshot); err != nil {
		panic(err)
	}
	f.ClearDomainEvents()
	return f
}
