package board

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FeatureRepository persists feature aggregates. The Claim/Finish/Abort/
// ForceImplemented methods perform conditional status updates and report
// whether the row was actually transitioned; a false return means another
// writer got there first.
type FeatureRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Feature, error)
	Save(ctx context.Context, f *Feature) error
	ListByStatus(ctx context.Context, status FeatureStatus) ([]*Feature, error)

	// ClaimImplementation flips pending -> implementing, freezing the
	// vote count and stamping the start time
	ClaimImplementation(ctx context.Context, id uuid.UUID, voteSnapshot int, startedAt time.Time) (bool, error)
	// FinishImplementation flips implementing -> implemented
	FinishImplementation(ctx context.Context, id uuid.UUID, implementedAt time.Time) (bool, error)
	// AbortImplementation flips implementing -> pending
	AbortImplementation(ctx context.Context, id uuid.UUID) (bool, error)
	// ForceImplemented flips pending -> implemented, freezing the vote count
	ForceImplemented(ctx context.Context, id uuid.UUID, voteSnapshot int, implementedAt time.Time) (bool, error)
}

// VoteRepository persists the vote ledger
type VoteRepository interface {
	FindByFeatureAndUser(ctx context.Context, featureID, userID uuid.UUID) (*Vote, error)
	Save(ctx context.Context, v *Vote) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByFeature(ctx context.Context, featureID uuid.UUID) (int64, error)
	CountByFeatures(ctx context.Context, featureIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	// VotedFeatureIDs returns the subset of featureIDs the user has voted on
	VotedFeatureIDs(ctx context.Context, userID uuid.UUID, featureIDs []uuid.UUID) ([]uuid.UUID, error)
	// DeleteByFeature clears the ledger for a feature, returning the
	// number of rows removed
	DeleteByFeature(ctx context.Context, featureID uuid.UUID) (int64, error)
}
