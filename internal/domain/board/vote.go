package board

import (
	"github.com/featureboard/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Vote is a single entry in the vote ledger. A user holds at most one
// vote per feature; toggling removes it again.
type Vote struct {
	shared.BaseEntity
	FeatureID uuid.UUID
	UserID    uuid.UUID
}

// NewVote creates a ledger entry for the given user and feature
func NewVote(featureID, userID uuid.UUID) (*Vote, error) {
	if featureID == uuid.Nil || userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Feature and user are required")
	}
	return &Vote{
		BaseEntity: shared.NewBaseEntity(),
		FeatureID:  featureID,
		UserID:     userID,
	}, nil
}
