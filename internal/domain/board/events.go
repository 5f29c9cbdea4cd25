package board

import (
	"github.com/featureboard/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypeFeature = "Feature"

// Event type constants
const (
	EventTypeFeatureCreated        = "FeatureCreated"
	EventTypeVoteCast              = "VoteCast"
	EventTypeVoteWithdrawn         = "VoteWithdrawn"
	EventTypeImplementationStarted = "ImplementationStarted"
	EventTypeFeatureImplemented    = "FeatureImplemented"
	EventTypeImplementationFailed  = "ImplementationFailed"
)

// FeatureCreatedEvent is published when a new feature request is submitted
type FeatureCreatedEvent struct {
	shared.BaseDomainEvent
	FeatureID uuid.UUID  `json:"feature_id"`
	Title     string     `json:"title"`
	CreatorID uuid.UUID  `json:"creator_id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
}

// NewFeatureCreatedEvent creates a new FeatureCreatedEvent
func NewFeatureCreatedEvent(f *Feature) *FeatureCreatedEvent {
	return &FeatureCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFeatureCreated, AggregateTypeFeature, f.ID),
		FeatureID:       f.ID,
		Title:           f.Title,
		CreatorID:       f.CreatorID,
		ParentID:        f.ParentID,
	}
}

// VoteCastEvent is published when a user adds a vote to a pending feature
type VoteCastEvent struct {
	shared.BaseDomainEvent
	FeatureID uuid.UUID `json:"feature_id"`
	UserID    uuid.UUID `json:"user_id"`
	VoteTotal int       `json:"vote_total"`
}

// NewVoteCastEvent creates a new VoteCastEvent
func NewVoteCastEvent(featureID, userID uuid.UUID, voteTotal int) *VoteCastEvent {
	return &VoteCastEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVoteCast, AggregateTypeFeature, featureID),
		FeatureID:       featureID,
		UserID:          userID,
		VoteTotal:       voteTotal,
	}
}

// VoteWithdrawnEvent is published when a user removes their vote
type VoteWithdrawnEvent struct {
	shared.BaseDomainEvent
	FeatureID uuid.UUID `json:"feature_id"`
	UserID    uuid.UUID `json:"user_id"`
	VoteTotal int       `json:"vote_total"`
}

// NewVoteWithdrawnEvent creates a new VoteWithdrawnEvent
func NewVoteWithdrawnEvent(featureID, userID uuid.UUID, voteTotal int) *VoteWithdrawnEvent {
	return &VoteWithdrawnEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVoteWithdrawn, AggregateTypeFeature, featureID),
		FeatureID:       featureID,
		UserID:          userID,
		VoteTotal:       voteTotal,
	}
}

// ImplementationStartedEvent is published when a feature wins the
// threshold claim and the external workflow is about to be triggered
type ImplementationStartedEvent struct {
	shared.BaseDomainEvent
	FeatureID    uuid.UUID `json:"feature_id"`
	Title        string    `json:"title"`
	VoteSnapshot int       `json:"vote_snapshot"`
}

// NewImplementationStartedEvent creates a new ImplementationStartedEvent
func NewImplementationStartedEvent(f *Feature) *ImplementationStartedEvent {
	return &ImplementationStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeImplementationStarted, AggregateTypeFeature, f.ID),
		FeatureID:       f.ID,
		Title:           f.Title,
		VoteSnapshot:    f.VoteSnapshot,
	}
}

// FeatureImplementedEvent is published when a feature reaches the
// implemented state, whether via the webhook or the manual endpoint
type FeatureImplementedEvent struct {
	shared.BaseDomainEvent
	FeatureID uuid.UUID `json:"feature_id"`
	Title     string    `json:"title"`
}

// NewFeatureImplementedEvent creates a new FeatureImplementedEvent
func NewFeatureImplementedEvent(f *Feature) *FeatureImplementedEvent {
	return &FeatureImplementedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFeatureImplemented, AggregateTypeFeature, f.ID),
		FeatureID:       f.ID,
		Title:           f.Title,
	}
}

// ImplementationFailedEvent is published when an implementation run
// reports failure and the feature returns to the pending pool
type ImplementationFailedEvent struct {
	shared.BaseDomainEvent
	FeatureID uuid.UUID `json:"feature_id"`
	Title     string    `json:"title"`
}

// NewImplementationFailedEvent creates a new ImplementationFailedEvent
func NewImplementationFailedEvent(f *Feature) *ImplementationFailedEvent {
	return &ImplementationFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeImplementationFailed, AggregateTypeFeature, f.ID),
		FeatureID:       f.ID,
		Title:           f.Title,
	}
}
