package board

import (
	"fmt"
	"strings"
	"time"

	"github.com/featureboard/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// FeatureStatus represents the lifecycle status of a feature request
type FeatureStatus string

const (
	FeatureStatusPending      FeatureStatus = "pending"
	FeatureStatusImplementing FeatureStatus = "implementing"
	FeatureStatusImplemented  FeatureStatus = "implemented"
)

// MaxTitleLength is the upper bound for feature titles
const MaxTitleLength = 200

// DefaultVoteThreshold is the vote count at which a pending feature is
// claimed for implementation
const DefaultVoteThreshold = 5

// IsValid checks whether the status is a known one
func (s FeatureStatus) IsValid() bool {
	switch s {
	case FeatureStatusPending, FeatureStatusImplementing, FeatureStatusImplemented:
		return true
	}
	return false
}

// CanTransitionTo reports whether the transition to target is legal.
// pending -> implemented is reserved for the privileged manual path.
func (s FeatureStatus) CanTransitionTo(target FeatureStatus) bool {
	switch s {
	case FeatureStatusPending:
		return target == FeatureStatusImplementing || target == FeatureStatusImplemented
	case FeatureStatusImplementing:
		return target == FeatureStatusImplemented || target == FeatureStatusPending
	case FeatureStatusImplemented:
		return false
	}
	return false
}

// Feature is the aggregate root of the request board. Votes are held in a
// separate ledger while the feature is pending; VoteSnapshot freezes the
// count once the feature leaves the pending state.
type Feature struct {
	shared.BaseAggregateRoot
	Title                   string
	Description             string
	CreatorID               uuid.UUID
	ParentID                *uuid.UUID
	Status                  FeatureStatus
	VoteSnapshot            int
	ImplementationStartedAt *time.Time
	ImplementedAt           *time.Time
}

// NewFeature creates a pending feature request
func NewFeature(title, description string, creatorID uuid.UUID, parentID *uuid.UUID) (*Feature, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Title must be at most %d characters", MaxTitleLength))
	}
	if strings.TrimSpace(description) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Description is required")
	}
	if creatorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Creator is required")
	}

	f := &Feature{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Title:             title,
		Description:       description,
		CreatorID:         creatorID,
		ParentID:          parentID,
		Status:            FeatureStatusPending,
	}
	f.AddDomainEvent(NewFeatureCreatedEvent(f))
	return f, nil
}

// CanAcceptVotes reports whether the vote ledger is open for this feature
func (f *Feature) CanAcceptVotes() bool {
	return f.Status == FeatureStatusPending
}

// BeginImplementation moves the feature from pending to implementing,
// freezing the vote count that triggered the claim.
func (f *Feature) BeginImplementation(voteCount int) error {
	if !f.Status.CanTransitionTo(FeatureStatusImplementing) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot start implementation in %s status", f.Status))
	}
	now := time.Now()
	f.Status = FeatureStatusImplementing
	f.VoteSnapshot = voteCount
	f.ImplementationStartedAt = &now
	f.UpdatedAt = now
	f.AddDomainEvent(NewImplementationStartedEvent(f))
	return nil
}

// CompleteImplementation marks an implementing feature as implemented
func (f *Feature) CompleteImplementation() error {
	if f.Status != FeatureStatusImplementing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete implementation in %s status", f.Status))
	}
	now := time.Now()
	f.Status = FeatureStatusImplemented
	f.ImplementedAt = &now
	f.UpdatedAt = now
	f.AddDomainEvent(NewFeatureImplementedEvent(f))
	return nil
}

// FailImplementation returns an implementing feature to the pending pool.
// The snapshot is kept for reference; new votes start from the live ledger.
func (f *Feature) FailImplementation() error {
	if f.Status != FeatureStatusImplementing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail implementation in %s status", f.Status))
	}
	now := time.Now()
	f.Status = FeatureStatusPending
	f.ImplementationStartedAt = nil
	f.UpdatedAt = now
	f.AddDomainEvent(NewImplementationFailedEvent(f))
	return nil
}

// ForceComplete marks the feature implemented regardless of whether an
// implementation run is in flight. Used by the privileged manual endpoint.
// liveVotes freezes the current ledger count when completing from pending.
func (f *Feature) ForceComplete(liveVotes int) error {
	if !f.Status.CanTransitionTo(FeatureStatusImplemented) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete feature in %s status", f.Status))
	}
	now := time.Now()
	if f.Status == FeatureStatusPending {
		f.VoteSnapshot = liveVotes
	}
	f.Status = FeatureStatusImplemented
	f.ImplementedAt = &now
	f.UpdatedAt = now
	f.AddDomainEvent(NewFeatureImplementedEvent(f))
	return nil
}

// DisplayVotes returns the count to show for this feature: the live ledger
// count while pending, the frozen snapshot afterwards.
func (f *Feature) DisplayVotes(liveCount int) int {
	if f.Status == FeatureStatusPending {
		return liveCount
	}
	return f.VoteSnapshot
}
