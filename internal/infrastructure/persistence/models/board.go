package models

import (
	"time"

	"github.com/featureboard/backend/internal/domain/board"
	"github.com/featureboard/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// FeatureModel is the persistence model for board.Feature
type FeatureModel struct {
	AggregateModel
	Title                   string     `gorm:"size:200;not null"`
	Description             string     `gorm:"type:text;not null"`
	CreatorID               uuid.UUID  `gorm:"type:uuid;not null;index"`
	ParentID                *uuid.UUID `gorm:"type:uuid;index"`
	Status                  string     `gorm:"size:20;not null;default:'pending';index"`
	VoteSnapshot            int        `gorm:"not null;default:0"`
	ImplementationStartedAt *time.Time
	ImplementedAt           *time.Time
}

// TableName returns the table name
func (FeatureModel) TableName() string {
	return "features"
}

// ToDomain converts the model to a domain Feature
func (m *FeatureModel) ToDomain() *board.Feature {
	f := &board.Feature{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: m.BaseModel.ToDomain(),
			Version:    m.Version,
		},
		Title:                   m.Title,
		Description:             m.Description,
		CreatorID:               m.CreatorID,
		ParentID:                m.ParentID,
		Status:                  board.FeatureStatus(m.Status),
		VoteSnapshot:            m.VoteSnapshot,
		ImplementationStartedAt: m.ImplementationStartedAt,
		ImplementedAt:           m.ImplementedAt,
	}
	return f
}

// FeatureModelFromDomain converts a domain Feature to its persistence model
func FeatureModelFromDomain(f *board.Feature) *FeatureModel {
	m := &FeatureModel{
		Title:                   f.Title,
		Description:             f.Description,
		CreatorID:               f.CreatorID,
		ParentID:                f.ParentID,
		Status:                  string(f.Status),
		VoteSnapshot:            f.VoteSnapshot,
		ImplementationStartedAt: f.ImplementationStartedAt,
		ImplementedAt:           f.ImplementedAt,
	}
	m.FromDomainAggregateRoot(f.BaseAggregateRoot)
	return m
}

// VoteModel is the persistence model for board.Vote. The unique index on
// (feature_id, user_id) enforces one live vote per user per feature.
type VoteModel struct {
	BaseModel
	FeatureID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_votes_feature_user;index"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_votes_feature_user"`
}

// TableName returns the table name
func (VoteModel) TableName() string {
	return "votes"
}

// ToDomain converts the model to a domain Vote
func (m *VoteModel) ToDomain() *board.Vote {
	return &board.Vote{
		BaseEntity: m.BaseModel.ToDomain(),
		FeatureID:  m.FeatureID,
		UserID:     m.UserID,
	}
}

// VoteModelFromDomain converts a domain Vote to its persistence model
func VoteModelFromDomain(v *board.Vote) *VoteModel {
	m := &VoteModel{
		FeatureID: v.FeatureID,
		UserID:    v.UserID,
	}
	m.FromDomainBaseEntity(v.BaseEntity)
	return m
}
