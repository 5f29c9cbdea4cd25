package board

import (
	"time"

	"github.com/featureboard/backend/internal/domain/board"
	"github.com/google/uuid"
)

// CreateFeatureRequest carries a new feature submission
type CreateFeatureRequest struct {
	Title        string
	Description  string
	ParentID     *uuid.UUID
	CaptchaToken string
	RemoteIP     string
}

// FeatureResponse is the read model for a single feature
type FeatureResponse struct {
	ID                      uuid.UUID  `json:"id"`
	Title                   string     `json:"title"`
	Description             string     `json:"description"`
	Status                  string     `json:"status"`
	VoteTotal               int        `json:"voteTotal"`
	UserHasVoted            bool       `json:"userHasVoted"`
	CreatorID               uuid.UUID  `json:"creatorId"`
	ParentID                *uuid.UUID `json:"parentId,omitempty"`
	CreatedAt               time.Time  `json:"createdAt"`
	ImplementationStartedAt *time.Time `json:"implementationStartedAt,omitempty"`
	ImplementedAt           *time.Time `json:"implementedAt,omitempty"`
}

// FeatureListResponse groups the board by lifecycle stage
type FeatureListResponse struct {
	Pending      []FeatureResponse `json:"pending"`
	Implementing []FeatureResponse `json:"implementing"`
	Implemented  []FeatureResponse `json:"implemented"`
	CanSubmit    bool              `json:"canSubmit"`
}

// VoteResponse reports the outcome of a vote toggle
type VoteResponse struct {
	Action       string `json:"action"`
	HasVoted     bool   `json:"hasVoted"`
	VoteTotal    int    `json:"voteTotal"`
	Implementing bool   `json:"implementing,omitempty"`
	Status       string `json:"status,omitempty"`
	Message      string `json:"message,omitempty"`
}

// Toggle actions
const (
	VoteActionAdded   = "added"
	VoteActionRemoved = "removed"
)

func toFeatureResponse(f *board.Feature, liveVotes int, hasVoted bool) FeatureResponse {
	return FeatureResponse{
		ID:                      f.ID,
		Title:                   f.Title,
		Description:             f.Description,
		Status:                  string(f.Status),
		VoteTotal:               f.DisplayVotes(liveVotes),
		UserHasVoted:            hasVoted,
		CreatorID:               f.CreatorID,
		ParentID:                f.ParentID,
		CreatedAt:               f.CreatedAt,
		ImplementationStartedAt: f.ImplementationStartedAt,
		ImplementedAt:           f.ImplementedAt,
	}
}
