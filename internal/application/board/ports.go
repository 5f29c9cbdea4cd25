package board

import (
	"context"

	"github.com/google/uuid"
)

// DispatchRequest carries the feature details handed to the external
// implementation workflow
type DispatchRequest struct {
	FeatureID   uuid.UUID
	Title       string
	Description string
}

// WorkflowDispatcher triggers the external implementation workflow.
// Implementations must be safe to call outside the claim transaction;
// a dispatch failure never rolls the claim back.
type WorkflowDispatcher interface {
	Dispatch(ctx context.Context, req DispatchRequest) error
}

// RateLimitGate answers whether an action identified by key may proceed.
// Allow consumes quota; Check only inspects it.
type RateLimitGate interface {
	Allow(ctx context.Context, key string) (bool, error)
	Check(ctx context.Context, key string) (bool, error)
}

// CaptchaVerifier verifies a client-solved challenge token
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}
