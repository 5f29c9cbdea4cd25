package board

import (
	"context"

	"github.com/featureboard/backend/internal/domain/board"
)

// TransactionScope provides transactional access to board repositories.
// The vote toggle and the threshold claim must observe a consistent ledger,
// so both run inside a single Execute call.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the board repositories
// scoped to the current transaction
type TransactionalRepositories interface {
	FeatureRepo() board.FeatureRepository
	VoteRepo() board.VoteRepository
}

// NoOpTransactionScope runs the function without a real transaction.
// Useful for tests and for callers that already hold a transaction.
type NoOpTransactionScope struct {
	featureRepo board.FeatureRepository
	voteRepo    board.VoteRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given repositories
func NewNoOpTransactionScope(featureRepo board.FeatureRepository, voteRepo board.VoteRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		featureRepo: featureRepo,
		voteRepo:    voteRepo,
	}
}

// Execute runs the function directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// FeatureRepo returns the feature repository
func (s *NoOpTransactionScope) FeatureRepo() board.FeatureRepository {
	return s.featureRepo
}

// VoteRepo returns the vote repository
func (s *NoOpTransactionScope) VoteRepo() board.VoteRepository {
	return s.voteRepo
}
