package persistence

import (
	"context"

	appboard "github.com/featureboard/backend/internal/application/board"
	"github.com/featureboard/backend/internal/domain/board"
	"gorm.io/gorm"
)

// GormBoardTransactionScope implements the board TransactionScope using
// GORM transactions, so the vote toggle and the threshold claim commit
// or roll back together.
type GormBoardTransactionScope struct {
	db *gorm.DB
}

// NewGormBoardTransactionScope creates a new GormBoardTransactionScope
func NewGormBoardTransactionScope(db *gorm.DB) *GormBoardTransactionScope {
	return &GormBoardTransactionScope{db: db}
}

// Execute runs the given function within a database transaction
func (s *GormBoardTransactionScope) Execute(ctx context.Context, fn func(repos appboard.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormBoardRepositories{tx: tx})
	})
}

type gormBoardRepositories struct {
	tx *gorm.DB
}

// FeatureRepo returns the feature repository scoped to the current transaction
func (r *gormBoardRepositories) FeatureRepo() board.FeatureRepository {
	return NewGormFeatureRepository(r.tx)
}

// VoteRepo returns the vote repository scoped to the current transaction
func (r *gormBoardRepositories) VoteRepo() board.VoteRepository {
	return NewGormVoteRepository(r.tx)
}
