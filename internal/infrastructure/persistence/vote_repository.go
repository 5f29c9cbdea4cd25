package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/featureboard/backend/internal/domain/board"
	"github.com/featureboard/backend/internal/domain/shared"
	"github.com/featureboard/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// GormVoteRepository implements board.VoteRepository using GORM
type GormVoteRepository struct {
	db *gorm.DB
}

// NewGormVoteRepository creates a new GormVoteRepository
func NewGormVoteRepository(db *gorm.DB) *GormVoteRepository {
	return &GormVoteRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormVoteRepository) WithTx(tx *gorm.DB) *GormVoteRepository {
	return &GormVoteRepository{db: tx}
}

// FindByFeatureAndUser finds the user's vote on a feature, if any
func (r *GormVoteRepository) FindByFeatureAndUser(ctx context.Context, featureID, userID uuid.UUID) (*board.Vote, error) {
	var model models.VoteModel
	if err := r.db.WithContext(ctx).
		First(&model, "feature_id = ? AND user_id = ?", featureID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates a vote ledger entry. The unique index on
// (feature_id, user_id) rejects double voting at the database level;
// a violation means a concurrent toggle already recorded this vote.
func (r *GormVoteRepository) Save(ctx context.Context, v *board.Vote) error {
	model := models.VoteModelFromDomain(v)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError("CONCURRENCY_CONFLICT", "Vote was already recorded by a concurrent request")
		}
		return err
	}
	return nil
}

// isUniqueViolation detects a unique index violation for the drivers in use
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Delete removes a vote ledger entry
func (r *GormVoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.VoteModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountByFeature counts live votes for a feature
func (r *GormVoteRepository) CountByFeature(ctx context.Context, featureID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.VoteModel{}).
		Where("feature_id = ?", featureID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByFeatures counts live votes for a set of features in one query
func (r *GormVoteRepository) CountByFeatures(ctx context.Context, featureIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(featureIDs))
	if len(featureIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		FeatureID uuid.UUID
		Total     int64
	}
	if err := r.db.WithContext(ctx).Model(&models.VoteModel{}).
		Select("feature_id, COUNT(*) AS total").
		Where("feature_id IN ?", featureIDs).
		Group("feature_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.FeatureID] = row.Total
	}
	return counts, nil
}

// VotedFeatureIDs returns the subset of featureIDs the user has voted on
func (r *GormVoteRepository) VotedFeatureIDs(ctx context.Context, userID uuid.UUID, featureIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(featureIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.VoteModel{}).
		Where("user_id = ? AND feature_id IN ?", userID, featureIDs).
		Pluck("feature_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteByFeature clears the ledger for a feature
func (r *GormVoteRepository) DeleteByFeature(ctx context.Context, featureID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.VoteModel{}, "feature_id = ?", featureID)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
