package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/featureboard/backend/internal/domain/board"
	"github.com/featureboard/backend/internal/domain/shared"
	"github.com/featureboard/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFeatureRepository implements board.FeatureRepository using GORM
type GormFeatureRepository struct {
	db *gorm.DB
}

// NewGormFeatureRepository creates a new GormFeatureRepository
func NewGormFeatureRepository(db *gorm.DB) *GormFeatureRepository {
	return &GormFeatureRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormFeatureRepository) WithTx(tx *gorm.DB) *GormFeatureRepository {
	return &GormFeatureRepository{db: tx}
}

// FindByID finds a feature by its ID
func (r *GormFeatureRepository) FindByID(ctx context.Context, id uuid.UUID) (*board.Feature, error) {
	var model models.FeatureModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a feature
func (r *GormFeatureRepository) Save(ctx context.Context, f *board.Feature) error {
	model := models.FeatureModelFromDomain(f)
	return r.db.WithContext(ctx).Save(model).Error
}

// ListByStatus returns all features in the given status, newest first
func (r *GormFeatureRepository) ListByStatus(ctx context.Context, status board.FeatureStatus) ([]*board.Feature, error) {
	var featureModels []models.FeatureModel
	query := r.db.WithContext(ctx).Where("status = ?", string(status))
	if status == board.FeatureStatusImplemented {
		query = query.Order("implemented_at DESC")
	} else {
		query = query.Order("created_at DESC")
	}
	if err := query.Find(&featureModels).Error; err != nil {
		return nil, err
	}
	features := make([]*board.Feature, len(featureModels))
	for i := range featureModels {
		features[i] = featureModels[i].ToDomain()
	}
	return features, nil
}

// ClaimImplementation conditionally flips a pending feature to
// implementing. The WHERE clause on status makes concurrent claims safe:
// exactly one caller observes RowsAffected == 1.
func (r *GormFeatureRepository) ClaimImplementation(ctx context.Context, id uuid.UUID, voteSnapshot int, startedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.FeatureModel{}).
		Where("id = ? AND status = ?", id, string(board.FeatureStatusPending)).
		Updates(map[string]interface{}{
			"status":                    string(board.FeatureStatusImplementing),
			"vote_snapshot":             voteSnapshot,
			"implementation_started_at": startedAt,
			"updated_at":                startedAt,
			"version":                   gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FinishImplementation conditionally flips an implementing feature to implemented
func (r *GormFeatureRepository) FinishImplementation(ctx context.Context, id uuid.UUID, implementedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.FeatureModel{}).
		Where("id = ? AND status = ?", id, string(board.FeatureStatusImplementing)).
		Updates(map[string]interface{}{
			"status":         string(board.FeatureStatusImplemented),
			"implemented_at": implementedAt,
			"updated_at":     implementedAt,
			"version":        gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AbortImplementation conditionally returns an implementing feature to pending
func (r *GormFeatureRepository) AbortImplementation(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.FeatureModel{}).
		Where("id = ? AND status = ?", id, string(board.FeatureStatusImplementing)).
		Updates(map[string]interface{}{
			"status":                    string(board.FeatureStatusPending),
			"implementation_started_at": nil,
			"updated_at":                time.Now(),
			"version":                   gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ForceImplemented conditionally flips a pending feature straight to
// implemented, freezing the vote count. Used by the privileged manual path.
func (r *GormFeatureRepository) ForceImplemented(ctx context.Context, id uuid.UUID, voteSnapshot int, implementedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.FeatureModel{}).
		Where("id = ? AND status = ?", id, string(board.FeatureStatusPending)).
		Updates(map[string]interface{}{
			"status":         string(board.FeatureStatusImplemented),
			"vote_snapshot":  voteSnapshot,
			"implemented_at": implementedAt,
			"updated_at":     implementedAt,
			"version":        gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
