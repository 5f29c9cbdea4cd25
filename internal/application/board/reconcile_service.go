package board

import (
	"context"
	"time"

	"github.com/featureboard/backend/internal/domain/board"
	"github.com/featureboard/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReconcileService applies implementation outcomes reported by the
// external workflow. All operations are idempotent: completion reports
// may arrive more than once and out of order with manual intervention.
type ReconcileService struct {
	txScope        TransactionScope
	featureRepo    board.FeatureRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewReconcileService creates a new ReconcileService
func NewReconcileService(txScope TransactionScope, featureRepo board.FeatureRepository, logger *zap.Logger) *ReconcileService {
	return &ReconcileService{
		txScope:     txScope,
		featureRepo: featureRepo,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for broadcast fan-out
func (s *ReconcileService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CompleteImplementation records a successful implementation run.
// A feature that is already implemented is a no-op; a pending feature
// cannot be completed through this path.
func (s *ReconcileService) CompleteImplementation(ctx context.Context, featureID uuid.UUID, externalRef string) error {
	feature, err := s.featureRepo.FindByID(ctx, featureID)
	if err != nil {
		return err
	}

	if feature.Status == board.FeatureStatusImplemented {
		s.logger.Info("Completion report for already implemented feature",
			zap.String("feature_id", featureID.String()),
			zap.String("external_ref", externalRef))
		return nil
	}

	flipped, err := s.featureRepo.FinishImplementation(ctx, featureID, time.Now())
	if err != nil {
		return err
	}
	if !flipped {
		// Lost a race or the feature was never claimed. Re-read to decide.
		current, err := s.featureRepo.FindByID(ctx, featureID)
		if err != nil {
			return err
		}
		if current.Status == board.FeatureStatusImplemented {
			return nil
		}
		return shared.NewDomainError("INVALID_STATE", "Feature has no implementation in progress")
	}

	s.logger.Info("Feature implemented",
		zap.String("feature_id", featureID.String()),
		zap.String("external_ref", externalRef))
	s.publishImplemented(ctx, featureID)
	return nil
}

// FailImplementation records a failed implementation run, returning the
// feature to the pending pool so it can be voted on again.
func (s *ReconcileService) FailImplementation(ctx context.Context, featureID uuid.UUID, externalRef string) error {
	feature, err := s.featureRepo.FindByID(ctx, featureID)
	if err != nil {
		return err
	}
	if feature.Status != board.FeatureStatusImplementing {
		s.logger.Info("Failure report for feature with no implementation in progress",
			zap.String("feature_id", featureID.String()),
			zap.String("status", string(feature.Status)))
		return nil
	}

	flipped, err := s.featureRepo.AbortImplementation(ctx, featureID)
	if err != nil {
		return err
	}
	if !flipped {
		return nil
	}

	s.logger.Warn("Implementation failed, feature returned to pending",
		zap.String("feature_id", featureID.String()),
		zap.String("external_ref", externalRef))

	if s.eventPublisher != nil {
		if err := feature.FailImplementation(); err == nil {
			for _, event := range feature.GetDomainEvents() {
				if err := s.eventPublisher.Publish(ctx, event); err != nil {
					s.logger.Warn("Failed to publish implementation failed event", zap.Error(err))
				}
			}
		}
	}
	return nil
}

// ForceComplete marks a feature implemented regardless of workflow state.
// Privileged path: completing from pending freezes the live vote count
// and clears the ledger in one transaction. Already implemented is a no-op.
func (s *ReconcileService) ForceComplete(ctx context.Context, featureID uuid.UUID) (*FeatureResponse, error) {
	var changed bool
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		feature, err := repos.FeatureRepo().FindByID(ctx, featureID)
		if err != nil {
			return err
		}

		switch feature.Status {
		case board.FeatureStatusImplemented:
			return nil
		case board.FeatureStatusImplementing:
			flipped, err := repos.FeatureRepo().FinishImplementation(ctx, featureID, time.Now())
			if err != nil {
				return err
			}
			changed = flipped
			return nil
		default:
			count, err := repos.VoteRepo().CountByFeature(ctx, featureID)
			if err != nil {
				return err
			}
			flipped, err := repos.FeatureRepo().ForceImplemented(ctx, featureID, int(count), time.Now())
			if err != nil {
				return err
			}
			if flipped {
				if _, err := repos.VoteRepo().DeleteByFeature(ctx, featureID); err != nil {
					return err
				}
			}
			changed = flipped
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("Feature force-completed", zap.String("feature_id", featureID.String()))
		s.publishImplemented(ctx, featureID)
	}

	feature, err := s.featureRepo.FindByID(ctx, featureID)
	if err != nil {
		return nil, err
	}
	resp := toFeatureResponse(feature, 0, false)
	return &resp, nil
}

func (s *ReconcileService) publishImplemented(ctx context.Context, featureID uuid.UUID) {
	if s.eventPublisher == nil {
		return
	}
	feature, err := s.featureRepo.FindByID(ctx, featureID)
	if err != nil {
		s.logger.Warn("Failed to reload feature for event publishing", zap.Error(err))
		return
	}
	event := board.NewFeatureImplementedEvent(feature)
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish feature implemented event", zap.Error(err))
	}
}
