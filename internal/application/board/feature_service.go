package board

import (
	"context"
	"errors"
	"sort"

	"github.com/featureboard/backend/internal/domain/board"
	"github.com/featureboard/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FeatureService handles feature submission and board listing
type FeatureService struct {
	txScope        TransactionScope
	featureRepo    board.FeatureRepository
	voteRepo       board.VoteRepository
	submissionGate RateLimitGate
	captcha        CaptchaVerifier
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewFeatureService creates a new FeatureService
func NewFeatureService(txScope TransactionScope, featureRepo board.FeatureRepository, voteRepo board.VoteRepository, logger *zap.Logger) *FeatureService {
	return &FeatureService{
		txScope:     txScope,
		featureRepo: featureRepo,
		voteRepo:    voteRepo,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for broadcast fan-out
func (s *FeatureService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetSubmissionGate sets the per-user daily submission limit gate
func (s *FeatureService) SetSubmissionGate(gate RateLimitGate) {
	s.submissionGate = gate
}

// SetCaptchaVerifier enables server-side CAPTCHA verification on submissions
func (s *FeatureService) SetCaptchaVerifier(verifier CaptchaVerifier) {
	s.captcha = verifier
}

// Create submits a new feature request. The creator's own vote is
// recorded in the same transaction.
func (s *FeatureService) Create(ctx context.Context, userID uuid.UUID, req CreateFeatureRequest) (*FeatureResponse, error) {
	if s.captcha != nil {
		if err := s.captcha.Verify(ctx, req.CaptchaToken, req.RemoteIP); err != nil {
			return nil, err
		}
	}

	if s.submissionGate != nil {
		allowed, err := s.submissionGate.Allow(ctx, userID.String())
		if err != nil {
			s.logger.Warn("Submission limit check failed, allowing request",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		} else if !allowed {
			return nil, shared.NewDomainError("RATE_LIMITED", "Daily feature submission limit reached, try again tomorrow")
		}
	}

	if req.ParentID != nil {
		parent, err := s.featureRepo.FindByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("NOT_FOUND", "Parent feature not found")
			}
			return nil, err
		}
		if parent.Status == board.FeatureStatusImplemented {
			return nil, shared.NewDomainError("INVALID_STATE", "Cannot add a variation to an implemented feature")
		}
	}

	feature, err := board.NewFeature(req.Title, req.Description, userID, req.ParentID)
	if err != nil {
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.FeatureRepo().Save(ctx, feature); err != nil {
			return err
		}
		vote, err := board.NewVote(feature.ID, userID)
		if err != nil {
			return err
		}
		return repos.VoteRepo().Save(ctx, vote)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Feature submitted",
		zap.String("feature_id", feature.ID.String()),
		zap.String("creator_id", userID.String()))

	if s.eventPublisher != nil {
		for _, event := range feature.GetDomainEvents() {
			if err := s.eventPublisher.Publish(ctx, event); err != nil {
				s.logger.Warn("Failed to publish feature event", zap.Error(err))
			}
		}
		feature.ClearDomainEvents()
	}

	resp := toFeatureResponse(feature, 1, true)
	return &resp, nil
}

// List returns the board grouped by lifecycle stage. Pending features
// are ordered by live vote count, implemented ones by completion date.
// userID is Nil for anonymous callers.
func (s *FeatureService) List(ctx context.Context, userID uuid.UUID) (*FeatureListResponse, error) {
	pending, err := s.featureRepo.ListByStatus(ctx, board.FeatureStatusPending)
	if err != nil {
		return nil, err
	}
	implementing, err := s.featureRepo.ListByStatus(ctx, board.FeatureStatusImplementing)
	if err != nil {
		return nil, err
	}
	implemented, err := s.featureRepo.ListByStatus(ctx, board.FeatureStatusImplemented)
	if err != nil {
		return nil, err
	}

	pendingIDs := make([]uuid.UUID, len(pending))
	for i, f := range pending {
		pendingIDs[i] = f.ID
	}
	counts, err := s.voteRepo.CountByFeatures(ctx, pendingIDs)
	if err != nil {
		return nil, err
	}

	voted := make(map[uuid.UUID]bool)
	if userID != uuid.Nil {
		votedIDs, err := s.voteRepo.VotedFeatureIDs(ctx, userID, pendingIDs)
		if err != nil {
			return nil, err
		}
		for _, id := range votedIDs {
			voted[id] = true
		}
	}

	resp := &FeatureListResponse{
		Pending:      make([]FeatureResponse, 0, len(pending)),
		Implementing: make([]FeatureResponse, 0, len(implementing)),
		Implemented:  make([]FeatureResponse, 0, len(implemented)),
		CanSubmit:    true,
	}
	for _, f := range pending {
		resp.Pending = append(resp.Pending, toFeatureResponse(f, int(counts[f.ID]), voted[f.ID]))
	}
	sort.SliceStable(resp.Pending, func(i, j int) bool {
		if resp.Pending[i].VoteTotal != resp.Pending[j].VoteTotal {
			return resp.Pending[i].VoteTotal > resp.Pending[j].VoteTotal
		}
		return resp.Pending[i].CreatedAt.After(resp.Pending[j].CreatedAt)
	})
	for _, f := range implementing {
		resp.Implementing = append(resp.Implementing, toFeatureResponse(f, 0, false))
	}
	for _, f := range implemented {
		resp.Implemented = append(resp.Implemented, toFeatureResponse(f, 0, false))
	}

	if userID != uuid.Nil && s.submissionGate != nil {
		canSubmit, err := s.submissionGate.Check(ctx, userID.String())
		if err != nil {
			s.logger.Warn("Submission limit check failed", zap.Error(err))
		} else {
			resp.CanSubmit = canSubmit
		}
	}
	return resp, nil
}

// Get returns a single feature with its current vote total
func (s *FeatureService) Get(ctx context.Context, featureID, userID uuid.UUID) (*FeatureResponse, error) {
	feature, err := s.featureRepo.FindByID(ctx, featureID)
	if err != nil {
		return nil, err
	}
	count, err := s.voteRepo.CountByFeature(ctx, featureID)
	if err != nil {
		return nil, err
	}
	hasVoted := false
	if userID != uuid.Nil {
		if _, err := s.voteRepo.FindByFeatureAndUser(ctx, featureID, userID); err == nil {
			hasVoted = true
		} else if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}
	resp := toFeatureResponse(feature, int(count), hasVoted)
	return &resp, nil
}
