package board

import (
	"context"
	"errors"
	"time"

	"github.com/featureboard/backend/internal/domain/board"
	"github.com/featureboard/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VoteService handles vote toggling and the threshold claim.
// The toggle, the recount and the claim run in one transaction; the
// conditional status update makes concurrent claims settle on exactly
// one winner, and only the winner dispatches the external workflow.
type VoteService struct {
	txScope        TransactionScope
	dispatcher     WorkflowDispatcher
	voteGate       RateLimitGate
	threshold      int
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewVoteService creates a new VoteService
func NewVoteService(txScope TransactionScope, dispatcher WorkflowDispatcher, logger *zap.Logger) *VoteService {
	return &VoteService{
		txScope:    txScope,
		dispatcher: dispatcher,
		threshold:  board.DefaultVoteThreshold,
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher for broadcast fan-out
func (s *VoteService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetVoteGate sets the per-user vote rate limit gate
func (s *VoteService) SetVoteGate(gate RateLimitGate) {
	s.voteGate = gate
}

// SetThreshold overrides the default vote threshold
func (s *VoteService) SetThreshold(threshold int) {
	if threshold > 0 {
		s.threshold = threshold
	}
}

type toggleOutcome struct {
	feature   *board.Feature
	action    string
	voteTotal int
	claimed   bool
	lostRace  bool
}

// ToggleVote adds or removes the user's vote on a pending feature. When
// the add pushes the count to the threshold, the feature is claimed for
// implementation and the ledger is cleared in the same transaction.
func (s *VoteService) ToggleVote(ctx context.Context, featureID, userID uuid.UUID) (*VoteResponse, error) {
	if s.voteGate != nil {
		allowed, err := s.voteGate.Allow(ctx, userID.String())
		if err != nil {
			s.logger.Warn("Vote rate limit check failed, allowing request",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		} else if !allowed {
			return nil, shared.NewDomainError("RATE_LIMITED", "Too many votes, please slow down")
		}
	}

	var outcome toggleOutcome
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		feature, err := repos.FeatureRepo().FindByID(ctx, featureID)
		if err != nil {
			return err
		}
		if !feature.CanAcceptVotes() {
			return shared.NewDomainError("INVALID_STATE", "Voting is closed for this feature")
		}
		outcome.feature = feature

		existing, err := repos.VoteRepo().FindByFeatureAndUser(ctx, featureID, userID)
		switch {
		case err == nil:
			if err := repos.VoteRepo().Delete(ctx, existing.ID); err != nil {
				return err
			}
			outcome.action = VoteActionRemoved
		case errors.Is(err, shared.ErrNotFound):
			vote, err := board.NewVote(featureID, userID)
			if err != nil {
				return err
			}
			if err := repos.VoteRepo().Save(ctx, vote); err != nil {
				return err
			}
			outcome.action = VoteActionAdded
		default:
			return err
		}

		count, err := repos.VoteRepo().CountByFeature(ctx, featureID)
		if err != nil {
			return err
		}
		outcome.voteTotal = int(count)

		if outcome.action != VoteActionAdded || outcome.voteTotal < s.threshold {
			return nil
		}

		claimed, err := repos.FeatureRepo().ClaimImplementation(ctx, featureID, outcome.voteTotal, time.Now())
		if err != nil {
			return err
		}
		if !claimed {
			// Another request already moved the feature out of pending.
			// The winner cleared the ledger before this row committed,
			// so drop it here or a closed feature keeps a live vote.
			if _, err := repos.VoteRepo().DeleteByFeature(ctx, featureID); err != nil {
				return err
			}
			// Fold the lost race into a success response.
			outcome.lostRace = true
			return nil
		}

		if _, err := repos.VoteRepo().DeleteByFeature(ctx, featureID); err != nil {
			return err
		}
		outcome.claimed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.claimed || outcome.lostRace {
		return s.finishClaim(ctx, &outcome, userID), nil
	}

	s.publishToggleEvent(ctx, &outcome, userID)
	return &VoteResponse{
		Action:    outcome.action,
		HasVoted:  outcome.action == VoteActionAdded,
		VoteTotal: outcome.voteTotal,
	}, nil
}

// finishClaim publishes the claim event and triggers the external
// workflow. Runs after the transaction committed; dispatch failures are
// reported in the message but never undo the claim.
func (s *VoteService) finishClaim(ctx context.Context, outcome *toggleOutcome, userID uuid.UUID) *VoteResponse {
	resp := &VoteResponse{
		Action:       outcome.action,
		HasVoted:     false,
		VoteTotal:    outcome.voteTotal,
		Implementing: true,
		Status:       string(board.FeatureStatusImplementing),
		Message:      "Vote threshold reached, implementation has been triggered",
	}

	if outcome.lostRace {
		resp.Message = "Implementation is already in progress"
		return resp
	}

	feature := outcome.feature
	s.logger.Info("Feature claimed for implementation",
		zap.String("feature_id", feature.ID.String()),
		zap.String("triggered_by", userID.String()),
		zap.Int("vote_total", outcome.voteTotal))

	if s.eventPublisher != nil {
		feature.VoteSnapshot = outcome.voteTotal
		event := board.NewImplementationStartedEvent(feature)
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish implementation started event", zap.Error(err))
		}
	}

	if s.dispatcher == nil {
		resp.Message = "Vote threshold reached, but no implementation workflow is configured"
		return resp
	}

	if err := s.dispatcher.Dispatch(ctx, DispatchRequest{
		FeatureID:   feature.ID,
		Title:       feature.Title,
		Description: feature.Description,
	}); err != nil {
		s.logger.Error("Implementation workflow dispatch failed",
			zap.String("feature_id", feature.ID.String()),
			zap.Error(err))
		resp.Message = "Vote threshold reached, but triggering the implementation workflow failed"
	}
	return resp
}

func (s *VoteService) publishToggleEvent(ctx context.Context, outcome *toggleOutcome, userID uuid.UUID) {
	if s.eventPublisher == nil {
		return
	}
	var event shared.DomainEvent
	if outcome.action == VoteActionAdded {
		event = board.NewVoteCastEvent(outcome.feature.ID, userID, outcome.voteTotal)
	} else {
		event = board.NewVoteWithdrawnEvent(outcome.feature.ID, userID, outcome.voteTotal)
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish vote event",
			zap.String("feature_id", outcome.feature.ID.String()),
			zap.Error(err))
	}
}
