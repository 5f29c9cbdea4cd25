package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appboard "github.com/featureboard/backend/internal/application/board"
	"github.com/featureboard/backend/internal/domain/board"
)

func setupWebhookRouter(featureRepo *memFeatureRepo, voteRepo *memVoteRepo) *gin.Engine {
	txScope := appboard.NewNoOpTransactionScope(featureRepo, voteRepo)
	svc := appboard.NewReconcileService(txScope, featureRepo, zap.NewNop())
	h := NewWebhookHandler(svc, zap.NewNop())

	router := gin.New()
	router.POST("/api/v1/webhooks/github", h.HandleImplementationResult)
	return router
}

func postWebhook(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/github", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func workflowRunBody(featureID uuid.UUID, conclusion string) string {
	return fmt.Sprintf(`{
		"action": "completed",
		"workflow": {"name": "Implement Feature"},
		"workflow_run": {"id": 42, "conclusion": %q},
		"inputs": {"feature_id": %q}
	}`, conclusion, featureID)
}

func TestWebhookHandler_SuccessCompletesFeature(t *testing.T) {
	feature := implementingFeature("Dark mode", 5)
	featureRepo := newMemFeatureRepo(feature)
	router := setupWebhookRouter(featureRepo, newMemVoteRepo())

	w := postWebhook(t, router, workflowRunBody(feature.ID, "success"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	stored, err := featureRepo.FindByID(context.Background(), feature.ID)
	require.NoError(t, err)
	assert.Equal(t, board.FeatureStatusImplemented, stored.Status)
	assert.NotNil(t, stored.ImplementedAt)
}

func TestWebhookHandler_FailureReturnsFeatureToPending(t *testing.T) {
	feature := implementingFeature("Dark mode", 5)
	featureRepo := newMemFeatureRepo(feature)
	router := setupWebhookRouter(featureRepo, newMemVoteRepo())

	w := postWebhook(t, router, workflowRunBody(feature.ID, "failure"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	stored, err := featureRepo.FindByID(context.Background(), feature.ID)
	require.NoError(t, err)
	assert.Equal(t, board.FeatureStatusPending, stored.Status)
	assert.Nil(t, stored.ImplementationStartedAt)
}

func TestWebhookHandler_CommitMessageFallback(t *testing.T) {
	feature := implementingFeature("Dark mode", 5)
	featureRepo := newMemFeatureRepo(feature)
	router := setupWebhookRouter(featureRepo, newMemVoteRepo())

	body := fmt.Sprintf(`{
		"action": "completed",
		"workflow": {"name": "Implement Feature"},
		"workflow_run": {
			"id": 42,
			"conclusion": "success",
			"head_commit": {"message": "feature:%s add dark mode"}
		}
	}`, feature.ID)

	w := postWebhook(t, router, body)

	assert.Equal(t, http.StatusOK, w.Code)

	stored, err := featureRepo.FindByID(context.Background(), feature.ID)
	require.NoError(t, err)
	assert.Equal(t, board.FeatureStatusImplemented, stored.Status)
}

func TestWebhookHandler_ExplicitInputWinsOverCommitMessage(t *testing.T) {
	target := implementingFeature("Target", 5)
	decoy := implementingFeature("Decoy", 5)
	featureRepo := newMemFeatureRepo(target, decoy)
	router := setupWebhookRouter(featureRepo, newMemVoteRepo())

	body := fmt.Sprintf(`{
		"action": "completed",
		"workflow": {"name": "Implement Feature"},
		"workflow_run": {
			"id": 42,
			"conclusion": "success",
			"head_commit": {"message": "feature:%s wrong branch"}
		},
		"inputs": {"feature_id": %q}
	}`, decoy.ID, target.ID)

	w := postWebhook(t, router, body)
	assert.Equal(t, http.StatusOK, w.Code)

	stored, err := featureRepo.FindByID(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, board.FeatureStatusImplemented, stored.Status)

	untouched, err := featureRepo.FindByID(context.Background(), decoy.ID)
	require.NoError(t, err)
	assert.Equal(t, board.FeatureStatusImplementing, untouched.Status)
}

func TestWebhookHandler_IgnoresOtherWorkflows(t *testing.T) {
	feature := implementingFeature("Dark mode", 5)
	featureRepo := newMemFeatureRepo(feature)
	router := setupWebhookRouter(featureRepo, newMemVoteRepo())

	body := fmt.Sprintf(`{
		"action": "completed",
		"workflow": {"name": "CI"},
		"workflow_run": {"id": 42, "conclusion": "success"},
		"inputs": {"feature_id": %q}
	}`, feature.ID)

	w := postWebhook(t, router, body)
	assert.Equal(t, http.StatusOK, w.Code)

	stored, err := featureRepo.FindByID(context.Background(), feature.ID)
	require.NoError(t, err)
	assert.Equal(t, board.FeatureStatusImplementing, stored.Status)
}

func TestWebhookHandler_IgnoresNonCompletedActions(t *testing.T) {
	feature := implementingFeature("Dark mode", 5)
	featureRepo := newMemFeatureRepo(feature)
	router := setupWebhookRouter(featureRepo, newMemVoteRepo())

	body := fmt.Sprintf(`{
		"action": "requested",
		"workflow": {"name": "Implement Feature"},
		"workflow_run": {"id": 42},
		"inputs": {"feature_id": %q}
	}`, feature.ID)

	w := postWebhook(t, router, body)
	assert.Equal(t, http.StatusOK, w.Code)

	stored, err := featureRepo.FindByID(context.Background(), feature.ID)
	require.NoError(t, err)
	assert.Equal(t, board.FeatureStatusImplementing, stored.Status)
}

func TestWebhookHandler_UnknownFeatureStillAcknowledged(t *testing.T) {
	router := setupWebhookRouter(newMemFeatureRepo(), newMemVoteRepo())

	w := postWebhook(t, router, workflowRunBody(uuid.New(), "success"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestWebhookHandler_MalformedPayloadStillAcknowledged(t *testing.T) {
	router := setupWebhookRouter(newMemFeatureRepo(), newMemVoteRepo())

	w := postWebhook(t, router, `{not json`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestWebhookHandler_DuplicateSuccessReportIsIdempotent(t *testing.T) {
	feature := implementingFeature("Dark mode", 5)
	featureRepo := newMemFeatureRepo(feature)
	router := setupWebhookRouter(featureRepo, newMemVoteRepo())

	first := postWebhook(t, router, workflowRunBody(feature.ID, "success"))
	assert.Equal(t, http.StatusOK, first.Code)

	second := postWebhook(t, router, workflowRunBody(feature.ID, "success"))
	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, `{"status":"ok"}`, second.Body.String())

	stored, err := featureRepo.FindByID(context.Background(), feature.ID)
	require.NoError(t, err)
	assert.Equal(t, board.FeatureStatusImplemented, stored.Status)
}

func TestWebhookHandler_NoFeatureIdentifierStillAcknowledged(t *testing.T) {
	router := setupWebhookRouter(newMemFeatureRepo(), newMemVoteRepo())

	body := `{
		"action": "completed",
		"workflow": {"name": "Implement Feature"},
		"workflow_run": {
			"id": 42,
			"conclusion": "success",
			"head_commit": {"message": "chore: bump deps"}
		}
	}`

	w := postWebhook(t, router, body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
