package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appboard "github.com/featureboard/backend/internal/application/board"
	"github.com/featureboard/backend/internal/domain/board"
)

const testOpsToken = "ops-token-for-tests-0123456789abcdef"

func setupOpsRouter(featureRepo *memFeatureRepo, voteRepo *memVoteRepo, opsToken string) *gin.Engine {
	txScope := appboard.NewNoOpTransactionScope(featureRepo, voteRepo)
	svc := appboard.NewReconcileService(txScope, featureRepo, zap.NewNop())
	h := NewOpsHandler(svc, opsToken, zap.NewNop())

	router := gin.New()
	router.POST("/api/v1/ops/features/:id/complete", h.ForceComplete)
	return router
}

func postForceComplete(router *gin.Engine, featureID, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ops/features/"+featureID+"/complete", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestOpsHandler_ForceCompletePendingFeature(t *testing.T) {
	feature := pendingFeature("Dark mode")
	voterA, _ := board.NewVote(feature.ID, uuid.New())
	voterB, _ := board.NewVote(feature.ID, uuid.New())
	featureRepo := newMemFeatureRepo(feature)
	voteRepo := newMemVoteRepo(voterA, voterB)
	router := setupOpsRouter(featureRepo, voteRepo, testOpsToken)

	w := postForceComplete(router, feature.ID.String(), testOpsToken)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Status    string `json:"status"`
			VoteTotal int    `json:"voteTotal"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "implemented", resp.Data.Status)
	assert.Equal(t, 2, resp.Data.VoteTotal)

	count, err := voteRepo.CountByFeature(context.Background(), feature.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestOpsHandler_ForceCompleteImplementingFeature(t *testing.T) {
	feature := implementingFeature("Dark mode", 5)
	featureRepo := newMemFeatureRepo(feature)
	router := setupOpsRouter(featureRepo, newMemVoteRepo(), testOpsToken)

	w := postForceComplete(router, feature.ID.String(), testOpsToken)

	assert.Equal(t, http.StatusOK, w.Code)

	stored, err := featureRepo.FindByID(context.Background(), feature.ID)
	require.NoError(t, err)
	assert.Equal(t, board.FeatureStatusImplemented, stored.Status)
	assert.Equal(t, 5, stored.VoteSnapshot)
}

func TestOpsHandler_ForceCompleteIsIdempotent(t *testing.T) {
	feature := implementingFeature("Dark mode", 5)
	featureRepo := newMemFeatureRepo(feature)
	router := setupOpsRouter(featureRepo, newMemVoteRepo(), testOpsToken)

	first := postForceComplete(router, feature.ID.String(), testOpsToken)
	assert.Equal(t, http.StatusOK, first.Code)

	second := postForceComplete(router, feature.ID.String(), testOpsToken)
	assert.Equal(t, http.StatusOK, second.Code)
}

func TestOpsHandler_RejectsInvalidToken(t *testing.T) {
	feature := pendingFeature("Dark mode")
	featureRepo := newMemFeatureRepo(feature)
	router := setupOpsRouter(featureRepo, newMemVoteRepo(), testOpsToken)

	w := postForceComplete(router, feature.ID.String(), "wrong-token")

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	stored, err := featureRepo.FindByID(context.Background(), feature.ID)
	require.NoError(t, err)
	assert.Equal(t, board.FeatureStatusPending, stored.Status)
}

func TestOpsHandler_RejectsMissingToken(t *testing.T) {
	feature := pendingFeature("Dark mode")
	router := setupOpsRouter(newMemFeatureRepo(feature), newMemVoteRepo(), testOpsToken)

	w := postForceComplete(router, feature.ID.String(), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOpsHandler_RejectsWhenTokenNotConfigured(t *testing.T) {
	feature := pendingFeature("Dark mode")
	router := setupOpsRouter(newMemFeatureRepo(feature), newMemVoteRepo(), "")

	w := postForceComplete(router, feature.ID.String(), "anything")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOpsHandler_UnknownFeatureReturns404(t *testing.T) {
	router := setupOpsRouter(newMemFeatureRepo(), newMemVoteRepo(), testOpsToken)

	w := postForceComplete(router, uuid.NewString(), testOpsToken)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOpsHandler_InvalidFeatureIDReturns400(t *testing.T) {
	router := setupOpsRouter(newMemFeatureRepo(), newMemVoteRepo(), testOpsToken)

	w := postForceComplete(router, "not-a-uuid", testOpsToken)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
