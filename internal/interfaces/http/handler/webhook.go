package handler

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appboard "github.com/featureboard/backend/internal/application/board"
	"github.com/featureboard/backend/internal/domain/shared"
)

// implementationWorkflowName is the workflow whose runs we reconcile
const implementationWorkflowName = "Implement Feature"

// featureTagPattern matches a feature id tagged in a commit message,
// e.g. "feature:2f1c... implement dark mode"
var featureTagPattern = regexp.MustCompile(`feature:([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})`)

// WorkflowRunPayload is the subset of the GitHub workflow_run event we consume
type WorkflowRunPayload struct {
	Action      string `json:"action"`
	WorkflowRun struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		Conclusion string `json:"conclusion"`
		HeadCommit struct {
			Message string `json:"message"`
		} `json:"head_commit"`
	} `json:"workflow_run"`
	Workflow struct {
		Name string `json:"name"`
	} `json:"workflow"`
	// Inputs is populated by our own workflow when it reports back
	Inputs map[string]string `json:"inputs"`
}

// WebhookHandler reconciles feature state from workflow completion reports
type WebhookHandler struct {
	BaseHandler
	reconcileService *appboard.ReconcileService
	logger           *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(reconcileService *appboard.ReconcileService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconcileService: reconcileService,
		logger:           logger,
	}
}

// acknowledge is the fixed webhook response. The sender retries on
// non-200s, so processing failures are logged rather than surfaced.
func (h *WebhookHandler) acknowledge(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleImplementationResult processes a GitHub workflow_run completion report
func (h *WebhookHandler) HandleImplementationResult(c *gin.Context) {
	var payload WorkflowRunPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warn("Webhook payload is not valid JSON", zap.Error(err))
		h.acknowledge(c)
		return
	}

	if payload.Action != "completed" {
		h.acknowledge(c)
		return
	}
	workflowName := payload.Workflow.Name
	if workflowName == "" {
		workflowName = payload.WorkflowRun.Name
	}
	if workflowName != implementationWorkflowName {
		h.acknowledge(c)
		return
	}

	featureID, ok := h.extractFeatureID(payload)
	if !ok {
		h.logger.Warn("Workflow run carries no feature identifier",
			zap.Int64("run_id", payload.WorkflowRun.ID))
		h.acknowledge(c)
		return
	}

	runRef := payload.WorkflowRun.Name
	ctx := c.Request.Context()

	var err error
	if payload.WorkflowRun.Conclusion == "success" {
		err = h.reconcileService.CompleteImplementation(ctx, featureID, runRef)
	} else {
		err = h.reconcileService.FailImplementation(ctx, featureID, runRef)
	}

	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.logger.Warn("Workflow run references an unknown feature",
				zap.String("feature_id", featureID.String()),
				zap.Int64("run_id", payload.WorkflowRun.ID))
		} else {
			h.logger.Error("Failed to reconcile workflow result",
				zap.String("feature_id", featureID.String()),
				zap.String("conclusion", payload.WorkflowRun.Conclusion),
				zap.Error(err))
		}
	} else {
		h.logger.Info("Workflow result reconciled",
			zap.String("feature_id", featureID.String()),
			zap.String("conclusion", payload.WorkflowRun.Conclusion))
	}

	h.acknowledge(c)
}

// extractFeatureID resolves the feature the run belongs to. An explicit
// feature_id input wins; the commit message tag is a lower-confidence
// fallback for runs triggered outside our dispatcher.
func (h *WebhookHandler) extractFeatureID(payload WorkflowRunPayload) (uuid.UUID, bool) {
	if raw, ok := payload.Inputs["feature_id"]; ok && raw != "" {
		id, err := uuid.Parse(raw)
		if err == nil {
			return id, true
		}
		h.logger.Warn("Workflow feature_id input is not a valid UUID",
			zap.String("feature_id", raw))
	}

	if m := featureTagPattern.FindStringSubmatch(payload.WorkflowRun.HeadCommit.Message); m != nil {
		id, err := uuid.Parse(m[1])
		if err == nil {
			h.logger.Warn("Resolved feature from commit message tag",
				zap.String("feature_id", id.String()))
			return id, true
		}
	}

	return uuid.Nil, false
}
