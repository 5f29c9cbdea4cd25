package handler

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appboard "github.com/featureboard/backend/internal/application/board"
	"github.com/featureboard/backend/internal/interfaces/http/dto"
)

// OpsHandler exposes privileged board operations guarded by a static
// operator token rather than user JWTs.
type OpsHandler struct {
	BaseHandler
	reconcileService *appboard.ReconcileService
	opsToken         string
	logger           *zap.Logger
}

// NewOpsHandler creates a new OpsHandler
func NewOpsHandler(reconcileService *appboard.ReconcileService, opsToken string, logger *zap.Logger) *OpsHandler {
	return &OpsHandler{
		reconcileService: reconcileService,
		opsToken:         opsToken,
		logger:           logger,
	}
}

// authorize checks the Bearer token against the configured operator
// token in constant time. An unconfigured token disables the endpoint.
func (h *OpsHandler) authorize(c *gin.Context) bool {
	if h.opsToken == "" {
		h.Unauthorized(c, "Operator access is not configured")
		return false
	}

	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		h.Unauthorized(c, "Operator token required")
		return false
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(h.opsToken)) != 1 {
		h.logger.Warn("Rejected operator request with invalid token",
			zap.String("remote_ip", c.ClientIP()))
		h.Unauthorized(c, "Invalid operator token")
		return false
	}
	return true
}

// ForceComplete marks a feature implemented regardless of workflow state
func (h *OpsHandler) ForceComplete(c *gin.Context) {
	if !h.authorize(c) {
		return
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid feature ID")
		return
	}
	featureID := uuid.MustParse(req.ID)

	result, err := h.reconcileService.ForceComplete(c.Request.Context(), featureID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("Feature force-completed by operator",
		zap.String("feature_id", featureID.String()),
		zap.String("remote_ip", c.ClientIP()))

	h.Success(c, result)
}
