package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appboard "github.com/featureboard/backend/internal/application/board"
	"github.com/featureboard/backend/internal/interfaces/http/dto"
)

// FeatureHandler handles the feature board API endpoints
type FeatureHandler struct {
	BaseHandler
	featureService *appboard.FeatureService
	voteService    *appboard.VoteService
	logger         *zap.Logger
}

// NewFeatureHandler creates a new FeatureHandler
func NewFeatureHandler(featureService *appboard.FeatureService, voteService *appboard.VoteService, logger *zap.Logger) *FeatureHandler {
	return &FeatureHandler{
		featureService: featureService,
		voteService:    voteService,
		logger:         logger,
	}
}

// CreateFeatureRequest is the request body for submitting a feature
type CreateFeatureRequest struct {
	Title        string `json:"title" binding:"required,max=200"`
	Description  string `json:"description"`
	ParentID     string `json:"parentId" binding:"omitempty,uuid"`
	CaptchaToken string `json:"captchaToken"`
}

// List returns the board grouped by lifecycle stage.
// Works with or without authentication; the user's own votes are only
// marked when a valid token is present.
func (h *FeatureHandler) List(c *gin.Context) {
	userID := optionalUserID(c)

	result, err := h.featureService.List(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Get returns a single feature
func (h *FeatureHandler) Get(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid feature ID")
		return
	}
	featureID := uuid.MustParse(req.ID)

	result, err := h.featureService.Get(c.Request.Context(), featureID, optionalUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Create submits a new feature request
func (h *FeatureHandler) Create(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req CreateFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindingError(c, err)
		return
	}

	createReq := appboard.CreateFeatureRequest{
		Title:        req.Title,
		Description:  req.Description,
		CaptchaToken: req.CaptchaToken,
		RemoteIP:     c.ClientIP(),
	}
	if req.ParentID != "" {
		parentID := uuid.MustParse(req.ParentID)
		createReq.ParentID = &parentID
	}

	result, err := h.featureService.Create(c.Request.Context(), userID, createReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("Feature submitted",
		zap.String("feature_id", result.ID.String()),
		zap.String("user_id", userID.String()))

	h.Created(c, result)
}

// Vote toggles the caller's vote on a feature
func (h *FeatureHandler) Vote(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid feature ID")
		return
	}
	featureID := uuid.MustParse(req.ID)

	result, err := h.voteService.ToggleVote(c.Request.Context(), featureID, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
