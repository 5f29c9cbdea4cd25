package router

import (
	"github.com/gin-gonic/gin"

	"github.com/featureboard/backend/internal/interfaces/http/handler"
)

// BoardRoutes registers the feature board API surface
type BoardRoutes struct {
	features *handler.FeatureHandler
	stream   *handler.BoardStreamHandler
	webhooks *handler.WebhookHandler
	ops      *handler.OpsHandler
}

// NewBoardRoutes creates a new BoardRoutes registrar
func NewBoardRoutes(
	features *handler.FeatureHandler,
	stream *handler.BoardStreamHandler,
	webhooks *handler.WebhookHandler,
	ops *handler.OpsHandler,
) *BoardRoutes {
	return &BoardRoutes{
		features: features,
		stream:   stream,
		webhooks: webhooks,
		ops:      ops,
	}
}

// RegisterRoutes implements RouteRegistrar
func (r *BoardRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	features := rg.Group("/features")
	{
		features.GET("", r.features.List)
		features.POST("", r.features.Create)
		features.GET("/:id", r.features.Get)
		features.POST("/:id/vote", r.features.Vote)
	}

	rg.GET("/board/events", r.stream.Stream)

	// Webhook and ops endpoints bypass JWT auth; the webhook is validated
	// by payload shape and the ops route by its own bearer token
	rg.POST("/webhooks/github", r.webhooks.HandleImplementationResult)
	rg.POST("/ops/features/:id/complete", r.ops.ForceComplete)
}
