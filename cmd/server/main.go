package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appboard "github.com/featureboard/backend/internal/application/board"
	"github.com/featureboard/backend/internal/infrastructure/auth"
	"github.com/featureboard/backend/internal/infrastructure/captcha"
	"github.com/featureboard/backend/internal/infrastructure/config"
	"github.com/featureboard/backend/internal/infrastructure/dispatch"
	"github.com/featureboard/backend/internal/infrastructure/event"
	"github.com/featureboard/backend/internal/infrastructure/logger"
	"github.com/featureboard/backend/internal/infrastructure/persistence"
	"github.com/featureboard/backend/internal/infrastructure/ratelimit"
	"github.com/featureboard/backend/internal/interfaces/http/handler"
	"github.com/featureboard/backend/internal/interfaces/http/middleware"
	"github.com/featureboard/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting feature board backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories and the board transaction scope
	featureRepo := persistence.NewGormFeatureRepository(db.DB)
	voteRepo := persistence.NewGormVoteRepository(db.DB)
	txScope := persistence.NewGormBoardTransactionScope(db.DB)

	// Workflow dispatcher (optional; without it threshold wins are logged only)
	var dispatcher appboard.WorkflowDispatcher
	if cfg.Dispatch.GitHubToken != "" {
		githubDispatcher, err := dispatch.NewGitHubDispatcher(&dispatch.GitHubConfig{
			Token:          cfg.Dispatch.GitHubToken,
			Repository:     cfg.Dispatch.Repository,
			WorkflowFile:   cfg.Dispatch.WorkflowFile,
			Ref:            cfg.Dispatch.Ref,
			APIBaseURL:     cfg.Dispatch.APIBaseURL,
			TimeoutSeconds: cfg.Dispatch.TimeoutSeconds,
		}, log)
		if err != nil {
			log.Fatal("Failed to configure workflow dispatcher", zap.Error(err))
		}
		dispatcher = githubDispatcher
		log.Info("Workflow dispatcher configured",
			zap.String("repository", cfg.Dispatch.Repository),
			zap.String("workflow", cfg.Dispatch.WorkflowFile))
	} else {
		log.Warn("No GitHub token configured, threshold wins will not trigger a workflow")
	}

	// Initialize application services
	voteService := appboard.NewVoteService(txScope, dispatcher, log)
	voteService.SetThreshold(cfg.Board.VoteThreshold)
	featureService := appboard.NewFeatureService(txScope, featureRepo, voteRepo, log)
	reconcileService := appboard.NewReconcileService(txScope, featureRepo, log)

	// Rate limit gates (Redis-backed, optional)
	if cfg.Redis.Host != "" {
		redisCfg := &ratelimit.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		if cfg.Board.VoteLimitEnabled {
			voteGate, err := ratelimit.NewRedisGate(redisCfg, "board:votes:",
				cfg.Board.VoteLimit, cfg.Board.VoteLimitWindow, log)
			if err != nil {
				log.Fatal("Failed to connect vote rate limit gate", zap.Error(err))
			}
			defer func() { _ = voteGate.Close() }()
			voteService.SetVoteGate(voteGate)
			log.Info("Vote rate limit enabled",
				zap.Int("limit", cfg.Board.VoteLimit),
				zap.Duration("window", cfg.Board.VoteLimitWindow))
		}
		submissionGate, err := ratelimit.NewRedisGate(redisCfg, "board:submissions:",
			cfg.Board.SubmissionLimit, cfg.Board.SubmissionLimitWindow, log)
		if err != nil {
			log.Fatal("Failed to connect submission rate limit gate", zap.Error(err))
		}
		defer func() { _ = submissionGate.Close() }()
		featureService.SetSubmissionGate(submissionGate)
		log.Info("Submission rate limit enabled",
			zap.Int("limit", cfg.Board.SubmissionLimit),
			zap.Duration("window", cfg.Board.SubmissionLimitWindow))
	} else {
		log.Warn("No Redis configured, rate limits are disabled")
	}

	// CAPTCHA verification (optional)
	if cfg.Captcha.Enabled {
		verifier, err := captcha.NewHCaptchaVerifier(&captcha.HCaptchaConfig{
			Secret:         cfg.Captcha.Secret,
			SiteVerifyURL:  cfg.Captcha.SiteVerifyURL,
			TimeoutSeconds: cfg.Captcha.TimeoutSeconds,
		}, log)
		if err != nil {
			log.Fatal("Failed to configure CAPTCHA verifier", zap.Error(err))
		}
		featureService.SetCaptchaVerifier(verifier)
		log.Info("CAPTCHA verification enabled")
	}

	// JWT validation for tokens issued by the parent site
	jwtService := auth.NewJWTService(cfg.JWT)

	// Initialize event bus and the SSE fan-out
	eventBus := event.NewInMemoryEventBus(log)

	streamHandler := handler.NewBoardStreamHandler(
		handler.WithStreamLogger(log),
	)
	eventBus.Subscribe(streamHandler)
	log.Info("Board stream registered", zap.Strings("events", streamHandler.EventTypes()))

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()
	streamHandler.Start(context.Background())
	defer streamHandler.Stop()

	// Inject event bus into services that publish events
	featureService.SetEventPublisher(eventBus)
	voteService.SetEventPublisher(eventBus)
	reconcileService.SetEventPublisher(eventBus)

	// Initialize HTTP handlers
	featureHandler := handler.NewFeatureHandler(featureService, voteService, log)
	webhookHandler := handler.NewWebhookHandler(reconcileService, log)
	opsHandler := handler.NewOpsHandler(reconcileService, cfg.Ops.Token, log)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Coarse per-IP guard in front of the per-user Redis gates
	if cfg.HTTP.IPRateLimit > 0 {
		ipLimiter := middleware.NewRateLimiter(cfg.HTTP.IPRateLimit, cfg.HTTP.IPRateLimitWindow)
		engine.Use(middleware.RateLimit(ipLimiter))
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes. The board's read surface is public, so identity
	// extraction is optional by default; write endpoints enforce
	// authentication themselves and the webhook/ops routes carry their
	// own checks. Gateway deployments set http.strict_auth to require a
	// valid token on every API route except the webhook callbacks.
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	if cfg.HTTP.StrictAuth {
		r.Use(middleware.JWTAuthMiddleware(jwtService))
	} else {
		r.Use(middleware.OptionalJWTAuthMiddleware(jwtService))
	}
	r.Register(router.NewBoardRoutes(featureHandler, streamHandler, webhookHandler, opsHandler))
	r.Setup()

	// Create HTTP server with config. WriteTimeout stays zero because the
	// event stream holds its response open far longer than any fixed
	// write deadline.
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
