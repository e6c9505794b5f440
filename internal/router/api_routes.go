package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"results-web/internal/config"
	"results-web/internal/handler"
	"results-web/internal/middleware"
	"results-web/internal/repository"
	"results-web/internal/service"
	"results-web/internal/utils"
)

func SetupAPIRoutes(
	router fiber.Router,
	db *sqlx.DB,
	redisClient *redis.Client,
	cfg *config.Config,
) {
	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	resultRepo := repository.NewResultRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg)
	excelService := service.NewExcelService()
	importService := service.NewImportService(db, cfg, utils.GetLogger())
	statusService := service.NewStatusService(resultRepo, utils.GetLogger())
	analyticsService := service.NewAnalyticsService(resultRepo, analyticsRepo, redisClient, utils.GetLogger())

	// Initialize Asynq client (optional - only if Redis is available)
	var asynqClient *asynq.Client
	if redisClient != nil {
		asynqClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.AsynqRedisAddr,
			Password: cfg.AsynqRedisPassword,
			DB:       cfg.AsynqRedisDB,
		})
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	studentHandler := handler.NewStudentHandler(studentRepo, resultRepo)
	resultHandler := handler.NewResultHandler(statusService, resultRepo, studentRepo, excelService, cfg)
	importHandler := handler.NewImportHandler(importService, excelService, batchRepo, asynqClient, redisClient, cfg)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, asynqClient)

	// Public routes
	auth := router.Group("/auth")
	auth.Post("/login", authHandler.Login)

	// Protected routes
	protected := router.Group("", middleware.AuthMiddleware(cfg))

	// Auth routes
	protected.Get("/auth/me", authHandler.Me)

	// Student routes
	students := protected.Group("/students")
	students.Get("/", studentHandler.List)
	students.Get("/roll/:roll", studentHandler.Get)
	students.Get("/:id/results", studentHandler.Results)

	// Result workflow routes
	results := protected.Group("/results")
	results.Get("/export", resultHandler.Export)
	results.Post("/:id/status", resultHandler.Transition)
	results.Get("/backfill", middleware.AdminOnly(), resultHandler.BackfillCandidates)
	results.Post("/backfill", middleware.AdminOnly(), resultHandler.RunBackfill)

	// Import routes
	imports := protected.Group("/imports")
	imports.Get("/batches", importHandler.ListBatches)
	imports.Get("/batches/:id", importHandler.GetBatch)
	imports.Get("/jobs/:id", importHandler.JobStatus)
	imports.Get("/jobs/:id/errors", importHandler.ErrorReport)
	imports.Get("/:kind/template", importHandler.DownloadTemplate)
	imports.Post("/:kind/preview", importHandler.Preview)
	imports.Post("/:kind/commit", middleware.AdminOnly(), importHandler.Commit)

	// Analytics routes
	analytics := protected.Group("/analytics")
	analytics.Get("/aggregates", analyticsHandler.ListAggregates)
	analytics.Get("/aggregate", analyticsHandler.GetAggregate)
	analytics.Post("/recompute", middleware.AdminOnly(), analyticsHandler.Recompute)
}
