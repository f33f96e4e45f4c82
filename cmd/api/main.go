package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/classhive/classhive-api/internal/config"
	"github.com/classhive/classhive-api/internal/database"
	"github.com/classhive/classhive-api/internal/handler"
	"github.com/classhive/classhive-api/internal/middleware"
	"github.com/classhive/classhive-api/internal/models"
	"github.com/classhive/classhive-api/internal/repository"
	"github.com/classhive/classhive-api/internal/router"
	"github.com/classhive/classhive-api/internal/service"
	"github.com/classhive/classhive-api/pkg/llm"
	"github.com/classhive/classhive-api/pkg/storage"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Enrollment{},
		&models.CourseMaterial{},
		&models.Assignment{},
		&models.Question{},
		&models.Submission{},
		&models.ActivityLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis not configured, study plan caching disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats not configured, event fan-out disabled")
	}

	files, err := buildFileStore(cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize file storage: %v", err)
	}

	grader, err := llm.NewClient(llm.Config{
		APIKey:      cfg.LLMAPIKey,
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.LLMModel,
		Temperature: float32(cfg.LLMTemperature),
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.LLMTimeout,
		MaxRetries:  cfg.LLMMaxRetries,
		RetryDelay:  cfg.LLMRetryDelay,
		Logger:      logger,
	})
	if err != nil {
		log.Fatalf("failed to initialize model client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	events := service.NewEventPublisher(natsConn, redisClient, "classhive:events", logger)
	activityService := service.NewActivityService(activityRepo, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, courseRepo, submissionRepo, files, activityService, events, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, courseRepo, files, activityService, events, logger)
	courseService := service.NewCourseService(courseRepo, files, activityService, events, logger)
	reviewService := service.NewReviewService(submissionRepo, grader, redisClient, cfg.PlanCacheTTL, activityService, events, logger)
	accountService := service.NewAccountService(userRepo, files, activityService, events, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		HealthHandler:     handler.NewHealthHandler(version),
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, validate, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, validate, logger),
		CourseHandler:     handler.NewCourseHandler(courseService, validate, logger),
		ReviewHandler:     handler.NewReviewHandler(reviewService, logger),
		AccountHandler:    handler.NewAccountHandler(accountService, activityService, logger),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildFileStore(cfg config.Config, logger zerolog.Logger) (storage.FileStore, error) {
	if cfg.StorageBackend == "cloudinary" {
		return storage.NewCloudinary(storage.CloudinaryConfig{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
	}
	return storage.NewLocal(cfg.UploadDir, logger)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
