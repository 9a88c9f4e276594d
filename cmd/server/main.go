package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/postpilot/postpilot/configs"
	"github.com/postpilot/postpilot/internal/api/handlers"
	"github.com/postpilot/postpilot/internal/api/middleware"
	job "github.com/postpilot/postpilot/internal/jobs"
	"github.com/postpilot/postpilot/internal/queue"
	"github.com/postpilot/postpilot/internal/repository"
	"github.com/postpilot/postpilot/internal/service"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	asynqClient := asynq.NewClient(redisConn)
	defer asynqClient.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	scheduleRepo := repository.NewScheduleRepository(db)
	generatedPostRepo := repository.NewGeneratedPostRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	businessRepo := repository.NewBusinessRepository(db)
	trackedLinkRepo := repository.NewTrackedLinkRepository(db)
	linkClickRepo := repository.NewLinkClickRepository(db)

	queueClient := queue.NewClient(asynqClient)

	scheduleService := service.NewScheduleService(scheduleRepo, generatedPostRepo, socialAccountRepo)
	linkService := service.NewLinkService(trackedLinkRepo, queueClient)
	mediaService := service.NewMediaService(*cfg, nil)
	facebookService := service.NewFacebookService(nil)
	instagramService := service.NewInstagramService(*cfg, socialAccountRepo, nil)
	publisher := service.NewPublisher(facebookService, instagramService)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	redirect := handlers.NewRedirectHandler(linkService)
	app.Get("/r/:code", redirect.Redirect)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	schedule := handlers.NewScheduleHandler(scheduleService)
	api.Post("/scheduler", schedule.CreateSchedule)
	api.Get("/scheduler", schedule.ListSchedules)
	api.Put("/scheduler/:id", schedule.Reschedule)
	api.Delete("/scheduler/:id", schedule.DeleteSchedule)

	// cron jobs
	publishJob := job.NewPublishJob(*cfg, scheduleRepo, generatedPostRepo, socialAccountRepo,
		businessRepo, linkService, mediaService, publisher)
	refreshTokenJob := job.NewTokenRefreshJob(socialAccountRepo, instagramService)

	c := cron.New()
	c.AddFunc("@every 00h01m00s", publishJob.PublishDuePosts)
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeLinkClick, queue.NewWorker(linkClickRepo).HandleLinkClickTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	log.Println("Server shutdown complete.")
}
