package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repair-ops/cache"
	"repair-ops/database"
	"repair-ops/database/seeders"
	"repair-ops/httpServices/mergeworker"
	"repair-ops/httpServices/videostore"
	"repair-ops/jobqueue"
	"repair-ops/logger"
	"repair-ops/objectstorage"
	"repair-ops/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
)

func main() {
	app := fiber.New(fiber.Config{
		ReadBufferSize:  32768, // 32KB read buffer
		WriteBufferSize: 32768, // 32KB write buffer
		ReadTimeout:     time.Second * 30,
		WriteTimeout:    time.Second * 30,
		BodyLimit:       50 * 1024 * 1024, // 50MB body limit
	})
	env := godotenv.Load()
	if env != nil {
		logger.Error("Error loading .env file", env)
		fmt.Println("Error loading .env file", env)
	}

	db, err := database.InitDB()
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		return
	}
	if err := seeders.Seed(db); err != nil {
		logger.Error("Failed to seed default data", err)
		return
	}

	cache.SetupCache()

	videoStore := videostore.NewClient(os.Getenv("VIDEO_STORE_BASE_URL"), os.Getenv("VIDEO_STORE_API_KEY"))
	mergeWorker := mergeworker.NewClient(os.Getenv("MERGE_WORKER_BASE_URL"))

	// Object storage is optional; merged videos stay on the video store
	// when it is not configured.
	var objectStorage *objectstorage.Client
	if cfg := objectstorage.ConfigFromEnv(); cfg.IsEnabled() {
		objectStorage, err = objectstorage.NewClient(cfg)
		if err != nil {
			logger.Error("Failed to set up object storage", err)
			return
		}
		logger.Success("Object storage configured for merged videos")
	} else {
		logger.Warning("Object storage not configured, merged videos will not be archived")
	}

	queue := jobqueue.NewQueue(2)
	queue.Register(jobqueue.JobTypeVideoMerge, jobqueue.NewVideoMergeProcessor(db, videoStore, mergeWorker, objectStorage))
	queue.Start()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("FRONTEND_URL"),
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upload-Offset",
		AllowCredentials: true,
	}))

	routes.SetupRoutes(app, db, queue, videoStore, objectStorage)

	appHost := os.Getenv("APP_HOST")
	appPort := os.Getenv("APP_PORT")
	logger.Success("Server is running on ip: " + appHost + " port: " + appPort +
		"\n\t\t\t\t\t\t******************************************************************************************\n")

	// Shut down the queue before the listener so in-flight merges finish.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("Shutting down...")
		queue.Stop()
		if err := app.Shutdown(); err != nil {
			logger.Error("Failed to shut down server", err)
		}
	}()

	if err := app.Listen(appHost + ":" + appPort); err != nil {
		logger.Error("Server stopped", err)
	}
}
