package app

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/phantomhive/sebastian-api/api"
	"github.com/phantomhive/sebastian-api/config"
	"github.com/phantomhive/sebastian-api/database"
	"github.com/phantomhive/sebastian-api/router"
	"github.com/phantomhive/sebastian-api/services/cron"
	"github.com/phantomhive/sebastian-api/services/spaces"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err

	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	// Initialize GORM database connection
	store, err := database.StartGORM()
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		print("Error running migrations:\n")
		return err
	}

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" { // Default to enabled
		var remote cron.RemoteMedia
		if spacesClient, spacesErr := spaces.NewFromConfig(getEnv); spacesErr != nil {
			print("Warning: Failed to initialize Spaces client for cron jobs\n")
		} else if spacesClient != nil {
			remote = spacesClient
		}
		cronManager = cron.NewCronManager(store, getEnv.UPLOADS_DIR, getEnv.UPLOAD_RETENTION_DAYS, remote)
		if err := cronManager.Start(); err != nil {
			print("Warning: Failed to start cron jobs\n")
			print("Error: ", err.Error(), "\n")
			// Don't fail the app, just log the warning
		}
	}

	// Defer Closing DB and stopping cron jobs
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		store.Close()
	}()

	// Init API
	var server *api.APIServer = api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	// Attach Middleware
	// Custom Logger
	app.Use(logger.New())

	app.Use(recover.New())

	// Setup Routes
	router.SetupRoutes(app, store)

	// Get the PORT & Start the Server
	return server.Run()

}
