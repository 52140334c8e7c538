package router

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/phantomhive/sebastian-api/config"
	"github.com/phantomhive/sebastian-api/database"
	"github.com/phantomhive/sebastian-api/handlers"
	admin_handlers "github.com/phantomhive/sebastian-api/handlers/admin"
	auth_handlers "github.com/phantomhive/sebastian-api/handlers/auth"
	chat_handlers "github.com/phantomhive/sebastian-api/handlers/chat"
	"github.com/phantomhive/sebastian-api/services"
	"github.com/phantomhive/sebastian-api/services/inference"
	"github.com/phantomhive/sebastian-api/services/spaces"
	"github.com/phantomhive/sebastian-api/utils"
	"github.com/phantomhive/sebastian-api/utils/auth"
	"github.com/phantomhive/sebastian-api/utils/cache"
	"github.com/phantomhive/sebastian-api/utils/middleware"
)

func SetupRoutes(app *fiber.App, store database.Storage) {
	env, err := config.Get()
	if err != nil {
		log.Fatal("Failed to load environment configuration")
	}

	if env.JWT_SECRET == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := env.JWT_ISSUER
	if jwtIssuer == "" {
		jwtIssuer = "sebastian-api"
	}

	// Initialize JWT manager with config
	jwtConfig := auth.JWTConfig{
		Secret: env.JWT_SECRET,
		Expiry: 24 * time.Hour, // Access token expires in 24 hours
		Issuer: jwtIssuer,
	}
	jwtManager := auth.NewJWTManager(jwtConfig)

	// Initialize Redis cache for brute force protection
	redisURL := env.REDIS_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Brute force protection will be disabled.", err)
	}

	// Initialize brute force protection
	var bruteForceProtection *middleware.BruteForceProtection
	if redisCache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(redisCache)
	}

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, store)

	// Initialize auth handler with brute force protection
	authHandler := auth_handlers.NewAuthHandler(store, jwtManager, bruteForceProtection, env.ADMIN_USERNAME, env.ADMIN_PASSWORD)

	// Initialize persona generation backed by the inference client
	inferenceClient := inference.NewClient(inference.Config{
		APIKey:  env.LLM_API_KEY,
		BaseURL: env.LLM_BASE_URL,
		Model:   env.LLM_MODEL,
	})
	personaService := services.NewPersonaService(inferenceClient, env.PERSONA_PROMPT)

	// Optional S3-compatible media backend
	spacesClient, err := spaces.NewFromConfig(env)
	if err != nil {
		log.Printf("Warning: Failed to initialize Spaces client: %v. Using local storage only.", err)
		spacesClient = nil
	}

	mediaService, err := services.NewMediaService(env.UPLOADS_DIR, spacesClient)
	if err != nil {
		log.Fatalf("Failed to initialize media storage: %v", err)
	}

	// Initialize chat service and handlers
	chatService := services.NewChatService(store, personaService)
	chatHandler := chat_handlers.NewChatHandler(store, chatService)
	uploadHandler := chat_handlers.NewUploadHandler(chatHandler, chatService, mediaService)
	adminHandler := admin_handlers.NewAdminHandler(store, chatService)

	// Apply security middleware
	allowedOrigins := env.ALLOWED_ORIGINS
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
	})

	// Health check endpoint (public)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, store))

	// Uploaded images are served statically
	app.Static("/uploads", mediaService.UploadsDir())

	// API group
	api := app.Group("/api")

	// Auth routes (public)
	api.Post("/register", authHandler.Register)

	// Logins with brute force protection
	if bruteForceProtection != nil {
		api.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
		api.Post("/admin/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.AdminLogin)
	} else {
		api.Post("/login", authHandler.Login)
		api.Post("/admin/login", authHandler.AdminLogin)
	}

	// Chat routes (protected)
	chat := api.Group("/chat", authMiddleware.Required())
	chat.Get("/", chatHandler.GetChat)                 // Get or create the caller's chat
	chat.Get("/:id/messages", chatHandler.GetMessages) // Full message history
	chat.Post("/:id/message", chatHandler.SendMessage) // Text or sticker message
	chat.Post("/:id/upload", uploadHandler.Upload)     // Image upload with optional caption

	// Admin routes (admin only; the login route above stays public because it
	// is registered before the group middleware)
	adminGroup := api.Group("/admin", authMiddleware.RequireAdmin())
	adminGroup.Get("/chats", adminHandler.ListChats)                      // All chats, most recent first
	adminGroup.Post("/chat/:id/respond", adminHandler.Respond)            // Reply as Sebastian
	adminGroup.Post("/chat/:id/toggle-active", adminHandler.ToggleActive) // Flip handoff state
}
