package router

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnly-api/config"
	"github.com/sahilchouksey/learnly-api/database"
	"github.com/sahilchouksey/learnly-api/handlers"
	auth_handlers "github.com/sahilchouksey/learnly-api/handlers/auth"
	commerce_handlers "github.com/sahilchouksey/learnly-api/handlers/commerce"
	course_handlers "github.com/sahilchouksey/learnly-api/handlers/course"
	instructor_handlers "github.com/sahilchouksey/learnly-api/handlers/instructor"
	playback_handlers "github.com/sahilchouksey/learnly-api/handlers/playback"
	"github.com/sahilchouksey/learnly-api/services/enrollment"
	"github.com/sahilchouksey/learnly-api/services/payment"
	"github.com/sahilchouksey/learnly-api/services/playback"
	"github.com/sahilchouksey/learnly-api/services/storage"
	"github.com/sahilchouksey/learnly-api/utils/auth"
	"github.com/sahilchouksey/learnly-api/utils/cache"
	"github.com/sahilchouksey/learnly-api/utils/middleware"
	"gorm.io/gorm"
)

// SetupRoutes wires services and handlers onto the fiber app
func SetupRoutes(app *fiber.App, store database.Storage, env *config.EnvironmentVariable) {
	if env.JWT_SECRET == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := env.JWT_ISSUER
	if jwtIssuer == "" {
		jwtIssuer = "learnly-api"
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        env.JWT_SECRET,
		Expiry:        24 * time.Hour,
		RefreshExpiry: 7 * 24 * time.Hour,
		Issuer:        jwtIssuer,
	})

	// Get DB instance (type assert from interface)
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	// Redis is optional: catalog reads fall back to the database and the
	// revalidation signal becomes a no-op.
	redisURL := env.REDIS_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}
	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Course caching will be disabled.", err)
		redisCache = nil
	}

	// Core commerce/entitlement services
	ledger := enrollment.NewLedger(db)
	gateway := payment.NewStripeGateway(env.STRIPE_SECRET_KEY)
	checkoutService := payment.NewCheckoutService(db, ledger, gateway, env.APP_BASE_URL)

	var invalidator payment.CacheInvalidator
	if redisCache != nil {
		invalidator = redisCache
	}
	webhookProcessor := payment.NewWebhookProcessor(ledger, env.STRIPE_WEBHOOK_SECRET, invalidator)

	spacesClient, err := storage.NewSpacesClient(storage.SpacesConfig{
		AccessKey: env.SPACES_KEY,
		SecretKey: env.SPACES_SECRET,
		Bucket:    env.SPACES_BUCKET,
		Region:    env.SPACES_REGION,
		Endpoint:  env.SPACES_ENDPOINT,
		CDNURL:    env.SPACES_CDN_URL,
	})
	if err != nil {
		log.Fatalf("Failed to initialize Spaces client: %v", err)
	}
	guard := playback.NewGuard(db, ledger, spacesClient)

	// Middleware and handlers
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)
	authHandler := auth_handlers.NewAuthHandler(db, jwtManager)
	courseHandler := course_handlers.NewCourseHandler(db, ledger, redisCache)
	instructorHandler := instructor_handlers.NewInstructorHandler(db)
	commerceHandler := commerce_handlers.NewCommerceHandler(checkoutService, ledger)
	webhookHandler := commerce_handlers.NewWebhookHandler(webhookProcessor)
	playbackHandler := playback_handlers.NewPlaybackHandler(guard)

	// Routes
	app.Get("/health", handlers.HandleCheckHealth(store))

	v1 := app.Group("/api/v1")

	// Auth
	v1.Post("/auth/register", authHandler.Register)
	v1.Post("/auth/login", authHandler.Login)

	// Catalog
	v1.Get("/courses", courseHandler.ListCourses)
	v1.Get("/courses/:slug", courseHandler.GetCourse)
	v1.Post("/courses", authMiddleware.Required(), courseHandler.CreateCourse)
	v1.Put("/courses/:id", authMiddleware.Required(), courseHandler.UpdateCourse)
	v1.Patch("/courses/:id/status", authMiddleware.Required(), courseHandler.SetStatus)
	v1.Post("/courses/:id/lectures", authMiddleware.Required(), courseHandler.AddLecture)

	// Instructors
	v1.Post("/instructors", authMiddleware.Required(), instructorHandler.Create)
	v1.Get("/instructors/:id", instructorHandler.Get)

	// Commerce
	v1.Post("/courses/:id/checkout", authMiddleware.Required(), commerceHandler.StartCheckout)
	v1.Post("/courses/:id/enroll", authMiddleware.Required(), commerceHandler.ClaimFree)
	v1.Get("/courses/:id/enrollment", authMiddleware.Optional(), commerceHandler.EnrollmentStatus)

	// Payment provider webhook (public; verified by signature, not session)
	v1.Post("/payments/webhook", webhookHandler.Handle)

	// Playback
	v1.Get("/lectures/:id/playback", authMiddleware.Optional(), playbackHandler.GetPlaybackURL)
}
