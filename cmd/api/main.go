package main

import (
	_ "backend/api/swagger" // swagger docs
	"backend/internal/badge"
	"backend/internal/database"
	"backend/internal/dispatch"
	"backend/internal/geocode"
	"backend/internal/handler"
	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/websocket"
	"context"
	"log"
	"os"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Service Request API
// @version         1.0
// @description     Service request lifecycle, deletion approval workflow and audit trail for post-construction maintenance.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := envOr("DB_HOST", "localhost")
	dbPort := envOr("DB_PORT", "5432")
	dbUser := envOr("DB_USER", "postgres")
	dbPassword := envOr("DB_PASSWORD", "postgres")
	dbName := envOr("DB_NAME", "postgres")
	dbSslMode := envOr("DB_SSLMODE", "disable")

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Repositories
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	serviceRepo := repository.NewServiceRequestRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	propertyRepo := repository.NewPropertyRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)

	// Side-effect collaborators
	notificationService := service.NewNotificationService(notificationRepo, userRepo)
	badgeEvaluator := badge.NewEvaluator(badgeRepo, serviceRepo, reviewRepo, notificationService)
	geocoder := geocode.NewClient(envOr("GEOCODER_URL", "https://nominatim.openstreetmap.org/search"))

	workers, _ := strconv.Atoi(envOr("DISPATCH_WORKERS", "4"))
	dispatcher := dispatch.New(256, notificationService, badgeEvaluator, geocoder, serviceRepo, wsHub)
	go dispatcher.Run(context.Background(), workers)

	// Services
	userService := service.NewUserService(userRepo)
	serviceRequestService := service.NewServiceRequestService(
		serviceRepo, historyRepo, propertyRepo, userRepo, reviewRepo, txManager, dispatcher)
	reviewService := service.NewReviewService(reviewRepo, serviceRepo, txManager, dispatcher)
	propertyService := service.NewPropertyService(propertyRepo, userRepo)

	// Handlers
	userHandler := handler.NewUserHandler(userService)
	serviceRequestHandler := handler.NewServiceRequestHandler(serviceRequestService)
	reviewHandler := handler.NewReviewHandler(reviewService)
	propertyHandler := handler.NewPropertyHandler(propertyService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	badgeHandler := handler.NewBadgeHandler(badgeRepo)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	root := router.Group("")
	userHandler.RegisterRoutes(root)
	serviceRequestHandler.RegisterRoutes(root)
	reviewHandler.RegisterRoutes(root)
	propertyHandler.RegisterRoutes(root)
	notificationHandler.RegisterRoutes(root)
	badgeHandler.RegisterRoutes(root)

	port := envOr("PORT", "8080")

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
