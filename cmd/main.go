package main

import (
	"context"
	"os"
	"strings"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"liliapp-bi-service/internal/config"
	"liliapp-bi-service/internal/events"
	"liliapp-bi-service/internal/handlers"
	"liliapp-bi-service/internal/middleware"
	"liliapp-bi-service/internal/services"
	"liliapp-bi-service/internal/store"

	"liliapp-bi-service/internal/clients/jumpseller"
)

func main() {
	// .env is optional; real deployments use the environment directly
	_ = godotenv.Load()

	cfg := config.Load()

	logger := logrus.New()
	if cfg.Environment == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	ctx := context.Background()

	// Firebase app backs both Firestore and the auth token minting
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID})
	if err != nil {
		logger.WithError(err).Fatal("initializing firebase app")
	}
	fsClient, err := app.Firestore(ctx)
	if err != nil {
		logger.WithError(err).Fatal("initializing firestore client")
	}
	defer fsClient.Close()
	authClient, err := app.Auth(ctx)
	if err != nil {
		logger.WithError(err).Fatal("initializing firebase auth client")
	}

	docStore := store.NewFirestoreStore(fsClient, cfg.ExistenceChunkSize)

	client := jumpseller.NewClient(
		cfg.JumpsellerBaseURL,
		cfg.JumpsellerLogin,
		cfg.JumpsellerAuthToken,
		cfg.JumpsellerTimeout,
		float64(cfg.JumpsellerRateLimit),
	)

	publisher, err := events.NewPublisher(cfg.NATSUrl, "liliapp-bi-service", logger)
	if err != nil {
		logger.WithError(err).Fatal("connecting to nats")
	}
	defer publisher.Close()

	// Initialize services
	mapper := services.NewSchemaMapper()
	reconciler := services.NewReconciler(logger)
	loader := services.NewLoaderService(docStore, cfg.ETLBatchSize, logger)
	etlService := services.NewETLService(client, docStore, mapper, reconciler, loader, publisher, cfg.ETLTestRunLimit, logger)
	kpiService := services.NewKPIService(docStore, logger)
	crudService := services.NewCRUDService(docStore, logger)
	maintenanceService := services.NewMaintenanceService(docStore, cfg.CleanWorkers, logger)
	auditService := services.NewAuditService(client, docStore, logger)
	authService := services.NewAuthService(authClient, docStore, logger)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(docStore)
	kpiHandler := handlers.NewKPIHandler(kpiService)
	etlHandler := handlers.NewETLHandler(etlService)
	crudHandler := handlers.NewCRUDHandler(crudService, maintenanceService, logger)
	auditHandler := handlers.NewAuditHandler(auditService)
	jumpsellerHandler := handlers.NewJumpsellerHandler(client)
	authHandler := handlers.NewAuthHandler(authService)

	router := setupRouter(cfg, logger, healthHandler, kpiHandler, etlHandler, crudHandler, auditHandler, jumpsellerHandler, authHandler)

	logger.WithFields(logrus.Fields{
		"port": cfg.Port,
		"env":  cfg.Environment,
	}).Info("LiliApp BI service starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}

// setupRouter configures the HTTP router
func setupRouter(
	cfg *config.Config,
	logger *logrus.Logger,
	healthHandler *handlers.HealthHandler,
	kpiHandler *handlers.KPIHandler,
	etlHandler *handlers.ETLHandler,
	crudHandler *handlers.CRUDHandler,
	auditHandler *handlers.AuditHandler,
	jumpsellerHandler *handlers.JumpsellerHandler,
	authHandler *handlers.AuthHandler,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())

	var origins []string
	if raw := os.Getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		origins = strings.Split(raw, ",")
	}
	router.Use(middleware.CORS(origins))

	// Health check
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
		}

		kpis := v1.Group("/kpis")
		{
			kpis.GET("/summary", kpiHandler.Summary)
			kpis.GET("/acquisition", kpiHandler.Acquisition)
			kpis.GET("/engagement", kpiHandler.Engagement)
			kpis.GET("/operations", kpiHandler.Operations)
			kpis.GET("/retention", kpiHandler.Retention)
			kpis.GET("/segmentation", kpiHandler.Segmentation)
		}

		etl := v1.Group("/etl")
		{
			etl.POST("/orders", etlHandler.RunOrders)
			etl.POST("/products", etlHandler.RunProducts)
		}

		crud := v1.Group("/crud")
		{
			crud.GET("/services", crudHandler.List("services"))
			crud.GET("/services/:id", crudHandler.Get("services"))
			crud.POST("/services", crudHandler.Create("services"))
			crud.PUT("/services/:id", crudHandler.Update("services"))
			crud.DELETE("/services/:id", crudHandler.Delete("services"))

			crud.GET("/services/:id/variants", crudHandler.List("services/%s/variants"))
			crud.POST("/services/:id/variants", crudHandler.Create("services/%s/variants"))
			crud.PUT("/services/:id/variants/:childId", crudHandler.Update("services/%s/variants"))
			crud.DELETE("/services/:id/variants/:childId", crudHandler.Delete("services/%s/variants"))

			crud.GET("/services/:id/subcategories", crudHandler.List("services/%s/subcategories"))
			crud.POST("/services/:id/subcategories", crudHandler.Create("services/%s/subcategories"))
			crud.DELETE("/services/:id/subcategories/:childId", crudHandler.Delete("services/%s/subcategories"))

			crud.GET("/categories", crudHandler.List("categories"))
			crud.GET("/categories/:id", crudHandler.Get("categories"))
			crud.POST("/categories", crudHandler.Create("categories"))
			crud.PUT("/categories/:id", crudHandler.Update("categories"))
			crud.DELETE("/categories/:id", crudHandler.Delete("categories"))

			crud.GET("/customers", crudHandler.List("customers"))
			crud.GET("/customers/:id", crudHandler.Get("customers"))
			crud.PUT("/customers/:id", crudHandler.Update("customers"))
			crud.DELETE("/customers/:id", crudHandler.Delete("customers"))

			crud.GET("/users/:id/addresses", crudHandler.List("users/%[1]s/customer_profiles/%[1]s/addresses"))
			crud.PUT("/users/:id/addresses/:childId", crudHandler.Update("users/%[1]s/customer_profiles/%[1]s/addresses"))
			crud.DELETE("/users/:id/addresses/:childId", crudHandler.Delete("users/%[1]s/customer_profiles/%[1]s/addresses"))

			crud.POST("/services/clean-subcollections", crudHandler.CleanServiceSubcollections)
			crud.POST("/collections/:collection/clean", crudHandler.CleanCollection)
		}

		audit := v1.Group("/audit")
		{
			audit.GET("/order/:id", auditHandler.Order)
			audit.GET("/service/:id", auditHandler.Service)
			audit.GET("/firestore-health", auditHandler.FirestoreHealth)
		}

		upstream := v1.Group("/jumpseller")
		{
			upstream.GET("/orders", jumpsellerHandler.Orders)
			upstream.GET("/products", jumpsellerHandler.Products)
			upstream.GET("/categories", jumpsellerHandler.Categories)
			upstream.POST("/categories", jumpsellerHandler.CreateCategory)
			upstream.PUT("/categories/:id", jumpsellerHandler.UpdateCategory)
			upstream.DELETE("/categories/:id", jumpsellerHandler.DeleteCategory)
			upstream.PUT("/customers/:id", jumpsellerHandler.UpdateCustomer)
			upstream.DELETE("/customers/:id", jumpsellerHandler.DeleteCustomer)
			upstream.GET("/counts", jumpsellerHandler.Counts)
			upstream.GET("/stream/orders", jumpsellerHandler.StreamOrders)
			upstream.GET("/stream/products", jumpsellerHandler.StreamProducts)
			upstream.GET("/stream/categories", jumpsellerHandler.StreamCategories)
		}
	}

	return router
}
