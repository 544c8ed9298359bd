package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/pharmacy/backend/internal/application/catalog"
	ledgerapp "github.com/pharmacy/backend/internal/application/ledger"
	tradeapp "github.com/pharmacy/backend/internal/application/trade"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/auth"
	"github.com/pharmacy/backend/internal/infrastructure/cache"
	"github.com/pharmacy/backend/internal/infrastructure/config"
	"github.com/pharmacy/backend/internal/infrastructure/logger"
	"github.com/pharmacy/backend/internal/infrastructure/persistence"
	"github.com/pharmacy/backend/internal/infrastructure/telemetry"
	"github.com/pharmacy/backend/internal/interfaces/http/handler"
	"github.com/pharmacy/backend/internal/interfaces/http/middleware"
	"github.com/pharmacy/backend/internal/interfaces/http/router"
	"go.uber.org/zap"

	_ "github.com/pharmacy/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Pharmacy Backend API
//	@version		1.0
//	@description	Back-office inventory ledger for pharmacy retail: catalog, purchase lots, FIFO sales allocation and returns.
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/pharmacy/backend
//	@contact.email	support@pharmacy.example.com

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/

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

	log.Info("Starting Pharmacy Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection with zap-backed GORM logger
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, gormLogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize OpenTelemetry tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Database query tracing (otelgorm + slow query detection)
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:         "postgresql",
			WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	// Idempotency store: Redis when reachable, in-memory otherwise.
	// Invoice creation stays safe to retry either way; the in-memory store
	// just loses its keys on restart.
	var idempotencyStore shared.IdempotencyStore
	redisStore, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, falling back to in-memory idempotency store", zap.Error(err))
		memStore := cache.NewInMemoryIdempotencyStore()
		defer func() {
			_ = memStore.Close()
		}()
		idempotencyStore = memStore
	} else {
		defer func() {
			_ = redisStore.Close()
		}()
		idempotencyStore = redisStore
		log.Info("Redis idempotency store connected",
			zap.String("host", cfg.Redis.Host),
			zap.Int("port", cfg.Redis.Port),
		)
	}

	// Initialize repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	packagingUnitRepo := persistence.NewGormPackagingUnitRepository(db.DB)
	unitConversionRepo := persistence.NewGormUnitConversionRepository(db.DB)
	purchaseLotRepo := persistence.NewGormPurchaseLotRepository(db.DB)
	allocationSourceRepo := persistence.NewGormAllocationSourceRepository(db.DB)
	purchaseInvoiceRepo := persistence.NewGormPurchaseInvoiceRepository(db.DB)
	salesInvoiceRepo := persistence.NewGormSalesInvoiceRepository(db.DB)
	returnInvoiceRepo := persistence.NewGormReturnInvoiceRepository(db.DB)

	// Ledger coordination: per-product write serialization and aggregate upkeep
	productLocker := ledgerapp.NewProductLocker()
	aggregateMaintainer := ledgerapp.NewAggregateMaintainer(productRepo, purchaseLotRepo, log)

	// Domain events: low-stock alerts land in the operational log
	eventBus := shared.NewInMemoryEventBus()
	eventBus.Subscribe(ledgerapp.NewLowStockNotifier(log))
	aggregateMaintainer.SetEventPublisher(eventBus)

	// Initialize application services
	catalogService := catalogapp.NewService(productRepo, packagingUnitRepo, unitConversionRepo, purchaseLotRepo)
	stockService := ledgerapp.NewStockService(productRepo, purchaseLotRepo)
	purchaseService := tradeapp.NewPurchaseService(purchaseInvoiceRepo, purchaseLotRepo, unitConversionRepo,
		productLocker, aggregateMaintainer)
	salesService := tradeapp.NewSalesService(salesInvoiceRepo, returnInvoiceRepo, purchaseLotRepo,
		unitConversionRepo, productLocker, aggregateMaintainer)
	returnService := tradeapp.NewReturnService(returnInvoiceRepo, salesInvoiceRepo, purchaseLotRepo,
		allocationSourceRepo, unitConversionRepo, productLocker, aggregateMaintainer)

	purchaseService.SetIdempotencyStore(idempotencyStore)
	salesService.SetIdempotencyStore(idempotencyStore)
	returnService.SetIdempotencyStore(idempotencyStore)

	// JWT service for API authentication
	jwtService := auth.NewJWTService(cfg.JWT)

	// Initialize HTTP handlers
	productHandler := handler.NewProductHandler(catalogService)
	packagingUnitHandler := handler.NewPackagingUnitHandler(catalogService)
	purchaseInvoiceHandler := handler.NewPurchaseInvoiceHandler(purchaseService)
	salesInvoiceHandler := handler.NewSalesInvoiceHandler(salesService, returnService)
	returnInvoiceHandler := handler.NewReturnInvoiceHandler(returnService)
	stockHandler := handler.NewStockHandler(stockService, cfg.Stock.ExpiryWarningDays)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing - OpenTelemetry spans (if enabled)
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
	}

	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Swagger documentation endpoint, protected per config
	swaggerProtection := middleware.SwaggerProtection(middleware.SwaggerConfig{
		Enabled:     cfg.Swagger.Enabled,
		RequireAuth: cfg.Swagger.RequireAuth,
		AllowedIPs:  cfg.Swagger.AllowedIPs,
	}, middleware.JWTAuthMiddleware(jwtService))
	engine.GET("/swagger/*any", swaggerProtection, ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Catalog domain (products, packaging units, conversions)
	catalogRoutes := router.NewDomainGroup("catalog", "/catalog")
	catalogRoutes.POST("/products", productHandler.Create)
	catalogRoutes.GET("/products", productHandler.List)
	catalogRoutes.GET("/products/low-stock", productHandler.ListLowStock)
	catalogRoutes.GET("/products/:id", productHandler.GetByID)
	catalogRoutes.PUT("/products/:id", productHandler.Update)
	catalogRoutes.DELETE("/products/:id", productHandler.Delete)
	catalogRoutes.GET("/products/:id/conversions", packagingUnitHandler.ListConversions)

	catalogRoutes.POST("/packaging-units", packagingUnitHandler.Create)
	catalogRoutes.GET("/packaging-units", packagingUnitHandler.List)

	catalogRoutes.POST("/conversions", packagingUnitHandler.DefineConversion)
	catalogRoutes.GET("/conversions/scan/:code", packagingUnitHandler.ResolveScanCode)
	catalogRoutes.DELETE("/conversions/:id", packagingUnitHandler.DeleteConversion)

	// Trade domain (purchase, sales and return invoices)
	tradeRoutes := router.NewDomainGroup("trade", "/trade")
	tradeRoutes.POST("/purchase-invoices", purchaseInvoiceHandler.Create)
	tradeRoutes.GET("/purchase-invoices", purchaseInvoiceHandler.List)
	tradeRoutes.GET("/purchase-invoices/serial/:serial", purchaseInvoiceHandler.GetBySerial)
	tradeRoutes.GET("/purchase-invoices/:id", purchaseInvoiceHandler.GetByID)
	tradeRoutes.DELETE("/purchase-invoices/:id", purchaseInvoiceHandler.Delete)

	tradeRoutes.POST("/sales-invoices", salesInvoiceHandler.Create)
	tradeRoutes.GET("/sales-invoices", salesInvoiceHandler.List)
	tradeRoutes.GET("/sales-invoices/serial/:serial", salesInvoiceHandler.GetBySerial)
	tradeRoutes.GET("/sales-invoices/:id", salesInvoiceHandler.GetByID)
	tradeRoutes.GET("/sales-invoices/:id/returns", salesInvoiceHandler.ListReturns)
	tradeRoutes.DELETE("/sales-invoices/:id", salesInvoiceHandler.Delete)

	tradeRoutes.POST("/return-invoices", returnInvoiceHandler.Create)
	tradeRoutes.GET("/return-invoices/serial/:serial", returnInvoiceHandler.GetBySerial)
	tradeRoutes.GET("/return-invoices/:id", returnInvoiceHandler.GetByID)
	tradeRoutes.DELETE("/return-invoices/:id", returnInvoiceHandler.Delete)

	// Stock domain (availability and expiry reports)
	stockRoutes := router.NewDomainGroup("stock", "/stock")
	stockRoutes.GET("/availability/:id", stockHandler.GetAvailability)
	stockRoutes.GET("/expiring", stockHandler.ListExpiring)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	// Register all domain groups
	r.Register(catalogRoutes).
		Register(tradeRoutes).
		Register(stockRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
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
		body := gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		}
		if stats, err := db.Stats(); err == nil {
			body["pool"] = gin.H{
				"open":     stats.OpenConnections,
				"in_use":   stats.InUse,
				"idle":     stats.Idle,
				"waited":   stats.WaitCount,
				"max_open": stats.MaxOpenConnections,
			}
		}
		c.JSON(http.StatusOK, body)
	}
}
