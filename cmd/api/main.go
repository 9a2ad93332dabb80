package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "backoffice/docs" // swagger docs
	"backoffice/internal/cache"
	"backoffice/internal/config"
	"backoffice/internal/database"
	"backoffice/internal/fiscal"
	"backoffice/internal/handler"
	"backoffice/internal/logger"
	"backoffice/internal/repository"
	"backoffice/internal/service"
	"backoffice/internal/token"
	"backoffice/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Fiscal Back Office API
// @version         1.0
// @description     ICMS fiscal rule management and resolution for multi-company back offices.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger is configured from cfg, so this one goes to a default.
		zap.NewExample().Fatal("Invalid configuration", zap.Error(err))
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer func() { _ = log.Sync() }()

	gin.SetMode(cfg.App.GinMode)

	db, err := database.Open(cfg.Database, log, cfg.Log.Level)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Database migration failed", zap.Error(err))
	}
	log.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

	ruleCache, err := cache.New(cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, falling back to in-process rule cache", zap.Error(err))
		ruleCache = cache.NewMemoryCache()
	}
	defer func() { _ = ruleCache.Close() }()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run()
	defer wsHub.Stop()

	tokens := token.NewManager(cfg.JWT.Secret, cfg.JWT.TTL)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	ruleRepo := repository.NewFiscalRuleRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	productRepo := repository.NewProductRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	ruleStore := repository.NewCachedRuleStore(ruleRepo, ruleCache, cfg.Cache.RuleTTL, log)
	resolver := fiscal.NewResolver(ruleStore, log)

	ruleService := service.NewFiscalRuleService(ruleRepo, companyRepo, auditRepo, txManager,
		fiscal.NewValidator(), ruleStore, wsHub, log)
	resolutionService := service.NewResolutionService(resolver, fiscal.NewSimulator(resolver, productRepo))
	companyService := service.NewCompanyService(companyRepo, auditRepo, txManager)
	productService := service.NewProductService(productRepo, auditRepo, txManager)
	authService := service.NewAuthService(userRepo, companyRepo, tokens)
	auditService := service.NewAuditService(auditRepo)

	// Initialize Handlers
	fiscalRuleHandler := handler.NewFiscalRuleHandler(ruleService, resolutionService, tokens)
	companyHandler := handler.NewCompanyHandler(companyService, tokens)
	productHandler := handler.NewProductHandler(productService, tokens)
	authHandler := handler.NewAuthHandler(authService, tokens)
	auditHandler := handler.NewAuditHandler(auditService, tokens)

	// Set up Gin Router
	router := gin.New()
	router.Use(logger.GinMiddleware(log), logger.Recovery(log))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORS.Origins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "websocketClients": wsHub.ClientCount()})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, tokens)
	})

	// API Routing
	authHandler.RegisterRoutes(router.Group(""))
	fiscalRuleHandler.RegisterRoutes(router.Group(""))
	companyHandler.RegisterRoutes(router.Group(""))
	productHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
