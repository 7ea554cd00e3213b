package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/payroll-control/internal/application/port"
	"github.com/garyjia/payroll-control/internal/application/service"
	"github.com/garyjia/payroll-control/internal/config"
	"github.com/garyjia/payroll-control/internal/infrastructure/external/notify"
	"github.com/garyjia/payroll-control/internal/infrastructure/external/payslip"
	"github.com/garyjia/payroll-control/internal/infrastructure/persistence/repository"
	"github.com/garyjia/payroll-control/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/payroll-control/internal/transport/httpapi"
	"github.com/garyjia/payroll-control/pkg/database"
	"github.com/garyjia/payroll-control/pkg/utils"
)

func main() {
	// Load .env if present; real config comes from configs/config.yaml
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Payroll Approval Control Plane",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	sqlDB, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer sqlDB.Close()

	// Run migrations
	migrator := database.NewMigrator(sqlDB, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.Payslip.OutputDir, 0755); err != nil {
		logger.Fatal("Failed to create payslip output directory", zap.Error(err))
	}

	// Initialize repositories and transaction manager
	db := sqlite.NewDB(sqlDB, logger)
	runRepo := repository.NewRunRepository(sqlDB, logger)
	auditRepo := repository.NewAuditRepository(sqlDB, logger)

	// Initialize external collaborators
	var notifier port.NotificationGateway
	if len(cfg.Notifications.Endpoints) > 0 {
		notifier = notify.NewWebhookGateway(cfg.Notifications.Endpoints, cfg.Notifications.Timeout, logger)
	} else {
		logger.Warn("No notification endpoints configured, notifications will be logged only")
		notifier = notify.NewLogGateway(logger)
	}
	payslipIssuer := payslip.NewRegisterIssuer(runRepo, cfg.Payslip.OutputDir, logger)

	// Initialize services
	sugar := logger.Sugar()
	svcLogger := sugaredLogger{sugar}
	auditSvc := service.NewAuditService(auditRepo, svcLogger)
	analyzer := service.NewAnalyzer()
	workflowSvc := service.NewWorkflowService(
		runRepo,
		auditSvc,
		analyzer,
		notifier,
		payslipIssuer,
		db,
		svcLogger,
		service.WithPayslipTimeout(cfg.Payslip.Timeout),
	)

	// Set Gin mode based on logger level
	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "payroll-control",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	handler := httpapi.NewHandler(workflowSvc, logger)
	handler.Register(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

// sugaredLogger adapts zap's sugared logger to the service logging interface
type sugaredLogger struct {
	sugar *zap.SugaredLogger
}

func (l sugaredLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l sugaredLogger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
