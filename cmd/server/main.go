package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/procure-flow/internal/approval"
	"github.com/garyjia/procure-flow/internal/assets"
	"github.com/garyjia/procure-flow/internal/audit"
	"github.com/garyjia/procure-flow/internal/config"
	"github.com/garyjia/procure-flow/internal/directory"
	httpserver "github.com/garyjia/procure-flow/internal/interfaces/http"
	"github.com/garyjia/procure-flow/internal/procurement"
	"github.com/garyjia/procure-flow/internal/repository"
	"github.com/garyjia/procure-flow/migrations"
	"github.com/garyjia/procure-flow/pkg/database"
	"github.com/garyjia/procure-flow/pkg/utils"
)

func main() {
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

	logger.Info("Starting procurement approval workflow service",
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.Run(migrations.FS); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Repositories
	userRepo := repository.NewUserRepository(db.DB, logger)
	costCenterRepo := repository.NewCostCenterRepository(db.DB, logger)
	vendorRepo := repository.NewVendorRepository(db.DB, logger)
	prRepo := repository.NewPurchaseRequestRepository(db.DB, logger)
	poRepo := repository.NewPurchaseOrderRepository(db.DB, logger)
	invoiceRepo := repository.NewInvoiceRepository(db.DB, logger)
	approvalRepo := repository.NewApprovalRepository(db.DB, logger)
	assetRepo := repository.NewAssetRepository(db.DB, logger)
	auditRepo := repository.NewAuditEventRepository(db.DB, logger)

	// Audit sink: fire-and-forget, outside business transactions
	auditRecorder := audit.NewRecorder(auditRepo, cfg.Audit.BufferSize, logger)
	defer auditRecorder.Close()

	// Approval engine
	resolver := directory.NewResolver(userRepo, logger)
	chainBuilder := approval.NewChainBuilder(approvalRepo, resolver, logger)
	registry := approval.NewRegistry(prRepo, poRepo, invoiceRepo)
	engine := approval.NewEngine(db, approvalRepo, registry, auditRecorder, logger)

	// Document factories and asset ledger
	documents := procurement.NewService(
		db, userRepo, costCenterRepo, vendorRepo,
		prRepo, poRepo, invoiceRepo,
		chainBuilder, auditRecorder, logger,
	)
	ledger := assets.NewService(db, assetRepo, userRepo, logger)

	handlers := httpserver.NewHandlers(
		documents, engine, ledger,
		userRepo, costCenterRepo, vendorRepo,
		prRepo, poRepo, invoiceRepo,
		logger,
	)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
