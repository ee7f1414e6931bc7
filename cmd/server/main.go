package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/powerquip/erp-backend/internal/config"
	"github.com/powerquip/erp-backend/internal/finance"
	httpapi "github.com/powerquip/erp-backend/internal/interfaces/http"
	"github.com/powerquip/erp-backend/internal/report"
	"github.com/powerquip/erp-backend/internal/repository"
	"github.com/powerquip/erp-backend/internal/store"
	"github.com/powerquip/erp-backend/pkg/database"
	"github.com/powerquip/erp-backend/pkg/utils"
)

func main() {
	// Local development secrets; absent in production.
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

	logger.Info("Starting Powerquip ERP backend",
		zap.String("version", "1.0.0"),
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
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	docStore := store.NewSqliteStore(db, logger)
	clock := utils.SystemClock{}
	ids := utils.UUIDGen{}

	seq := repository.NewSequenceAllocator(docStore, logger)
	sheetRepo := repository.NewSheetRepository(docStore, seq, logger)
	advanceRepo := repository.NewAdvanceRepository(docStore, seq, logger)

	sheetService := finance.NewSheetService(sheetRepo, clock, ids, logger)
	advanceService := finance.NewAdvanceService(advanceRepo, clock, ids, logger)
	ledger := finance.NewBalanceLedger(advanceRepo, sheetRepo, logger)
	exporter := finance.NewSummaryExporter(ledger, logger)

	templates := report.NewTemplateStore(docStore, logger)
	fetcher := report.NewImageFetcher(cfg.Reports.AssetDir, logger)
	renderer := report.NewDocumentRenderer(templates, fetcher, clock, logger)

	server := httpapi.NewServer(
		httpapi.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		sheetService,
		advanceService,
		ledger,
		exporter,
		templates,
		renderer,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
	logger.Info("Shutdown complete")
}
