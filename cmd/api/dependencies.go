package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/handler"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/repository"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/service"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/sniffer"
	"github.com/FACorreiaa/fund-tracker/internal/store/gsheets"
	"github.com/FACorreiaa/fund-tracker/internal/store/workbook"

	"github.com/FACorreiaa/fund-tracker/pkg/config"
	"github.com/FACorreiaa/fund-tracker/pkg/db"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	Spreadsheet repository.Spreadsheet
	JournalRepo repository.JournalRepository
	RoleTable   sniffer.RoleTable

	// Services
	PortfolioService *service.PortfolioService

	// Handlers
	DashboardHandler *handler.DashboardHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// The journal is optional; without a database the service only talks to the sheet.
	if cfg.Database.DSN() != "" {
		if err := deps.initDatabase(); err != nil {
			deps.Cleanup()
			return nil, fmt.Errorf("failed to init database: %w", err)
		}
	} else {
		logger.Info("DATABASE_URL not set; append journal disabled")
	}

	if err := deps.initRepositories(ctx); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	deps.initServices()
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories opens the spreadsheet backend, the journal and the role table
func (d *Dependencies) initRepositories(ctx context.Context) error {
	sheetCfg := d.Config.Sheet

	switch sheetCfg.Backend {
	case config.BackendWorkbook:
		store, err := workbook.New(sheetCfg.WorkbookPath)
		if err != nil {
			return err
		}
		d.Spreadsheet = store
	default:
		store, err := gsheets.NewWithCredentialsFile(ctx, sheetCfg.SpreadsheetID, sheetCfg.CredentialsFile)
		if err != nil {
			return err
		}
		d.Spreadsheet = store
	}
	d.Logger.Info("spreadsheet backend ready", slog.String("backend", sheetCfg.Backend))

	if d.DB != nil {
		d.JournalRepo = repository.NewPostgresJournalRepository(d.DB.Pool)
	}

	table, err := sniffer.LoadRoleTable(sheetCfg.RoleTableFile)
	if err != nil {
		return err
	}
	d.RoleTable = table

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() {
	d.PortfolioService = service.NewPortfolioService(d.Spreadsheet, d.JournalRepo, service.Options{
		SummaryTab:       d.Config.Sheet.SummaryTab,
		ViewIgnoreTabs:   d.Config.Sheet.ViewIgnoreTabs,
		AppendIgnoreTabs: d.Config.Sheet.AppendIgnoreTabs,
		RoleTable:        d.RoleTable,
		CacheTTL:         d.Config.Cache.TTL,
	}, d.Logger)

	d.Logger.Info("services initialized")
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.DashboardHandler = handler.NewDashboardHandler(d.PortfolioService, d.Logger)

	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
