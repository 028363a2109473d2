package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"dqengine/adapters/api"
	"dqengine/adapters/excel"
	"dqengine/adapters/postgres"
	"dqengine/app"
	"dqengine/internal"
	"dqengine/internal/config"
	"dqengine/internal/suite"
	"dqengine/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure; nil when DATABASE_URL is unset
	DB          *sqlx.DB
	ReportRepo  ports.ReportRepository
	TableLoader *postgres.TableLoader

	FileReader *excel.DataReader
	Service    *app.QualityService
	Suites     map[string]*suite.Suite
}

// New wires the file reader, suites and quality service. Call InitWithDatabase
// to add Postgres loading and run history.
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.NewLogger(internal.ParseLogLevel(cfg.Log.Level))
	}

	suites, err := suite.LoadDir(cfg.Suites.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load suites: %w", err)
	}

	c := &Container{
		Config:     cfg,
		Logger:     logger,
		FileReader: excel.NewDataReader(excel.DefaultReaderConfig(), logger),
		Suites:     suites,
	}
	c.Service = app.NewQualityService(nil, app.PolicyFromConfig(cfg.Gate), logger)

	logger.Info("Loaded %d suites from %s", len(suites), cfg.Suites.Dir)
	return c, nil
}

// InitWithDatabase connects, migrates and rebuilds the service with persistence.
// It is a no-op when no database URL is configured.
func (c *Container) InitWithDatabase(ctx context.Context) error {
	if c.Config.Database.URL == "" {
		c.Logger.Info("DATABASE_URL not set; run history disabled")
		return nil
	}

	db, err := postgres.Open(ctx, c.Config.Database.URL, postgres.DefaultPoolConfig())
	if err != nil {
		return err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return err
	}

	c.DB = db
	c.ReportRepo = postgres.NewReportRepository(db)
	c.TableLoader = postgres.NewTableLoader(db, c.Logger)
	c.Service = app.NewQualityService(c.ReportRepo, app.PolicyFromConfig(c.Config.Gate), c.Logger)

	c.Logger.Info("Container initialized with database connection")
	return nil
}

// CompileOptions are the engine settings every suite is compiled with
func (c *Container) CompileOptions() suite.CompileOptions {
	return suite.CompileOptions{
		Logger:      c.Logger,
		Parallelism: c.Config.Engine.Parallelism,
		SampleSize:  c.Config.Engine.SampleSize,
	}
}

// Server builds the HTTP API over the container's service and suites
func (c *Container) Server() *api.Server {
	return api.NewServer(api.ServerConfigFrom(c.Config), c.Service, c.Suites, c.CompileOptions(), c.Logger)
}

// Close releases the database connection
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
