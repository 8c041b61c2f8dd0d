package container

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"gohar/adapters/ingest"
	"gohar/adapters/ledger"
	"gohar/adapters/profile"
	"gohar/app"
	"gohar/internal/config"
	"gohar/internal/logging"
	"gohar/internal/rng"
	"gohar/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *logging.Logger

	// Infrastructure
	DB *sqlx.DB

	// Ports
	Reader   ports.TableReaderPort
	Profiler ports.ProfilerPort
	Ledger   ports.LedgerPort
	RNG      ports.RNGPort

	// Services
	Pipeline *app.PipelineService
	Reports  *app.ReportService
}

// New creates a container with the file-level adapters wired. The ledger and
// the services that depend on it come up in InitLedger.
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	logger := logging.NewDefaultLogger()
	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Reader:   ingest.NewDataReader(readerConfig(cfg), logger),
		Profiler: profile.NewStatsProfiler(logger),
		RNG:      rng.New(),
	}
	return c, nil
}

// InitLedger opens the artifact ledger and wires the services. A disabled
// ledger still gets an in-memory database so the run's report can render
// from stored artifacts; it just leaves nothing behind on disk.
func (c *Container) InitLedger() error {
	dsn := c.Config.Ledger.Path
	if !c.Config.Ledger.Enabled {
		dsn = ":memory:"
	}

	db, err := ledger.Open(dsn)
	if err != nil {
		return fmt.Errorf("failed to open ledger %s: %w", dsn, err)
	}
	c.DB = db
	c.Ledger = ledger.NewLedger(db)

	c.Pipeline = app.NewPipelineService(c.Reader, c.Profiler, c.Ledger, c.RNG, c.Logger)
	c.Reports = app.NewReportService(c.Ledger, c.Logger)
	return nil
}

// Close releases container resources
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// readerConfig maps the data section of the config onto the ingest adapter
func readerConfig(cfg *config.Config) ingest.ReaderConfig {
	rc := ingest.DefaultReaderConfig()
	if cfg.Data.Delimiter != "" {
		rc.Delimiter = []rune(cfg.Data.Delimiter)[0]
	}
	if cfg.Data.Sheet != "" {
		rc.SheetName = cfg.Data.Sheet
	}
	if len(cfg.Data.MissingTokens) > 0 {
		rc.MissingTokens = cfg.Data.MissingTokens
	}
	return rc
}
