package bootstrap

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/sheetsbot/core/config"
	coredatabase "github.com/m3rciful/sheetsbot/core/database"
	"github.com/m3rciful/sheetsbot/core/logger"
)

// Options control the generic bootstrap pipeline.
type Options struct {
	Config *coreconfig.Config
	// Database is optional; nil skips the connection and migrations.
	Database *coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	// DB is nil when no database was requested.
	DB *sqlx.DB
}

// Run initializes the logger and, when opts.Database is set, connects to Postgres
// and applies migrations. The connection is closed again if migrations fail.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}

	initLogger := opts.LoggerInit
	if initLogger == nil {
		initLogger = logger.InitLogger
	}
	if err := initLogger(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}
	if opts.Database == nil {
		return &Result{}, nil
	}

	db, err := openDatabase(*opts.Database, opts.Connect, opts.Migrate)
	if err != nil {
		return nil, err
	}
	return &Result{DB: db}, nil
}

func openDatabase(
	cfg coredatabase.Config,
	connect func(coredatabase.Config) (*sqlx.DB, error),
	migrate func(coredatabase.Config) error,
) (*sqlx.DB, error) {
	if connect == nil {
		connect = coredatabase.Connect
	}
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}

	db, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	if err := migrate(cfg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}
	return db, nil
}
