// Package config loads the application configuration on top of the core sections.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/sheetsbot/core/config"
	coredatabase "github.com/m3rciful/sheetsbot/core/database"
	"github.com/m3rciful/sheetsbot/internal/categories"
	"github.com/m3rciful/sheetsbot/internal/kv"
	"github.com/m3rciful/sheetsbot/internal/ledger"
)

// SheetsConfig locates the ledger spreadsheet and the columns used inside each monthly worksheet.
type SheetsConfig struct {
	CredentialsFile    string `yaml:"credentials_file" envconfig:"SERVICE_ACCOUNT_FILE"`
	SpreadsheetID      string `yaml:"spreadsheet_id" envconfig:"SPREADSHEET_ID"`
	TransactionsColumn int    `yaml:"transactions_column" envconfig:"TRANSACTIONS_COLUMN"`
	IncomeColumn       int    `yaml:"income_column" envconfig:"INCOME_COLUMN"`
	// HeaderRows is a pointer so that an explicit 0 survives defaulting.
	HeaderRows *int   `yaml:"header_rows" envconfig:"HEADER_ROWS"`
	RowOffset  int    `yaml:"row_offset" envconfig:"ROW_OFFSET"`
	Timezone   string `yaml:"timezone" envconfig:"TIMEZONE"`

	location *time.Location
}

// Location returns the time zone used to pick the monthly worksheet.
func (s SheetsConfig) Location() *time.Location {
	if s.location == nil {
		return time.Local
	}
	return s.location
}

// Ledger converts the section to ledger settings.
func (s SheetsConfig) Ledger() ledger.Config {
	return ledger.Config{
		TransactionsColumn: s.TransactionsColumn,
		IncomeColumn:       s.IncomeColumn,
		HeaderRows:         s.HeaderRows,
		RowOffset:          s.RowOffset,
		Location:           s.Location(),
	}
}

// CacheConfig selects where the category list is persisted.
type CacheConfig struct {
	Backend  string `yaml:"backend" envconfig:"CACHE_BACKEND"`
	Key      string `yaml:"key" envconfig:"KEYBOARD_KEY"`
	RedisDSN string `yaml:"redis_dsn" envconfig:"REDIS_DSN"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Sheets   SheetsConfig        `yaml:"sheets"`
	Cache    CacheConfig         `yaml:"cache"`
	Database coredatabase.Config `yaml:"database"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// DatabaseConfig returns the Postgres settings, or nil when no component needs a database.
func (c *Config) DatabaseConfig() *coredatabase.Config {
	if c.Cache.Backend != kv.BackendPostgres {
		return nil
	}
	db := c.Database
	return &db
}

// Load reads YAML from path, overlays the environment and applies defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills in defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}
	if err := normalizeSheets(&cfg.Sheets); err != nil {
		return err
	}
	return normalizeCache(cfg)
}

func normalizeSheets(s *SheetsConfig) error {
	s.SpreadsheetID = strings.TrimSpace(s.SpreadsheetID)
	if s.SpreadsheetID == "" {
		return fmt.Errorf("sheets.spreadsheet_id is required")
	}
	if s.TransactionsColumn == 0 {
		s.TransactionsColumn = ledger.DefaultTransactionsColumn
	}
	if s.IncomeColumn == 0 {
		s.IncomeColumn = ledger.DefaultIncomeColumn
	}
	if s.TransactionsColumn < 1 || s.IncomeColumn < 1 {
		return fmt.Errorf("sheets columns must be >= 1")
	}
	if s.HeaderRows != nil && *s.HeaderRows < 0 {
		return fmt.Errorf("sheets.header_rows must be >= 0")
	}
	tz := strings.TrimSpace(s.Timezone)
	if tz == "" {
		s.location = time.Local
		return nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("invalid sheets.timezone %q: %w", s.Timezone, err)
	}
	s.location = loc
	return nil
}

func normalizeCache(cfg *Config) error {
	c := &cfg.Cache
	backend := strings.ToLower(strings.TrimSpace(c.Backend))
	if backend == "" {
		backend = kv.BackendRedis
	}
	c.Backend = backend
	if strings.TrimSpace(c.Key) == "" {
		c.Key = categories.DefaultKey
	}

	switch backend {
	case kv.BackendRedis:
		if strings.TrimSpace(c.RedisDSN) == "" {
			return fmt.Errorf("cache.redis_dsn is required when cache.backend is 'redis'")
		}
	case kv.BackendPostgres:
		if cfg.Database.Host == "" || cfg.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required when cache.backend is 'postgres'")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
	case kv.BackendMemory:
	default:
		return fmt.Errorf("invalid cache.backend %q; allowed: redis, postgres, memory", c.Backend)
	}
	return nil
}
