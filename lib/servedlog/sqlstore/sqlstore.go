package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/mockbody/lib/payload"
	"github.com/ValentinKolb/mockbody/lib/servedlog"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"os"
	"path/filepath"
	"time"
)

// DatabaseType defines the supported database backends.
type DatabaseType string

const (
	DatabaseTypeSQLite   DatabaseType = "sqlite"
	DatabaseTypePostgres DatabaseType = "postgres"

	defaultSQLitePath = "mockbody-served.db"
)

// Config contains the database configuration.
type Config struct {
	Type DatabaseType

	// Path of the SQLite database file (default: ./mockbody-served.db)
	Path string

	// DSN is the PostgreSQL connection string,
	// e.g. "host=localhost user=mock password=mock dbname=mock sslmode=disable"
	DSN string

	MaxOpenConns int // PostgreSQL only (default: 10)
	MaxIdleConns int // PostgreSQL only (default: 2)
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = DatabaseTypeSQLite
	}
	if c.Type == DatabaseTypeSQLite && c.Path == "" {
		c.Path = defaultSQLitePath
	}
	if c.Type == DatabaseTypePostgres {
		if c.MaxOpenConns == 0 {
			c.MaxOpenConns = 10
		}
		if c.MaxIdleConns == 0 {
			c.MaxIdleConns = 2
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Type {
	case DatabaseTypeSQLite:
		if c.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case DatabaseTypePostgres:
		if c.DSN == "" {
			return fmt.Errorf("postgres dsn is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Type)
	}
	return nil
}

// servedRow is the table model of a served entry
type servedRow struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement"`
	RequestID string     `gorm:"uniqueIndex;size:128;not null"`
	PayloadID payload.ID `gorm:"not null"`
	Method    string     `gorm:"size:16"`
	Path      string     `gorm:"size:2048"`
	ServedAt  time.Time  `gorm:"index;not null"`
}

func (servedRow) TableName() string {
	return "served_payloads"
}

func rowFromEntry(e servedlog.Entry) servedRow {
	return servedRow{
		RequestID: e.RequestID,
		PayloadID: e.PayloadID,
		Method:    e.Method,
		Path:      e.Path,
		ServedAt:  e.ServedAt,
	}
}

func (r servedRow) entry() servedlog.Entry {
	return servedlog.Entry{
		RequestID: r.RequestID,
		PayloadID: r.PayloadID,
		Method:    r.Method,
		Path:      r.Path,
		ServedAt:  r.ServedAt,
	}
}

// store implements servedlog.IServedLog on top of GORM.
// It supports both SQLite and PostgreSQL with the same code.
type store struct {
	db     *gorm.DB
	config *Config
}

// New opens the database described by config and creates the schema.
// config may be nil, a SQLite database in the working directory is used then.
func New(config *Config) (servedlog.IServedLog, error) {
	if config == nil {
		config = &Config{}
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid served log configuration: %w", err)
	}

	var dialector gorm.Dialector
	switch config.Type {
	case DatabaseTypeSQLite:
		if dir := filepath.Dir(config.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		// WAL allows readers (served get/list) next to the writing server
		dsn := config.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)
	case DatabaseTypePostgres:
		dialector = postgres.Open(config.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if config.Type == DatabaseTypePostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}

	if err := db.AutoMigrate(&servedRow{}); err != nil {
		return nil, fmt.Errorf("failed to run database migration: %w", err)
	}

	servedlog.Logger.Infof("opened %s served log", config.Type)

	return &store{db: db, config: config}, nil
}

func (s *store) Append(ctx context.Context, entries ...servedlog.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]servedRow, len(entries))
	for i, e := range entries {
		rows[i] = rowFromEntry(e)
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "request_id"}}, DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to append served entries: %w", err)
	}
	return nil
}

func (s *store) Lookup(ctx context.Context, requestID string) (servedlog.Entry, bool, error) {
	var row servedRow
	err := s.db.WithContext(ctx).Where("request_id = ?", requestID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return servedlog.Entry{}, false, nil
	}
	if err != nil {
		return servedlog.Entry{}, false, fmt.Errorf("failed to look up request %s: %w", requestID, err)
	}
	return row.entry(), true, nil
}

func (s *store) List(ctx context.Context, limit int) ([]servedlog.Entry, error) {
	query := s.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []servedRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list served entries: %w", err)
	}

	entries := make([]servedlog.Entry, len(rows))
	for i, row := range rows {
		entries[i] = row.entry()
	}
	return entries, nil
}

func (s *store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
