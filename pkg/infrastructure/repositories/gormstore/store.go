package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vsinha/wirecut/pkg/domain/entities"
	"github.com/vsinha/wirecut/pkg/domain/repositories"
)

// Options controls how the SQLite database is opened
type Options struct {
	Path        string
	BusyTimeout time.Duration
	Debug       bool
}

// Store is the local relational store backed by SQLite through GORM
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Verify interface compliance
var _ repositories.Store = (*Store)(nil)

// Open opens (creating if needed) the SQLite database and applies the schema
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Store, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}

	level := gormlogger.Silent
	if opts.Debug {
		level = gormlogger.Info
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		opts.Path, opts.BusyTimeout.Milliseconds())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(level),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", opts.Path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	// SQLite allows one writer; a single connection keeps transactions serialized
	sqlDB.SetMaxOpenConns(1)

	store := New(db, logger)
	if err := store.Migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	logger.Info("local store opened", zap.String("path", opts.Path))
	return store, nil
}

// New wraps an already opened database
func New(db *gorm.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// Close releases the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Parts returns the part repository
func (s *Store) Parts() repositories.PartRepository {
	return &partRepository{db: s.db}
}

// SalesOrders returns the sales order repository
func (s *Store) SalesOrders() repositories.SalesOrderRepository {
	return &salesOrderRepository{db: s.db}
}

// WireCutters returns the wire cutter repository
func (s *Store) WireCutters() repositories.WireCutterRepository {
	return &wireCutterRepository{db: s.db}
}

// CutJobs returns the cut job repository
func (s *Store) CutJobs() repositories.CutJobRepository {
	return &cutJobRepository{db: s.db}
}

// CutHistory returns the part cut history repository
func (s *Store) CutHistory() repositories.CutHistoryRepository {
	return &cutHistoryRepository{db: s.db}
}

// Properties returns the tagged property repository
func (s *Store) Properties() repositories.PropertyRepository {
	return &propertyRepository{db: s.db}
}

// Leases returns the lease repository
func (s *Store) Leases() repositories.LeaseRepository {
	return &leaseRepository{db: s.db}
}

// Transaction runs fn against a Store bound to one transaction. Nested calls
// become savepoints.
func (s *Store) Transaction(ctx context.Context, fn func(tx repositories.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, logger: s.logger})
	})
}

// notFound converts gorm's missing-row error into the domain error
func notFound(err error, entity, key string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.NewNotFoundError(entity, key)
	}
	return fmt.Errorf("failed to load %s %s: %w", entity, key, err)
}
