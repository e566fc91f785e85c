package commands

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vsinha/wirecut/pkg/application/services/cutting"
	"github.com/vsinha/wirecut/pkg/application/services/history"
	"github.com/vsinha/wirecut/pkg/application/services/reconcile"
	"github.com/vsinha/wirecut/pkg/domain/repositories"
	"github.com/vsinha/wirecut/pkg/domain/services"
	"github.com/vsinha/wirecut/pkg/infrastructure/config"
	"github.com/vsinha/wirecut/pkg/infrastructure/events"
	"github.com/vsinha/wirecut/pkg/infrastructure/fishbowl"
	"github.com/vsinha/wirecut/pkg/infrastructure/logging"
	"github.com/vsinha/wirecut/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/wirecut/pkg/infrastructure/repositories/gormstore"
)

// App wires the services every command needs
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     *gormstore.Store
	Events    *events.InMemoryEventStore
	Engine    *reconcile.Engine
	Cutting   *cutting.Service
	Estimator *history.Estimator
}

// NewApp loads configuration and opens the local store
func NewApp(ctx context.Context, configPaths ...string) (*App, error) {
	cfg, err := config.Load(configPaths...)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	return newAppWith(ctx, cfg, logger)
}

func newAppWith(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	rule, err := services.NewRawGoodRule(cfg.RawGood.Pattern, cfg.RawGood.Prefixes, cfg.RawGood.UnitsOfMeasure)
	if err != nil {
		return nil, err
	}

	store, err := gormstore.Open(ctx, gormstore.Options{
		Path:        cfg.Database.Path,
		BusyTimeout: cfg.Database.BusyTimeout,
		Debug:       cfg.Database.Debug,
	}, logger)
	if err != nil {
		return nil, err
	}

	eventStore := events.NewInMemoryEventStore(logger)
	if err := eventStore.Subscribe(events.AllEventTypes, events.NewLogHandler(logger.Named("events"))); err != nil {
		store.Close()
		return nil, err
	}

	engine := reconcile.NewEngine(store, eventStore, logger.Named("reconcile"), reconcile.EngineConfig{
		LeaseTTL:        cfg.Reconcile.LeaseTTL,
		ResolverWorkers: cfg.Reconcile.ResolverWorkers,
		RawGoodRule:     rule,
	})

	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Events:    eventStore,
		Engine:    engine,
		Cutting:   cutting.NewService(store, eventStore, logger.Named("cutting")),
		Estimator: history.NewEstimator(store.CutHistory()),
	}, nil
}

// OpenSource returns the ERP snapshot source: CSV exports when csvDir (or
// erp.csv_dir) is set, otherwise the live Fishbowl database. The returned
// func releases it.
func (a *App) OpenSource(csvDir string) (repositories.ERPSource, func() error, error) {
	if csvDir == "" {
		csvDir = a.Config.ERP.CSVDir
	}
	if csvDir != "" {
		source, validation, err := csv.NewLoader().LoadSnapshot(csvDir)
		if err != nil {
			return nil, nil, err
		}
		if validation != nil && validation.HasCycles {
			a.Logger.Warn("bom export contains cycles", zap.Int("cycles", len(validation.CyclePaths)))
		}
		return source, func() error { return nil }, nil
	}

	if a.Config.ERP.DSN == "" {
		return nil, nil, errors.New("no ERP source configured: set erp.dsn or erp.csv_dir")
	}
	source, err := fishbowl.Open(fishbowl.Config{
		Driver:       a.Config.ERP.Driver,
		DSN:          a.Config.ERP.DSN,
		QueryTimeout: a.Config.ERP.QueryTimeout,
	}, a.Logger.Named("fishbowl"))
	if err != nil {
		return nil, nil, err
	}
	return source, source.Close, nil
}

// Close releases the store and flushes the logger
func (a *App) Close() error {
	err := a.Store.Close()
	_ = a.Logger.Sync()
	if err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}
