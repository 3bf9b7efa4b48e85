package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vsinha/craftsman/pkg/application/craft"
	"github.com/vsinha/craftsman/pkg/domain/entities"
	"github.com/vsinha/craftsman/pkg/domain/repositories"
	stockmem "github.com/vsinha/craftsman/pkg/infrastructure/backends/memory"
	"github.com/vsinha/craftsman/pkg/infrastructure/catalog"
	"github.com/vsinha/craftsman/pkg/infrastructure/config"
	"github.com/vsinha/craftsman/pkg/infrastructure/events"
	"github.com/vsinha/craftsman/pkg/infrastructure/logging"
	"github.com/vsinha/craftsman/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/craftsman/pkg/infrastructure/repositories/postgres"
	redisseq "github.com/vsinha/craftsman/pkg/infrastructure/repositories/redis"
	"github.com/vsinha/craftsman/pkg/infrastructure/repositories/sqlite"
)

// app is one engine instance seeded from a catalog for a single command
type app struct {
	cfg      *config.Config
	catalog  *catalog.Catalog
	craft    *craft.Craft
	stock    *stockmem.StockBackend
	products *stockmem.ProductCatalog
	registry *prometheus.Registry
	logger   *zap.Logger
	closers  []func() error
}

func openApp(ctx context.Context, opts *rootOptions, date time.Time) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	path := opts.catalogPath
	if path == "" {
		path = cfg.Catalog.Path
	}
	if path == "" {
		return nil, errors.New("no catalog given: use --catalog or catalog.path")
	}
	cat, err := catalog.LoadFile(path)
	if err != nil {
		return nil, err
	}
	for _, w := range cat.Warnings {
		logger.Warn("catalog warning", zap.String("warning", w))
	}

	a := &app{cfg: cfg, catalog: cat, logger: logger, registry: prometheus.NewRegistry()}

	sequences, err := a.openSequences(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	metrics, err := events.NewMetrics(a.registry)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	listeners := []events.Listener{metrics}
	if kafka := cfg.Events.Kafka; len(kafka.Brokers) > 0 {
		publisher := events.NewKafkaPublisher(events.NewKafkaWriter(kafka.Brokers, kafka.Topic), logger.Named("kafka"))
		listeners = append(listeners, publisher)
		a.closers = append(a.closers, publisher.Close)
	}

	store := memory.NewStore()
	if err := cat.Seed(ctx, store); err != nil {
		a.Close()
		return nil, err
	}
	a.stock = stockmem.NewStockBackend()
	cat.SeedStock(a.stock)
	a.products = stockmem.NewProductCatalog()
	cat.SeedProducts(a.products)
	demand := stockmem.NewDemandBackend()
	cat.SeedDemand(demand, date)

	settings := cfg.Settings()
	a.craft = craft.New(craft.Options{
		Store:     store,
		Stock:     a.stock,
		Demand:    demand,
		Sequences: sequences,
		Settings:  &settings,
		Listeners: listeners,
		Logger:    logger,
	})
	return a, nil
}

func (a *app) openSequences(ctx context.Context) (repositories.SequenceRepository, error) {
	seq := a.cfg.Sequence
	switch seq.Backend {
	case "sqlite":
		repo, err := sqlite.NewSequenceRepository(seq.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, repo.Close)
		return repo, nil
	case "postgres":
		db, err := postgres.Open(seq.DSN)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		return postgres.NewSequenceRepository(db)
	case "redis":
		r := a.cfg.Redis
		client, err := redisseq.Connect(ctx, r.Addr, r.Password, r.DB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return redisseq.NewSequenceRepository(client), nil
	default:
		return memory.NewSequenceRepository(), nil
	}
}

// planDay adds every catalog plan line to the plan of date
func (a *app) planDay(ctx context.Context, date time.Time) error {
	outputs := make(map[string]entities.ItemRef, len(a.catalog.Recipes))
	for _, r := range a.catalog.Recipes {
		outputs[r.Code] = r.Output
	}
	for _, line := range a.catalog.Plan {
		product, ok := outputs[line.RecipeCode]
		if !ok {
			return fmt.Errorf("plan line references unknown recipe %s", line.RecipeCode)
		}
		check, err := a.products.ValidateOutputSku(ctx, product.SKU)
		if err != nil {
			return err
		}
		if !check.Valid {
			return fmt.Errorf("plan line %s: %s", line.RecipeCode, check.Message)
		}
		if _, err := a.craft.Plan(ctx, line.Quantity, product, date, line.Destination, line.Priority); err != nil {
			return fmt.Errorf("failed to plan %s: %w", line.RecipeCode, err)
		}
	}
	return nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
