// Package app initializes and holds the long-lived services of the harvester,
// acting as the dependency injection container for the CLI commands.
package app

import (
	"context"
	"fmt"

	pubsubv2 "cloud.google.com/go/pubsub/v2"
	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/vigia-data/registry-harvester/internal/clock/system"
	"github.com/vigia-data/registry-harvester/internal/config"
	"github.com/vigia-data/registry-harvester/internal/enrich"
	"github.com/vigia-data/registry-harvester/internal/extract"
	"github.com/vigia-data/registry-harvester/internal/harvest"
	"github.com/vigia-data/registry-harvester/internal/id/uuid"
	"github.com/vigia-data/registry-harvester/internal/logging"
	"github.com/vigia-data/registry-harvester/internal/metrics"
	"github.com/vigia-data/registry-harvester/internal/notify"
	notifypubsub "github.com/vigia-data/registry-harvester/internal/notify/pubsub"
	"github.com/vigia-data/registry-harvester/internal/page"
	"github.com/vigia-data/registry-harvester/internal/pipeline"
	"github.com/vigia-data/registry-harvester/internal/refdata"
	"github.com/vigia-data/registry-harvester/internal/report"
	"github.com/vigia-data/registry-harvester/internal/rules"
	"github.com/vigia-data/registry-harvester/internal/runlog"
	"github.com/vigia-data/registry-harvester/internal/store"
	"github.com/vigia-data/registry-harvester/internal/store/gcs"
	"github.com/vigia-data/registry-harvester/internal/store/local"
	"github.com/vigia-data/registry-harvester/internal/store/memory"
)

// App holds the wired services for one process.
type App struct {
	Config config.Config
	Logger *zap.Logger
	Runner *pipeline.Runner
	Store  *store.Partitioned

	ledger       *runlog.Store
	pubsubClient *pubsubv2.Client
}

// New wires the application from configuration. It fails fast on anything a
// run could not recover from.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	metrics.Init()

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ids := uuid.New()
	clk := system.New()
	partitioned := store.NewPartitioned(objects, ids, cfg.Storage.Prefix, logger)

	refClient := refdata.New(refdata.Disabled(), objects, refdata.Config{
		CompaniesSchema: cfg.Query.CompaniesSchema,
		CompaniesTable:  cfg.Query.CompaniesTable,
		StaffSchema:     cfg.Query.StaffSchema,
		StaffTable:      cfg.Query.StaffTable,
		PollInterval:    cfg.PollInterval(),
		Budget:          cfg.QueryBudget(),
	}, logger)

	app := &App{
		Config: cfg,
		Logger: logger,
		Store:  partitioned,
	}

	var publisher harvest.Publisher
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.TopicName != "" {
		client, err := pubsubv2.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("create pubsub client: %w", err)
		}
		app.pubsubClient = client
		publisher = notifypubsub.New(client.Publisher(cfg.PubSub.TopicName))
		logger.Info("run events will publish to pubsub",
			zap.String("topic", cfg.PubSub.TopicName))
	}

	var ledger pipeline.Ledger
	if cfg.RunLog.DSN != "" {
		store, err := runlog.New(ctx, runlog.Config{DSN: cfg.RunLog.DSN, Table: cfg.RunLog.Table})
		if err != nil {
			return nil, fmt.Errorf("open run ledger: %w", err)
		}
		app.ledger = store
		ledger = store
	}

	dates := extract.DatesFor(clk.Now())
	registryURL, err := extract.SourceURL(harvest.SourceRegistry, cfg.Sources.RegistryBaseURL, dates.EventDate)
	if err != nil {
		return nil, err
	}
	gazetteURL, err := extract.SourceURL(harvest.SourceGazette, cfg.Sources.GazetteBaseURL, dates.EventDate)
	if err != nil {
		return nil, err
	}
	jobs := []pipeline.SourceJob{
		{
			Source: harvest.SourceRegistry,
			URL:    registryURL,
			NewBrowser: func(context.Context) (harvest.Browser, error) {
				return page.NewChrome(page.ChromeConfig{
					Headless:          cfg.Browser.Headless,
					UserAgent:         cfg.Browser.UserAgent,
					NavigationTimeout: cfg.NavTimeout(),
				})
			},
			Extractor: extract.NewTabular(extract.DefaultTabularConfig(), dates, logger),
		},
		{
			Source: harvest.SourceGazette,
			URL:    gazetteURL,
			NewBrowser: func(context.Context) (harvest.Browser, error) {
				return page.NewStatic(page.StaticConfig{
					UserAgent: cfg.Browser.UserAgent,
					Timeout:   cfg.NavTimeout(),
				}), nil
			},
			Extractor: extract.NewContextual(extract.DefaultContextualConfig(), dates, logger),
		},
	}

	app.Runner = pipeline.New(pipeline.Options{
		Jobs:           jobs,
		Store:          partitioned,
		Refs:           refClient,
		Enricher:       enrich.New(logger),
		ProcessedRules: rules.New(pipeline.ProcessedChain(), logger),
		DeliveryRules: rules.New(pipeline.DeliveryChain(
			cfg.Rules.ActionTypeBlocklist, cfg.Rules.DeliveryColumns), logger),
		Notifier:  notify.NewLog(logger),
		Publisher: publisher,
		Ledger:    ledger,
		Weekly:    report.NewWeekly(partitioned, clk, logger),
		Report: pipeline.ReportConfig{
			Recipients: cfg.Report.Recipients,
			Subject:    cfg.Report.Subject,
			Body:       cfg.Report.Body,
			FileName:   cfg.Report.FileName,
		},
		Clock:  clk,
		IDs:    ids,
		Logger: logger,
	})
	return app, nil
}

func newObjectStore(ctx context.Context, cfg config.Config) (harvest.ObjectStore, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		return gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket})
	case "local":
		return local.New(local.Config{BaseDir: cfg.Storage.LocalDir})
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

// Close releases long-lived resources.
func (a *App) Close() {
	if a.ledger != nil {
		a.ledger.Close()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.Logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	_ = a.Logger.Sync()
}
