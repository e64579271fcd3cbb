// Package bootstrap wires configuration, infrastructure and use cases
// into runnable api and worker processes.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/pkoster/beleghub/internal/config"
	"github.com/pkoster/beleghub/internal/core/domain"
	"github.com/pkoster/beleghub/internal/core/ports"
	"github.com/pkoster/beleghub/internal/core/usecase"
	"github.com/pkoster/beleghub/internal/infrastructure/analyzer/ollama"
	"github.com/pkoster/beleghub/internal/infrastructure/extractor"
	"github.com/pkoster/beleghub/internal/infrastructure/queue/nats"
	"github.com/pkoster/beleghub/internal/infrastructure/repository/postgres"
	"github.com/pkoster/beleghub/internal/infrastructure/resilience"
	"github.com/pkoster/beleghub/internal/infrastructure/rules"
	"github.com/pkoster/beleghub/internal/infrastructure/storage"
	"github.com/pkoster/beleghub/internal/infrastructure/storage/httpstore"
	"github.com/pkoster/beleghub/internal/infrastructure/storage/localfs"
	"github.com/pkoster/beleghub/internal/infrastructure/storage/overflow"
	"github.com/pkoster/beleghub/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Documents ports.DocumentRepository

	IngestUC  ports.BatchIngestor
	ContactUC ports.ContactExtractor
	ReaderUC  ports.DocumentReader

	Signer        ports.UploadSigner
	IngestMetrics *metrics.IngestMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	docs := postgres.NewDocumentRepository(db)
	contacts := postgres.NewContactRepository(db)
	ruleRepo := postgres.NewRuleRepository(db)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	analyzerClient := ollama.New(cfg.AnalyzerURL, cfg.AnalyzerModel, extractor.New())
	analyzer := ollama.NewAnalyzer(analyzerClient, resilience.NewExecutor(resilience.DefaultConfig()))

	primary, err := newPrimaryStore(cfg)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	signer, err := newOverflowSigner(cfg)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init overflow signer: %w", err)
	}

	ingestMetrics := metrics.NewIngestMetrics(service)

	router := storage.NewRouter(primary, signer, storage.RouterConfig{
		Bucket:          cfg.PrimaryBucket,
		Threshold:       cfg.StorageUsageThreshold,
		OverflowEnabled: cfg.OverflowEnabled,
		Retry: storage.RetryPolicy{
			MaxRetries: cfg.UploadMaxRetries,
			BaseDelay:  time.Duration(cfg.UploadRetryDelayMS) * time.Millisecond,
			OnRetry:    func() { ingestMetrics.RecordUploadRetry(service) },
		},
	})
	router.OnUsage = ingestMetrics.RecordStorageUsage

	systemRules, err := rules.Load(cfg.RulesFile)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("load system rules: %w", err)
	}

	ingestUC := usecase.NewBatchIngestUseCase(
		docs, ruleRepo, analyzer, router, queue,
		systemRules, cfg.IngestConcurrency,
		usecase.IngestHooks{
			OnFileDone: func(status domain.DocumentStatus, elapsed time.Duration) {
				ingestMetrics.RecordFileDone(service, status, elapsed)
			},
			OnProviderSelected: func(provider domain.StorageProvider) {
				ingestMetrics.RecordProviderSelected(service, provider)
			},
		},
	)
	contactUC := usecase.NewExtractContactUseCase(docs, contacts)
	readerUC := usecase.NewReadDocumentUseCase(docs)

	return &App{
		Config: cfg,

		Queue:     queue,
		Documents: docs,

		IngestUC:  ingestUC,
		ContactUC: contactUC,
		ReaderUC:  readerUC,

		Signer:        signer,
		IngestMetrics: ingestMetrics,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// newPrimaryStore prefers the hosted object-store API and falls back
// to the local filesystem when no store URL is configured.
func newPrimaryStore(cfg config.Config) (ports.ObjectStore, error) {
	if cfg.PrimaryStoreURL != "" {
		return httpstore.NewClient(cfg.PrimaryStoreURL, cfg.PrimaryStoreKey), nil
	}
	return localfs.New(cfg.StoragePath, cfg.StoragePublicURL)
}

// newOverflowSigner returns nil when overflow storage is not
// configured; signed uploads are then unavailable and routing stays on
// the primary backend.
func newOverflowSigner(cfg config.Config) (ports.UploadSigner, error) {
	if cfg.OverflowBaseURL == "" || cfg.OverflowSigningSecret == "" {
		return nil, nil
	}
	signer, err := overflow.NewSigner(cfg.OverflowBaseURL, cfg.OverflowPublicURL, cfg.OverflowSigningSecret)
	if err != nil {
		return nil, err
	}
	return signer, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
