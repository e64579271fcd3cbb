package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkoster/beleghub/internal/core/classify"
	"github.com/pkoster/beleghub/internal/core/domain"
	"github.com/pkoster/beleghub/internal/core/ports"
	"github.com/pkoster/beleghub/internal/core/resolve"
)

// IngestHooks are optional observation points for the batch pipeline.
type IngestHooks struct {
	OnFileDone         func(status domain.DocumentStatus, elapsed time.Duration)
	OnProviderSelected func(provider domain.StorageProvider)
}

// BatchIngestUseCase runs the per-file ingestion pipeline over a batch
// of uploads: placeholder insert, analysis, duplicate resolution,
// storage routing, rule classification, persistence and the persisted
// event. Files are isolated from each other; the batch always runs to
// completion.
type BatchIngestUseCase struct {
	docs        ports.DocumentRepository
	rules       ports.RuleRepository
	analyzer    ports.Analyzer
	router      ports.BlobRouter
	queue       ports.MessageQueue
	systemRules []domain.Rule
	concurrency int
	hooks       IngestHooks
}

func NewBatchIngestUseCase(
	docs ports.DocumentRepository,
	rules ports.RuleRepository,
	analyzer ports.Analyzer,
	router ports.BlobRouter,
	queue ports.MessageQueue,
	systemRules []domain.Rule,
	concurrency int,
	hooks IngestHooks,
) *BatchIngestUseCase {
	if concurrency <= 0 {
		concurrency = 3
	}
	return &BatchIngestUseCase{
		docs:        docs,
		rules:       rules,
		analyzer:    analyzer,
		router:      router,
		queue:       queue,
		systemRules: systemRules,
		concurrency: concurrency,
		hooks:       hooks,
	}
}

func (uc *BatchIngestUseCase) IngestBatch(ctx context.Context, files []domain.IngestFile, userID string) (<-chan domain.IngestUpdate, error) {
	if len(files) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest batch", fmt.Errorf("no files in batch"))
	}
	if userID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest batch", fmt.Errorf("user id is required"))
	}

	rules, err := uc.loadRules(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Duplicate detection compares against the document set as of batch
	// start; files inside one batch do not see each other.
	existing, err := uc.docs.ListExisting(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list existing documents: %w", err)
	}

	updates := make(chan domain.IngestUpdate, len(files)+1)
	go uc.runBatch(ctx, files, userID, rules, existing, updates)
	return updates, nil
}

// loadRules returns the user's ordered rules with the system rules
// appended after them, preserving user precedence.
func (uc *BatchIngestUseCase) loadRules(ctx context.Context, userID string) ([]domain.Rule, error) {
	userRules, err := uc.rules.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user rules: %w", err)
	}
	return append(userRules, uc.systemRules...), nil
}

func (uc *BatchIngestUseCase) runBatch(
	ctx context.Context,
	files []domain.IngestFile,
	userID string,
	rules []domain.Rule,
	existing []domain.Document,
	updates chan<- domain.IngestUpdate,
) {
	defer close(updates)

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		suggestion *domain.RuleSuggestion
	)
	sem := make(chan struct{}, uc.concurrency)

	for _, file := range files {
		wg.Add(1)
		sem <- struct{}{}
		go func(file domain.IngestFile) {
			defer wg.Done()
			defer func() { <-sem }()

			update, suggested := uc.processFile(ctx, file, userID, rules, existing)
			if suggested != nil {
				mu.Lock()
				if suggestion == nil {
					suggestion = suggested
				}
				mu.Unlock()
			}
			updates <- update
		}(file)
	}
	wg.Wait()

	if suggestion != nil {
		updates <- domain.IngestUpdate{RuleSuggestion: suggestion}
	}
}

// processFile runs one file through the pipeline and returns its final
// update. All failures are local to the file.
func (uc *BatchIngestUseCase) processFile(
	ctx context.Context,
	file domain.IngestFile,
	userID string,
	rules []domain.Rule,
	existing []domain.Document,
) (domain.IngestUpdate, *domain.RuleSuggestion) {
	started := time.Now()
	doc := uc.newPlaceholder(file, userID)

	if err := uc.docs.Insert(ctx, doc); err != nil {
		return uc.fail(ctx, doc, started, fmt.Errorf("insert placeholder: %w", err)), nil
	}

	result, err := uc.analyzer.Analyze(ctx, file, rules)
	if err != nil {
		return uc.fail(ctx, doc, started, fmt.Errorf("analyze document: %w", err)), nil
	}

	status := resolve.Status(resolve.FromAnalysis(result), existing)

	uploaded, err := uc.upload(ctx, file, userID)
	if err != nil {
		return uc.fail(ctx, doc, started, err), nil
	}
	doc.AssignProvider(uploaded.Provider, uploaded.PublicURL)
	if uc.hooks.OnProviderSelected != nil {
		uc.hooks.OnProviderSelected(uploaded.Provider)
	}

	outcome := classify.Apply(result, rules)
	uc.applyAnalysis(doc, result, outcome)
	doc.Advance(status)

	if err := uc.docs.Update(ctx, doc); err != nil {
		// The stored object is orphaned here; accepted trade-off.
		return uc.fail(ctx, doc, started, fmt.Errorf("persist document: %w", err)), nil
	}

	// Fire and forget: the contact worker catches up later if the
	// publish is lost.
	if err := uc.queue.PublishDocumentPersisted(ctx, doc.ID); err != nil {
		slog.Warn("document_persisted_publish_failed", "document_id", doc.ID, "error", err)
	}

	uc.observe(doc.Status, started)
	return domain.IngestUpdate{PlaceholderID: doc.ID, Document: doc}, uc.suggest(result, outcome)
}

func (uc *BatchIngestUseCase) newPlaceholder(file domain.IngestFile, userID string) *domain.Document {
	now := time.Now().UTC()
	channel := file.Channel
	if channel == "" {
		channel = domain.ChannelManual
	}
	doc := &domain.Document{
		ID:            uuid.NewString(),
		UserID:        userID,
		Name:          file.Name,
		SourceChannel: channel,
		Status:        domain.StatusAnalyzing,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	doc.SetDate(now)
	return doc
}

// upload routes through the hybrid path and falls back to a single
// direct primary attempt. Cancellation is surfaced as-is, never
// retried.
func (uc *BatchIngestUseCase) upload(ctx context.Context, file domain.IngestFile, userID string) (domain.UploadResult, error) {
	result, err := uc.router.HybridUpload(ctx, file, userID)
	if err == nil {
		return result, nil
	}
	if domain.IsCanceled(err) {
		return domain.UploadResult{}, domain.WrapError(domain.ErrCanceled, "upload document", err)
	}

	slog.Warn("hybrid_upload_failed", "file", file.Name, "error", err)
	result, fallbackErr := uc.router.UploadPrimary(ctx, file, userID)
	if fallbackErr != nil {
		return domain.UploadResult{}, fmt.Errorf("upload document: %w", fallbackErr)
	}
	return result, nil
}

func (uc *BatchIngestUseCase) applyAnalysis(doc *domain.Document, result domain.AnalysisResult, outcome classify.Outcome) {
	if result.DocumentDate != nil {
		doc.SetDate(*result.DocumentDate)
	}
	doc.RawText = result.RawText
	doc.Vendor = result.Vendor
	doc.TotalAmount = result.TotalAmount
	doc.VATAmount = result.VATAmount
	doc.InvoiceNumber = result.InvoiceNumber
	doc.InvoiceDirection = outcome.Direction
	doc.TaxCategory = outcome.Category
	doc.ContactEmail = result.ContactEmail
	doc.ContactPhone = result.ContactPhone
	doc.UpdatedAt = time.Now().UTC()
}

// suggest proposes a rule when no rule matched but the analyzer could
// still name vendor and category. Emitted at most once per batch.
func (uc *BatchIngestUseCase) suggest(result domain.AnalysisResult, outcome classify.Outcome) *domain.RuleSuggestion {
	if outcome.Matched {
		return nil
	}
	if result.Vendor == "" || outcome.Category == domain.CategoryUncategorized {
		return nil
	}
	return &domain.RuleSuggestion{
		Vendor:    result.Vendor,
		Category:  outcome.Category,
		Direction: outcome.Direction,
	}
}

func (uc *BatchIngestUseCase) fail(ctx context.Context, doc *domain.Document, started time.Time, err error) domain.IngestUpdate {
	doc.Advance(domain.StatusError)
	doc.ErrorMessage = err.Error()
	doc.UpdatedAt = time.Now().UTC()

	// The error mark must land even when the batch context is gone.
	if updateErr := uc.docs.Update(context.WithoutCancel(ctx), doc); updateErr != nil {
		slog.Error("mark_document_failed", "document_id", doc.ID, "error", updateErr)
	}

	uc.observe(domain.StatusError, started)
	return domain.IngestUpdate{PlaceholderID: doc.ID, ErrorMessage: err.Error()}
}

func (uc *BatchIngestUseCase) observe(status domain.DocumentStatus, started time.Time) {
	if uc.hooks.OnFileDone != nil {
		uc.hooks.OnFileDone(status, time.Since(started))
	}
}
