package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkoster/beleghub/internal/core/domain"
)

type docRepoFake struct {
	mu        sync.Mutex
	inserted  []*domain.Document
	updated   []*domain.Document
	existing  []domain.Document
	byID      map[string]*domain.Document
	insertErr error
	updateErr error
	listErr   error
}

func (f *docRepoFake) Insert(_ context.Context, doc *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	clone := *doc
	f.inserted = append(f.inserted, &clone)
	return nil
}

func (f *docRepoFake) Update(_ context.Context, doc *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	clone := *doc
	f.updated = append(f.updated, &clone)
	return nil
}

func (f *docRepoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.byID[id]; ok {
		return doc, nil
	}
	return nil, domain.ErrDocumentNotFound
}

func (f *docRepoFake) ListExisting(_ context.Context, _ string) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.existing, nil
}

type ruleRepoFake struct {
	rules []domain.Rule
	err   error
}

func (f *ruleRepoFake) ListByUser(context.Context, string) ([]domain.Rule, error) {
	return f.rules, f.err
}

type analyzerFake struct {
	mu      sync.Mutex
	results map[string]domain.AnalysisResult
	errs    map[string]error
}

func (f *analyzerFake) Analyze(_ context.Context, file domain.IngestFile, _ []domain.Rule) (domain.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[file.Name]; ok {
		return domain.AnalysisResult{}, err
	}
	return f.results[file.Name], nil
}

type routerFake struct {
	mu           sync.Mutex
	hybridErr    error
	primaryErr   error
	hybridCalls  int
	primaryCalls int
	provider     domain.StorageProvider
}

func (f *routerFake) HybridUpload(_ context.Context, file domain.IngestFile, _ string) (domain.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hybridCalls++
	if f.hybridErr != nil {
		return domain.UploadResult{}, f.hybridErr
	}
	provider := f.provider
	if provider == "" {
		provider = domain.ProviderPrimary
	}
	return domain.UploadResult{Provider: provider, PublicURL: "https://cdn.example/" + file.Name}, nil
}

func (f *routerFake) UploadPrimary(_ context.Context, file domain.IngestFile, _ string) (domain.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.primaryCalls++
	if f.primaryErr != nil {
		return domain.UploadResult{}, f.primaryErr
	}
	return domain.UploadResult{Provider: domain.ProviderPrimary, PublicURL: "https://cdn.example/" + file.Name}, nil
}

type queueFake struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (f *queueFake) PublishDocumentPersisted(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentPersisted(context.Context, func(context.Context, domain.DocumentPersistedEvent) error) error {
	return nil
}

func collect(t *testing.T, updates <-chan domain.IngestUpdate) []domain.IngestUpdate {
	t.Helper()
	var all []domain.IngestUpdate
	timeout := time.After(5 * time.Second)
	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return all
			}
			all = append(all, update)
		case <-timeout:
			t.Fatalf("timed out waiting for batch updates")
		}
	}
}

func newIngestUseCase(docs *docRepoFake, analyzer *analyzerFake, router *routerFake, queue *queueFake, rules []domain.Rule) *BatchIngestUseCase {
	return NewBatchIngestUseCase(docs, &ruleRepoFake{rules: rules}, analyzer, router, queue, nil, 2, IngestHooks{})
}

func TestIngestBatchHappyPath(t *testing.T) {
	amount := 119.0
	docs := &docRepoFake{}
	analyzer := &analyzerFake{results: map[string]domain.AnalysisResult{
		"re.pdf": {
			IsInvoice:     true,
			Vendor:        "ACME GmbH",
			TotalAmount:   &amount,
			InvoiceNumber: "RE-2025-001",
			RawText:       "Rechnung von ACME",
			TaxCategory:   "software",
			ContactEmail:  "billing@acme.example",
			ContactPhone:  "+49 30 1234567",
		},
	}}
	router := &routerFake{}
	queue := &queueFake{}
	uc := newIngestUseCase(docs, analyzer, router, queue, []domain.Rule{
		{ID: "r1", ConditionType: domain.ConditionVendor, ConditionValue: "acme", InvoiceDirection: domain.DirectionIncoming, ResultCategory: "it-services"},
	})

	updates, err := uc.IngestBatch(context.Background(), []domain.IngestFile{{Name: "re.pdf"}}, "user-1")
	if err != nil {
		t.Fatalf("IngestBatch() error = %v", err)
	}
	all := collect(t, updates)

	if len(all) != 1 {
		t.Fatalf("expected 1 update, got %d", len(all))
	}
	doc := all[0].Document
	if doc == nil {
		t.Fatalf("expected document in update, got %+v", all[0])
	}
	if doc.Status != domain.StatusOK {
		t.Fatalf("expected status ok, got %s", doc.Status)
	}
	if doc.TaxCategory != "it-services" || doc.InvoiceDirection != domain.DirectionIncoming {
		t.Fatalf("rule outcome not applied: %+v", doc)
	}
	if doc.StorageProvider != domain.ProviderPrimary || doc.FileURL == "" {
		t.Fatalf("upload result not applied: %+v", doc)
	}
	if doc.ContactEmail != "billing@acme.example" || doc.ContactPhone != "+49 30 1234567" {
		t.Fatalf("analyzer contact fields not persisted: %+v", doc)
	}
	if len(docs.inserted) != 1 || docs.inserted[0].Status != domain.StatusAnalyzing {
		t.Fatalf("expected analyzing placeholder insert, got %+v", docs.inserted)
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Fatalf("expected persisted event for %s, got %v", doc.ID, queue.published)
	}
}

func TestIngestBatchIsolatesFailingFile(t *testing.T) {
	docs := &docRepoFake{}
	analyzer := &analyzerFake{
		results: map[string]domain.AnalysisResult{"good.pdf": {IsInvoice: true}},
		errs:    map[string]error{"bad.pdf": errors.New("model exploded")},
	}
	uc := newIngestUseCase(docs, analyzer, &routerFake{}, &queueFake{}, nil)

	updates, err := uc.IngestBatch(context.Background(), []domain.IngestFile{
		{Name: "good.pdf"}, {Name: "bad.pdf"},
	}, "user-1")
	if err != nil {
		t.Fatalf("IngestBatch() error = %v", err)
	}
	all := collect(t, updates)

	if len(all) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(all))
	}
	var okCount, errCount int
	for _, update := range all {
		switch {
		case update.Document != nil && update.Document.Status == domain.StatusOK:
			okCount++
		case update.ErrorMessage != "":
			errCount++
			if !strings.Contains(update.ErrorMessage, "model exploded") {
				t.Fatalf("unexpected error message %q", update.ErrorMessage)
			}
		}
	}
	if okCount != 1 || errCount != 1 {
		t.Fatalf("expected one success and one failure, got %d/%d", okCount, errCount)
	}

	// The failing file must be marked in the store as well.
	var marked bool
	for _, doc := range docs.updated {
		if doc.Status == domain.StatusError && doc.ErrorMessage != "" {
			marked = true
		}
	}
	if !marked {
		t.Fatalf("expected error status persisted for failing file")
	}
}

func TestIngestBatchDetectsDuplicateAgainstSnapshot(t *testing.T) {
	amount := 42.0
	docs := &docRepoFake{existing: []domain.Document{
		{ID: "old", InvoiceNumber: "RE-777", UserID: "user-1"},
	}}
	analyzer := &analyzerFake{results: map[string]domain.AnalysisResult{
		"dup.pdf": {IsInvoice: true, InvoiceNumber: "re-777", TotalAmount: &amount},
	}}
	uc := newIngestUseCase(docs, analyzer, &routerFake{}, &queueFake{}, nil)

	updates, err := uc.IngestBatch(context.Background(), []domain.IngestFile{{Name: "dup.pdf"}}, "user-1")
	if err != nil {
		t.Fatalf("IngestBatch() error = %v", err)
	}
	all := collect(t, updates)

	if len(all) != 1 || all[0].Document == nil {
		t.Fatalf("unexpected updates %+v", all)
	}
	if all[0].Document.Status != domain.StatusPotentialDuplicate {
		t.Fatalf("expected potential-duplicate, got %s", all[0].Document.Status)
	}
}

func TestIngestBatchFallsBackToPrimaryOnce(t *testing.T) {
	docs := &docRepoFake{}
	analyzer := &analyzerFake{results: map[string]domain.AnalysisResult{"a.pdf": {IsInvoice: true}}}
	router := &routerFake{hybridErr: errors.New("overflow backend down")}
	uc := newIngestUseCase(docs, analyzer, router, &queueFake{}, nil)

	updates, err := uc.IngestBatch(context.Background(), []domain.IngestFile{{Name: "a.pdf"}}, "user-1")
	if err != nil {
		t.Fatalf("IngestBatch() error = %v", err)
	}
	all := collect(t, updates)

	if len(all) != 1 || all[0].Document == nil {
		t.Fatalf("expected successful update after fallback, got %+v", all)
	}
	if router.hybridCalls != 1 || router.primaryCalls != 1 {
		t.Fatalf("expected exactly one fallback attempt, got hybrid=%d primary=%d", router.hybridCalls, router.primaryCalls)
	}
}

func TestIngestBatchNeverRetriesCancelledUpload(t *testing.T) {
	docs := &docRepoFake{}
	analyzer := &analyzerFake{results: map[string]domain.AnalysisResult{"a.pdf": {}}}
	router := &routerFake{hybridErr: domain.WrapError(domain.ErrCanceled, "upload", context.Canceled)}
	uc := newIngestUseCase(docs, analyzer, router, &queueFake{}, nil)

	updates, err := uc.IngestBatch(context.Background(), []domain.IngestFile{{Name: "a.pdf"}}, "user-1")
	if err != nil {
		t.Fatalf("IngestBatch() error = %v", err)
	}
	all := collect(t, updates)

	if len(all) != 1 || all[0].ErrorMessage == "" {
		t.Fatalf("expected failed update, got %+v", all)
	}
	if router.primaryCalls != 0 {
		t.Fatalf("cancelled upload must not hit the fallback, got %d calls", router.primaryCalls)
	}
}

func TestIngestBatchPublishFailureIsSilent(t *testing.T) {
	docs := &docRepoFake{}
	analyzer := &analyzerFake{results: map[string]domain.AnalysisResult{"a.pdf": {IsInvoice: true}}}
	uc := newIngestUseCase(docs, analyzer, &routerFake{}, &queueFake{err: errors.New("nats down")}, nil)

	updates, err := uc.IngestBatch(context.Background(), []domain.IngestFile{{Name: "a.pdf"}}, "user-1")
	if err != nil {
		t.Fatalf("IngestBatch() error = %v", err)
	}
	all := collect(t, updates)

	if len(all) != 1 || all[0].Document == nil || all[0].Document.Status != domain.StatusOK {
		t.Fatalf("publish failure must not fail the file, got %+v", all)
	}
}

func TestIngestBatchEmitsAtMostOneRuleSuggestion(t *testing.T) {
	docs := &docRepoFake{}
	analyzer := &analyzerFake{results: map[string]domain.AnalysisResult{
		"a.pdf": {IsInvoice: true, Vendor: "ACME", TaxCategory: "software"},
		"b.pdf": {IsInvoice: true, Vendor: "Globex", TaxCategory: "hosting"},
	}}
	uc := newIngestUseCase(docs, analyzer, &routerFake{}, &queueFake{}, nil)

	updates, err := uc.IngestBatch(context.Background(), []domain.IngestFile{
		{Name: "a.pdf"}, {Name: "b.pdf"},
	}, "user-1")
	if err != nil {
		t.Fatalf("IngestBatch() error = %v", err)
	}
	all := collect(t, updates)

	var suggestions int
	for _, update := range all {
		if update.RuleSuggestion != nil {
			suggestions++
			if update.RuleSuggestion.Vendor == "" || update.RuleSuggestion.Category == "" {
				t.Fatalf("incomplete suggestion %+v", update.RuleSuggestion)
			}
		}
	}
	if suggestions != 1 {
		t.Fatalf("expected exactly one rule suggestion, got %d", suggestions)
	}
	if len(all) != 3 {
		t.Fatalf("expected 2 file updates + 1 suggestion, got %d", len(all))
	}
}

func TestIngestBatchNoSuggestionWhenRuleMatched(t *testing.T) {
	docs := &docRepoFake{}
	analyzer := &analyzerFake{results: map[string]domain.AnalysisResult{
		"a.pdf": {IsInvoice: true, Vendor: "ACME", TaxCategory: "software"},
	}}
	uc := newIngestUseCase(docs, analyzer, &routerFake{}, &queueFake{}, []domain.Rule{
		{ID: "r1", ConditionType: domain.ConditionVendor, ConditionValue: "acme", ResultCategory: "it"},
	})

	updates, err := uc.IngestBatch(context.Background(), []domain.IngestFile{{Name: "a.pdf"}}, "user-1")
	if err != nil {
		t.Fatalf("IngestBatch() error = %v", err)
	}
	for _, update := range collect(t, updates) {
		if update.RuleSuggestion != nil {
			t.Fatalf("matched rule must not produce a suggestion")
		}
	}
}

func TestIngestBatchRejectsEmptyInput(t *testing.T) {
	uc := newIngestUseCase(&docRepoFake{}, &analyzerFake{}, &routerFake{}, &queueFake{}, nil)

	if _, err := uc.IngestBatch(context.Background(), nil, "user-1"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input for empty batch, got %v", err)
	}
	if _, err := uc.IngestBatch(context.Background(), []domain.IngestFile{{Name: "a"}}, ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input for missing user, got %v", err)
	}
}
