package ports

import (
	"context"

	"github.com/pkoster/beleghub/internal/core/domain"
)

// Analyzer is the hosted AI model, consumed as a black box.
type Analyzer interface {
	Analyze(ctx context.Context, file domain.IngestFile, rules []domain.Rule) (domain.AnalysisResult, error)
}

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Insert(ctx context.Context, doc *domain.Document) error
	Update(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListExisting(ctx context.Context, userID string) ([]domain.Document, error)
}

// ContactRepository persists deduplicated counterparts.
type ContactRepository interface {
	List(ctx context.Context, userID string) ([]domain.Contact, error)
	Upsert(ctx context.Context, contact *domain.Contact) error
}

// RuleRepository reads the user's ordered classification rules.
type RuleRepository interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Rule, error)
}

// ObjectStore is one object-storage backend. List returns one page of
// the bucket listing; an empty page ends pagination.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error)
	List(ctx context.Context, bucket string, page, pageSize int) ([]domain.ObjectMeta, error)
}

// UploadSigner issues short-lived signed PUT URLs for the overflow
// backend.
type UploadSigner interface {
	Sign(ctx context.Context, filename, contentType string) (domain.SignedUpload, error)
}

// BlobRouter picks a backend per upload and executes the transfer.
// UploadPrimary bypasses routing; the orchestrator uses it as the
// one-shot fallback when a hybrid upload fails.
type BlobRouter interface {
	HybridUpload(ctx context.Context, file domain.IngestFile, pathPrefix string) (domain.UploadResult, error)
	UploadPrimary(ctx context.Context, file domain.IngestFile, pathPrefix string) (domain.UploadResult, error)
}

// MessageQueue publishes/consumes document-persisted events. The
// publish side stamps the event with the persist time.
type MessageQueue interface {
	PublishDocumentPersisted(ctx context.Context, documentID string) error
	SubscribeDocumentPersisted(ctx context.Context, handler func(context.Context, domain.DocumentPersistedEvent) error) error
}

// TextExtractor pulls plain text out of a raw upload before analysis.
type TextExtractor interface {
	Extract(file domain.IngestFile) (string, error)
}
