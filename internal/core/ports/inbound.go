package ports

import (
	"context"

	"github.com/pkoster/beleghub/internal/core/domain"
)

// BatchIngestor is the inbound contract for batch document ingestion.
// The returned channel carries one update per file and is closed when
// the batch completes; the batch itself never fails as a whole.
type BatchIngestor interface {
	IngestBatch(ctx context.Context, files []domain.IngestFile, userID string) (<-chan domain.IngestUpdate, error)
}

// ContactExtractor is the inbound contract for asynchronous contact
// extraction from a persisted document.
type ContactExtractor interface {
	ExtractByDocumentID(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for document state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}
