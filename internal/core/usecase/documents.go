package usecase

import (
	"context"
	"fmt"

	"github.com/pkoster/beleghub/internal/core/domain"
	"github.com/pkoster/beleghub/internal/core/ports"
)

// ReadDocumentUseCase is the dashboard's read model for a single
// document; the UI polls it by id while a batch is in flight.
type ReadDocumentUseCase struct {
	docs ports.DocumentRepository
}

func NewReadDocumentUseCase(docs ports.DocumentRepository) *ReadDocumentUseCase {
	return &ReadDocumentUseCase{docs: docs}
}

func (uc *ReadDocumentUseCase) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get document", fmt.Errorf("id is required"))
	}
	doc, err := uc.docs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}
