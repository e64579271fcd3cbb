package usecase

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/pkoster/beleghub/internal/core/contacts"
	"github.com/pkoster/beleghub/internal/core/domain"
	"github.com/pkoster/beleghub/internal/core/ports"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9 ()/\-]{6,}[0-9]`)
)

// ExtractContactUseCase derives a counterpart contact from a persisted
// document and merges it into the user's contact list without
// destroying existing data.
type ExtractContactUseCase struct {
	docs     ports.DocumentRepository
	contacts ports.ContactRepository
}

func NewExtractContactUseCase(docs ports.DocumentRepository, contactRepo ports.ContactRepository) *ExtractContactUseCase {
	return &ExtractContactUseCase{docs: docs, contacts: contactRepo}
}

func (uc *ExtractContactUseCase) ExtractByDocumentID(ctx context.Context, documentID string) error {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	probe := uc.probeFrom(doc)
	if probe.Name == "" && probe.Email == "" && probe.Phone == "" {
		return nil
	}

	all, err := uc.contacts.List(ctx, doc.UserID)
	if err != nil {
		return fmt.Errorf("list contacts: %w", err)
	}

	merged := uc.merge(all, probe)
	if err := uc.contacts.Upsert(ctx, &merged); err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}
	return nil
}

// probeFrom builds the candidate contact: the vendor name plus email
// and phone from the analyzer, falling back to a raw-text scrape when
// the analyzer found none.
func (uc *ExtractContactUseCase) probeFrom(doc *domain.Document) domain.Contact {
	email := doc.ContactEmail
	if email == "" {
		email = emailPattern.FindString(doc.RawText)
	}
	phone := doc.ContactPhone
	if phone == "" {
		phone = phonePattern.FindString(doc.RawText)
	}
	probe := domain.Contact{
		UserID:    doc.UserID,
		Name:      doc.Vendor,
		Email:     email,
		Phone:     phone,
		SourceIDs: []string{doc.ID},
	}
	if !doc.Date.IsZero() {
		date := doc.Date
		probe.LastDocumentDate = &date
	}
	return probe
}

func (uc *ExtractContactUseCase) merge(all []domain.Contact, probe domain.Contact) domain.Contact {
	now := time.Now().UTC()

	if existing := contacts.FindExisting(all, probe); existing != nil {
		merged := contacts.Merge(*existing, probe)
		merged.UpdatedAt = now
		return merged
	}

	probe.ID = uuid.NewString()
	probe.CreatedAt = now
	probe.UpdatedAt = now
	return probe
}
