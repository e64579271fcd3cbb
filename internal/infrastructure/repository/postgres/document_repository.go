package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pkoster/beleghub/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Insert(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, user_id, name, date, year, quarter, source_channel, status,
	storage_provider, file_url, raw_text, vendor, total_amount, vat_amount,
	invoice_number, invoice_direction, tax_category, contact_email, contact_phone,
	error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
`,
		doc.ID, doc.UserID, doc.Name, doc.Date, doc.Year, doc.Quarter, string(doc.SourceChannel), string(doc.Status),
		string(doc.StorageProvider), doc.FileURL, doc.RawText, doc.Vendor, nullFloat(doc.TotalAmount), nullFloat(doc.VATAmount),
		doc.InvoiceNumber, string(doc.InvoiceDirection), doc.TaxCategory, doc.ContactEmail, doc.ContactPhone,
		doc.ErrorMessage, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Update(ctx context.Context, doc *domain.Document) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET name = $2, date = $3, year = $4, quarter = $5, status = $6,
	storage_provider = $7, file_url = $8, raw_text = $9, vendor = $10,
	total_amount = $11, vat_amount = $12, invoice_number = $13,
	invoice_direction = $14, tax_category = $15, contact_email = $16,
	contact_phone = $17, error_message = $18, updated_at = $19
WHERE id = $1
`,
		doc.ID, doc.Name, doc.Date, doc.Year, doc.Quarter, string(doc.Status),
		string(doc.StorageProvider), doc.FileURL, doc.RawText, doc.Vendor,
		nullFloat(doc.TotalAmount), nullFloat(doc.VATAmount), doc.InvoiceNumber,
		string(doc.InvoiceDirection), doc.TaxCategory, doc.ContactEmail,
		doc.ContactPhone, doc.ErrorMessage, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return ensureRowAffected(result, "update document", doc.ID)
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, name, date, year, quarter, source_channel, status,
	storage_provider, file_url, raw_text, vendor, total_amount, vat_amount,
	invoice_number, invoice_direction, tax_category, contact_email, contact_phone,
	error_message, created_at, updated_at
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

// ListExisting returns the user's documents with the fields the
// duplicate resolver compares against.
func (r *DocumentRepository) ListExisting(ctx context.Context, userID string) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, date, total_amount, invoice_number, status
FROM documents
WHERE user_id = $1 AND status != $2
`, userID, string(domain.StatusError))
	if err != nil {
		return nil, fmt.Errorf("list existing documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var (
			doc    domain.Document
			amount sql.NullFloat64
			status string
		)
		if err := rows.Scan(&doc.ID, &doc.Date, &amount, &doc.InvoiceNumber, &status); err != nil {
			return nil, fmt.Errorf("scan existing document: %w", err)
		}
		if amount.Valid {
			value := amount.Float64
			doc.TotalAmount = &value
		}
		doc.Status = domain.DocumentStatus(status)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate existing documents: %w", err)
	}
	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		doc                    domain.Document
		channel, status        string
		provider, direction    string
		totalAmount, vatAmount sql.NullFloat64
	)
	err := row.Scan(
		&doc.ID, &doc.UserID, &doc.Name, &doc.Date, &doc.Year, &doc.Quarter, &channel, &status,
		&provider, &doc.FileURL, &doc.RawText, &doc.Vendor, &totalAmount, &vatAmount,
		&doc.InvoiceNumber, &direction, &doc.TaxCategory, &doc.ContactEmail, &doc.ContactPhone,
		&doc.ErrorMessage, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.SourceChannel = domain.SourceChannel(channel)
	doc.Status = domain.DocumentStatus(status)
	doc.StorageProvider = domain.StorageProvider(provider)
	doc.InvoiceDirection = domain.InvoiceDirection(direction)
	if totalAmount.Valid {
		value := totalAmount.Float64
		doc.TotalAmount = &value
	}
	if vatAmount.Valid {
		value := vatAmount.Float64
		doc.VATAmount = &value
	}
	return &doc, nil
}

func nullFloat(value *float64) sql.NullFloat64 {
	if value == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *value, Valid: true}
}

func ensureRowAffected(result sql.Result, operation, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, operation, fmt.Errorf("id %s", id))
	}
	return nil
}
