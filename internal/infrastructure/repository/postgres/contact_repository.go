package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pkoster/beleghub/internal/core/domain"
)

type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) List(ctx context.Context, userID string) ([]domain.Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, name, type, email, phone, source_ids, tags,
	last_document_date, notes, ai_summary, created_at, updated_at
FROM contacts
WHERE user_id = $1
ORDER BY name
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var all []domain.Contact
	for rows.Next() {
		var (
			contact         domain.Contact
			sourceIDs, tags []byte
			lastDate        sql.NullTime
		)
		err := rows.Scan(
			&contact.ID, &contact.UserID, &contact.Name, &contact.Type, &contact.Email, &contact.Phone,
			&sourceIDs, &tags, &lastDate, &contact.Notes, &contact.AISummary, &contact.CreatedAt, &contact.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		if err := json.Unmarshal(sourceIDs, &contact.SourceIDs); err != nil {
			return nil, fmt.Errorf("unmarshal source ids: %w", err)
		}
		if err := json.Unmarshal(tags, &contact.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
		if lastDate.Valid {
			date := lastDate.Time
			contact.LastDocumentDate = &date
		}
		all = append(all, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return all, nil
}

func (r *ContactRepository) Upsert(ctx context.Context, contact *domain.Contact) error {
	sourceIDs, err := json.Marshal(emptyIfNil(contact.SourceIDs))
	if err != nil {
		return fmt.Errorf("marshal source ids: %w", err)
	}
	tags, err := json.Marshal(emptyIfNil(contact.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	var lastDate sql.NullTime
	if contact.LastDocumentDate != nil {
		lastDate = sql.NullTime{Time: *contact.LastDocumentDate, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO contacts (
	id, user_id, name, type, email, phone, source_ids, tags,
	last_document_date, notes, ai_summary, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	type = EXCLUDED.type,
	email = EXCLUDED.email,
	phone = EXCLUDED.phone,
	source_ids = EXCLUDED.source_ids,
	tags = EXCLUDED.tags,
	last_document_date = EXCLUDED.last_document_date,
	notes = EXCLUDED.notes,
	ai_summary = EXCLUDED.ai_summary,
	updated_at = EXCLUDED.updated_at
`,
		contact.ID, contact.UserID, contact.Name, contact.Type, contact.Email, contact.Phone,
		sourceIDs, tags, lastDate, contact.Notes, contact.AISummary, contact.CreatedAt, contact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}
	return nil
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
