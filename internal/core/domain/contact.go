package domain

import "time"

// Contact is a deduplicated counterpart (vendor, insurer, creditor).
// Scalar fields are never overwritten once set; sourceIDs and tags are
// union-only sets; lastDocumentDate always holds the most recent date.
type Contact struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Name             string     `json:"name"`
	Type             string     `json:"type,omitempty"`
	Email            string     `json:"email,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	SourceIDs        []string   `json:"source_ids,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	LastDocumentDate *time.Time `json:"last_document_date,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	AISummary        string     `json:"ai_summary,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
