package domain

import "time"

// UploadDecision is the per-attempt routing verdict of the storage
// router. It is never persisted.
type UploadDecision struct {
	Provider StorageProvider `json:"provider"`
	Reason   string          `json:"reason"`
}

// UploadResult describes one completed object upload.
type UploadResult struct {
	Provider  StorageProvider `json:"provider"`
	PublicURL string          `json:"public_url"`
	Path      string          `json:"path"`
	Size      int64           `json:"size"`
}

// ObjectMeta is a single entry of an object-store listing page.
type ObjectMeta struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SignedUpload is a short-lived permission to PUT directly to the
// overflow backend.
type SignedUpload struct {
	UploadURL        string `json:"uploadUrl"`
	PublicURL        string `json:"publicUrl"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
}

// IngestFile is one raw file handed to the ingestion pipeline.
type IngestFile struct {
	Name        string
	ContentType string
	Data        []byte
	Channel     SourceChannel
}

// IngestUpdate is one per-file status update on the batch stream. A
// final record may carry the batch's single rule suggestion instead of
// a file result.
type IngestUpdate struct {
	PlaceholderID  string          `json:"placeholder_id,omitempty"`
	Document       *Document       `json:"document,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	RuleSuggestion *RuleSuggestion `json:"rule_suggestion,omitempty"`
}
