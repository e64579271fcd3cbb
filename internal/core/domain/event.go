package domain

import "time"

// DocumentPersistedEvent announces a freshly persisted document to the
// contact-extraction worker. PersistedAt is stamped at publish time so
// consumers can measure queue lag.
type DocumentPersistedEvent struct {
	DocumentID  string    `json:"document_id"`
	PersistedAt time.Time `json:"persisted_at"`
}
