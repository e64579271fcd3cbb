package domain

import "time"

type DocumentStatus string

const (
	StatusAnalyzing          DocumentStatus = "analyzing"
	StatusOK                 DocumentStatus = "ok"
	StatusMissingInvoice     DocumentStatus = "missing-invoice"
	StatusScreenshot         DocumentStatus = "screenshot"
	StatusPotentialDuplicate DocumentStatus = "potential-duplicate"
	StatusError              DocumentStatus = "error"
)

// IsTerminal reports whether a status permits no further transition
// other than error.
func (s DocumentStatus) IsTerminal() bool {
	return s != StatusAnalyzing && s != ""
}

type SourceChannel string

const (
	ChannelManual      SourceChannel = "manual"
	ChannelLocalFolder SourceChannel = "local-folder"
	ChannelEmail       SourceChannel = "email"
	ChannelMessaging   SourceChannel = "messaging"
)

type InvoiceDirection string

const (
	DirectionIncoming InvoiceDirection = "incoming"
	DirectionOutgoing InvoiceDirection = "outgoing"
)

type StorageProvider string

const (
	ProviderPrimary  StorageProvider = "primary"
	ProviderOverflow StorageProvider = "overflow"
)

// CategoryUncategorized is the sentinel tax category applied when
// neither a rule nor the analyzer produced one.
const CategoryUncategorized = "uncategorized"

type Document struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	Name             string           `json:"name"`
	Date             time.Time        `json:"date"`
	Year             int              `json:"year"`
	Quarter          int              `json:"quarter"`
	SourceChannel    SourceChannel    `json:"source_channel"`
	Status           DocumentStatus   `json:"status"`
	StorageProvider  StorageProvider  `json:"storage_provider,omitempty"`
	FileURL          string           `json:"file_url,omitempty"`
	RawText          string           `json:"raw_text,omitempty"`
	Vendor           string           `json:"vendor,omitempty"`
	TotalAmount      *float64         `json:"total_amount,omitempty"`
	VATAmount        *float64         `json:"vat_amount,omitempty"`
	InvoiceNumber    string           `json:"invoice_number,omitempty"`
	InvoiceDirection InvoiceDirection `json:"invoice_direction,omitempty"`
	TaxCategory      string           `json:"tax_category,omitempty"`
	ContactEmail     string           `json:"contact_email,omitempty"`
	ContactPhone     string           `json:"contact_phone,omitempty"`
	ErrorMessage     string           `json:"error_message,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// SetDate keeps year and quarter in lockstep with the document date.
func (d *Document) SetDate(t time.Time) {
	d.Date = t
	d.Year = t.Year()
	d.Quarter = QuarterOf(t)
}

// Advance moves the document status forward. analyzing is the only
// non-terminal state; error is reachable from anywhere. A transition
// away from an already terminal status (other than to error) is refused.
func (d *Document) Advance(status DocumentStatus) bool {
	if status == StatusError {
		d.Status = StatusError
		return true
	}
	if d.Status.IsTerminal() {
		return false
	}
	d.Status = status
	return true
}

// AssignProvider records the storage provider of the first successful
// upload. Subsequent calls are no-ops.
func (d *Document) AssignProvider(provider StorageProvider, fileURL string) bool {
	if d.StorageProvider != "" {
		return false
	}
	d.StorageProvider = provider
	d.FileURL = fileURL
	return true
}

// QuarterOf returns the 1-indexed calendar quarter of t.
func QuarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}
