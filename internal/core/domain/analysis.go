package domain

import "time"

// AnalysisResult is the analyzer's verdict on a single uploaded file.
type AnalysisResult struct {
	IsInvoice           bool             `json:"is_invoice"`
	IsOrderConfirmation bool             `json:"is_order_confirmation"`
	IsEmailBody         bool             `json:"is_email_body"`
	DocumentDate        *time.Time       `json:"document_date,omitempty"`
	RawText             string           `json:"raw_text,omitempty"`
	Vendor              string           `json:"vendor,omitempty"`
	TotalAmount         *float64         `json:"total_amount,omitempty"`
	VATAmount           *float64         `json:"vat_amount,omitempty"`
	InvoiceNumber       string           `json:"invoice_number,omitempty"`
	InvoiceDirection    InvoiceDirection `json:"invoice_direction,omitempty"`
	TaxCategory         string           `json:"tax_category,omitempty"`
	ContactEmail        string           `json:"contact_email,omitempty"`
	ContactPhone        string           `json:"contact_phone,omitempty"`
}
