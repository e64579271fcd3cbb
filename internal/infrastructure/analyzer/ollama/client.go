// Package ollama adapts a locally hosted model into the document
// analyzer port. The model is consumed as a black box that returns one
// strict-JSON verdict per file.
package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkoster/beleghub/internal/core/domain"
	"github.com/pkoster/beleghub/internal/core/ports"
)

type Client struct {
	baseURL    string
	model      string
	extractor  ports.TextExtractor
	httpClient *http.Client
}

func New(baseURL, model string, extractor ports.TextExtractor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		extractor:  extractor,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// analysisWire is the JSON shape the model is prompted to return.
type analysisWire struct {
	IsInvoice           bool     `json:"is_invoice"`
	IsOrderConfirmation bool     `json:"is_order_confirmation"`
	IsEmailBody         bool     `json:"is_email_body"`
	DocumentDate        string   `json:"document_date"`
	Vendor              string   `json:"vendor"`
	TotalAmount         *float64 `json:"total_amount"`
	VATAmount           *float64 `json:"vat_amount"`
	InvoiceNumber       string   `json:"invoice_number"`
	InvoiceDirection    string   `json:"invoice_direction"`
	TaxCategory         string   `json:"tax_category"`
	ContactEmail        string   `json:"contact_email"`
	ContactPhone        string   `json:"contact_phone"`
	RawText             string   `json:"raw_text"`
}

func (c *Client) Analyze(ctx context.Context, file domain.IngestFile, rules []domain.Rule) (domain.AnalysisResult, error) {
	text, err := c.extractor.Extract(file)
	if err != nil {
		// Fall back to the raw bytes; the model may still read it.
		text = ""
	}

	request := map[string]any{
		"model":  c.model,
		"prompt": buildAnalysisPrompt(text, file.Name, rules),
		"stream": false,
		"format": "json",
	}
	if text == "" && strings.HasPrefix(strings.ToLower(file.ContentType), "image/") {
		request["images"] = []string{base64.StdEncoding.EncodeToString(file.Data)}
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", request, &response, "analyze"); err != nil {
		return domain.AnalysisResult{}, err
	}

	var wire analysisWire
	if err := json.Unmarshal([]byte(extractJSONObject(response.Response)), &wire); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("parse analysis json: %w", err)
	}

	result := domain.AnalysisResult{
		IsInvoice:           wire.IsInvoice,
		IsOrderConfirmation: wire.IsOrderConfirmation,
		IsEmailBody:         wire.IsEmailBody,
		RawText:             strings.TrimSpace(wire.RawText),
		Vendor:              strings.TrimSpace(wire.Vendor),
		TotalAmount:         wire.TotalAmount,
		VATAmount:           wire.VATAmount,
		InvoiceNumber:       strings.TrimSpace(wire.InvoiceNumber),
		TaxCategory:         strings.TrimSpace(wire.TaxCategory),
		ContactEmail:        strings.TrimSpace(wire.ContactEmail),
		ContactPhone:        strings.TrimSpace(wire.ContactPhone),
	}
	if wire.InvoiceDirection == string(domain.DirectionOutgoing) {
		result.InvoiceDirection = domain.DirectionOutgoing
	} else if wire.InvoiceDirection == string(domain.DirectionIncoming) {
		result.InvoiceDirection = domain.DirectionIncoming
	}
	if date, ok := parseDocumentDate(wire.DocumentDate); ok {
		result.DocumentDate = &date
	}
	if result.RawText == "" {
		result.RawText = text
	}
	return result, nil
}

func parseDocumentDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "02.01.2006"} {
		if date, err := time.Parse(layout, raw); err == nil {
			return date.UTC(), true
		}
	}
	return time.Time{}, false
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
