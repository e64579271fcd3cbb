// Package resolve derives the lifecycle status of a freshly analyzed
// document by comparing it against the already-known document set.
// Pure and deterministic; runs before persistence so duplicates are
// surfaced without an extra round trip.
package resolve

import (
	"math"
	"strings"
	"time"

	"github.com/pkoster/beleghub/internal/core/domain"
)

// Candidate carries the analyzer fields the resolver inspects.
type Candidate struct {
	InvoiceNumber       string
	TotalAmount         *float64
	Date                *time.Time
	IsInvoice           bool
	IsOrderConfirmation bool
	IsEmailBody         bool
}

// FromAnalysis builds a resolver candidate from an analysis result.
func FromAnalysis(res domain.AnalysisResult) Candidate {
	return Candidate{
		InvoiceNumber:       res.InvoiceNumber,
		TotalAmount:         res.TotalAmount,
		Date:                res.DocumentDate,
		IsInvoice:           res.IsInvoice,
		IsOrderConfirmation: res.IsOrderConfirmation,
		IsEmailBody:         res.IsEmailBody,
	}
}

// Status applies the resolution rules in order, first match wins:
// invoice-number duplicate, amount+day duplicate, order confirmation
// without invoice, email body without invoice, otherwise ok.
func Status(c Candidate, existing []domain.Document) domain.DocumentStatus {
	for _, doc := range existing {
		if invoiceNumbersMatch(c.InvoiceNumber, doc.InvoiceNumber) {
			return domain.StatusPotentialDuplicate
		}
	}
	for _, doc := range existing {
		if amountAndDayMatch(c, doc) {
			return domain.StatusPotentialDuplicate
		}
	}
	if c.IsOrderConfirmation && !c.IsInvoice {
		return domain.StatusMissingInvoice
	}
	if c.IsEmailBody && !c.IsInvoice {
		return domain.StatusScreenshot
	}
	return domain.StatusOK
}

func invoiceNumbersMatch(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if len(a) <= 2 || len(b) <= 2 {
		return false
	}
	return strings.EqualFold(a, b)
}

func amountAndDayMatch(c Candidate, doc domain.Document) bool {
	if c.TotalAmount == nil || doc.TotalAmount == nil {
		return false
	}
	if math.Round(*c.TotalAmount*100) != math.Round(*doc.TotalAmount*100) {
		return false
	}
	if c.Date == nil || doc.Date.IsZero() {
		return false
	}
	y1, m1, d1 := c.Date.Date()
	y2, m2, d2 := doc.Date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
