package ollama

import (
	"strings"

	"github.com/pkoster/beleghub/internal/core/domain"
)

const maxSnippet = 8000

func buildAnalysisPrompt(text, filename string, rules []domain.Rule) string {
	snippet := text
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet]
	}

	var sb strings.Builder
	sb.WriteString(`You are a bookkeeping document analyzer.
Return a strict JSON object with keys:
is_invoice (bool), is_order_confirmation (bool), is_email_body (bool),
document_date (string, YYYY-MM-DD or empty), vendor (string),
total_amount (number or null), vat_amount (number or null),
invoice_number (string), invoice_direction ("incoming" or "outgoing" or empty),
tax_category (string or empty), contact_email (string), contact_phone (string),
raw_text (string, the readable document text).
No markdown, no extra keys. Amounts are gross unless marked net.
`)

	if len(rules) > 0 {
		sb.WriteString("\nKnown expense categories, prefer one of these for tax_category when it fits:\n")
		seen := make(map[string]struct{})
		for _, rule := range rules {
			if rule.ResultCategory == "" {
				continue
			}
			if _, ok := seen[rule.ResultCategory]; ok {
				continue
			}
			seen[rule.ResultCategory] = struct{}{}
			sb.WriteString("- " + rule.ResultCategory + "\n")
		}
	}

	sb.WriteString("\nFilename: " + filename + "\n")
	if snippet != "" {
		sb.WriteString("\nDocument text:\n" + snippet + "\n")
	} else {
		sb.WriteString("\nThe document is attached as an image.\n")
	}
	return sb.String()
}
