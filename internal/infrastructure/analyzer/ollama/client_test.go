package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkoster/beleghub/internal/core/domain"
	"github.com/pkoster/beleghub/internal/infrastructure/resilience"
)

type extractorStub struct {
	text string
	err  error
}

func (s extractorStub) Extract(domain.IngestFile) (string, error) {
	return s.text, s.err
}

func analysisResponse(t *testing.T, body string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		resp := map[string]string{"response": body}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}
}

func TestAnalyzeParsesModelVerdict(t *testing.T) {
	verdict := `{"is_invoice":true,"document_date":"2025-03-14","vendor":"ACME GmbH",
"total_amount":119.0,"vat_amount":19.0,"invoice_number":"RE-2025-001",
"invoice_direction":"incoming","tax_category":"software","contact_email":"billing@acme.example",
"raw_text":"Rechnung RE-2025-001"}`

	var capturedPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		capturedPrompt, _ = payload["prompt"].(string)
		json.NewEncoder(w).Encode(map[string]string{"response": verdict})
	}))
	defer server.Close()

	client := New(server.URL, "gemma3", extractorStub{text: "Rechnung RE-2025-001 von ACME"})
	result, err := client.Analyze(context.Background(), domain.IngestFile{Name: "re.pdf"}, []domain.Rule{
		{ResultCategory: "software"},
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if !result.IsInvoice || result.Vendor != "ACME GmbH" || result.InvoiceNumber != "RE-2025-001" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.DocumentDate == nil || !result.DocumentDate.Equal(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected document date %v", result.DocumentDate)
	}
	if result.TotalAmount == nil || *result.TotalAmount != 119.0 {
		t.Fatalf("unexpected total amount %v", result.TotalAmount)
	}
	if result.InvoiceDirection != domain.DirectionIncoming {
		t.Fatalf("unexpected direction %q", result.InvoiceDirection)
	}
	if !strings.Contains(capturedPrompt, "Rechnung RE-2025-001 von ACME") {
		t.Fatalf("extracted text missing from prompt: %s", capturedPrompt)
	}
	if !strings.Contains(capturedPrompt, "software") {
		t.Fatalf("known categories missing from prompt: %s", capturedPrompt)
	}
}

func TestAnalyzeFallsBackToExtractedText(t *testing.T) {
	server := httptest.NewServer(analysisResponse(t, `{"is_invoice":false,"raw_text":""}`))
	defer server.Close()

	client := New(server.URL, "gemma3", extractorStub{text: "extracted body"})
	result, err := client.Analyze(context.Background(), domain.IngestFile{Name: "note.txt"}, nil)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.RawText != "extracted body" {
		t.Fatalf("expected extractor fallback, got %q", result.RawText)
	}
}

func TestAnalyzeAttachesImagePayload(t *testing.T) {
	var hadImages bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, hadImages = payload["images"]
		json.NewEncoder(w).Encode(map[string]string{"response": `{"is_email_body":true}`})
	}))
	defer server.Close()

	client := New(server.URL, "gemma3", extractorStub{})
	result, err := client.Analyze(context.Background(), domain.IngestFile{
		Name:        "shot.png",
		ContentType: "image/png",
		Data:        []byte{0x89, 0x50},
	}, nil)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !hadImages {
		t.Fatalf("expected image payload for image upload")
	}
	if !result.IsEmailBody {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestAnalyzerWrapsRetryableAsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, "gemma3", extractorStub{text: "x"})
	analyzer := NewAnalyzer(client, resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryJitter:         -1,
	}))

	_, err := analyzer.Analyze(context.Background(), domain.IngestFile{Name: "a.pdf"}, nil)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if !strings.Contains(err.Error(), "model loading") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestAnalyzerDoesNotWrapPermanentFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown model", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "gemma3", extractorStub{text: "x"})
	analyzer := NewAnalyzer(client, resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
	}))

	_, err := analyzer.Analyze(context.Background(), domain.IngestFile{Name: "a.pdf"}, nil)
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}
