// Package httpadapter exposes the ingestion pipeline over HTTP.
package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/pkoster/beleghub/internal/core/domain"
	"github.com/pkoster/beleghub/internal/core/ports"
	"github.com/pkoster/beleghub/internal/observability/metrics"
)

const (
	userIDHeader  = "X-User-Id"
	defaultUserID = "default"

	// maxBatchBytes bounds one multipart ingest request.
	maxBatchBytes = 256 << 20
)

type Router struct {
	service string
	ingest  ports.BatchIngestor
	reader  ports.DocumentReader
	signer  ports.UploadSigner
	metrics *metrics.IngestMetrics
	limiter *rateLimiter
}

type RouterConfig struct {
	Service        string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(
	cfg RouterConfig,
	ingest ports.BatchIngestor,
	reader ports.DocumentReader,
	signer ports.UploadSigner,
	m *metrics.IngestMetrics,
) *Router {
	return &Router{
		service: cfg.Service,
		ingest:  ingest,
		reader:  reader,
		signer:  signer,
		metrics: m,
		limiter: newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/ingest", rt.ingestBatch)
	mux.HandleFunc("/v1/uploads/sign", rt.signUpload)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = accessLogMiddleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	handler = rateLimitMiddleware(rt.limiter, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ingestBatch accepts a multipart batch and streams one NDJSON record
// per file as it finishes, terminated by at most one rule-suggestion
// record.
func (rt *Router) ingestBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	files, err := readBatchFiles(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	updates, err := rt.ingest.IngestBatch(r.Context(), files, userIDFrom(r))
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	encoder := json.NewEncoder(w)
	for update := range updates {
		if err := encoder.Encode(update); err != nil {
			// Client went away; drain the channel so the batch can
			// finish persisting.
			for range updates {
			}
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func readBatchFiles(r *http.Request) ([]domain.IngestFile, error) {
	if err := r.ParseMultipartForm(maxBatchBytes); err != nil {
		return nil, errors.New("multipart form with 'files' field is required")
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["files"]
	}
	if len(headers) == 0 {
		return nil, errors.New("at least one file in 'files' is required")
	}

	files := make([]domain.IngestFile, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, errors.New("unreadable file " + header.Filename)
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, errors.New("unreadable file " + header.Filename)
		}
		files = append(files, domain.IngestFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
			Channel:     domain.ChannelManual,
		})
	}
	return files, nil
}

// signUpload issues a short-lived signed PUT URL for the overflow
// backend.
func (rt *Router) signUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Filename    string `json:"filename"`
		ContentType string `json:"contentType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "filename is required"})
		return
	}
	if rt.signer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "overflow storage is not configured"})
		return
	}

	signed, err := rt.signer.Sign(r.Context(), req.Filename, req.ContentType)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, signed)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func userIDFrom(r *http.Request) string {
	if userID := strings.TrimSpace(r.Header.Get(userIDHeader)); userID != "" {
		return userID
	}
	return defaultUserID
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
