package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkoster/beleghub/internal/core/domain"
	"github.com/pkoster/beleghub/internal/core/ports"
)

// ReferenceCapacityBytes is the fixed capacity the usage fraction is
// measured against.
const ReferenceCapacityBytes = int64(1 << 30) // 1 GB

const (
	usageCacheTTL = 60 * time.Second
	listPageSize  = 100
	listPageCap   = 10
)

type RouterConfig struct {
	Bucket          string
	Threshold       float64
	OverflowEnabled bool
	Retry           RetryPolicy
}

// Router decides per upload which backend receives the object. The
// usage-fraction estimate for the primary backend is cached so the
// bucket is not re-listed on every upload; a stale value only causes a
// sub-optimal routing choice, never data loss.
type Router struct {
	primary ports.ObjectStore
	signer  ports.UploadSigner
	cfg     RouterConfig

	httpClient *http.Client
	now        func() time.Time

	// OnUsage, when set, observes every fresh usage-fraction estimate.
	OnUsage func(fraction float64)

	mu       sync.Mutex
	fraction float64
	cachedAt time.Time
}

func NewRouter(primary ports.ObjectStore, signer ports.UploadSigner, cfg RouterConfig) *Router {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.8
	}
	return &Router{
		primary:    primary,
		signer:     signer,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		now:        time.Now,
	}
}

// EstimateUsageFraction lists the primary bucket in pages and divides
// the summed object sizes by the reference capacity. Listing errors
// fail open toward the primary backend (fraction 0).
func (r *Router) EstimateUsageFraction(ctx context.Context) float64 {
	var total int64
	for page := 0; page < listPageCap; page++ {
		objects, err := r.primary.List(ctx, r.cfg.Bucket, page, listPageSize)
		if err != nil {
			slog.Warn("storage_usage_estimate_failed", "error", err)
			return 0
		}
		for _, obj := range objects {
			total += obj.Size
		}
		if len(objects) < listPageSize {
			break
		}
	}
	return float64(total) / float64(ReferenceCapacityBytes)
}

func (r *Router) usageFraction(ctx context.Context) float64 {
	r.mu.Lock()
	cached := r.fraction
	fresh := !r.cachedAt.IsZero() && r.now().Sub(r.cachedAt) < usageCacheTTL
	r.mu.Unlock()

	if fresh {
		return cached
	}

	fraction := r.EstimateUsageFraction(ctx)

	r.mu.Lock()
	r.fraction = fraction
	r.cachedAt = r.now()
	r.mu.Unlock()

	if r.OnUsage != nil {
		r.OnUsage(fraction)
	}
	return fraction
}

// Decide routes to overflow only when the primary usage fraction has
// reached the threshold and the overflow backend is enabled.
func (r *Router) Decide(ctx context.Context) domain.UploadDecision {
	fraction := r.usageFraction(ctx)
	if fraction >= r.cfg.Threshold && r.cfg.OverflowEnabled {
		return domain.UploadDecision{
			Provider: domain.ProviderOverflow,
			Reason:   fmt.Sprintf("primary at %.0f%%", fraction*100),
		}
	}
	return domain.UploadDecision{
		Provider: domain.ProviderPrimary,
		Reason:   "primary under threshold",
	}
}

// HybridUpload routes the file per Decide and performs the transfer.
// Overflow uploads go through a short-lived signed PUT URL; primary
// uploads go through the retrying executor.
func (r *Router) HybridUpload(ctx context.Context, file domain.IngestFile, pathPrefix string) (domain.UploadResult, error) {
	decision := r.Decide(ctx)
	path := objectPath(pathPrefix, file.Name)

	if decision.Provider == domain.ProviderOverflow {
		result, err := r.uploadOverflow(ctx, file, path)
		if err != nil {
			return domain.UploadResult{}, err
		}
		slog.Info("upload_routed", "provider", decision.Provider, "reason", decision.Reason, "path", path)
		return result, nil
	}

	result, err := r.uploadPrimary(ctx, file, path)
	if err != nil {
		return domain.UploadResult{}, err
	}
	slog.Info("upload_routed", "provider", decision.Provider, "reason", decision.Reason, "path", path)
	return result, nil
}

// UploadPrimary bypasses routing and pushes straight to the primary
// backend. The orchestrator uses it as the one-shot fallback after a
// failed hybrid upload.
func (r *Router) UploadPrimary(ctx context.Context, file domain.IngestFile, pathPrefix string) (domain.UploadResult, error) {
	return r.uploadPrimary(ctx, file, objectPath(pathPrefix, file.Name))
}

func (r *Router) uploadPrimary(ctx context.Context, file domain.IngestFile, path string) (domain.UploadResult, error) {
	publicURL, err := UploadWithRetry(ctx, r.primary, r.cfg.Bucket, path, file.Data, file.ContentType, r.cfg.Retry)
	if err != nil {
		return domain.UploadResult{}, err
	}
	return domain.UploadResult{
		Provider:  domain.ProviderPrimary,
		PublicURL: publicURL,
		Path:      path,
		Size:      int64(len(file.Data)),
	}, nil
}

func (r *Router) uploadOverflow(ctx context.Context, file domain.IngestFile, path string) (domain.UploadResult, error) {
	if r.signer == nil {
		return domain.UploadResult{}, fmt.Errorf("overflow backend not configured")
	}

	signed, err := r.signer.Sign(ctx, path, file.ContentType)
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("sign overflow upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signed.UploadURL, bytes.NewReader(file.Data))
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("create overflow request: %w", err)
	}
	if file.ContentType != "" {
		req.Header.Set("Content-Type", file.ContentType)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("overflow put: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return domain.UploadResult{}, &StatusError{
			Operation:  "overflow put",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return domain.UploadResult{
		Provider:  domain.ProviderOverflow,
		PublicURL: signed.PublicURL,
		Path:      path,
		Size:      int64(len(file.Data)),
	}, nil
}

// objectPath builds a collision-resistant object name under the prefix.
func objectPath(prefix, filename string) string {
	name := uuid.NewString() + "_" + sanitizeFilename(filename)
	if prefix == "" {
		return name
	}
	return strings.TrimSuffix(prefix, "/") + "/" + name
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}
