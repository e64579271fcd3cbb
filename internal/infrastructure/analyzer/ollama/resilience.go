package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/pkoster/beleghub/internal/core/domain"
	"github.com/pkoster/beleghub/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "analyzer status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("analyzer %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("analyzer %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// Analyzer wraps the raw client with retries and a circuit breaker.
type Analyzer struct {
	client   *Client
	executor *resilience.Executor
}

func NewAnalyzer(client *Client, executor *resilience.Executor) *Analyzer {
	return &Analyzer{client: client, executor: executor}
}

func (a *Analyzer) Analyze(ctx context.Context, file domain.IngestFile, rules []domain.Rule) (domain.AnalysisResult, error) {
	var result domain.AnalysisResult
	err := a.executor.Execute(ctx, "analyzer.analyze", func(ctx context.Context) error {
		var callErr error
		result, callErr = a.client.Analyze(ctx, file, rules)
		return callErr
	}, classifyAnalyzerError)
	if err != nil {
		return domain.AnalysisResult{}, wrapTemporaryIfNeeded("analyze document", err)
	}
	return result, nil
}

func classifyAnalyzerError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrCanceled, operation, err)
	}

	class := classifyAnalyzerError(err)
	if class.Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
