// Package httpstore talks to the hosted object-storage service used as
// the primary document backend.
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkoster/beleghub/internal/core/domain"
	"github.com/pkoster/beleghub/internal/infrastructure/storage"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Upload PUTs the object and returns its public URL.
func (c *Client) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error) {
	target := c.baseURL + "/object/" + url.PathEscape(bucket) + "/" + escapePath(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	c.authorize(req)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", statusError("upload", resp)
	}
	io.Copy(io.Discard, resp.Body)

	return c.PublicURL(bucket, path), nil
}

type listedObject struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// List returns one page of the bucket listing. An empty page ends
// pagination on the caller's side.
func (c *Client) List(ctx context.Context, bucket string, page, pageSize int) ([]domain.ObjectMeta, error) {
	target := c.baseURL + "/object/list/" + url.PathEscape(bucket) +
		"?page=" + strconv.Itoa(page) + "&pageSize=" + strconv.Itoa(pageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create list request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage list request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, statusError("list", resp)
	}

	var listed []listedObject
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}

	objects := make([]domain.ObjectMeta, 0, len(listed))
	for _, obj := range listed {
		objects = append(objects, domain.ObjectMeta{
			Name:      obj.Name,
			Size:      obj.Size,
			UpdatedAt: obj.UpdatedAt,
		})
	}
	return objects, nil
}

// PublicURL is deterministic and needs no round trip.
func (c *Client) PublicURL(bucket, path string) string {
	return c.baseURL + "/object/public/" + url.PathEscape(bucket) + "/" + escapePath(path)
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func statusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &storage.StatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
}

// escapePath escapes each segment but keeps the separators.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
