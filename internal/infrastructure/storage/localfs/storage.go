// Package localfs is the dev-mode object store. It implements the same
// port as the hosted backend so the router behaves identically in
// development and production.
package localfs

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkoster/beleghub/internal/core/domain"
)

type Storage struct {
	basePath  string
	publicURL string
}

func New(basePath, publicURL string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{
		basePath:  basePath,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

func (s *Storage) Upload(_ context.Context, bucket, path string, data []byte, _ string) (string, error) {
	full := filepath.Join(s.basePath, bucket, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	return s.objectURL(bucket, path), nil
}

// List walks the bucket directory and returns the requested page in
// stable name order, matching the paged listing of the hosted backend.
func (s *Storage) List(_ context.Context, bucket string, page, pageSize int) ([]domain.ObjectMeta, error) {
	root := filepath.Join(s.basePath, bucket)

	var all []domain.ObjectMeta
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		all = append(all, domain.ObjectMeta{
			Name:      filepath.ToSlash(rel),
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list objects: %w", err)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	start := page * pageSize
	if start >= len(all) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (s *Storage) objectURL(bucket, path string) string {
	if s.publicURL == "" {
		return "file://" + filepath.Join(s.basePath, bucket, filepath.FromSlash(path))
	}
	return s.publicURL + "/" + url.PathEscape(bucket) + "/" + escapePath(path)
}

// escapePath escapes each segment but keeps the separators, matching
// the hosted backend's public URLs.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
