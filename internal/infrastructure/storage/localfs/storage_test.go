package localfs

import (
	"context"
	"testing"
)

func TestUploadThenList(t *testing.T) {
	store, err := New(t.TempDir(), "http://localhost:8080/files")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	url, err := store.Upload(ctx, "docs", "u1/a.pdf", []byte("hello"), "application/pdf")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if url != "http://localhost:8080/files/docs/u1/a.pdf" {
		t.Fatalf("unexpected public url %q", url)
	}
	if _, err := store.Upload(ctx, "docs", "u1/b.pdf", []byte("world!"), ""); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	objects, err := store.List(ctx, "docs", 0, 100)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(objects))
	}
	if objects[0].Name != "u1/a.pdf" || objects[0].Size != 5 {
		t.Fatalf("unexpected first object %+v", objects[0])
	}
	if objects[1].Name != "u1/b.pdf" || objects[1].Size != 6 {
		t.Fatalf("unexpected second object %+v", objects[1])
	}
}

func TestUploadEscapesReservedCharactersInPublicURL(t *testing.T) {
	store, err := New(t.TempDir(), "http://localhost:8080/files")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	url, err := store.Upload(context.Background(), "docs", "u1/Rechnung 2025 #1.pdf", []byte("x"), "")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if url != "http://localhost:8080/files/docs/u1/Rechnung%202025%20%231.pdf" {
		t.Fatalf("unexpected public url %q", url)
	}
}

func TestListPaginates(t *testing.T) {
	store, err := New(t.TempDir(), "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		if _, err := store.Upload(ctx, "docs", name, []byte("x"), ""); err != nil {
			t.Fatalf("Upload(%s) error = %v", name, err)
		}
	}

	first, err := store.List(ctx, "docs", 0, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	second, err := store.List(ctx, "docs", 1, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	third, err := store.List(ctx, "docs", 2, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(first) != 2 || len(second) != 1 || len(third) != 0 {
		t.Fatalf("unexpected page sizes %d/%d/%d", len(first), len(second), len(third))
	}
}

func TestListUnknownBucketIsEmpty(t *testing.T) {
	store, err := New(t.TempDir(), "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	objects, err := store.List(context.Background(), "missing", 0, 100)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objects) != 0 {
		t.Fatalf("expected empty listing, got %+v", objects)
	}
}
