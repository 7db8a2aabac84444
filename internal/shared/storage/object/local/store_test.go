package local

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"insights-backend/internal/shared/storage/object"
)

func TestSaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())

	obj, err := store.Save(ctx, "uploads/extraction", "report.pdf", "", strings.NewReader("%PDF-1.4 hello"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(obj.Key, "uploads/extraction/") || !strings.HasSuffix(obj.Key, "-report.pdf") {
		t.Fatalf("unexpected key: %s", obj.Key)
	}
	if obj.ContentType != "application/pdf" {
		t.Fatalf("unexpected content type: %s", obj.ContentType)
	}
	if obj.Size != int64(len("%PDF-1.4 hello")) {
		t.Fatalf("unexpected size: %d", obj.Size)
	}

	rc, err := store.Open(ctx, obj.Key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "%PDF-1.4 hello" {
		t.Fatalf("unexpected body: %q", body)
	}

	u, err := store.URL(ctx, obj.Key)
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	if !strings.HasPrefix(u, "file://") {
		t.Fatalf("expected file url, got %s", u)
	}

	if err := store.Delete(ctx, obj.Key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Open(ctx, obj.Key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, obj.Key); err != nil {
		t.Fatalf("expected idempotent delete, got %v", err)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Open(context.Background(), "../outside.txt"); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
	if err := store.Delete(context.Background(), "/etc/passwd"); err == nil {
		t.Fatalf("expected absolute key to be rejected")
	}
}
