package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"insights-backend/internal/shared/storage/object"
	"insights-backend/internal/shared/storage/object/local"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

const wordXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body><w:p><w:r><w:t>Churn rose 15% in Q4.</w:t></w:r></w:p><w:p><w:r><w:t>Pricing tiers changed in October.</w:t></w:r></w:p></w:body>
</w:document>`

func TestTextFromBytesZipDocxNormalizes(t *testing.T) {
	data := buildZip(t, map[string]string{"word/document.xml": wordXML})

	text, err := TextFromBytes(context.Background(), data, "application/zip", "review.docx")
	if err != nil {
		t.Fatalf("expected docx to extract from zip content type, got error: %v", err)
	}
	want := "Churn rose 15% in Q4.\nPricing tiers changed in October."
	if text != want {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestTextFromBytesRealZipRejected(t *testing.T) {
	data := buildZip(t, map[string]string{"notes.txt": "hello"})

	_, err := TextFromBytes(context.Background(), data, "application/zip", "notes.zip")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected unsupported type, got %v", err)
	}
	if !strings.Contains(err.Error(), "application/zip") {
		t.Fatalf("expected content type in error, got %v", err)
	}
}

func TestTextFromBytesPlainByExtension(t *testing.T) {
	text, err := TextFromBytes(context.Background(), []byte("  notes \n"), "application/octet-stream", "notes.txt")
	if err != nil {
		t.Fatalf("plain text: %v", err)
	}
	if text != "notes" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestTextFromBytesHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := TextFromBytes(ctx, []byte("x"), "text/plain", "x.txt"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPipelineStoresSidecarAndReturnsNoRecords(t *testing.T) {
	ctx := context.Background()
	store := local.New(t.TempDir())
	obj, err := store.Save(ctx, "uploads/extraction", "review.docx", mimeDOCX, bytes.NewReader(buildZip(t, map[string]string{"word/document.xml": wordXML})))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	p := &Pipeline{Store: store}
	recs, err := p.ExtractInsights(ctx, Source{Path: obj.Key, ContentType: mimeDOCX, FileName: "review.docx"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if recs == nil || len(recs) != 0 {
		t.Fatalf("expected empty non-nil records, got %#v", recs)
	}

	rc, err := store.Open(ctx, obj.Key+SidecarSuffix)
	if err != nil {
		t.Fatalf("open sidecar: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if !strings.Contains(string(body), "Churn rose 15%") {
		t.Fatalf("unexpected sidecar %q", body)
	}
}

func TestPipelineSkipsUnsupportedTypes(t *testing.T) {
	ctx := context.Background()
	store := local.New(t.TempDir())
	obj, err := store.Save(ctx, "uploads/extraction", "chart.png", "image/png", strings.NewReader("\x89PNG\r\n\x1a\n"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	recs, err := (&Pipeline{Store: store}).ExtractInsights(ctx, Source{Path: obj.Key, ContentType: "image/png", FileName: "chart.png"})
	if err != nil {
		t.Fatalf("expected best-effort success, got %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no records")
	}
}

func TestPipelineMissingArtifactFails(t *testing.T) {
	_, err := (&Pipeline{Store: local.New(t.TempDir())}).ExtractInsights(context.Background(), Source{Path: "uploads/extraction/missing.pdf"})
	if !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
