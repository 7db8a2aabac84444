package gcs

import (
	"context"
	"testing"
)

func TestObjectName(t *testing.T) {
	tests := []struct {
		prefix string
		key    string
		want   string
	}{
		{prefix: "", key: "uploads/extraction/abc-report.pdf", want: "uploads/extraction/abc-report.pdf"},
		{prefix: "insights", key: "/uploads/abc-report.pdf", want: "insights/uploads/abc-report.pdf"},
	}
	for _, tt := range tests {
		if got := objectName(tt.prefix, tt.key); got != tt.want {
			t.Fatalf("objectName(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
		}
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil {
		t.Fatalf("expected error without bucket")
	}
}
