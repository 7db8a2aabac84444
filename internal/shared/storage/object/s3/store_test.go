package s3

import (
	"io"
	"strings"
	"testing"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "uploads/extraction/abc-report.pdf", want: "uploads/extraction/abc-report.pdf"},
		{name: "tenant prefix", prefix: "insights", key: "uploads/extraction/abc-report.pdf", want: "insights/uploads/extraction/abc-report.pdf"},
		{name: "slashes trimmed", prefix: "/insights/", key: "/uploads/abc-report.pdf", want: "insights/uploads/abc-report.pdf"},
		{name: "empty key", prefix: "insights", key: "", want: "insights"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestCountingReaderCountsBytes(t *testing.T) {
	c := &countingReader{r: strings.NewReader("twelve bytes")}
	if _, err := io.Copy(io.Discard, c); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if c.n != 12 {
		t.Fatalf("expected 12 bytes counted, got %d", c.n)
	}
}

func TestNormalizePrefix(t *testing.T) {
	if got := normalizePrefix("  /a/b/ "); got != "a/b" {
		t.Fatalf("normalizePrefix = %q", got)
	}
}
