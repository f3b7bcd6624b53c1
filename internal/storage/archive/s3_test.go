// internal/storage/archive/s3_test.go
package archive

import (
	"strings"
	"testing"
)

func TestS3Storage_ImplementsStorage(t *testing.T) {
	var _ Storage = (*S3Storage)(nil)
}

func TestS3Config_Key(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   string
	}{
		{"", "file.txt", "file.txt"},
		{"archive", "file.txt", "archive/file.txt"},
		{"archive/", "file.txt", "archive/file.txt"},
	}

	for _, tt := range tests {
		s := &S3Storage{prefix: strings.TrimSuffix(tt.prefix, "/")}
		got := s.key(tt.path)
		if got != tt.want {
			t.Errorf("key(%q) with prefix %q = %q, want %q", tt.path, tt.prefix, got, tt.want)
		}
	}
}

func TestContentType(t *testing.T) {
	if got := contentType("bundles/XLG/2024-01-05/153000-run.json"); got != "application/json" {
		t.Errorf("contentType(json) = %q", got)
	}
	if got := contentType("raw.bin"); got != "application/octet-stream" {
		t.Errorf("contentType(bin) = %q", got)
	}
}

func TestNewS3_TrimsPrefix(t *testing.T) {
	s, err := NewS3(S3Config{Bucket: "dipcast", Region: "us-east-1", Prefix: "exports/", Endpoint: "http://localhost:9000"})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	if got := s.key("bundles/XLG/x.json"); got != "exports/bundles/XLG/x.json" {
		t.Errorf("key = %q", got)
	}
}
