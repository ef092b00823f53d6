package recognition

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestNewImage_SniffsType(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		want     string
	}{
		{"blank", "", "image/png"},
		{"octet-stream", "application/octet-stream", "image/png"},
		{"explicit", "image/webp", "image/webp"},
		{"parameters", "image/jpeg; q=1", "image/jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := NewImage("page.png", pngHeader, tt.mimeType)
			if img.MIMEType != tt.want {
				t.Errorf("MIMEType = %q, want %q", img.MIMEType, tt.want)
			}
		})
	}
}

func TestLoadImages_PreservesOrder(t *testing.T) {
	dir := t.TempDir()
	names := []string{"3.png", "1.png", "2.png", "5.png", "4.png", "6.png"}
	var paths []string
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, pngHeader, 0o600); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}

	images, err := LoadImages(context.Background(), paths)
	if err != nil {
		t.Fatalf("LoadImages() error = %v", err)
	}
	for i, img := range images {
		if img.Name != names[i] {
			t.Errorf("images[%d] = %s, want %s", i, img.Name, names[i])
		}
		if img.MIMEType != "image/png" {
			t.Errorf("images[%d] type = %s", i, img.MIMEType)
		}
	}
}

func TestLoadImages_Errors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.png")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadImages(context.Background(), []string{filepath.Join(dir, "missing.png")}); err == nil {
		t.Error("expected an error for a missing file")
	}
	if _, err := LoadImages(context.Background(), []string{empty}); err == nil {
		t.Error("expected an error for an empty file")
	}
}

func TestLoadImages_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.png")
	if err := os.WriteFile(p, pngHeader, 0o600); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := LoadImages(ctx, []string{p}); err == nil {
		t.Error("expected an error for a canceled context")
	}
}
