package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nghyane/inkledger/internal/config"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, raw := range []string{
		"memory://",
		"file://" + filepath.ToSlash(filepath.Join(dir, "files")),
		"sqlite://" + filepath.ToSlash(filepath.Join(dir, "ledger.db")),
	} {
		t.Run(raw, func(t *testing.T) {
			dsn, err := config.ParseDSN(raw)
			if err != nil {
				t.Fatalf("ParseDSN: %v", err)
			}
			s, err := Open(ctx, dsn, 64)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer s.Close()

			if s.Limit() != 64 {
				t.Errorf("Limit = %d", s.Limit())
			}
			if err := s.Write(ctx, "k", "v"); err != nil {
				t.Errorf("Write: %v", err)
			}
		})
	}
}

func TestOpen_NilDSN(t *testing.T) {
	if _, err := Open(context.Background(), nil, 0); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Open(nil) = %v, want ErrNotConfigured", err)
	}
}
