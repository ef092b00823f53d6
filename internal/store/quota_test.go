package store

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestWithQuota(t *testing.T) {
	ctx := context.Background()
	q := WithQuota(NewMemoryStore(), 10)

	if err := q.Write(ctx, "a", "12345"); err != nil {
		t.Fatalf("Write within quota: %v", err)
	}
	if err := q.Write(ctx, "b", "12345"); err != nil {
		t.Fatalf("Write exactly at quota: %v", err)
	}
	if err := q.Write(ctx, "c", "1"); !errors.Is(err, ErrStorageFull) {
		t.Fatalf("Write over quota = %v, want ErrStorageFull", err)
	}
	if _, ok, _ := q.Read(ctx, "c"); ok {
		t.Error("rejected write must not be stored")
	}

	// replacing a value only counts the difference
	if err := q.Write(ctx, "a", "1234"); err != nil {
		t.Fatalf("shrinking overwrite: %v", err)
	}
	if err := q.Write(ctx, "a", "123456"); !errors.Is(err, ErrStorageFull) {
		t.Fatalf("growing overwrite = %v, want ErrStorageFull", err)
	}

	if err := q.Remove(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if err := q.Write(ctx, "c", "12345"); err != nil {
		t.Errorf("Write after freeing space: %v", err)
	}
}

func TestWithQuota_Default(t *testing.T) {
	q := WithQuota(NewMemoryStore(), 0)
	if q.Limit() != DefaultQuotaBytes {
		t.Errorf("Limit = %d, want %d", q.Limit(), DefaultQuotaBytes)
	}
	big := strings.Repeat("x", int(DefaultQuotaBytes)+1)
	if err := q.Write(context.Background(), "k", big); !errors.Is(err, ErrStorageFull) {
		t.Errorf("Write = %v, want ErrStorageFull", err)
	}
}
