package fsstore

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"smedge-submit/internal/model"
)

func TestAcquireLock_BlocksConcurrentAcquire(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	lock, err := AcquireLock(dir, "submit")
	if err != nil {
		t.Fatalf("acquire first lock: %v", err)
	}
	defer func() {
		_ = lock.Release()
	}()

	_, err = AcquireLock(dir, "submit")
	if err == nil {
		t.Fatalf("expected second acquire to fail")
	}
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if !strings.Contains(err.Error(), "purpose=submit") {
		t.Fatalf("expected owner details in %q", err.Error())
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("release lock: %v", err)
	}

	lock2, err := AcquireLock(dir, "submit")
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if err := lock2.Release(); err != nil {
		t.Fatalf("release second lock: %v", err)
	}
}
