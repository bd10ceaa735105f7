package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFilesystemStore_CreatesDataDir(t *testing.T) {
	testDir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := NewFilesystemStore(testDir)
	if err != nil {
		t.Fatalf("NewFilesystemStore failed: %v", err)
	}
	if store.dataDir != testDir {
		t.Errorf("expected dataDir %s, got %s", testDir, store.dataDir)
	}
	if info, err := os.Stat(testDir); err != nil || !info.IsDir() {
		t.Errorf("expected data directory to be created, stat err: %v", err)
	}
}

func TestNewFilesystemStore_EmptyDir(t *testing.T) {
	if _, err := NewFilesystemStore(""); err == nil {
		t.Error("expected error for empty data directory")
	}
}

func TestFilesystemStore_Contract(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStore failed: %v", err)
	}
	runBlobStoreContract(t, store)
}

func TestFilesystemStore_FileLayout(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFilesystemStore(dir)
	if err != nil {
		t.Fatalf("NewFilesystemStore failed: %v", err)
	}

	if err := store.Put(context.Background(), "AbCdEfGhIjK", []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "AbCdEfGhIjK.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only AbCdEfGhIjK.json, got %v", names)
	}

	info, err := os.Stat(filepath.Join(dir, "AbCdEfGhIjK.json"))
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm()&0o600 != 0o600 {
		t.Errorf("expected record to be owner read/write, got %v", info.Mode().Perm())
	}
}

func TestFilesystemStore_FailedPutLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFilesystemStore(dir)
	if err != nil {
		t.Fatalf("NewFilesystemStore failed: %v", err)
	}
	ctx := context.Background()
	if err := store.Put(ctx, "AbCdEfGhIjK", []byte("first")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, "AbCdEfGhIjK", []byte("second")); err != ErrExists {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestFilesystemStore_RejectsUnsafeKeys(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStore failed: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "../escape", "a/b", ".tmp-123", "."} {
		if err := store.Put(ctx, key, []byte("x")); err == nil {
			t.Errorf("expected Put(%q) to fail", key)
		}
		if _, err := store.Get(ctx, key); err == nil {
			t.Errorf("expected Get(%q) to fail", key)
		}
	}
}

func TestFilesystemStore_GetReturnsRawBytes(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFilesystemStore(dir)
	if err != nil {
		t.Fatalf("NewFilesystemStore failed: %v", err)
	}
	// A damaged record written behind the store's back is returned as-is;
	// interpreting it is the caller's job.
	if err := os.WriteFile(filepath.Join(dir, "damaged01.json"), []byte("{trunc"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	got, err := store.Get(context.Background(), "damaged01")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "{trunc" {
		t.Errorf("expected raw bytes, got %q", got)
	}
}
