package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLocalStore_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "results")

	store, err := NewLocalStore(root)
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	if store.Root() != root {
		t.Errorf("Expected root %s, got %s", root, store.Root())
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Error("Expected results root to be created")
	}

	if _, err := NewLocalStore("  "); err == nil {
		t.Error("Expected error for empty root")
	}
}

func TestLocalStore_WriteAndRemove(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := store.Write(ctx, "result_a.json", []byte(`{"detections": []}`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !store.Exists("result_a.json") {
		t.Fatal("Expected artifact to exist")
	}

	data, err := os.ReadFile(filepath.Join(store.Root(), "result_a.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"detections": []}` {
		t.Errorf("Unexpected content %q", data)
	}

	entries, _ := os.ReadDir(store.Root())
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("Temporary file left behind: %s", e.Name())
		}
	}

	if err := store.Remove("result_a.json"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if store.Exists("result_a.json") {
		t.Error("Expected artifact to be removed")
	}
	if err := store.Remove("result_a.json"); err != nil {
		t.Errorf("Removing a missing artifact should succeed, got %v", err)
	}
}

func TestLocalStore_RejectsEscapingNames(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"", ".", "..", "../evil.json", "sub/dir.json"} {
		if err := store.Write(context.Background(), name, []byte("x")); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Expected ErrInvalidName for %q, got %v", name, err)
		}
	}
}

func TestLocalStore_CanceledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Write(ctx, "result_b.json", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if store.Exists("result_b.json") {
		t.Error("Artifact must not be written after cancellation")
	}
}
