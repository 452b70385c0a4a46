package core

import (
	"path/filepath"
	"testing"

	"simcore/internal/infra/persistence/memory"
	"simcore/internal/infra/persistence/sqlite"
)

func TestOpenDataStoreDriverSelection(t *testing.T) {
	mem, err := OpenDataStoreDriver(StorageMemory, "", "")
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := mem.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", mem)
	}

	path := filepath.Join(t.TempDir(), "s.db")
	sq, err := OpenDataStoreDriver(StorageSQLite, path, "")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	if _, ok := sq.(*sqlite.Store); !ok {
		t.Fatalf("expected sqlite store, got %T", sq)
	}
	if err := sq.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := OpenDataStoreDriver(StorageDriver("bogus"), "", ""); err == nil {
		t.Fatalf("unknown driver must fail")
	}
}

func TestOpenDataStoreDefaultsToSQLite(t *testing.T) {
	t.Setenv("SIMCORE_STORAGE_DRIVER", "")
	t.Setenv("SIMCORE_SQLITE_PATH", filepath.Join(t.TempDir(), "default.db"))
	store, err := OpenDataStore()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	if _, ok := store.(*sqlite.Store); !ok {
		t.Fatalf("expected sqlite default, got %T", store)
	}
}
