package core

import (
	"fmt"
	"os"

	"simcore/internal/infra/persistence/memory"
	"simcore/internal/infra/persistence/postgres"
	"simcore/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenDataStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	SIMCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	SIMCORE_SQLITE_PATH: path to sqlite file (default ./simcore.db)
//	SIMCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenDataStore() (DataStore, error) {
	driver := os.Getenv("SIMCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	return OpenDataStoreDriver(StorageDriver(driver), os.Getenv("SIMCORE_SQLITE_PATH"), os.Getenv("SIMCORE_POSTGRES_DSN"))
}

// OpenDataStoreDriver opens the named backend with explicit parameters.
func OpenDataStoreDriver(driver StorageDriver, sqlitePath, postgresDSN string) (DataStore, error) {
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(sqlitePath)
	case StoragePostgres:
		return postgres.NewStore(postgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
