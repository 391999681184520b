package core

import (
	"fmt"
	"os"

	"reefcore/internal/infra/persistence/memory"
	"reefcore/internal/infra/persistence/postgres"
	"reefcore/internal/infra/persistence/sqlite"
	"reefcore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	REEFCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	REEFCORE_SQLITE_PATH: path to sqlite file (default ./reefcore.db)
//	REEFCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore(engine *domain.RulesEngine) (PersistentStore, error) {
	driver := os.Getenv("REEFCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	return OpenPersistentStoreWithDriver(StorageDriver(driver), engine)
}

// OpenPersistentStoreWithDriver opens a store for an explicit driver choice.
func OpenPersistentStoreWithDriver(driver StorageDriver, engine *domain.RulesEngine) (PersistentStore, error) {
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		return sqlite.NewStore(os.Getenv("REEFCORE_SQLITE_PATH"), engine)
	case StoragePostgres:
		return postgres.NewStore(os.Getenv("REEFCORE_POSTGRES_DSN"), engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
