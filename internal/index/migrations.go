package index

import (
	"database/sql"
	"fmt"
)

// Migration is a single additive, idempotent schema change, run inside
// one EXCLUSIVE transaction so two qipu processes racing to open the
// same fresh database don't both try to create the same index.
type Migration struct {
	Name string
	Func func(*sql.DB) error
}

var migrationsList = []Migration{
	{"search_limit_meta", migrateSearchLimitMeta},
}

func migrateSearchLimitMeta(db *sql.DB) error {
	_, ok, err := getMeta(db, "search_limit")
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return setMeta(db, "search_limit", "200")
}

// runMigrations executes every registered migration inside one EXCLUSIVE
// transaction. PRAGMA foreign_keys must be toggled outside any active
// transaction, a SQLite limitation.
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys for migrations: %w", err)
	}
	defer func() { _, _ = db.Exec("PRAGMA foreign_keys = ON") }()

	if _, err := db.Exec("BEGIN EXCLUSIVE"); err != nil {
		return fmt.Errorf("acquire exclusive lock for migrations: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = db.Exec("ROLLBACK")
		}
	}()

	for _, m := range migrationsList {
		if err := m.Func(db); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
	}

	if _, err := db.Exec("COMMIT"); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	committed = true
	return nil
}
