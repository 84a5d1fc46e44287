package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

const pqUniqueViolation = "23505"

// isUniqueViolation recognises unique-key conflicts from either driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqUniqueViolation
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "unique") || strings.Contains(text, "duplicate key")
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func notFound(entity, id string) error {
	return core.NotFoundError("sqlstore: "+entity+" not found", map[string]any{
		"entity": entity,
		"id":     id,
	})
}

func notConfigured(store string) error {
	return fmt.Errorf("sqlstore: %s store is not configured", store)
}

func wrapWiring(name string, err error) error {
	return fmt.Errorf("sqlstore: invalid %s repository wiring: %w", name, err)
}
