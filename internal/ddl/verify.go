package ddl

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Verify executes the script's statements against an in-memory SQLite
// database. It only makes sense for scripts generated with the sqlite
// dialect; Oracle DDL will not parse.
func Verify(ctx context.Context, script *Script) error {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return fmt.Errorf("open in-memory database: %w", err)
	}
	defer db.Close()

	for _, stmt := range script.Statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(stmt string) string {
	for i := 0; i < len(stmt); i++ {
		if stmt[i] == '\n' {
			return stmt[:i]
		}
	}
	return stmt
}
