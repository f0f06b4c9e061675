package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/clusterview/internal/datasource"
	"github.com/vanderheijden86/clusterview/pkg/bundle"
	"github.com/vanderheijden86/clusterview/pkg/debug"
	"github.com/vanderheijden86/clusterview/pkg/query"
)

// SaveToSQLite writes every threshold of b for key into the cluster_bundles
// table at path, creating the database when needed. Rows already stored for
// key are replaced, so the result can be opened as a SQLite source for
// offline viewing.
func SaveToSQLite(ctx context.Context, path string, key query.Key, b bundle.Bundle) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return 0, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, datasource.Schema); err != nil {
		return 0, fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cluster_bundles WHERE base1 = ? AND base2 = ? AND target1 = ? AND target2 = ?`,
		key.Base1, key.Base2, key.Target1, key.Target2); err != nil {
		return 0, fmt.Errorf("clear previous rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO cluster_bundles
		(base1, base2, target1, target2, threshold, graph, options)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	n := 0
	for _, th := range b.Thresholds() {
		e, err := b.Lookup(th)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx,
			key.Base1, key.Base2, key.Target1, key.Target2,
			th.String(), string(e.Graph), string(e.Options)); err != nil {
			return 0, fmt.Errorf("insert %s: %w", th, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	debug.Log("saved %d thresholds for %s to %s", n, key, path)
	return n, nil
}
