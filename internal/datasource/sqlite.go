package datasource

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/clusterview/pkg/bundle"
	"github.com/vanderheijden86/clusterview/pkg/debug"
	"github.com/vanderheijden86/clusterview/pkg/metrics"
	"github.com/vanderheijden86/clusterview/pkg/query"
)

// Schema is the table the upstream clustering job writes. One row per
// (key, threshold); graph and options hold JSON objects.
const Schema = `
CREATE TABLE IF NOT EXISTS cluster_bundles (
	base1     TEXT NOT NULL,
	base2     TEXT NOT NULL,
	target1   TEXT NOT NULL,
	target2   TEXT NOT NULL,
	threshold TEXT NOT NULL,
	graph     TEXT NOT NULL,
	options   TEXT NOT NULL,
	PRIMARY KEY (base1, base2, target1, target2, threshold)
)`

// SQLiteSource reads bundles from a cluster_bundles table.
type SQLiteSource struct {
	db   *sql.DB
	path string
	opts Options
}

// NewSQLiteSource opens a SQLite database for reading
func NewSQLiteSource(path string, opts Options) (*SQLiteSource, error) {
	path = expandHome(path)

	// Open in read-only mode; the upstream job may be writing concurrently.
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA cache_size = -16000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			debug.Log("sqlite %s: %v", pragma, err)
		}
	}

	return &SQLiteSource{db: db, path: path, opts: opts}, nil
}

// Fetch loads every threshold row for key. Zero rows is no match.
func (s *SQLiteSource) Fetch(ctx context.Context, key query.Key) (bundle.Bundle, error) {
	defer metrics.Timer(metrics.BundleFetch)()

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT threshold, graph, options
		FROM cluster_bundles
		WHERE base1 = ? AND base2 = ? AND target1 = ? AND target2 = ?
		ORDER BY threshold`,
		key.Base1, key.Base2, key.Target1, key.Target2)
	if err != nil {
		return bundle.Bundle{}, fmt.Errorf("query %s: %w", s.path, err)
	}
	defer rows.Close()

	entries := make(map[string]bundle.Entry)
	for rows.Next() {
		var th, graph, options string
		if err := rows.Scan(&th, &graph, &options); err != nil {
			return bundle.Bundle{}, fmt.Errorf("scan %s: %w", s.path, err)
		}
		if _, dup := entries[th]; dup {
			return bundle.Bundle{}, fmt.Errorf("%w: duplicate threshold %q", bundle.ErrInvalidBundle, th)
		}
		entries[th] = bundle.Entry{Graph: []byte(graph), Options: []byte(options)}
	}
	if err := rows.Err(); err != nil {
		return bundle.Bundle{}, fmt.Errorf("read %s: %w", s.path, err)
	}

	b, err := bundle.FromEntries(entries)
	if err != nil {
		return bundle.Bundle{}, fmt.Errorf("%s: %w", s.path, err)
	}
	debug.Logger().Debug("bundle loaded", "source", s.path, "rows", len(entries))
	return b, nil
}

// Keys lists the distinct query keys stored in the database.
func (s *SQLiteSource) Keys(ctx context.Context) ([]query.Key, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT base1, base2, target1, target2
		FROM cluster_bundles
		ORDER BY base1, base2, target1, target2`)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.path, err)
	}
	defer rows.Close()

	var keys []query.Key
	for rows.Next() {
		var k query.Key
		if err := rows.Scan(&k.Base1, &k.Base2, &k.Target1, &k.Target2); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.path, err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Describe returns the database path.
func (s *SQLiteSource) Describe() string { return s.path }

// WatchPath returns the database path.
func (s *SQLiteSource) WatchPath() string { return s.path }

// Close closes the database connection
func (s *SQLiteSource) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
