// Package sqlite opens the public reference-software hash database (an NSRL
// extract) as a read-only SQLite file. It backs Tier 2 of the benign cache.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

type ReferenceDB struct {
	db *sql.DB
}

// Open opens the reference database read-only. A missing file is an error the
// caller is expected to degrade on, not a fatal condition.
func Open(path string) (*ReferenceDB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reference db: %w", err)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &ReferenceDB{db: db}, nil
}

func (r *ReferenceDB) Close() error { return r.db.Close() }

// Contains reports which of the given hashes exist in the reference set.
// Callers chunk batches; this builds one IN(...) predicate per call.
func (r *ReferenceDB) Contains(ctx context.Context, hashes []string) (map[string]bool, error) {
	out := make(map[string]bool, len(hashes))
	if len(hashes) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(hashes)), ",")
	args := make([]any, len(hashes))
	for i, h := range hashes {
		args[i] = h
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT sha256 FROM reference_files WHERE sha256 IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out[h] = true
	}
	return out, rows.Err()
}
