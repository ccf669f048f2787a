package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultPath is the junction store, relative to the workspace root.
const DefaultPath = ".tasktree/tags.db"

// SQLite stores memberships in an embedded SQLite database.
type SQLite struct {
	db     *sql.DB
	closed atomic.Bool
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS tags (
			name TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS command_tags (
			command_id TEXT NOT NULL,
			tag_name TEXT NOT NULL REFERENCES tags(name) ON DELETE CASCADE,
			display_order INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (command_id, tag_name)
		);

		CREATE INDEX IF NOT EXISTS idx_command_tags_tag ON command_tags(tag_name, display_order);
	`
	_, err := s.db.Exec(schema)
	return err
}

// tx runs fn inside a transaction.
func (s *SQLite) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func ensureTag(ctx context.Context, tx *sql.Tx, tag string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO tags (name, created_at) VALUES (?, ?)`,
		tag, time.Now().UTC())
	return err
}

// AddMembership adds taskID to tag, ordered after the existing members.
func (s *SQLite) AddMembership(ctx context.Context, taskID, tag string) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		if err := ensureTag(ctx, tx, tag); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO command_tags (command_id, tag_name, display_order)
			SELECT ?, ?, COALESCE(MAX(display_order), -1) + 1
			FROM command_tags WHERE tag_name = ?
		`, taskID, tag, tag)
		return err
	})
}

// RemoveMembership removes taskID from tag. The tag itself remains.
func (s *SQLite) RemoveMembership(ctx context.Context, taskID, tag string) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM command_tags WHERE command_id = ? AND tag_name = ?`,
			taskID, tag)
		return err
	})
}

// TagNames returns every tag in name order.
func (s *SQLite) TagNames(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, `SELECT name FROM tags ORDER BY name`)
}

// MemberIDs returns the members of tag by display order.
func (s *SQLite) MemberIDs(ctx context.Context, tag string) ([]string, error) {
	return s.queryStrings(ctx, `
		SELECT command_id FROM command_tags
		WHERE tag_name = ?
		ORDER BY display_order, command_id
	`, tag)
}

func (s *SQLite) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Reorder rewrites the display order of tag's members.
func (s *SQLite) Reorder(ctx context.Context, tag string, ids []string) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM tags WHERE name = ?`, tag).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTagNotFound
		}
		if err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT command_id FROM command_tags WHERE tag_name = ? ORDER BY display_order, command_id`, tag)
		if err != nil {
			return err
		}
		var current []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			current = append(current, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx,
			`UPDATE command_tags SET display_order = ? WHERE command_id = ? AND tag_name = ?`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, id := range reorder(current, ids) {
			if _, err := stmt.ExecContext(ctx, i, id, tag); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateTag declares an empty tag.
func (s *SQLite) CreateTag(ctx context.Context, tag string) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		return ensureTag(ctx, tx, tag)
	})
}

// DeleteTag removes a tag and its memberships.
func (s *SQLite) DeleteTag(ctx context.Context, tag string) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM command_tags WHERE tag_name = ?`, tag); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE name = ?`, tag)
		return err
	})
}

// Close closes the database. Later calls return ErrStoreClosed.
func (s *SQLite) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
