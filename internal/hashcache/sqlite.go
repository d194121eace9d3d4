package hashcache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS file_hashes (
	path       TEXT    NOT NULL,
	algo       TEXT    NOT NULL,
	mtime      INTEGER NOT NULL,
	hash       TEXT    NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (path, algo)
);
`

// SQLite is a persistent Cache backed by a pooled SQLite database in WAL
// mode. Safe for concurrent use.
type SQLite struct {
	pool *sqlitex.Pool
	path string
}

// OpenSQLite opens (creating if needed) the cache database at path.
func OpenSQLite(path string, poolSize int) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("hashcache: path is required")
	}
	if poolSize <= 0 {
		poolSize = 4
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("hashcache: %w", err)
	}
	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, fmt.Errorf("hashcache: opening %s: %w", path, err)
	}
	return &SQLite{pool: pool, path: path}, nil
}

func prepareConn(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, p, nil); err != nil {
			return fmt.Errorf("hashcache: %s: %w", p, err)
		}
	}
	return sqlitex.ExecuteScript(conn, schema, nil)
}

func (c *SQLite) Get(ctx context.Context, path string, mtime time.Time, algo string) (string, bool, error) {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return "", false, fmt.Errorf("hashcache: take: %w", err)
	}
	defer c.pool.Put(conn)

	var hash string
	var found bool
	err = sqlitex.Execute(conn,
		`SELECT hash FROM file_hashes WHERE path = ? AND algo = ? AND mtime = ?`,
		&sqlitex.ExecOptions{
			Args: []any{path, algo, mtime.UnixNano()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				hash = stmt.ColumnText(0)
				found = true
				return nil
			},
		})
	if err != nil {
		return "", false, fmt.Errorf("hashcache: get %s: %w", path, err)
	}
	return hash, found, nil
}

func (c *SQLite) Put(ctx context.Context, path string, mtime time.Time, algo, hash string) error {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("hashcache: take: %w", err)
	}
	defer c.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO file_hashes (path, algo, mtime, hash, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (path, algo) DO UPDATE SET
		   mtime = excluded.mtime,
		   hash = excluded.hash,
		   updated_at = excluded.updated_at`,
		&sqlitex.ExecOptions{
			Args: []any{path, algo, mtime.UnixNano(), hash, time.Now().Unix()},
		})
	if err != nil {
		return fmt.Errorf("hashcache: put %s: %w", path, err)
	}
	return nil
}

// Len returns the number of stored rows.
func (c *SQLite) Len(ctx context.Context) (int, error) {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("hashcache: take: %w", err)
	}
	defer c.pool.Put(conn)

	var n int
	err = sqlitex.Execute(conn, `SELECT COUNT(*) FROM file_hashes`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			n = stmt.ColumnInt(0)
			return nil
		},
	})
	return n, err
}

// Prune deletes rows whose file no longer exists and returns how many were
// removed.
func (c *SQLite) Prune(ctx context.Context) (int, error) {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("hashcache: take: %w", err)
	}
	defer c.pool.Put(conn)

	var stale []string
	err = sqlitex.Execute(conn, `SELECT DISTINCT path FROM file_hashes`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			p := stmt.ColumnText(0)
			if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
				stale = append(stale, p)
			}
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("hashcache: prune: %w", err)
	}

	for _, p := range stale {
		if err := sqlitex.Execute(conn, `DELETE FROM file_hashes WHERE path = ?`,
			&sqlitex.ExecOptions{Args: []any{p}}); err != nil {
			return 0, fmt.Errorf("hashcache: prune %s: %w", p, err)
		}
	}
	return len(stale), nil
}

func (c *SQLite) Close() error {
	if err := c.pool.Close(); err != nil {
		return fmt.Errorf("hashcache: closing %s: %w", c.path, err)
	}
	return nil
}
