package catalog

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a Store backed by a SQLite file (or ":memory:"). It is the
// durable catalog used by the repl; writes go through SaveNode/SaveDatabase.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS databases (
	id      INTEGER PRIMARY KEY,
	name    TEXT NOT NULL UNIQUE,
	dialect TEXT NOT NULL DEFAULT '',
	cost    REAL NOT NULL DEFAULT 1.0
);
CREATE TABLE IF NOT EXISTS nodes (
	name    TEXT PRIMARY KEY,
	version TEXT NOT NULL DEFAULT 'v1',
	type    TEXT NOT NULL,
	query   TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS node_columns (
	node             TEXT NOT NULL REFERENCES nodes(name) ON DELETE CASCADE,
	position         INTEGER NOT NULL,
	name             TEXT NOT NULL,
	type             TEXT NOT NULL DEFAULT '',
	dimension        TEXT NOT NULL DEFAULT '',
	dimension_column TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (node, position)
);
CREATE TABLE IF NOT EXISTS node_tables (
	node        TEXT NOT NULL REFERENCES nodes(name) ON DELETE CASCADE,
	database_id INTEGER NOT NULL REFERENCES databases(id),
	catalog     TEXT NOT NULL DEFAULT '',
	schema      TEXT NOT NULL DEFAULT '',
	tbl         TEXT NOT NULL,
	cost        REAL NOT NULL DEFAULT 1.0
);
`

// OpenSQLite opens (and if needed initializes) a SQLite-backed catalog at the
// given DSN.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening catalog %q: %w", dsn, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing catalog schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Resolve(ctx context.Context, name string) (*NodeRevision, error) {
	rev := &NodeRevision{}
	row := s.db.QueryRowContext(ctx,
		`SELECT name, version, type, query FROM nodes WHERE name = ?`, name)
	var typ string
	if err := row.Scan(&rev.Name, &rev.Version, &typ, &rev.Query); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("resolving %q: %w", name, ErrNodeNotFound)
		}
		return nil, fmt.Errorf("resolving %q: %w", name, err)
	}
	rev.Type = NodeType(typ)

	cols, err := s.db.QueryContext(ctx,
		`SELECT name, type, dimension, dimension_column
		 FROM node_columns WHERE node = ? ORDER BY position`, name)
	if err != nil {
		return nil, fmt.Errorf("loading columns for %q: %w", name, err)
	}
	defer cols.Close()
	for cols.Next() {
		var c ColumnDecl
		if err := cols.Scan(&c.Name, &c.Type, &c.Dimension, &c.DimensionColumn); err != nil {
			return nil, fmt.Errorf("loading columns for %q: %w", name, err)
		}
		rev.Columns = append(rev.Columns, c)
	}
	if err := cols.Err(); err != nil {
		return nil, fmt.Errorf("loading columns for %q: %w", name, err)
	}

	tables, err := s.db.QueryContext(ctx,
		`SELECT database_id, catalog, schema, tbl, cost
		 FROM node_tables WHERE node = ? ORDER BY cost`, name)
	if err != nil {
		return nil, fmt.Errorf("loading tables for %q: %w", name, err)
	}
	defer tables.Close()
	for tables.Next() {
		var t PhysicalTable
		if err := tables.Scan(&t.DatabaseID, &t.Catalog, &t.Schema, &t.Table, &t.Cost); err != nil {
			return nil, fmt.Errorf("loading tables for %q: %w", name, err)
		}
		rev.Tables = append(rev.Tables, t)
	}
	if err := tables.Err(); err != nil {
		return nil, fmt.Errorf("loading tables for %q: %w", name, err)
	}
	return rev, nil
}

func (s *SQLiteStore) Database(ctx context.Context, id int64) (*Database, error) {
	db := &Database{}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, dialect, cost FROM databases WHERE id = ?`, id)
	if err := row.Scan(&db.ID, &db.Name, &db.Dialect, &db.Cost); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("database %d: %w", id, ErrDatabaseNotFound)
		}
		return nil, fmt.Errorf("database %d: %w", id, err)
	}
	return db, nil
}

func (s *SQLiteStore) Databases(ctx context.Context) ([]*Database, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, dialect, cost FROM databases ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing databases: %w", err)
	}
	defer rows.Close()
	var out []*Database
	for rows.Next() {
		db := &Database{}
		if err := rows.Scan(&db.ID, &db.Name, &db.Dialect, &db.Cost); err != nil {
			return nil, fmt.Errorf("listing databases: %w", err)
		}
		out = append(out, db)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing databases: %w", err)
	}
	return out, nil
}

// SaveDatabase inserts or updates a database entry.
func (s *SQLiteStore) SaveDatabase(ctx context.Context, db *Database) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO databases (id, name, dialect, cost) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name,
		 dialect = excluded.dialect, cost = excluded.cost`,
		db.ID, db.Name, db.Dialect, db.Cost)
	if err != nil {
		return fmt.Errorf("saving database %q: %w", db.Name, err)
	}
	return nil
}

// SaveNode inserts or replaces a node revision along with its columns and
// physical tables.
func (s *SQLiteStore) SaveNode(ctx context.Context, rev *NodeRevision) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("saving node %q: %w", rev.Name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO nodes (name, version, type, query) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET version = excluded.version,
		 type = excluded.type, query = excluded.query`,
		rev.Name, rev.Version, string(rev.Type), rev.Query); err != nil {
		return fmt.Errorf("saving node %q: %w", rev.Name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM node_columns WHERE node = ?`, rev.Name); err != nil {
		return fmt.Errorf("saving node %q: %w", rev.Name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM node_tables WHERE node = ?`, rev.Name); err != nil {
		return fmt.Errorf("saving node %q: %w", rev.Name, err)
	}
	for i, c := range rev.Columns {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO node_columns (node, position, name, type, dimension, dimension_column)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rev.Name, i, c.Name, c.Type, c.Dimension, c.DimensionColumn); err != nil {
			return fmt.Errorf("saving node %q: %w", rev.Name, err)
		}
	}
	for _, t := range rev.Tables {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO node_tables (node, database_id, catalog, schema, tbl, cost)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rev.Name, t.DatabaseID, t.Catalog, t.Schema, t.Table, t.Cost); err != nil {
			return fmt.Errorf("saving node %q: %w", rev.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving node %q: %w", rev.Name, err)
	}
	return nil
}

// Nodes lists all node names in the catalog.
func (s *SQLiteStore) Nodes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM nodes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("listing nodes: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	return out, nil
}
