package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:bloomday.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/bloomday?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS children (
  id TEXT PRIMARY KEY,
  parent_id TEXT NOT NULL,
  name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS homeworks (
  id TEXT PRIMARY KEY,
  child_id TEXT NOT NULL REFERENCES children(id) ON DELETE CASCADE,
  type TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL,
  instructions TEXT NOT NULL DEFAULT '',
  items_json TEXT NOT NULL DEFAULT '[]',
  due_date INTEGER NOT NULL DEFAULT 0,
  submitted INTEGER NOT NULL DEFAULT 0,
  completion_answer TEXT NOT NULL DEFAULT '',
  result_json TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS submissions (
  id TEXT PRIMARY KEY,
  homework_id TEXT NOT NULL REFERENCES homeworks(id) ON DELETE CASCADE,
  parent_id TEXT NOT NULL,
  child_id TEXT NOT NULL,
  child_name TEXT NOT NULL DEFAULT '',
  file_url TEXT NOT NULL DEFAULT '',
  comment TEXT NOT NULL DEFAULT '',
  completion_answer TEXT NOT NULL DEFAULT '',
  result_json TEXT NOT NULL DEFAULT '',
  is_interactive INTEGER NOT NULL DEFAULT 0,
  submitted_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS completions (
  homework_id TEXT NOT NULL REFERENCES homeworks(id) ON DELETE CASCADE,
  child_id TEXT NOT NULL,
  child_name TEXT NOT NULL DEFAULT '',
  activity_type TEXT NOT NULL DEFAULT '',
  completion_answer TEXT NOT NULL DEFAULT '',
  result_json TEXT NOT NULL DEFAULT '',
  completed_at INTEGER NOT NULL,
  PRIMARY KEY (homework_id, child_id)
);

CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT, -- BIGSERIAL in Postgres
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,                         -- e.g., HomeworkSubmitted
  key TEXT NOT NULL,                         -- natural key: homeworkID
  data TEXT NOT NULL,                        -- JSON payload
  created_at INTEGER NOT NULL
);

`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS children (
  id TEXT PRIMARY KEY,
  parent_id TEXT NOT NULL,
  name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS homeworks (
  id TEXT PRIMARY KEY,
  child_id TEXT NOT NULL REFERENCES children(id) ON DELETE CASCADE,
  type TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL,
  instructions TEXT NOT NULL DEFAULT '',
  items_json TEXT NOT NULL DEFAULT '[]',
  due_date BIGINT NOT NULL DEFAULT 0,
  submitted BOOLEAN NOT NULL DEFAULT FALSE,
  completion_answer TEXT NOT NULL DEFAULT '',
  result_json TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS submissions (
  id TEXT PRIMARY KEY,
  homework_id TEXT NOT NULL REFERENCES homeworks(id) ON DELETE CASCADE,
  parent_id TEXT NOT NULL,
  child_id TEXT NOT NULL,
  child_name TEXT NOT NULL DEFAULT '',
  file_url TEXT NOT NULL DEFAULT '',
  comment TEXT NOT NULL DEFAULT '',
  completion_answer TEXT NOT NULL DEFAULT '',
  result_json TEXT NOT NULL DEFAULT '',
  is_interactive BOOLEAN NOT NULL DEFAULT FALSE,
  submitted_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS completions (
  homework_id TEXT NOT NULL REFERENCES homeworks(id) ON DELETE CASCADE,
  child_id TEXT NOT NULL,
  child_name TEXT NOT NULL DEFAULT '',
  activity_type TEXT NOT NULL DEFAULT '',
  completion_answer TEXT NOT NULL DEFAULT '',
  result_json TEXT NOT NULL DEFAULT '',
  completed_at BIGINT NOT NULL,
  PRIMARY KEY (homework_id, child_id)
);

CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

`
