package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	// import the SQLite driver to register it with the database/sql package.
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var embeddedSchema embed.FS

type Storage struct {
	Connection *sql.DB
}

// NewSQLiteStorage - opens the database file at path with foreign keys enforced.
func NewSQLiteStorage(path string) (*Storage, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	// SQLite allows one writer; a single connection keeps transactions serialised in-process.
	conn.SetMaxOpenConns(1)

	if err = conn.Ping(); err != nil {
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &Storage{Connection: conn}, nil
}

// Init - applies the embedded schema. Safe to run on every start.
func (that *Storage) Init(ctx context.Context) error {
	schema, err := embeddedSchema.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("can't read schema: %w", err)
	}

	if _, err = that.Connection.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("can't create tables: %w", err)
	}

	return nil
}

func (that *Storage) Close() error {
	return that.Connection.Close()
}
