package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/noah-isme/schedbot-api/pkg/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS oauth_tokens (
    id         INTEGER PRIMARY KEY CHECK (id = 1),
    token      BLOB NOT NULL,
    updated_at TIMESTAMP NOT NULL
);`

// NewSQLite opens the local credential database and ensures the schema exists.
func NewSQLite(cfg config.SQLiteConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// sqlite serialises writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	return db, nil
}
