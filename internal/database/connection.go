package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	*sql.DB
}

type Config struct {
	Path string // Path to the sqlite database file
}

func NewConnection(config Config) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", config.Path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite allows a single writer; keep the pool small
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// RunMigrations runs all pending database migrations
func (db *DB) RunMigrations() error {
	migrator := NewMigrator(db.DB)
	return migrator.RunMigrations()
}
