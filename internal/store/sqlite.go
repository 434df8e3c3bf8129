// Package store provides storage backends for the Centaur conversation registry.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/jkonratt/centaur/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists conversations in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN is a file path to the database file; the parent directory is
// created if it does not exist.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// GetConversation retrieves the conversation for a chat id.
func (s *SQLiteStore) GetConversation(chatID int64) (*models.Conversation, error) {
	query := `SELECT chat_id, status, thread_id, created_at, updated_at FROM conversations WHERE chat_id = ?`
	var conv models.Conversation
	err := s.db.QueryRow(query, chatID).Scan(&conv.ChatID, &conv.Status, &conv.ThreadID, &conv.CreatedAt, &conv.UpdatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetConversation not found", "chatID", chatID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetConversation failed", "error", err, "chatID", chatID)
		return nil, err
	}
	return &conv, nil
}

// SaveConversation stores or updates a conversation.
func (s *SQLiteStore) SaveConversation(conv models.Conversation) error {
	query := `
		INSERT OR REPLACE INTO conversations (chat_id, status, thread_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query, conv.ChatID, conv.Status, conv.ThreadID, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveConversation failed", "error", err, "chatID", conv.ChatID)
		return err
	}
	slog.Debug("SQLiteStore SaveConversation succeeded", "chatID", conv.ChatID, "status", conv.Status)
	return nil
}

// DeleteConversation removes the conversation for a chat id.
func (s *SQLiteStore) DeleteConversation(chatID int64) error {
	_, err := s.db.Exec(`DELETE FROM conversations WHERE chat_id = ?`, chatID)
	if err != nil {
		slog.Error("SQLiteStore DeleteConversation failed", "error", err, "chatID", chatID)
		return err
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
