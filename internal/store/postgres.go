// Package store provides storage backends for the Centaur conversation registry.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "embed"

	"github.com/jkonratt/centaur/internal/models"
	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists conversations in a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// GetConversation retrieves the conversation for a chat id.
func (s *PostgresStore) GetConversation(chatID int64) (*models.Conversation, error) {
	query := `SELECT chat_id, status, thread_id, created_at, updated_at FROM conversations WHERE chat_id = $1`
	var conv models.Conversation
	err := s.db.QueryRow(query, chatID).Scan(&conv.ChatID, &conv.Status, &conv.ThreadID, &conv.CreatedAt, &conv.UpdatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetConversation not found", "chatID", chatID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetConversation failed", "error", err, "chatID", chatID)
		return nil, err
	}
	return &conv, nil
}

// SaveConversation stores or updates a conversation.
func (s *PostgresStore) SaveConversation(conv models.Conversation) error {
	query := `
		INSERT INTO conversations (chat_id, status, thread_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chat_id) DO UPDATE SET
			status = EXCLUDED.status,
			thread_id = EXCLUDED.thread_id,
			updated_at = EXCLUDED.updated_at`
	_, err := s.db.Exec(query, conv.ChatID, conv.Status, conv.ThreadID, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveConversation failed", "error", err, "chatID", conv.ChatID)
		return err
	}
	slog.Debug("PostgresStore SaveConversation succeeded", "chatID", conv.ChatID, "status", conv.Status)
	return nil
}

// DeleteConversation removes the conversation for a chat id.
func (s *PostgresStore) DeleteConversation(chatID int64) error {
	_, err := s.db.Exec(`DELETE FROM conversations WHERE chat_id = $1`, chatID)
	if err != nil {
		slog.Error("PostgresStore DeleteConversation failed", "error", err, "chatID", chatID)
		return err
	}
	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
