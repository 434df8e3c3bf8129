// Package store provides storage backends for the Centaur conversation registry.
//
// It includes an in-memory store for development and tests, plus SQLite and
// PostgreSQL backends for persistence across restarts.
package store

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/jkonratt/centaur/internal/models"
)

// Store is the conversation registry storage abstraction. Implementations
// must treat SaveConversation as an upsert keyed by chat id.
type Store interface {
	// GetConversation retrieves the conversation for a chat id.
	// Returns nil without error when no conversation exists.
	GetConversation(chatID int64) (*models.Conversation, error)

	// SaveConversation stores or updates a conversation.
	SaveConversation(conv models.Conversation) error

	// DeleteConversation removes the conversation for a chat id.
	DeleteConversation(chatID int64) error

	// Close releases any underlying resources.
	Close() error
}

// Opts holds configuration options for persistent stores.
type Opts struct {
	DSN string
}

// Option defines a configuration option for a store.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite" based on its shape.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// InMemoryStore is a map-backed Store for development and tests.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[int64]models.Conversation
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	slog.Debug("Creating InMemoryStore")
	return &InMemoryStore{conversations: make(map[int64]models.Conversation)}
}

// GetConversation retrieves the conversation for a chat id.
func (s *InMemoryStore) GetConversation(chatID int64) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[chatID]
	if !ok {
		return nil, nil
	}
	return &conv, nil
}

// SaveConversation stores or updates a conversation.
func (s *InMemoryStore) SaveConversation(conv models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conv.ChatID] = conv
	return nil
}

// DeleteConversation removes the conversation for a chat id.
func (s *InMemoryStore) DeleteConversation(chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, chatID)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
