// Package memory keeps conversation threads: the session record, its full
// message history and the expiry policy around them.
package memory

import (
	"context"
	"errors"
	"time"

	"github.com/Swuzz123/Coffee-Assistant/internal/models"
)

// ErrSessionNotFound is returned for unknown and expired sessions alike.
var ErrSessionNotFound = errors.New("session not found")

// SessionData represents all data for a conversation session
type SessionData struct {
	SessionID  string           `json:"session_id"`
	CustomerID string           `json:"customer_id"`
	Messages   []models.Message `json:"messages"`
	Metadata   Metadata         `json:"metadata"`
}

// Metadata contains session information
type Metadata struct {
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}

// Store defines the interface for conversation storage.
// Every read of a missing or expired session fails with ErrSessionNotFound.
type Store interface {
	// CreateSession starts an empty thread for a customer.
	CreateSession(ctx context.Context, sessionID, customerID string) (*SessionData, error)

	LoadSession(ctx context.Context, sessionID string) (*SessionData, error)

	// AppendMessages adds messages to the end of the thread as one write.
	AppendMessages(ctx context.Context, sessionID string, msgs ...models.Message) error

	GetMessages(ctx context.Context, sessionID string) ([]models.Message, error)

	ClearSession(ctx context.Context, sessionID string) error

	SessionExists(ctx context.Context, sessionID string) (bool, error)

	// UpdateActivity refreshes the last activity time and with it the expiry.
	UpdateActivity(ctx context.Context, sessionID string) error

	// Sweep removes expired sessions and reports how many it removed.
	Sweep(ctx context.Context) (int, error)

	Ping(ctx context.Context) error
}

func newSession(sessionID, customerID string, now time.Time) *SessionData {
	return &SessionData{
		SessionID:  sessionID,
		CustomerID: customerID,
		Messages:   []models.Message{},
		Metadata: Metadata{
			StartedAt:    now,
			LastActivity: now,
		},
	}
}

func (s *SessionData) append(now time.Time, msgs []models.Message) {
	s.Messages = append(s.Messages, msgs...)
	s.Metadata.LastActivity = now
	s.Metadata.MessageCount = len(s.Messages)
}
