// Package session tracks multi-chunk upload sessions so that a REPLACE
// upload wipes its dataset exactly once, however many chunks it arrives in
// and whichever server instance receives them.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/courier-ops/internal/domain"
)

// ErrNotFound is returned for unknown or expired tokens.
var ErrNotFound = errors.New("upload session not found")

// Session is the shared state of one logical upload.
type Session struct {
	Token          string         `json:"token" dynamodbav:"token"`
	Dataset        domain.Dataset `json:"dataset" dynamodbav:"dataset"`
	Initialized    bool           `json:"initialized" dynamodbav:"initialized"`
	TotalProcessed int            `json:"total_processed" dynamodbav:"total_processed"`
	CreatedAt      time.Time      `json:"created_at" dynamodbav:"created_at"`
}

// Store persists sessions with a TTL.
type Store interface {
	// Create starts a new, uninitialized session.
	Create(ctx context.Context, ds domain.Dataset) (*Session, error)
	// Get returns ErrNotFound for unknown or expired tokens.
	Get(ctx context.Context, ds domain.Dataset, token string) (*Session, error)
	// MarkInitialized records that the one-time wipe has happened.
	MarkInitialized(ctx context.Context, ds domain.Dataset, token string) error
	// AddProcessed adds n to the running total and returns the new total.
	AddProcessed(ctx context.Context, ds domain.Dataset, token string, n int) (int, error)
	// Reset clears the initialized flag and the running total.
	Reset(ctx context.Context, ds domain.Dataset, token string) error
	// ResetAll drops every session of a dataset and returns how many existed.
	ResetAll(ctx context.Context, ds domain.Dataset) (int, error)
}

// NewToken returns a fresh opaque session token.
func NewToken() string {
	return uuid.NewString()
}
