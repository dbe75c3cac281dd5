package session

import (
	"context"

	"github.com/revealx-tools/console/internal/extrahop"
)

// Storage defines the durable console session storage API
type Storage interface {
	// GetByRawToken retrieves a session by its raw (prior hashing) token
	GetByRawToken(ctx context.Context, rawToken string) (*Session, error)

	// Create creates a new session for the given deployment configuration and
	// returns the raw token together with the stored session
	Create(ctx context.Context, config extrahop.Config, accessToken string, connectedAt, expires int64) (string, *Session, error)

	// UpdateAccessToken replaces the stored access token of a session after a refresh
	UpdateAccessToken(ctx context.Context, rawToken, accessToken string) error

	// TerminateByRawToken terminates a session by its raw token
	TerminateByRawToken(ctx context.Context, rawToken string) error

	// TerminateExpired terminates all sessions that are expired
	TerminateExpired(ctx context.Context) (int, error)
}
