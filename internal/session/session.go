package session

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/revealx-tools/console/internal/extrahop"
)

// Session represents a console session bound to one deployment.
// A session is identified by its (hashed) bearer token; the ID exists for
// logging and display purposes only. The deployment configuration and the
// current access token are stored alongside so a later request, or a console
// restart with a durable driver, can rebuild connectivity without re-prompting
// for credentials.
type Session struct {
	ID          uuid.UUID
	Token       string
	Config      extrahop.Config
	AccessToken string
	ConnectedAt int64
	Expires     int64
}

// HashToken returns the hex-encoded SHA-256 hash of a raw bearer token.
// Only the hash is ever stored.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
