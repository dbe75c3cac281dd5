package extrahop

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// User represents a user account of the deployment
type User struct {
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Type     string `json:"type,omitempty"`
}

// Users retrieves the user accounts of the deployment.
// Enterprise deployments may not expose the users endpoint at all, so every
// failure maps to an empty list instead of an error.
func (session *Session) Users(ctx context.Context) []User {
	users, err := request[[]User](ctx, session, http.MethodGet, "/users", nil)
	if err != nil {
		log.Warn().Err(err).Msg("could not fetch users")
		return []User{}
	}
	if users == nil {
		users = []User{}
	}
	return users
}
