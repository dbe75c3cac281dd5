package extrahop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Do performs an authenticated API call against the session's deployment.
// The endpoint is prefixed with the API version segment unless it already carries
// it or addresses an OAuth path. If the call fails with HTTP 401 and the session
// is a 360 deployment, the access token is refreshed and the identical request is
// replayed exactly once; the replay's outcome is what the caller sees. All other
// failures propagate unmodified.
func (session *Session) Do(ctx context.Context, method, endpoint string, body []byte) (json.RawMessage, error) {
	endpoint = normalizeEndpoint(endpoint)

	result, err := session.strategy.Send(ctx, session.credentials(), method, endpoint, body)
	if err == nil || session.config.Type != Deployment360 || !IsUnauthorized(err) {
		return result, err
	}

	log.Debug().Str("endpoint", endpoint).Msg("access token rejected, refreshing")
	if refreshErr := session.Refresh(ctx); refreshErr != nil {
		return nil, refreshErr
	}
	return session.strategy.Send(ctx, session.credentials(), method, endpoint, body)
}

func (session *Session) credentials() Credentials {
	return Credentials{
		AccessToken: session.AccessToken(),
		APIKey:      session.config.APIKey,
	}
}

func normalizeEndpoint(endpoint string) string {
	if !strings.HasPrefix(endpoint, apiPrefix) && !strings.HasPrefix(endpoint, "/oauth2") {
		return apiPrefix + endpoint
	}
	return endpoint
}

// request performs an authenticated call and decodes the response body into T.
// Bodyless successes decode into T's zero value.
func request[T any](ctx context.Context, session *Session, method, endpoint string, body any) (T, error) {
	var out T

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return out, err
		}
	}

	raw, err := session.Do(ctx, method, endpoint, payload)
	if err != nil {
		return out, err
	}
	if bytes.Equal(raw, emptyObject) {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("could not decode the %s response: %w", endpoint, err)
	}
	return out, nil
}
